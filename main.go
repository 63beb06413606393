package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"linkedin_post_generator/config"
	"linkedin_post_generator/generator"
	"linkedin_post_generator/logger"
	"linkedin_post_generator/store"
)

var (
	// Global flags
	configPath string
	logLevel   string

	cfg    *config.Config
	appLog *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "linkpost",
	Short: "Generate LinkedIn posts with an LLM and keep drafts locally",
	Long: `linkpost turns a topic, a tone and a target length into LinkedIn post
drafts using an OpenAI-compatible completion API (Groq by default).

Drafts, generation history and usage counters live in a local SQLite file.
Run "linkpost serve" to expose the same features as a JSON HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		appLog, err = logger.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appLog != nil {
			_ = appLog.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json (default: "+config.DefaultPath+" when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	draftsCmd.AddCommand(draftsListCmd)
	draftsCmd.AddCommand(draftsDeleteCmd)
	draftsCmd.AddCommand(draftsExportCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyFavoriteCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(refineCmd)
	rootCmd.AddCommand(hooksCmd)
	rootCmd.AddCommand(ctasCmd)
	rootCmd.AddCommand(draftsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(pingCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Path, appLog)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Store.Path, err)
	}
	return st, nil
}

// newAgent wires the configured completion client to st, which may be nil
// for commands that record nothing.
func newAgent(st *store.Store) (*generator.Agent, error) {
	llm, err := buildLLM(cfg.LLM, appLog)
	if err != nil {
		return nil, err
	}
	var rec generator.Recorder
	if st != nil {
		rec = st
	}
	return generator.NewAgent(llm, rec, appLog)
}

func buildLLM(c config.LLMConfig, log *zap.Logger) (generator.LLMClient, error) {
	settings := &generator.LLMSettings{
		Provider:    c.Provider,
		Model:       c.Model,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Timeout:     c.Timeout,
		MaxRetries:  c.MaxRetries,
		BackoffBase: c.BackoffBase,
	}
	switch c.Provider {
	case "mock":
		return generator.MockLLM{}, nil
	case "groq", "openai":
		return generator.NewOpenAILLMFromConfig(settings, log)
	case "deepseek":
		if c.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(settings, log)
	default:
		return nil, fmt.Errorf("llm provider %s not supported", c.Provider)
	}
}
