// Package config loads application settings from an optional JSON file,
// a .env file and LINKPOST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "config/config.json"

const envPrefix = "LINKPOST"

// placeholderKey is the value shipped in the sample .env file.
const placeholderKey = "your_groq_api_key_here"

// Config is the full application configuration.
type Config struct {
	LLM    LLMConfig    `mapstructure:"llm"`
	Store  StoreConfig  `mapstructure:"store"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

// LLMConfig configures the completion client.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	BackoffBase time.Duration `mapstructure:"backoff_base"`
}

// StoreConfig configures the draft store.
type StoreConfig struct {
	// Path is a local SQLite file path, or a libsql:// / wss:// URL.
	Path string `mapstructure:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	GenerationTimeout time.Duration `mapstructure:"generation_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	SessionTTL        time.Duration `mapstructure:"session_ttl"`
	MaxSessions       int           `mapstructure:"max_sessions"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var providerKeyEnv = map[string]string{
	"groq":     "GROQ_API_KEY",
	"openai":   "OPENAI_API_KEY",
	"deepseek": "DEEPSEEK_API_KEY",
}

var providerBaseURL = map[string]string{
	"groq": "https://api.groq.com/openai/v1",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.backoff_base", time.Second)

	v.SetDefault("store.path", "data/posts.db")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.generation_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.session_ttl", 30*time.Minute)
	v.SetDefault("server.max_sessions", 1000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration. A missing file at DefaultPath is not an error;
// a missing explicitly named file is.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) finalize() error {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	switch c.LLM.Provider {
	case "groq", "openai", "deepseek", "mock":
	default:
		return fmt.Errorf("config: llm provider %q not supported", c.LLM.Provider)
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = providerBaseURL[c.LLM.Provider]
	}
	// DeepSeek exposes an OpenAI-compatible API only behind an explicit base URL.
	if c.LLM.Provider == "deepseek" && c.LLM.BaseURL == "" {
		return errors.New("config: llm provider deepseek requires base_url")
	}
	if c.LLM.APIKey == "" {
		if name, ok := providerKeyEnv[c.LLM.Provider]; ok {
			c.LLM.APIKey = os.Getenv(name)
		}
	}
	if c.LLM.APIKey == placeholderKey {
		c.LLM.APIKey = ""
	}
	if c.LLM.Model == "" {
		return errors.New("config: llm model is required")
	}
	if c.LLM.Timeout <= 0 {
		return errors.New("config: llm timeout must be positive")
	}
	if c.LLM.MaxRetries < 0 {
		return errors.New("config: llm max_retries must not be negative")
	}
	if c.Store.Path == "" {
		return errors.New("config: store path is required")
	}
	return nil
}
