package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"linkedin_post_generator/generator"
	"linkedin_post_generator/store"
)

var (
	genTopic      string
	genTone       string
	genLength     string
	genVariations bool
	genPostType   string
	genSave       bool

	refineDraftID    int64
	refineBody       string
	refineTopic      string
	refineTone       string
	refineLength     string
	refineRefinement string
	refineSave       bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [topic]",
	Short: "Generate a LinkedIn post (or three variations) for a topic",
	Example: `  linkpost generate "career growth" --tone motivational --length short
  linkpost generate --topic "remote work" --variations --save`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Rewrite an existing post (shorten, lengthen, formalize, storytelling, add_cta, add_emojis)",
	Example: `  linkpost refine --draft 3 --refinement shorten
  linkpost refine --body "$(cat post.txt)" --topic "hiring" --refinement add_cta`,
	Args: cobra.NoArgs,
	RunE: runRefine,
}

var hooksCmd = &cobra.Command{
	Use:   "hooks <topic>",
	Short: "Suggest three opening hooks for a topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, err := newAgent(nil)
		if err != nil {
			return err
		}
		hooks, err := agent.Hooks(cmd.Context(), args[0], "")
		if err != nil {
			return err
		}
		printList(cmd.OutOrStdout(), hooks)
		return nil
	},
}

var ctasCmd = &cobra.Command{
	Use:   "ctas <topic>",
	Short: "Suggest three call-to-action lines for a topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, err := newAgent(nil)
		if err != nil {
			return err
		}
		ctas, err := agent.CTAs(cmd.Context(), args[0], "")
		if err != nil {
			return err
		}
		printList(cmd.OutOrStdout(), ctas)
		return nil
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the completion API accepts the configured key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, err := newAgent(nil)
		if err != nil {
			return err
		}
		if err := agent.Ping(cmd.Context(), ""); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "API connection successful (%s, %s)\n", cfg.LLM.Provider, cfg.LLM.Model)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&genTopic, "topic", "", "post topic (or pass it as the argument)")
	generateCmd.Flags().StringVar(&genTone, "tone", string(generator.ToneProfessional), "tone: "+joinNames(generator.Tones))
	generateCmd.Flags().StringVar(&genLength, "length", string(generator.LengthMedium), "length: "+joinNames(generator.Lengths))
	generateCmd.Flags().BoolVar(&genVariations, "variations", false, "ask for three alternatives")
	generateCmd.Flags().StringVar(&genPostType, "post-type", string(generator.PostTypeGeneral), "post type: "+joinNames(generator.PostTypes))
	generateCmd.Flags().BoolVar(&genSave, "save", false, "save every candidate as a draft")

	refineCmd.Flags().Int64Var(&refineDraftID, "draft", 0, "draft ID to refine")
	refineCmd.Flags().StringVar(&refineBody, "body", "", "post body to refine (instead of --draft)")
	refineCmd.Flags().StringVar(&refineTopic, "topic", "", "topic (defaults to the first line of the post)")
	refineCmd.Flags().StringVar(&refineTone, "tone", "", "tone (defaults to the draft's tone, else professional)")
	refineCmd.Flags().StringVar(&refineLength, "length", "", "length (defaults to the draft's length, else medium)")
	refineCmd.Flags().StringVar(&refineRefinement, "refinement", "", "refinement: "+joinNames(generator.Refinements))
	refineCmd.Flags().BoolVar(&refineSave, "save", false, "save the refined post as a new draft")
	_ = refineCmd.MarkFlagRequired("refinement")
	refineCmd.MarkFlagsMutuallyExclusive("draft", "body")
	refineCmd.MarkFlagsOneRequired("draft", "body")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	topic := genTopic
	if len(args) == 1 {
		topic = args[0]
	}
	mode := generator.ModeSingle
	if genVariations {
		mode = generator.ModeVariations
	}
	req, err := generator.NewRequest(generator.RequestInput{
		Topic:    topic,
		Tone:     genTone,
		Length:   genLength,
		Mode:     string(mode),
		PostType: genPostType,
	})
	if err != nil {
		return err
	}
	return runPipeline(cmd, req, genSave)
}

func runRefine(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	in := generator.RequestInput{
		Topic:      refineTopic,
		Tone:       refineTone,
		Length:     refineLength,
		Mode:       string(generator.ModeRefine),
		PriorBody:  refineBody,
		Refinement: refineRefinement,
	}
	if refineDraftID != 0 {
		d, err := st.GetDraft(ctx, refineDraftID)
		if err != nil {
			return err
		}
		in.PriorBody = d.Body
		if in.Tone == "" {
			in.Tone = string(d.Tone)
		}
		if in.Length == "" {
			in.Length = string(d.Length)
		}
	}
	if in.Topic == "" {
		in.Topic = firstLine(in.PriorBody)
	}
	req, err := generator.NewRequest(in)
	if err != nil {
		return err
	}
	return pipelineWithStore(cmd, st, req, refineSave)
}

func runPipeline(cmd *cobra.Command, req generator.GenerationRequest, save bool) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()
	return pipelineWithStore(cmd, st, req, save)
}

func pipelineWithStore(cmd *cobra.Command, st *store.Store, req generator.GenerationRequest, save bool) error {
	ctx := cmd.Context()
	agent, err := newAgent(st)
	if err != nil {
		return err
	}
	result, err := agent.Generate(ctx, req, "")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.Degraded {
		fmt.Fprintln(out, "warning: the response could not be split into variations; showing it as one post")
	}
	for i, c := range result.Candidates {
		printCandidate(out, i+1, len(result.Candidates), c)
		if !save {
			continue
		}
		id, err := st.SaveDraft(ctx, c, req.Tone(), req.Length())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "saved as draft #%d\n", id)
	}
	return nil
}

func printCandidate(w io.Writer, n, total int, c generator.PostCandidate) {
	if total > 1 {
		fmt.Fprintf(w, "--- Option %d ---\n", n)
	}
	fmt.Fprintln(w, c.Body)
	fmt.Fprintln(w)
	if len(c.Hashtags) > 0 {
		fmt.Fprintf(w, "Hashtags: %s\n", strings.Join(c.Hashtags, " "))
	}
	fmt.Fprintf(w, "Engagement score: %d/100 | %d words | %d chars | ~%ds read\n\n",
		c.Score, c.Stats.Words, c.Stats.Characters, c.Stats.ReadTimeSeconds)
}

func printList(w io.Writer, items []string) {
	for i, s := range items {
		fmt.Fprintf(w, "%d. %s\n", i+1, s)
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > generator.MaxTopicLength {
		s = string(r[:generator.MaxTopicLength])
	}
	return s
}

func joinNames[T ~string](vals []T) string {
	names := make([]string, len(vals))
	for i, v := range vals {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}
