package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"linkedin_post_generator/apperr"
	"linkedin_post_generator/config"
	"linkedin_post_generator/generator"
)

// writeMockConfig points the CLI at the offline mock provider and a fresh
// database.
func writeMockConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
  "llm": {"provider": "mock", "model": "mock"},
  "store": {"path": "` + filepath.ToSlash(filepath.Join(dir, "posts.db")) + `"},
  "log": {"level": "error"}
}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func runCLI(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBuildLLM(t *testing.T) {
	llm, err := buildLLM(config.LLMConfig{Provider: "mock"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, generator.MockLLM{}, llm)

	llm, err = buildLLM(config.LLMConfig{
		Provider: "groq",
		Model:    "llama-3.3-70b-versatile",
		BaseURL:  "https://api.groq.com/openai/v1",
		Timeout:  30 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &generator.OpenAILLM{}, llm)

	_, err = buildLLM(config.LLMConfig{Provider: "deepseek", Model: "deepseek-chat"}, zap.NewNop())
	assert.ErrorContains(t, err, "base_url")

	_, err = buildLLM(config.LLMConfig{Provider: "claude"}, zap.NewNop())
	assert.ErrorContains(t, err, "not supported")
}

func TestGenerateSavesDraftsAndRecordsHistory(t *testing.T) {
	cfgPath := writeMockConfig(t)

	out, err := runCLI(t, cfgPath, "generate", "career growth", "--tone", "motivational", "--length", "short", "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "Create a LinkedIn post about: career growth")
	assert.Contains(t, out, "Hashtags: #Draft #Mock")
	assert.Contains(t, out, "Engagement score: ")
	assert.Contains(t, out, "saved as draft #1")

	out, err = runCLI(t, cfgPath, "drafts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "#1 ")
	assert.Contains(t, out, "motivational/short")

	out, err = runCLI(t, cfgPath, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, `"career growth"`)

	out, err = runCLI(t, cfgPath, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total generations: 1")
	assert.Contains(t, out, "Saved drafts:      1")
	assert.Contains(t, out, "Most used tone:    motivational")
}

func TestGenerateVariations(t *testing.T) {
	cfgPath := writeMockConfig(t)

	out, err := runCLI(t, cfgPath, "generate", "--topic", "remote work", "--variations")
	require.NoError(t, err)
	for _, want := range []string{"--- Option 1 ---", "--- Option 2 ---", "--- Option 3 ---"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "saved as draft")
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	cfgPath := writeMockConfig(t)

	_, err := runCLI(t, cfgPath, "generate", "career growth", "--tone", "sarcastic")
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	_, err = runCLI(t, cfgPath, "generate", "   ")
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
}

func TestRefine(t *testing.T) {
	cfgPath := writeMockConfig(t)

	_, err := runCLI(t, cfgPath, "generate", "hiring", "--save")
	require.NoError(t, err)

	out, err := runCLI(t, cfgPath, "refine", "--draft", "1", "--refinement", "shorten", "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "Refine the following LinkedIn post.")
	assert.Contains(t, out, "saved as draft #2")

	out, err = runCLI(t, cfgPath, "refine", "--body", "We are hiring.\nJoin us.", "--refinement", "add_cta")
	require.NoError(t, err)
	assert.Contains(t, out, "Hashtags: #Draft #Mock")

	_, err = runCLI(t, cfgPath, "refine", "--draft", "99", "--refinement", "shorten")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	_, err = runCLI(t, cfgPath, "refine", "--draft", "1", "--refinement", "rewrite")
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	_, err = runCLI(t, cfgPath, "refine", "--refinement", "shorten")
	assert.Error(t, err)
}

func TestDraftsDeleteAndExport(t *testing.T) {
	cfgPath := writeMockConfig(t)

	_, err := runCLI(t, cfgPath, "generate", "career growth", "--variations", "--save")
	require.NoError(t, err)

	exportPath := filepath.Join(t.TempDir(), "posts.md")
	out, err := runCLI(t, cfgPath, "drafts", "export", "--format", "md", "--out", exportPath)
	require.NoError(t, err)
	assert.Contains(t, out, "exported 3 posts")
	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# LinkedIn Posts Export"), string(data))

	out, err = runCLI(t, cfgPath, "drafts", "export", "--source", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "Post #3")

	_, err = runCLI(t, cfgPath, "drafts", "export", "--source", "favorites")
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	out, err = runCLI(t, cfgPath, "drafts", "delete", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted draft #2")

	_, err = runCLI(t, cfgPath, "drafts", "delete", "2")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	_, err = runCLI(t, cfgPath, "drafts", "delete", "abc")
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
}

func TestHistoryFavorite(t *testing.T) {
	cfgPath := writeMockConfig(t)

	_, err := runCLI(t, cfgPath, "generate", "career growth")
	require.NoError(t, err)

	out, err := runCLI(t, cfgPath, "history", "favorite", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "added to favorites")

	out, err = runCLI(t, cfgPath, "history", "list", "--favorites")
	require.NoError(t, err)
	assert.Contains(t, out, "* #1")

	out, err = runCLI(t, cfgPath, "history", "favorite", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "removed from favorites")

	out, err = runCLI(t, cfgPath, "history", "list", "--favorites")
	require.NoError(t, err)
	assert.Contains(t, out, "No posts in history.")
}

func TestStatsOnEmptyStore(t *testing.T) {
	cfgPath := writeMockConfig(t)

	out, err := runCLI(t, cfgPath, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total generations: 0")
	assert.Contains(t, out, "Most used tone:    N/A")
	assert.NotContains(t, out, "Generations by tone:")
}

func TestSuggestionsAndPing(t *testing.T) {
	cfgPath := writeMockConfig(t)

	out, err := runCLI(t, cfgPath, "hooks", "career growth")
	require.NoError(t, err)
	assert.Contains(t, out, "1. ")

	out, err = runCLI(t, cfgPath, "ctas", "career growth")
	require.NoError(t, err)
	assert.Contains(t, out, "1. ")

	out, err = runCLI(t, cfgPath, "ping")
	require.NoError(t, err)
	assert.Contains(t, out, "API connection successful (mock, mock)")
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "We are hiring.", firstLine("  We are hiring.  \nJoin us."))
	assert.Equal(t, "", firstLine("   "))
	assert.Len(t, []rune(firstLine(strings.Repeat("é", 600))), generator.MaxTopicLength)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := runCLI(t, filepath.Join(t.TempDir(), "nope.json"), "stats")
	assert.ErrorContains(t, err, "config")
}
