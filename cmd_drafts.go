package main

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"linkedin_post_generator/apperr"
	"linkedin_post_generator/publisher"
)

var (
	exportFormat string
	exportSource string
	exportOut    string
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Manage saved drafts",
}

var draftsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List drafts, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		drafts, err := st.ListDrafts(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(drafts) == 0 {
			fmt.Fprintln(out, "No drafts saved yet.")
			return nil
		}
		for _, d := range drafts {
			fmt.Fprintf(out, "#%d  %s  %s/%s  score %d\n    %s\n",
				d.ID, d.CreatedAt.Local().Format("2006-01-02 15:04"), d.Tone, d.Length, d.Score, preview(d.Body, 80))
		}
		return nil
	},
}

var draftsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteDraft(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted draft #%d\n", id)
		return nil
	},
}

var draftsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export drafts or history as text, markdown or html",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := publisher.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		var entries []publisher.Entry
		switch exportSource {
		case "drafts":
			drafts, err := st.ListDrafts(cmd.Context())
			if err != nil {
				return err
			}
			entries = publisher.FromDrafts(drafts)
		case "history":
			posts, err := st.ListPosts(cmd.Context(), math.MaxInt32, 0)
			if err != nil {
				return err
			}
			entries = publisher.FromPosts(posts)
		default:
			return apperr.Newf(apperr.CodeInvalidInput, "unknown export source %q (want drafts or history)", exportSource)
		}

		var buf bytes.Buffer
		if err := publisher.Export(&buf, format, entries); err != nil {
			return err
		}
		if exportOut == "" || exportOut == "-" {
			_, err := buf.WriteTo(cmd.OutOrStdout())
			return err
		}
		if err := os.WriteFile(exportOut, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d posts to %s\n", len(entries), exportOut)
		return nil
	},
}

func init() {
	draftsExportCmd.Flags().StringVar(&exportFormat, "format", string(publisher.FormatText), "output format: text, markdown or html")
	draftsExportCmd.Flags().StringVar(&exportSource, "source", "drafts", "what to export: drafts or history")
	draftsExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Newf(apperr.CodeInvalidInput, "invalid id %q", s)
	}
	return id, nil
}

func preview(body string, n int) string {
	body = strings.Join(strings.Fields(body), " ")
	if r := []rune(body); len(r) > n {
		return string(r[:n]) + "..."
	}
	return body
}
