package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"linkedin_post_generator/store"
)

var (
	historyLimit     int
	historyOffset    int
	historyFavorites bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse generated posts",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List generated posts, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		var posts []store.Post
		if historyFavorites {
			posts, err = st.Favorites(cmd.Context())
		} else {
			posts, err = st.ListPosts(cmd.Context(), historyLimit, historyOffset)
		}
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(posts) == 0 {
			fmt.Fprintln(out, "No posts in history.")
			return nil
		}
		for _, p := range posts {
			star := " "
			if p.Favorite {
				star = "*"
			}
			fmt.Fprintf(out, "%s #%d  %s  %s/%s  score %d  %q\n    %s\n",
				star, p.ID, p.CreatedAt.Local().Format("2006-01-02 15:04"), p.Tone, p.Length, p.Score,
				preview(p.Topic, 40), preview(p.Body, 80))
		}
		return nil
	},
}

var historyFavoriteCmd = &cobra.Command{
	Use:   "favorite <id>",
	Short: "Toggle the favorite flag of a post",
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

		fav, err := st.ToggleFavorite(cmd.Context(), id)
		if err != nil {
			return err
		}
		if fav {
			fmt.Fprintf(cmd.OutOrStdout(), "post #%d added to favorites\n", id)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "post #%d removed from favorites\n", id)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage and history statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.Statistics(cmd.Context())
		if err != nil {
			return err
		}
		usage := st.Usage()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Total generations: %d\n", usage.Total)
		fmt.Fprintf(out, "Posts in history:  %d (%d favorites, %d in the last 7 days)\n",
			stats.TotalPosts, stats.FavoritePosts, stats.PostsLast7Days)
		fmt.Fprintf(out, "Saved drafts:      %d\n", stats.TotalDrafts)
		fmt.Fprintf(out, "Most used tone:    %s\n", orNA(stats.MostUsedTone))
		fmt.Fprintf(out, "Most used length:  %s\n", orNA(stats.MostUsedLength))

		if len(usage.ByTone) > 0 {
			fmt.Fprintln(out, "Generations by tone:")
			for _, t := range slices.Sorted(maps.Keys(usage.ByTone)) {
				fmt.Fprintf(out, "  %-20s %d\n", t, usage.ByTone[t])
			}
		}
		return nil
	},
}

func init() {
	historyListCmd.Flags().IntVar(&historyLimit, "limit", store.DefaultPageSize, "page size")
	historyListCmd.Flags().IntVar(&historyOffset, "offset", 0, "number of posts to skip")
	historyListCmd.Flags().BoolVar(&historyFavorites, "favorites", false, "only favorites")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
