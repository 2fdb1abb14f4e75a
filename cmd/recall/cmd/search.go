package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recall-notes/recall/internal/engine"
	"github.com/recall-notes/recall/internal/output"
)

// newSearchCmd creates the search command.
func newSearchCmd() *cobra.Command {
	var topK int
	var minScore float32

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed notes by meaning",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			opts := engine.SearchOptions{TopK: topK}
			if cmd.Flags().Changed("min-score") {
				opts.MinScore = minScore
				opts.MinScoreSet = true
			}

			results, err := eng.Search(cmd.Context(), query, opts)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if len(results) == 0 {
				out.Status("", "No results.")
				return nil
			}

			for i, result := range results {
				out.Statusf("", "%d. [%.2f] %s", i+1, result.Score, result.Document.Source)
				out.Block(snippet(result.Document.Content, 200))
			}
			out.Statusf("", "%d result(s)", len(results))
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top", "k", 0, "Maximum results (default from config)")
	cmd.Flags().Float32Var(&minScore, "min-score", 0, "Minimum similarity score")

	return cmd
}

// snippet truncates content for display.
func snippet(content string, max int) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= max {
		return string(runes)
	}
	return fmt.Sprintf("%s…", string(runes[:max]))
}
