package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recall-notes/recall/internal/engine"
	"github.com/recall-notes/recall/internal/output"
)

// newContextCmd creates the context command.
func newContextCmd() *cobra.Command {
	var topK int
	var maxTokens int

	cmd := &cobra.Command{
		Use:   "context <query>",
		Short: "Assemble a prompt-ready context block for a query",
		Long: `Retrieve the most relevant chunks for a query and print them as one
block with source headers, ready to paste into an LLM prompt.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			block, err := eng.Context(cmd.Context(), query, engine.ContextOptions{
				TopK:      topK,
				MaxTokens: maxTokens,
			})
			if err != nil {
				return err
			}

			if block == "" {
				output.New(cmd.OutOrStdout()).Status("", "No relevant context found.")
				return nil
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), block)
			return err
		},
	}

	cmd.Flags().IntVarP(&topK, "top", "k", 0, "Maximum chunks to include (default from config)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Approximate token budget (default from config)")

	return cmd
}
