package cmd

import (
	"github.com/spf13/cobra"

	"github.com/recall-notes/recall/internal/output"
)

// newClearCmd creates the clear command.
func newClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the entire index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())
			if !yes {
				out.Warning("This deletes all indexed documents. Re-run with --yes to confirm.")
				return nil
			}

			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			if err := eng.Clear(); err != nil {
				return err
			}
			out.Success("Index cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion without prompting")
	return cmd
}
