package cmd

import (
	"github.com/spf13/cobra"

	"github.com/recall-notes/recall/internal/output"
)

// newRemoveCmd creates the remove command.
func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <source>",
		Short: "Remove all chunks of a source from the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			out := output.New(cmd.OutOrStdout())
			removed, err := eng.RemoveSource(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if removed == 0 {
				out.Warningf("No source named %q in the index", args[0])
				return nil
			}
			out.Successf("Removed %d chunk(s) from source %q", removed, args[0])
			return nil
		},
	}
}
