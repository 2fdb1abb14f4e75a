package cmd

import (
	"github.com/spf13/cobra"

	"github.com/recall-notes/recall/internal/output"
)

// newSourcesCmd creates the sources command.
func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List indexed sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			out := output.New(cmd.OutOrStdout())
			sources := eng.Sources()
			if len(sources) == 0 {
				out.Status("", "Index is empty.")
				return nil
			}

			counts := eng.CountBySource()
			for _, source := range sources {
				out.Statusf("", "%s (%d chunk(s))", source, counts[source])
			}
			return nil
		},
	}
}
