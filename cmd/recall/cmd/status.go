package cmd

import (
	"github.com/spf13/cobra"

	"github.com/recall-notes/recall/internal/output"
)

// newStatusCmd creates the status command.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show index status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			stats := eng.Stats()
			out := output.New(cmd.OutOrStdout())
			out.Statusf("", "Index directory:  %s", cfg.Index.Dir)
			out.Statusf("", "Documents:        %d", stats.Documents)
			out.Statusf("", "Sources:          %d", stats.Sources)
			if stats.Dimensions > 0 {
				out.Statusf("", "Dimensions:       %d", stats.Dimensions)
			}
			if stats.Model != "" {
				out.Statusf("", "Model:            %s", stats.Model)
			}
			if stats.CorruptionRecoveries > 0 {
				out.Warningf("Recovered from %d corrupt snapshot(s); the index was rebuilt empty",
					stats.CorruptionRecoveries)
			}
			return nil
		},
	}
}
