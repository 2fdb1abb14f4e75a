// Package cmd provides the CLI commands for recall.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/recall-notes/recall/internal/config"
	"github.com/recall-notes/recall/internal/engine"
	"github.com/recall-notes/recall/internal/logging"
	"github.com/recall-notes/recall/internal/output"
	"github.com/recall-notes/recall/pkg/version"
)

var (
	debugMode      bool
	indexDirFlag   string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the recall CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recall",
		Short: "Local semantic search over your notes",
		Long: `Recall indexes meeting notes and documents locally and retrieves
them by meaning rather than keywords.

Everything runs on your machine: embeddings come from a local Ollama
server when available, and the index lives in a local directory.

Start with 'recall add notes.txt', then 'recall search "what was decided"'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("recall version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.recall/logs/")
	cmd.PersistentFlags().StringVar(&indexDirFlag, "index-dir", "", "Index directory (default ~/.recall/index)")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
	}

	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newContextCmd())
	cmd.AddCommand(newSourcesCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		output.New(os.Stderr).Error(err.Error())
		return err
	}
	return nil
}

// setupLogging configures file logging for every command run.
func setupLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if debugMode {
		logCfg = logging.DebugConfig()
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads configuration from the working directory with any
// command-line overrides applied.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}
	if indexDirFlag != "" {
		cfg.Index.Dir = indexDirFlag
	}
	return cfg, nil
}

// openEngine loads configuration and opens the retrieval engine.
func openEngine() (*engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return engine.New(cfg, slog.Default())
}
