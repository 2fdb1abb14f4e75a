package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/recall-notes/recall/internal/engine"
	"github.com/recall-notes/recall/internal/output"
	"github.com/recall-notes/recall/internal/watcher"
)

// newWatchCmd creates the watch command.
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <directory>",
		Short: "Watch a directory and keep the index in sync",
		Long: `Watch a directory tree for .txt and .pdf changes. New and modified
files are re-indexed; deleted files are removed from the index.
Runs until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			w, err := watcher.New(args[0], cfg.Watch.DebounceWindow(), slog.Default())
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := w.Start(ctx); err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			out.Statusf("👀", "Watching %s (Ctrl-C to stop)", args[0])

			for {
				select {
				case <-ctx.Done():
					out.Newline()
					out.Status("", "Stopped.")
					return nil
				case batch, ok := <-w.Events():
					if !ok {
						return nil
					}
					applyEvents(ctx, eng, out, batch)
				}
			}
		},
	}
}

// applyEvents replays one debounced batch against the engine. Failures
// are reported per file and do not stop the watch loop.
func applyEvents(ctx context.Context, eng *engine.Engine, out *output.Writer, batch []watcher.FileEvent) {
	for _, event := range batch {
		source := filepath.Base(event.Path)
		switch event.Operation {
		case watcher.OpUpsert:
			// Replace rather than accumulate when the file was already indexed.
			if _, err := eng.RemoveSource(ctx, source); err != nil {
				out.Errorf("%s: %v", source, err)
				continue
			}
			count, err := eng.AddFile(ctx, event.Path)
			if err != nil {
				out.Errorf("%s: %v", source, err)
				continue
			}
			out.Successf("Re-indexed %s (%d chunk(s))", source, count)

		case watcher.OpDelete:
			removed, err := eng.RemoveSource(ctx, source)
			if err != nil {
				out.Errorf("%s: %v", source, err)
				continue
			}
			if removed > 0 {
				out.Successf("Removed %s (%d chunk(s))", source, removed)
			}
		}
	}
}
