package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/recall-notes/recall/internal/engine"
	"github.com/recall-notes/recall/internal/extract"
	"github.com/recall-notes/recall/internal/output"
)

// extractConcurrency caps parallel file reads during ingest.
const extractConcurrency = 4

// newAddCmd creates the add command.
func newAddCmd() *cobra.Command {
	var textFlag string
	var sourceFlag string

	cmd := &cobra.Command{
		Use:   "add [files...]",
		Short: "Index text files or raw text",
		Long: `Index one or more .txt or .pdf files, or raw text given with --text.

Files are read concurrently, chunked, embedded, and stored in the
local index. The source name of a file is its base filename.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if textFlag == "" && len(args) == 0 {
				return fmt.Errorf("provide files to index or --text")
			}

			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			out := output.New(cmd.OutOrStdout())
			ctx := cmd.Context()

			if textFlag != "" {
				source := sourceFlag
				if source == "" {
					source = "inline"
				}
				count, err := eng.AddText(ctx, textFlag, source, nil)
				if err != nil {
					return err
				}
				out.Successf("Indexed %d chunk(s) under source %q", count, source)
				return nil
			}

			items, err := extractAll(cmd, args)
			if err != nil {
				return err
			}

			total, err := eng.AddBatch(ctx, items, func(done, total int) {
				out.Progress(done, total, "embedding")
			})
			if err != nil {
				return err
			}

			out.Successf("Indexed %d chunk(s) from %d file(s)", total, len(items))
			return nil
		},
	}

	cmd.Flags().StringVar(&textFlag, "text", "", "Raw text to index instead of files")
	cmd.Flags().StringVar(&sourceFlag, "source", "", "Source name for --text (default \"inline\")")

	return cmd
}

// extractAll reads and extracts the given files concurrently, preserving
// argument order in the result.
func extractAll(cmd *cobra.Command, paths []string) ([]engine.TextItem, error) {
	items := make([]engine.TextItem, len(paths))

	g, _ := errgroup.WithContext(cmd.Context())
	g.SetLimit(extractConcurrency)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			text, err := extract.FromFile(path)
			if err != nil {
				return err
			}
			items[i] = engine.TextItem{
				Text:   text,
				Source: filepath.Base(path),
				Metadata: map[string]string{
					"filepath": absPath(path),
					"type":     strings.ToLower(filepath.Ext(path)),
				},
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
