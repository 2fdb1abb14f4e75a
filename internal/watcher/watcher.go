// Package watcher follows a notes directory and reports which files
// need re-indexing. Raw filesystem events are noisy (editors write in
// several steps), so events are debounced per path before delivery.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/recall-notes/recall/internal/extract"
)

// Operation is what happened to a file, reduced to what indexing needs
// to know.
type Operation int

const (
	// OpUpsert means the file was created or modified and should be
	// re-ingested.
	OpUpsert Operation = iota
	// OpDelete means the file is gone and its source should be removed.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpUpsert:
		return "UPSERT"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one debounced change to an indexable file.
type FileEvent struct {
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Watcher follows a directory tree and emits debounced events for
// indexable files.
type Watcher struct {
	root      string
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	logger    *slog.Logger
}

// New creates a watcher over root with the given debounce window.
func New(root string, window time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		root:      root,
		fsw:       fsw,
		debouncer: NewDebouncer(window),
		logger:    logger,
	}, nil
}

// Events returns the channel of debounced event batches.
func (w *Watcher) Events() <-chan []FileEvent {
	return w.debouncer.Output()
}

// Start registers the directory tree and runs the event loop until the
// context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	w.logger.Info("watch_started", "root", w.root)

	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.debouncer.Stop()
			_ = w.fsw.Close()
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				w.debouncer.Stop()
				return
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.debouncer.Stop()
				return
			}
			w.logger.Warn("watch_error", "error", err.Error())
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	// New directories must be registered before their contents change.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("watch_add_failed", "path", event.Name, "error", err.Error())
			}
			return
		}
	}

	if !extract.Supported(event.Name) {
		return
	}

	op := OpUpsert
	if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		op = OpDelete
	} else if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}

	w.debouncer.Add(FileEvent{
		Path:      event.Name,
		Operation: op,
		Timestamp: time.Now(),
	})
}

// addRecursive registers a directory and all subdirectories. Hidden
// directories are skipped.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && len(name) > 1 && name[0] == '.' {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.debouncer.Stop()
	return w.fsw.Close()
}
