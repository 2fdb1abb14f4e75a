// Package engine ties chunking, embedding, and the vector store into
// one retrieval engine over locally indexed notes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/recall-notes/recall/internal/chunk"
	"github.com/recall-notes/recall/internal/config"
	"github.com/recall-notes/recall/internal/embed"
	recallerrors "github.com/recall-notes/recall/internal/errors"
	"github.com/recall-notes/recall/internal/extract"
	"github.com/recall-notes/recall/internal/store"
)

// TextItem is one piece of text to ingest with its provenance.
type TextItem struct {
	Text     string
	Source   string
	Metadata map[string]string
}

// SearchOptions tune a search. Zero values fall back to configuration.
type SearchOptions struct {
	TopK     int
	MinScore float32
	// MinScoreSet distinguishes an explicit 0 threshold from the default.
	MinScoreSet bool
}

// ContextOptions tune context assembly. Zero values fall back to
// configuration.
type ContextOptions struct {
	TopK      int
	MaxTokens int
}

// ProgressFunc reports batch ingest progress.
type ProgressFunc func(done, total int)

// Stats summarizes engine state.
type Stats struct {
	Documents            int
	Sources              int
	Dimensions           int
	Model                string
	CorruptionRecoveries int
}

// charsPerToken approximates the character budget per token when
// assembling context.
const charsPerToken = 4

// contextSeparator joins context parts.
const contextSeparator = "\n\n---\n\n"

// Engine is the retrieval engine. All exported methods are safe for
// concurrent use; mutations take the write lock, reads the read lock.
// The embedder is constructed lazily on first use because loading a
// model is expensive.
type Engine struct {
	cfg     *config.Config
	logger  *slog.Logger
	chunker *chunk.Chunker
	dir     string

	embedMu     sync.Mutex
	embedder    embed.Embedder
	newEmbedder func(ctx context.Context) (embed.Embedder, error)

	mu                   sync.RWMutex
	index                *store.FlatIndex
	docs                 *store.DocumentStore
	lock                 *indexLock
	corruptionRecoveries int
}

// Option configures an Engine.
type Option func(*Engine)

// WithEmbedder injects a prebuilt embedder, bypassing the lazy factory.
func WithEmbedder(e embed.Embedder) Option {
	return func(eng *Engine) {
		eng.embedder = e
	}
}

// WithEmbedderFactory overrides how the lazy embedder is constructed.
func WithEmbedderFactory(f func(ctx context.Context) (embed.Embedder, error)) Option {
	return func(eng *Engine) {
		eng.newEmbedder = f
	}
}

// New creates an engine over the configured index directory, loading
// any existing snapshot. A corrupt snapshot is logged and counted, and
// the engine starts empty rather than failing.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	chunker, err := chunk.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		logger:  logger,
		chunker: chunker,
		dir:     cfg.Index.Dir,
		index:   store.NewFlatIndex(0),
		docs:    store.NewDocumentStore(),
		lock:    newIndexLock(cfg.Index.Dir),
		newEmbedder: func(ctx context.Context) (embed.Embedder, error) {
			return embed.NewEmbedder(ctx, cfg, logger)
		},
	}
	for _, opt := range opts {
		opt(e)
	}

	e.loadSnapshot()
	return e, nil
}

// loadSnapshot restores persisted state. Missing artifacts mean a fresh
// index; anything unreadable is treated as recoverable corruption.
func (e *Engine) loadSnapshot() {
	index, docs, meta, err := store.Load(e.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e.logger.Debug("index_empty", "dir", e.dir)
			return
		}
		e.corruptionRecoveries++
		e.logger.Warn("index_corrupt_recovered",
			"dir", e.dir,
			"error", err.Error(),
			"recoveries", e.corruptionRecoveries)
		return
	}

	e.index = index
	e.docs = docs
	e.logger.Info("index_loaded",
		"documents", docs.Count(),
		"dimensions", meta.Dimensions,
		"model", meta.ModelName)
}

// ensureEmbedder constructs the embedder on first use.
func (e *Engine) ensureEmbedder(ctx context.Context) (embed.Embedder, error) {
	e.embedMu.Lock()
	defer e.embedMu.Unlock()

	if e.embedder != nil {
		return e.embedder, nil
	}

	emb, err := e.newEmbedder(ctx)
	if err != nil {
		return nil, err
	}
	e.embedder = emb
	return emb, nil
}

// AddText chunks and indexes a piece of text under a source name.
// Returns the number of chunks indexed. Blank text indexes nothing.
func (e *Engine) AddText(ctx context.Context, text, source string, metadata map[string]string) (int, error) {
	return e.AddBatch(ctx, []TextItem{{Text: text, Source: source, Metadata: metadata}}, nil)
}

// AddBatch ingests multiple texts with a single persist at the end.
// Embedding proceeds in configured batch sizes with progress reported
// after each. Partial failures are not rolled back: chunks embedded
// before the failure are simply not appended.
func (e *Engine) AddBatch(ctx context.Context, items []TextItem, progress ProgressFunc) (int, error) {
	var chunks []string
	var docs []store.Document

	for _, item := range items {
		if strings.TrimSpace(item.Text) == "" {
			continue
		}
		for _, piece := range e.chunker.Split(item.Text) {
			chunks = append(chunks, piece)
			docs = append(docs, store.Document{
				Content:  piece,
				Source:   item.Source,
				Metadata: item.Metadata,
			})
		}
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	embedder, err := e.ensureEmbedder(ctx)
	if err != nil {
		return 0, err
	}

	vectors, err := e.embedInBatches(ctx, embedder, chunks, progress)
	if err != nil {
		return 0, err
	}

	if err := e.append(docs, vectors); err != nil {
		return 0, err
	}
	e.logger.Info("documents_added", "chunks", len(docs), "items", len(items))
	return len(docs), nil
}

// AddFile extracts text from a file and indexes it. The source is the
// base filename; metadata records the full path and file type.
func (e *Engine) AddFile(ctx context.Context, path string) (int, error) {
	text, err := extract.FromFile(path)
	if err != nil {
		return 0, err
	}

	return e.AddText(ctx, text, filepath.Base(path), map[string]string{
		"filepath": path,
		"type":     strings.ToLower(filepath.Ext(path)),
	})
}

// embedInBatches runs EmbedBatch in groups of the configured batch size
// and normalizes each vector. Zero-magnitude embeddings stay zero, so
// they never clear a score threshold.
func (e *Engine) embedInBatches(ctx context.Context, embedder embed.Embedder, texts []string, progress ProgressFunc) ([][]float32, error) {
	batchSize := e.cfg.Embeddings.BatchSize
	if batchSize <= 0 {
		batchSize = embed.DefaultBatchSize
	}

	vectors := make([][]float32, 0, len(texts))
	for off := 0; off < len(texts); off += batchSize {
		end := off + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := embedder.EmbedBatch(ctx, texts[off:end])
		if err != nil {
			return nil, err
		}
		for _, vec := range batch {
			vectors = append(vectors, embed.NormalizeVector(vec))
		}
		if progress != nil {
			progress(end, len(texts))
		}
	}
	return vectors, nil
}

// append assigns IDs, adds vectors and documents under the write lock,
// and persists. IDs derive from the running document count so they stay
// unique within a snapshot.
func (e *Engine) append(docs []store.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return recallerrors.InternalError(
			fmt.Sprintf("%d documents but %d vectors", len(docs), len(vectors)), nil)
	}

	if err := e.acquireLock(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	base := e.docs.Count()
	for i := range docs {
		docs[i].ID = fmt.Sprintf("%s_%d", docs[i].Source, base+i)
	}

	if err := e.index.Add(vectors); err != nil {
		return err
	}
	e.docs.Add(docs)

	if e.index.Count() != e.docs.Count() {
		return recallerrors.InternalError(
			fmt.Sprintf("index/store misaligned: %d vectors, %d documents",
				e.index.Count(), e.docs.Count()), nil)
	}

	return e.persistLocked()
}

// persistLocked saves the snapshot. Caller holds the write lock.
func (e *Engine) persistLocked() error {
	model := ""
	if e.embedder != nil {
		model = e.embedder.ModelName()
	}
	if err := store.Save(e.dir, e.index, e.docs, model); err != nil {
		return err
	}
	e.logger.Debug("index_saved", "documents", e.docs.Count(), "dir", e.dir)
	return nil
}

// acquireLock takes the cross-process index lock before the first
// mutation and holds it until Close.
func (e *Engine) acquireLock() error {
	acquired, err := e.lock.TryLock()
	if err != nil {
		return recallerrors.New(recallerrors.ErrCodePersistFailed,
			"failed to lock index directory", err)
	}
	if !acquired {
		return recallerrors.New(recallerrors.ErrCodePersistFailed,
			fmt.Sprintf("index directory %s is locked by another process", e.dir), nil).
			WithSuggestion("stop the other recall process or use a different index directory")
	}
	return nil
}

// Search returns documents similar to the query, best first. Results
// below the score threshold are dropped. An empty index yields an empty
// slice without touching the embedder.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]store.SearchResult, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = e.cfg.Search.TopK
	}
	minScore := e.cfg.Search.MinScore
	if opts.MinScoreSet {
		minScore = opts.MinScore
	}

	if e.Count() == 0 {
		return []store.SearchResult{}, nil
	}

	embedder, err := e.ensureEmbedder(ctx)
	if err != nil {
		return nil, err
	}
	queryVec, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	queryVec = embed.NormalizeVector(queryVec)

	e.mu.RLock()
	defer e.mu.RUnlock()

	k := topK
	if count := e.index.Count(); k > count {
		k = count
	}

	positions, err := e.index.Search(queryVec, k)
	if err != nil {
		return nil, err
	}

	results := make([]store.SearchResult, 0, len(positions))
	for _, p := range positions {
		if p.Score < minScore {
			continue
		}
		doc, ok := e.docs.Get(p.Position)
		if !ok {
			continue
		}
		results = append(results, store.SearchResult{Document: doc, Score: p.Score})
	}
	return results, nil
}

// Context assembles retrieved chunks into a prompt-ready block. Each
// result gets a source header and results are included whole until the
// character budget is exhausted. Returns an empty string when nothing
// matches.
func (e *Engine) Context(ctx context.Context, query string, opts ContextOptions) (string, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = e.cfg.Search.ContextTopK
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = e.cfg.Search.ContextMaxTokens
	}

	results, err := e.Search(ctx, query, SearchOptions{TopK: topK})
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}

	budget := maxTokens * charsPerToken
	var parts []string
	used := 0
	for _, result := range results {
		if used >= budget {
			break
		}
		part := contextHeader(result.Document) + "\n" + result.Document.Content
		parts = append(parts, part)
		used += len(part)
	}

	return strings.Join(parts, contextSeparator), nil
}

// contextHeader formats the provenance line for one context part.
func contextHeader(doc store.Document) string {
	title := doc.Metadata["title"]
	if title == "" {
		title = doc.Source
	}
	if date := doc.Metadata["date"]; date != "" {
		return fmt.Sprintf("[Source: %s (%s)]", title, date)
	}
	return fmt.Sprintf("[Source: %s]", title)
}

// RemoveSource drops all documents of a source and rebuilds the index
// from the retained documents, re-encoding them in one batch. Returns
// the number of documents removed; an unknown source removes nothing.
//
// The write lock spans partition, re-encode, swap, and persist, so a
// concurrent mutation can never land between the partition and the
// swap and be lost. A remove therefore blocks other mutations for the
// duration of the re-encode.
func (e *Engine) RemoveSource(ctx context.Context, source string) (int, error) {
	if err := e.acquireLock(); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	matched, retained := e.docs.Partition(source)
	if len(matched) == 0 {
		return 0, nil
	}

	newIndex := store.NewFlatIndex(0)
	newDocs := store.NewDocumentStore()

	if len(retained) > 0 {
		embedder, err := e.ensureEmbedder(ctx)
		if err != nil {
			return 0, err
		}

		contents := make([]string, len(retained))
		for i, doc := range retained {
			contents[i] = doc.Content
		}
		vectors, err := e.embedInBatches(ctx, embedder, contents, nil)
		if err != nil {
			return 0, err
		}

		if err := newIndex.Add(vectors); err != nil {
			return 0, err
		}
		newDocs.Add(retained)
	}

	e.index = newIndex
	e.docs = newDocs
	if err := e.persistLocked(); err != nil {
		return 0, err
	}

	e.logger.Info("source_removed",
		"source", source,
		"removed", len(matched),
		"retained", len(retained))
	return len(matched), nil
}

// Clear drops all indexed state in memory and on disk. The next ingest
// starts from an uninitialized index.
func (e *Engine) Clear() error {
	if err := e.acquireLock(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.index = store.NewFlatIndex(0)
	e.docs = store.NewDocumentStore()

	if err := store.Remove(e.dir); err != nil {
		return err
	}
	e.logger.Info("index_cleared", "dir", e.dir)
	return nil
}

// Sources returns the distinct source names in insertion order.
func (e *Engine) Sources() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.docs.Sources()
}

// Count returns the number of indexed documents.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.docs.Count()
}

// CountBySource returns per-source chunk counts.
func (e *Engine) CountBySource() map[string]int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.docs.CountBySource()
}

// Stats reports engine state for the status command.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	model := ""
	if e.embedder != nil {
		model = e.embedder.ModelName()
	}
	return Stats{
		Documents:            e.docs.Count(),
		Sources:              len(e.docs.Sources()),
		Dimensions:           e.index.Dimensions(),
		Model:                model,
		CorruptionRecoveries: e.corruptionRecoveries,
	}
}

// Close releases the index lock and the embedder.
func (e *Engine) Close() error {
	e.embedMu.Lock()
	if e.embedder != nil {
		_ = e.embedder.Close()
		e.embedder = nil
	}
	e.embedMu.Unlock()

	return e.lock.Unlock()
}
