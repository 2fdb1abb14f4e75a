package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recall-notes/recall/internal/config"
	"github.com/recall-notes/recall/internal/embed"
	recallerrors "github.com/recall-notes/recall/internal/errors"
	"github.com/recall-notes/recall/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Index.Dir = t.TempDir()
	cfg.Embeddings.Provider = "static"
	return cfg
}

func testEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	e, err := New(cfg, nil, WithEmbedder(embed.NewStaticEmbedder()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngine_AddTextAndSearch(t *testing.T) {
	e := testEngine(t, testConfig(t))
	ctx := context.Background()

	// When: indexing a short note
	count, err := e.AddText(ctx, "We agreed to ship the mobile release on Friday.", "standup", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, e.Count())

	// Then: searching with the note's own words finds it
	results, err := e.Search(ctx, "mobile release ship Friday", SearchOptions{MinScoreSet: true})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "standup", results[0].Document.Source)
	assert.Equal(t, "standup_0", results[0].Document.ID)
}

func TestEngine_BlankTextIndexesNothing(t *testing.T) {
	e := testEngine(t, testConfig(t))

	count, err := e.AddText(context.Background(), "   \n\t ", "empty", nil)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, e.Count())
}

func TestEngine_SearchEmptyIndex(t *testing.T) {
	e := testEngine(t, testConfig(t))

	results, err := e.Search(context.Background(), "anything", SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_MinScoreFiltering(t *testing.T) {
	e := testEngine(t, testConfig(t))
	ctx := context.Background()

	_, err := e.AddText(ctx, "Completely unrelated topic about gardening tulips.", "garden", nil)
	require.NoError(t, err)

	// Then: the default threshold drops a weak match
	strict, err := e.Search(ctx, "kubernetes deployment rollback", SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, strict)

	// And: an explicit zero threshold lets it through
	loose, err := e.Search(ctx, "kubernetes deployment rollback", SearchOptions{MinScoreSet: true})
	require.NoError(t, err)
	assert.NotEmpty(t, loose)
}

func TestEngine_PersistsAcrossRestart(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first := testEngine(t, cfg)
	_, err := first.AddText(ctx, "Budget approved for the new hire.", "planning", nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// When: a new engine opens the same index directory
	second := testEngine(t, cfg)
	assert.Equal(t, 1, second.Count())
	assert.Equal(t, []string{"planning"}, second.Sources())

	results, err := second.Search(ctx, "budget approved new hire", SearchOptions{MinScoreSet: true})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestEngine_CorruptSnapshotStartsEmpty(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first := testEngine(t, cfg)
	_, err := first.AddText(ctx, "Some indexed content here.", "notes", nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// Given: a corrupted vectors artifact
	require.NoError(t, os.WriteFile(
		filepath.Join(cfg.Index.Dir, store.VectorsFile), []byte("junk"), 0o644))

	// Then: the engine opens empty and counts the recovery
	second := testEngine(t, cfg)
	assert.Zero(t, second.Count())
	assert.Equal(t, 1, second.Stats().CorruptionRecoveries)

	// And: it accepts new content afterwards
	count, err := second.AddText(ctx, "Fresh content after recovery.", "notes", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEngine_Context(t *testing.T) {
	e := testEngine(t, testConfig(t))
	ctx := context.Background()

	_, err := e.AddText(ctx, "The launch was postponed to next quarter.", "roadmap",
		map[string]string{"title": "Roadmap Review", "date": "2026-08-14"})
	require.NoError(t, err)
	_, err = e.AddText(ctx, "Standup covered the launch delay briefly.", "standup", nil)
	require.NoError(t, err)

	out, err := e.Context(ctx, "launch postponed quarter", ContextOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, out)

	// Then: metadata-backed headers appear, raw source as fallback
	assert.Contains(t, out, "[Source: Roadmap Review (2026-08-14)]")
	if strings.Contains(out, "standup") {
		assert.Contains(t, out, "[Source: standup]")
	}
	if strings.Contains(out, contextSeparator) {
		parts := strings.Split(out, contextSeparator)
		assert.GreaterOrEqual(t, len(parts), 2)
	}
}

func TestEngine_ContextEmptyWithoutMatches(t *testing.T) {
	e := testEngine(t, testConfig(t))

	out, err := e.Context(context.Background(), "anything at all", ContextOptions{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEngine_ContextRespectsBudget(t *testing.T) {
	e := testEngine(t, testConfig(t))
	ctx := context.Background()

	long := strings.Repeat("meeting notes about the deadline. ", 20)
	_, err := e.AddText(ctx, long, "a", nil)
	require.NoError(t, err)
	_, err = e.AddText(ctx, long, "b", nil)
	require.NoError(t, err)

	// Given: a budget only the first result fits into
	out, err := e.Context(ctx, "meeting notes deadline", ContextOptions{MaxTokens: 100})
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.NotContains(t, out, contextSeparator)
}

func TestEngine_ContextBudgetCountsHeaders(t *testing.T) {
	e := testEngine(t, testConfig(t))
	ctx := context.Background()

	content := "The deadline moved to Thursday after the review."
	_, err := e.AddText(ctx, content, "a", nil)
	require.NoError(t, err)
	_, err = e.AddText(ctx, content, "b", nil)
	require.NoError(t, err)

	// Given: a budget the content alone fits but content plus its
	// "[Source: ...]" header exceeds
	budgetTokens := len(content)/charsPerToken + 1
	out, err := e.Context(ctx, "deadline moved Thursday review", ContextOptions{
		MaxTokens: budgetTokens,
	})
	require.NoError(t, err)
	require.NotEmpty(t, out)

	// Then: the header spends budget too, so only one result fits
	assert.NotContains(t, out, contextSeparator)
}

func TestEngine_RemoveSource(t *testing.T) {
	e := testEngine(t, testConfig(t))
	ctx := context.Background()

	_, err := e.AddText(ctx, "Standup notes for Monday morning sync.", "standup", nil)
	require.NoError(t, err)
	_, err = e.AddText(ctx, "Planning decisions for the quarter ahead.", "planning", nil)
	require.NoError(t, err)
	require.Equal(t, 2, e.Count())

	// When: removing one source
	removed, err := e.RemoveSource(ctx, "standup")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, e.Count())
	assert.Equal(t, []string{"planning"}, e.Sources())

	// Then: the retained source is still searchable
	results, err := e.Search(ctx, "planning decisions quarter", SearchOptions{MinScoreSet: true})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "planning", results[0].Document.Source)
}

// gatedEmbedder wraps an embedder and, once armed, parks the next
// EmbedBatch call until released.
type gatedEmbedder struct {
	embed.Embedder
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGatedEmbedder() *gatedEmbedder {
	return &gatedEmbedder{
		Embedder: embed.NewStaticEmbedder(),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (g *gatedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.release
	}
	return g.Embedder.EmbedBatch(ctx, texts)
}

func TestEngine_ConcurrentAddDuringRemoveIsKept(t *testing.T) {
	cfg := testConfig(t)
	gate := newGatedEmbedder()
	e, err := New(cfg, nil, WithEmbedder(gate))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	ctx := context.Background()
	_, err = e.AddText(ctx, "Content that stays indexed.", "kept", nil)
	require.NoError(t, err)
	_, err = e.AddText(ctx, "Content that gets removed.", "gone", nil)
	require.NoError(t, err)

	// Given: a remove parked mid-re-encode
	gate.armed.Store(true)
	removeDone := make(chan error, 1)
	go func() {
		_, err := e.RemoveSource(ctx, "gone")
		removeDone <- err
	}()
	<-gate.entered

	// When: a concurrent ingest arrives while the rebuild is in flight
	addDone := make(chan error, 1)
	go func() {
		_, err := e.AddText(ctx, "Fresh content added during the rebuild.", "fresh", nil)
		addDone <- err
	}()

	close(gate.release)
	require.NoError(t, <-removeDone)
	require.NoError(t, <-addDone)

	// Then: the rebuild did not discard the concurrent ingest
	assert.Equal(t, 2, e.Count())
	assert.ElementsMatch(t, []string{"kept", "fresh"}, e.Sources())
}

func TestEngine_RemoveUnknownSource(t *testing.T) {
	e := testEngine(t, testConfig(t))
	ctx := context.Background()

	_, err := e.AddText(ctx, "Some content.", "notes", nil)
	require.NoError(t, err)

	removed, err := e.RemoveSource(ctx, "absent")
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Equal(t, 1, e.Count())
}

func TestEngine_RemoveLastSourceResets(t *testing.T) {
	e := testEngine(t, testConfig(t))
	ctx := context.Background()

	_, err := e.AddText(ctx, "Only source in the index.", "solo", nil)
	require.NoError(t, err)

	removed, err := e.RemoveSource(ctx, "solo")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Zero(t, e.Count())
	assert.Zero(t, e.Stats().Dimensions)
}

func TestEngine_Clear(t *testing.T) {
	cfg := testConfig(t)
	e := testEngine(t, cfg)
	ctx := context.Background()

	_, err := e.AddText(ctx, "Content to be cleared.", "notes", nil)
	require.NoError(t, err)
	require.True(t, store.Exists(cfg.Index.Dir))

	require.NoError(t, e.Clear())
	assert.Zero(t, e.Count())
	assert.False(t, store.Exists(cfg.Index.Dir))

	// Then: ingest works again after clearing
	count, err := e.AddText(ctx, "New content after clear.", "notes", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEngine_AddBatchProgress(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embeddings.BatchSize = 1
	e := testEngine(t, cfg)

	var calls [][2]int
	items := []TextItem{
		{Text: "First note body.", Source: "a"},
		{Text: "Second note body.", Source: "b"},
		{Text: "", Source: "skipped"},
	}

	count, err := e.AddBatch(context.Background(), items, func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.Len(t, calls, 2)
	assert.Equal(t, [2]int{1, 2}, calls[0])
	assert.Equal(t, [2]int{2, 2}, calls[1])
}

func TestEngine_AddFile(t *testing.T) {
	e := testEngine(t, testConfig(t))
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "retro.txt")
	require.NoError(t, os.WriteFile(path, []byte("Retrospective covered deploy tooling."), 0o644))

	count, err := e.AddFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"retro.txt"}, e.Sources())

	results, err := e.Search(ctx, "retrospective deploy tooling", SearchOptions{MinScoreSet: true})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, path, results[0].Document.Metadata["filepath"])
	assert.Equal(t, ".txt", results[0].Document.Metadata["type"])
}

func TestEngine_AddFileErrors(t *testing.T) {
	e := testEngine(t, testConfig(t))
	ctx := context.Background()

	_, err := e.AddFile(ctx, filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Equal(t, recallerrors.ErrCodeFileNotFound, recallerrors.GetCode(err))

	bad := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(bad, []byte("# markdown"), 0o644))
	_, err = e.AddFile(ctx, bad)
	require.Error(t, err)
	assert.Equal(t, recallerrors.ErrCodeUnsupportedFileType, recallerrors.GetCode(err))
}

func TestEngine_IDsUseRunningOffset(t *testing.T) {
	e := testEngine(t, testConfig(t))
	ctx := context.Background()

	_, err := e.AddText(ctx, "First document.", "a", nil)
	require.NoError(t, err)
	_, err = e.AddText(ctx, "Second document.", "b", nil)
	require.NoError(t, err)

	results, err := e.Search(ctx, "second document", SearchOptions{MinScoreSet: true})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "b_1", results[0].Document.ID)
}

func TestEngine_LazyEmbedderBuiltOnce(t *testing.T) {
	cfg := testConfig(t)

	builds := 0
	e, err := New(cfg, nil, WithEmbedderFactory(func(context.Context) (embed.Embedder, error) {
		builds++
		return embed.NewStaticEmbedder(), nil
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	ctx := context.Background()
	_, err = e.AddText(ctx, "First text.", "a", nil)
	require.NoError(t, err)
	_, err = e.Search(ctx, "first text", SearchOptions{MinScoreSet: true})
	require.NoError(t, err)

	assert.Equal(t, 1, builds)
}
