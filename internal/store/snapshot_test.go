package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recallerrors "github.com/recall-notes/recall/internal/errors"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	idx := NewFlatIndex(3)
	require.NoError(t, idx.Add([][]float32{{1, 0, 0}, {0, 1, 0}}))
	docs := NewDocumentStore()
	docs.Add([]Document{
		{ID: "notes_0", Content: "first", Source: "notes", Metadata: map[string]string{"type": "text"}},
		{ID: "notes_1", Content: "second", Source: "notes"},
	})

	require.NoError(t, Save(dir, idx, docs, "static"))
	assert.True(t, Exists(dir))

	loadedIdx, loadedDocs, meta, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, loadedIdx.Count())
	assert.Equal(t, 3, meta.Dimensions)
	assert.Equal(t, "static", meta.ModelName)

	doc, ok := loadedDocs.Get(1)
	require.True(t, ok)
	assert.Equal(t, "notes_1", doc.ID)

	first, ok := loadedDocs.Get(0)
	require.True(t, ok)
	assert.Equal(t, "text", first.Metadata["type"])
}

func TestSnapshot_MissingReturnsNotExist(t *testing.T) {
	_, _, _, err := Load(t.TempDir())
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestSnapshot_CorruptVectorsFile(t *testing.T) {
	dir := t.TempDir()

	idx := NewFlatIndex(2)
	require.NoError(t, idx.Add([][]float32{{1, 0}}))
	docs := NewDocumentStore()
	docs.Add([]Document{{ID: "a_0", Content: "a", Source: "a"}})
	require.NoError(t, Save(dir, idx, docs, "static"))

	// Given: a truncated vectors artifact
	require.NoError(t, os.WriteFile(filepath.Join(dir, VectorsFile), []byte("garbage"), 0o644))

	_, _, _, err := Load(dir)
	require.Error(t, err)
	assert.Equal(t, recallerrors.ErrCodeCorruptIndex, recallerrors.GetCode(err))
}

func TestSnapshot_MisalignedArtifacts(t *testing.T) {
	dir := t.TempDir()

	idx := NewFlatIndex(2)
	require.NoError(t, idx.Add([][]float32{{1, 0}, {0, 1}}))
	docs := NewDocumentStore()
	docs.Add([]Document{{ID: "a_0", Content: "a", Source: "a"}})

	// Given: two vectors but only one document
	require.NoError(t, Save(dir, idx, docs, "static"))

	_, _, _, err := Load(dir)
	require.Error(t, err)
	assert.Equal(t, recallerrors.ErrCodeCorruptIndex, recallerrors.GetCode(err))
}

func TestSnapshot_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()

	idx := NewFlatIndex(2)
	require.NoError(t, idx.Add([][]float32{{1, 0}}))
	docs := NewDocumentStore()
	docs.Add([]Document{{ID: "a_0", Content: "a", Source: "a"}})
	require.NoError(t, Save(dir, idx, docs, "static"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestSnapshot_Remove(t *testing.T) {
	dir := t.TempDir()

	idx := NewFlatIndex(2)
	require.NoError(t, idx.Add([][]float32{{1, 0}}))
	docs := NewDocumentStore()
	docs.Add([]Document{{ID: "a_0", Content: "a", Source: "a"}})
	require.NoError(t, Save(dir, idx, docs, "static"))

	require.NoError(t, Remove(dir))
	assert.False(t, Exists(dir))

	// Removing again is not an error
	require.NoError(t, Remove(dir))
}
