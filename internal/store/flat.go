package store

import (
	"sort"
	"sync"

	recallerrors "github.com/recall-notes/recall/internal/errors"
)

// FlatIndex is an exact inner-product index. Vectors are stored densely
// and every query scans all of them, so results are exact rather than
// approximate. With normalized vectors the inner product equals cosine
// similarity. The index is append-only; removal happens by rebuilding.
type FlatIndex struct {
	mu         sync.RWMutex
	dimensions int
	vectors    [][]float32
}

// NewFlatIndex creates an index with a fixed dimension. The dimension of
// the first added vector fixes it when dims is 0.
func NewFlatIndex(dims int) *FlatIndex {
	return &FlatIndex{dimensions: dims}
}

// Add appends vectors to the index. On a fresh index the first vector
// of the batch fixes the dimension; every vector must match it, and on
// mismatch nothing is added.
func (idx *FlatIndex) Add(vectors [][]float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(vectors) == 0 {
		return nil
	}

	dims := idx.dimensions
	if dims == 0 {
		dims = len(vectors[0])
	}
	for _, vec := range vectors {
		if len(vec) != dims {
			return recallerrors.DimensionMismatch(dims, len(vec))
		}
	}

	idx.dimensions = dims
	idx.vectors = append(idx.vectors, vectors...)
	return nil
}

// Search scans all vectors and returns the top-k positions by inner
// product, highest first. k is capped at the index size.
func (idx *FlatIndex) Search(query []float32, k int) ([]ScoredPosition, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.vectors) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != idx.dimensions {
		return nil, recallerrors.DimensionMismatch(idx.dimensions, len(query))
	}
	if k > len(idx.vectors) {
		k = len(idx.vectors)
	}

	scored := make([]ScoredPosition, len(idx.vectors))
	for i, vec := range idx.vectors {
		var score float32
		for j := range vec {
			score += vec[j] * query[j]
		}
		scored[i] = ScoredPosition{Position: i, Score: score}
	}

	sort.Slice(scored, func(a, b int) bool {
		if scored[a].Score != scored[b].Score {
			return scored[a].Score > scored[b].Score
		}
		return scored[a].Position < scored[b].Position
	})

	return scored[:k], nil
}

// Count returns the number of stored vectors.
func (idx *FlatIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Dimensions returns the index dimension, or 0 before the first add.
func (idx *FlatIndex) Dimensions() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimensions
}

// Vectors returns a copy of the stored vectors in insertion order.
func (idx *FlatIndex) Vectors() [][]float32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([][]float32, len(idx.vectors))
	copy(out, idx.vectors)
	return out
}
