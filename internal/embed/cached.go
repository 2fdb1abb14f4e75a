package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of cached embeddings.
const DefaultCacheSize = 4096

// CachedEmbedder wraps another embedder with an LRU cache keyed by text
// hash. Re-indexing a source after small edits mostly hits the cache
// because unchanged chunks hash identically.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]

	mu     sync.Mutex
	hits   uint64
	misses uint64
}

// NewCachedEmbedder wraps inner with an LRU cache of the given size.
// A size of 0 uses DefaultCacheSize.
func NewCachedEmbedder(inner Embedder, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

var _ Embedder = (*CachedEmbedder)(nil)

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Embed returns a cached embedding or delegates to the inner embedder.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(e.inner.ModelName(), text)
	if cached, ok := e.cache.Get(key); ok {
		e.mu.Lock()
		e.hits++
		e.mu.Unlock()
		return cached, nil
	}

	emb, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.misses++
	e.mu.Unlock()
	e.cache.Add(key, emb)
	return emb, nil
}

// EmbedBatch serves cached entries and forwards only the misses to the
// inner embedder in a single call.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	model := e.inner.ModelName()

	var missing []string
	var positions []int
	for i, text := range texts {
		if cached, ok := e.cache.Get(cacheKey(model, text)); ok {
			results[i] = cached
			continue
		}
		missing = append(missing, text)
		positions = append(positions, i)
	}

	e.mu.Lock()
	e.hits += uint64(len(texts) - len(missing))
	e.misses += uint64(len(missing))
	e.mu.Unlock()

	if len(missing) > 0 {
		embeddings, err := e.inner.EmbedBatch(ctx, missing)
		if err != nil {
			return nil, err
		}
		for j, emb := range embeddings {
			results[positions[j]] = emb
			e.cache.Add(cacheKey(model, missing[j]), emb)
		}
	}

	return results, nil
}

// Stats returns cache hit and miss counts.
func (e *CachedEmbedder) Stats() (hits, misses uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hits, e.misses
}

// Dimensions returns the inner embedder's dimension.
func (e *CachedEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

// ModelName returns the inner embedder's model identifier.
func (e *CachedEmbedder) ModelName() string {
	return e.inner.ModelName()
}

// Available delegates to the inner embedder.
func (e *CachedEmbedder) Available(ctx context.Context) bool {
	return e.inner.Available(ctx)
}

// Close purges the cache and closes the inner embedder.
func (e *CachedEmbedder) Close() error {
	e.cache.Purge()
	return e.inner.Close()
}
