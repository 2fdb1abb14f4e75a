package embed

import (
	"context"
	"os"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	recallerrors "github.com/recall-notes/recall/internal/errors"
)

// Default OpenAI embedding settings.
const (
	DefaultOpenAIModel      = string(openai.SmallEmbedding3)
	DefaultOpenAIDimensions = 1536
)

// OpenAIEmbedder generates embeddings via the OpenAI API. Useful when no
// local model is available and an API key is configured.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int

	mu     sync.RWMutex
	closed bool
}

// NewOpenAIEmbedder creates an OpenAI-backed embedder. Reads the API key
// from OPENAI_API_KEY when apiKey is empty.
func NewOpenAIEmbedder(apiKey, model string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, recallerrors.ProviderUnavailable("OPENAI_API_KEY is not set", nil)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIEmbedder{
		client:     openai.NewClient(apiKey),
		model:      openai.EmbeddingModel(model),
		dimensions: DefaultOpenAIDimensions,
	}, nil
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// Embed generates an embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	results, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// EmbedBatch generates embeddings for multiple texts. Empty texts map to
// zero vectors; the API rejects empty input.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, recallerrors.InternalError("embedder is closed", nil)
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))

	var pending []string
	var positions []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = make([]float32, e.dimensions)
			continue
		}
		pending = append(pending, text)
		positions = append(positions, i)
	}

	for off := 0; off < len(pending); off += MaxBatchSize {
		end := off + MaxBatchSize
		if end > len(pending) {
			end = len(pending)
		}

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: e.model,
			Input: pending[off:end],
		})
		if err != nil {
			return nil, recallerrors.ProviderUnavailable("openai embeddings request failed", err)
		}
		if len(resp.Data) != end-off {
			return nil, recallerrors.InternalError("openai returned unexpected embedding count", nil)
		}

		for _, item := range resp.Data {
			if len(item.Embedding) != e.dimensions {
				return nil, recallerrors.DimensionMismatch(e.dimensions, len(item.Embedding))
			}
			results[positions[off+item.Index]] = NormalizeVector(item.Embedding)
		}
	}

	return results, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return string(e.model)
}

// Available reports whether an API key is configured. A live probe would
// cost a request, so availability is key presence only.
func (e *OpenAIEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close releases resources.
func (e *OpenAIEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
