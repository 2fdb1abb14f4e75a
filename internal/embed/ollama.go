package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	recallerrors "github.com/recall-notes/recall/internal/errors"
)

// Default Ollama connection settings.
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "all-minilm"
)

// OllamaEmbedder generates embeddings via a local Ollama server.
// The embedding dimension is detected on first use by probing the model,
// so the same code path works with any embedding model Ollama serves.
type OllamaEmbedder struct {
	host       string
	model      string
	httpClient *http.Client
	retry      RetryConfig
	logger     *slog.Logger

	mu         sync.RWMutex
	dimensions int
	closed     bool
}

// OllamaOption configures an OllamaEmbedder.
type OllamaOption func(*OllamaEmbedder)

// WithHTTPClient overrides the HTTP client (used in tests).
func WithHTTPClient(client *http.Client) OllamaOption {
	return func(e *OllamaEmbedder) {
		e.httpClient = client
	}
}

// WithRetryConfig overrides the retry behavior.
func WithRetryConfig(cfg RetryConfig) OllamaOption {
	return func(e *OllamaEmbedder) {
		e.retry = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) OllamaOption {
	return func(e *OllamaEmbedder) {
		e.logger = logger
	}
}

// NewOllamaEmbedder creates an embedder backed by an Ollama server.
// Empty host or model fall back to the defaults.
func NewOllamaEmbedder(host, model string, opts ...OllamaOption) *OllamaEmbedder {
	if host == "" {
		host = DefaultOllamaHost
	}
	if model == "" {
		model = DefaultOllamaModel
	}

	e := &OllamaEmbedder{
		host:  strings.TrimSuffix(host, "/"),
		model: model,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		retry:  DefaultRetryConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ Embedder = (*OllamaEmbedder)(nil)

// Embed generates an embedding for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	results, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// EmbedBatch generates embeddings for multiple texts. Inputs are sent in
// sub-batches of at most MaxBatchSize. Empty texts map to zero vectors
// without hitting the server.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, recallerrors.InternalError("embedder is closed", nil)
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	dims, err := e.detectDimensions(ctx)
	if err != nil {
		return nil, err
	}

	results := make([][]float32, len(texts))

	// Collect non-empty texts for the server; empty ones get zero vectors.
	var pending []string
	var positions []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = make([]float32, dims)
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

		embeddings, err := e.embedRequest(ctx, pending[off:end])
		if err != nil {
			return nil, err
		}
		if len(embeddings) != end-off {
			return nil, recallerrors.InternalError(
				fmt.Sprintf("ollama returned %d embeddings for %d inputs", len(embeddings), end-off), nil)
		}

		for j, emb := range embeddings {
			if len(emb) != dims {
				return nil, recallerrors.DimensionMismatch(dims, len(emb))
			}
			results[positions[off+j]] = NormalizeVector(emb)
		}
	}

	return results, nil
}

// embedRequest performs a single /api/embed call with retries.
func (e *OllamaEmbedder) embedRequest(ctx context.Context, input []string) ([][]float32, error) {
	var embeddings [][]float32

	err := withRetry(ctx, e.retry, recallerrors.IsRetryable, func() error {
		body, err := json.Marshal(ollamaEmbedRequest{
			Model: e.model,
			Input: input,
		})
		if err != nil {
			return recallerrors.InternalError("failed to encode embed request", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/embed", bytes.NewReader(body))
		if err != nil {
			return recallerrors.InternalError("failed to build embed request", err)
		}
		req.Header.Set("Content-Type", "application/json")

		start := time.Now()
		resp, err := e.httpClient.Do(req)
		if err != nil {
			return recallerrors.ProviderUnavailable(
				fmt.Sprintf("ollama unreachable at %s", e.host), err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			var errResp ollamaErrorResponse
			_ = json.Unmarshal(data, &errResp)
			msg := errResp.Error
			if msg == "" {
				msg = strings.TrimSpace(string(data))
			}
			if resp.StatusCode >= 500 {
				return recallerrors.ProviderUnavailable(
					fmt.Sprintf("ollama returned %d: %s", resp.StatusCode, msg), nil)
			}
			return recallerrors.New(recallerrors.ErrCodeEmbeddingFailed,
				fmt.Sprintf("ollama rejected embed request (%d): %s", resp.StatusCode, msg), nil)
		}

		var embedResp ollamaEmbedResponse
		if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
			return recallerrors.InternalError("failed to decode embed response", err)
		}

		e.logger.Debug("ollama_embed",
			"model", e.model,
			"inputs", len(input),
			"duration_ms", time.Since(start).Milliseconds())

		embeddings = embedResp.Embeddings
		return nil
	})

	return embeddings, err
}

// detectDimensions probes the model once to learn its output dimension.
func (e *OllamaEmbedder) detectDimensions(ctx context.Context) (int, error) {
	e.mu.RLock()
	if e.dimensions > 0 {
		dims := e.dimensions
		e.mu.RUnlock()
		return dims, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dimensions > 0 {
		return e.dimensions, nil
	}

	embeddings, err := e.embedRequest(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return 0, recallerrors.ProviderUnavailable(
			fmt.Sprintf("model %q returned no embedding", e.model), nil)
	}

	e.dimensions = len(embeddings[0])
	e.logger.Debug("ollama_dimensions_detected", "model", e.model, "dimensions", e.dimensions)
	return e.dimensions, nil
}

// Dimensions returns the embedding dimension, or 0 before first use.
func (e *OllamaEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dimensions
}

// ModelName returns the model identifier.
func (e *OllamaEmbedder) ModelName() string {
	return e.model
}

// Available reports whether the server is reachable and the model is
// present locally.
func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.host+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}

	want := e.model
	for _, m := range tags.Models {
		name := strings.TrimSuffix(m.Name, ":latest")
		if name == want || m.Name == want || m.Model == want {
			return true
		}
	}

	e.logger.Debug("ollama_model_missing", "model", e.model, "available", len(tags.Models))
	return false
}

// Close releases resources.
func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.httpClient.CloseIdleConnections()
	return nil
}
