package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recallerrors "github.com/recall-notes/recall/internal/errors"
)

func newOllamaTestServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/embed":
			var req ollamaEmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			embeddings := make([][]float32, len(req.Input))
			for i := range req.Input {
				vec := make([]float32, dims)
				vec[i%dims] = 1.0
				embeddings[i] = vec
			}
			_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{
				Model:      req.Model,
				Embeddings: embeddings,
			})
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(ollamaTagsResponse{
				Models: []ollamaModel{{Name: "all-minilm:latest", Model: "all-minilm"}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestOllamaEmbedder_EmbedBatch(t *testing.T) {
	srv := newOllamaTestServer(t, 8)
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "all-minilm")
	defer func() { _ = e.Close() }()

	results, err := e.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Len(t, results[0], 8)
	assert.Equal(t, 8, e.Dimensions())
}

func TestOllamaEmbedder_EmptyTextGetsZeroVector(t *testing.T) {
	srv := newOllamaTestServer(t, 4)
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "all-minilm")
	defer func() { _ = e.Close() }()

	results, err := e.EmbedBatch(context.Background(), []string{"text", ""})
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, v := range results[1] {
		assert.Zero(t, v)
	}
}

func TestOllamaEmbedder_Available(t *testing.T) {
	srv := newOllamaTestServer(t, 4)
	defer srv.Close()

	present := NewOllamaEmbedder(srv.URL, "all-minilm")
	assert.True(t, present.Available(context.Background()))

	missing := NewOllamaEmbedder(srv.URL, "nomic-embed-text")
	assert.False(t, missing.Available(context.Background()))
}

func TestOllamaEmbedder_ServerUnreachable(t *testing.T) {
	e := NewOllamaEmbedder("http://127.0.0.1:1", "all-minilm",
		WithRetryConfig(fastRetryConfig(0)))
	defer func() { _ = e.Close() }()

	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, recallerrors.ErrCodeProviderUnavailable, recallerrors.GetCode(err))
	assert.False(t, e.Available(context.Background()))
}

func TestOllamaEmbedder_ServerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ollamaErrorResponse{Error: "model not found"})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "bogus", WithRetryConfig(fastRetryConfig(0)))
	defer func() { _ = e.Close() }()

	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, recallerrors.ErrCodeEmbeddingFailed, recallerrors.GetCode(err))
	assert.Contains(t, err.Error(), "model not found")
}

func TestOllamaEmbedder_Defaults(t *testing.T) {
	e := NewOllamaEmbedder("", "")
	assert.Equal(t, DefaultOllamaModel, e.ModelName())
	assert.Equal(t, 0, e.Dimensions())
}
