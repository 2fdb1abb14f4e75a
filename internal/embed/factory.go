package embed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/recall-notes/recall/internal/config"
	recallerrors "github.com/recall-notes/recall/internal/errors"
)

// NewEmbedder builds an embedder from configuration. An explicit
// provider is used as-is; the empty provider auto-detects, preferring a
// reachable Ollama server and falling back to the static embedder. The
// result is wrapped in an LRU cache.
func NewEmbedder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	inner, err := newProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	cached, err := NewCachedEmbedder(inner, cfg.Embeddings.CacheSize)
	if err != nil {
		_ = inner.Close()
		return nil, recallerrors.InternalError("failed to create embedding cache", err)
	}
	return cached, nil
}

func newProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Embedder, error) {
	switch cfg.Embeddings.Provider {
	case "static":
		logger.Info("embedder_selected", "provider", "static")
		return NewStaticEmbedder(), nil

	case "openai":
		e, err := NewOpenAIEmbedder("", cfg.Embeddings.Model)
		if err != nil {
			return nil, err
		}
		logger.Info("embedder_selected", "provider", "openai", "model", e.ModelName())
		return e, nil

	case "ollama":
		e := NewOllamaEmbedder(cfg.Embeddings.OllamaHost, cfg.Embeddings.Model, WithLogger(logger))
		if !e.Available(ctx) {
			_ = e.Close()
			return nil, recallerrors.ProviderUnavailable(
				fmt.Sprintf("ollama is not reachable or model %q is not pulled", e.ModelName()), nil).
				WithSuggestion(fmt.Sprintf("start ollama and run 'ollama pull %s'", e.ModelName()))
		}
		logger.Info("embedder_selected", "provider", "ollama", "model", e.ModelName())
		return e, nil

	case "":
		e := NewOllamaEmbedder(cfg.Embeddings.OllamaHost, cfg.Embeddings.Model, WithLogger(logger))
		if e.Available(ctx) {
			logger.Info("embedder_selected", "provider", "ollama", "model", e.ModelName(), "auto", true)
			return e, nil
		}
		_ = e.Close()
		logger.Warn("embedder_fallback", "provider", "static",
			"reason", "ollama unavailable")
		return NewStaticEmbedder(), nil

	default:
		return nil, recallerrors.ConfigError(
			fmt.Sprintf("unknown embedding provider %q", cfg.Embeddings.Provider), nil)
	}
}
