// Package config loads and validates recall configuration.
//
// Configuration is applied in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/recall/config.yaml, XDG aware)
//  3. Project config (.recall.yaml in the working directory)
//  4. Environment variables (RECALL_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	recallerrors "github.com/recall-notes/recall/internal/errors"
)

// Config represents the complete recall configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Index      IndexConfig      `yaml:"index" json:"index"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Watch      WatchConfig      `yaml:"watch" json:"watch"`
	LogLevel   string           `yaml:"log_level" json:"log_level"`
}

// IndexConfig configures where index artifacts live.
type IndexConfig struct {
	// Dir is the directory holding the vector index and document store.
	Dir string `yaml:"dir" json:"dir"`
}

// ChunkingConfig configures the text chunker.
type ChunkingConfig struct {
	// Size is the sliding window length in characters.
	Size int `yaml:"size" json:"size"`
	// Overlap is how many characters consecutive chunks share.
	// Must be strictly less than Size or the window never advances.
	Overlap int `yaml:"overlap" json:"overlap"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the backend: "ollama", "openai", "static".
	// Empty triggers auto-detection: Ollama if reachable, else static.
	Provider string `yaml:"provider" json:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model" json:"model"`
	// Dimensions overrides auto-detection when non-zero.
	Dimensions int `yaml:"dimensions" json:"dimensions"`
	// BatchSize for batch embedding requests.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// OllamaHost is the Ollama API endpoint (default http://localhost:11434).
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	// CacheSize is the number of query embeddings kept in the LRU cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// SearchConfig configures retrieval defaults.
type SearchConfig struct {
	// TopK is the default maximum number of search results.
	TopK int `yaml:"top_k" json:"top_k"`
	// MinScore is the minimum cosine similarity for a result.
	MinScore float32 `yaml:"min_score" json:"min_score"`
	// ContextTopK is the default result count for context assembly.
	ContextTopK int `yaml:"context_top_k" json:"context_top_k"`
	// ContextMaxTokens is the approximate context budget (chars = tokens*4).
	ContextMaxTokens int `yaml:"context_max_tokens" json:"context_max_tokens"`
}

// WatchConfig configures the notes directory watcher.
type WatchConfig struct {
	// Debounce is the window for coalescing rapid file events.
	Debounce string `yaml:"debounce" json:"debounce"`
}

// DebounceWindow parses the debounce setting. Invalid or empty values
// fall back to 500ms.
func (w WatchConfig) DebounceWindow() time.Duration {
	d, err := time.ParseDuration(w.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// NewConfig creates a Config with working defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			Dir: DefaultIndexDir(),
		},
		Chunking: ChunkingConfig{
			Size:    500,
			Overlap: 50,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "", // auto-detect: Ollama if reachable, else static
			Model:      "all-minilm",
			Dimensions: 0, // auto-detect from provider
			BatchSize:  32,
			OllamaHost: "",
			CacheSize:  1000,
		},
		Search: SearchConfig{
			TopK:             5,
			MinScore:         0.3,
			ContextTopK:      3,
			ContextMaxTokens: 1500,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
		LogLevel: "info",
	}
}

// DefaultIndexDir returns the default index directory (~/.recall/index).
func DefaultIndexDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".recall", "index")
	}
	return filepath.Join(home, ".recall", "index")
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/recall/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/recall/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "recall", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "recall", "config.yaml")
	}
	return filepath.Join(home, ".config", "recall", "config.yaml")
}

// Load loads configuration for the given directory.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	// User/global config first (if present).
	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	// Project config overrides user config.
	if err := cfg.loadFromDir(dir); err != nil {
		return nil, err
	}

	// Environment variables win.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromDir attempts to load .recall.yaml or .recall.yml from dir.
func (c *Config) loadFromDir(dir string) error {
	yamlPath := filepath.Join(dir, ".recall.yaml")
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".recall.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine - use defaults.
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
// Only non-zero values override the current configuration.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return recallerrors.ConfigError(
			fmt.Sprintf("failed to parse config file %s", path), err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero fields from other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Index.Dir != "" {
		c.Index.Dir = other.Index.Dir
	}
	if other.Chunking.Size != 0 {
		c.Chunking.Size = other.Chunking.Size
	}
	if other.Chunking.Overlap != 0 {
		c.Chunking.Overlap = other.Chunking.Overlap
	}
	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}
	if other.Search.TopK != 0 {
		c.Search.TopK = other.Search.TopK
	}
	if other.Search.MinScore != 0 {
		c.Search.MinScore = other.Search.MinScore
	}
	if other.Search.ContextTopK != 0 {
		c.Search.ContextTopK = other.Search.ContextTopK
	}
	if other.Search.ContextMaxTokens != 0 {
		c.Search.ContextMaxTokens = other.Search.ContextMaxTokens
	}
	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// applyEnvOverrides applies RECALL_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RECALL_INDEX_DIR"); v != "" {
		c.Index.Dir = v
	}
	if v := os.Getenv("RECALL_EMBEDDER"); v != "" {
		c.Embeddings.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("RECALL_EMBED_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("RECALL_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("RECALL_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunking.Size = n
		}
	}
	if v := os.Getenv("RECALL_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunking.Overlap = n
		}
	}
	if v := os.Getenv("RECALL_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Embeddings.BatchSize = n
		}
	}
	if v := os.Getenv("RECALL_MIN_SCORE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			c.Search.MinScore = float32(f)
		}
	}
	if v := os.Getenv("RECALL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return recallerrors.ConfigError(
			fmt.Sprintf("chunking.size must be positive, got %d", c.Chunking.Size), nil)
	}
	if c.Chunking.Overlap < 0 {
		return recallerrors.ConfigError(
			fmt.Sprintf("chunking.overlap must not be negative, got %d", c.Chunking.Overlap), nil)
	}
	// Overlap >= size makes the chunk window advance zero or negative
	// characters per step, which loops forever.
	if c.Chunking.Overlap >= c.Chunking.Size {
		return recallerrors.ConfigError(
			fmt.Sprintf("chunking.overlap (%d) must be less than chunking.size (%d)",
				c.Chunking.Overlap, c.Chunking.Size), nil)
	}
	if c.Embeddings.BatchSize <= 0 {
		return recallerrors.ConfigError(
			fmt.Sprintf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize), nil)
	}
	switch c.Embeddings.Provider {
	case "", "ollama", "openai", "static":
	default:
		return recallerrors.ConfigError(
			fmt.Sprintf("embeddings.provider must be one of ollama, openai, static; got %q",
				c.Embeddings.Provider), nil)
	}
	if c.Search.TopK <= 0 {
		return recallerrors.ConfigError(
			fmt.Sprintf("search.top_k must be positive, got %d", c.Search.TopK), nil)
	}
	if c.Search.MinScore < -1 || c.Search.MinScore > 1 {
		return recallerrors.ConfigError(
			fmt.Sprintf("search.min_score must be within [-1, 1], got %v", c.Search.MinScore), nil)
	}
	if c.Search.ContextMaxTokens <= 0 {
		return recallerrors.ConfigError(
			fmt.Sprintf("search.context_max_tokens must be positive, got %d",
				c.Search.ContextMaxTokens), nil)
	}
	return nil
}

// Save writes the configuration to the given path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
