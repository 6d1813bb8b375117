package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults for the indexing pipeline.
const (
	DefaultMaxFileSizeBytes    = 10 * 1024 * 1024
	DefaultChunkSizeChars      = 2000
	DefaultBatchSize           = 32
	DefaultEmbeddingModel      = "text-embedding-3-small"
	DefaultWatcherDebounce     = 500 * time.Millisecond
	DefaultWatcherMaxHold      = 5 * time.Second
	DefaultSimilarityThreshold = 0.2
	DefaultWorkers             = 4
)

// Config holds all recognised options for the indexing and query engine.
type Config struct {
	// DBRoot is the directory holding structured.db and vectors/.
	DBRoot string `toml:"db_root"`

	MaxFileSizeBytes int64 `toml:"max_file_size_bytes"`
	ChunkSizeChars   int   `toml:"chunk_size_chars"`
	BatchSize        int   `toml:"batch_size"`
	Workers          int   `toml:"workers"`

	EmbeddingModelID  string `toml:"embedding_model_id"`
	EmbeddingProvider string `toml:"embedding_provider"`

	// VectorBackend selects the vector index implementation:
	// "local" (disk-backed, default) or "qdrant".
	VectorBackend string `toml:"vector_backend"`
	QdrantAddr    string `toml:"qdrant_addr"`

	// SupportedExtensions maps file extension to language tag.
	SupportedExtensions map[string]string `toml:"supported_extensions"`

	DefaultExclusions bool     `toml:"default_exclusions"`
	ExcludePatterns   []string `toml:"exclude_patterns"`
	DependencyScan    bool     `toml:"dependency_scan"`

	WatcherDebounceMS int `toml:"watcher_debounce_ms"`

	SimilarityThreshold float64 `toml:"similarity_threshold"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	return &Config{
		DBRoot:              defaultDBRoot(),
		MaxFileSizeBytes:    DefaultMaxFileSizeBytes,
		ChunkSizeChars:      DefaultChunkSizeChars,
		BatchSize:           DefaultBatchSize,
		Workers:             DefaultWorkers,
		EmbeddingModelID:    DefaultEmbeddingModel,
		EmbeddingProvider:   "",
		VectorBackend:       "local",
		SupportedExtensions: DefaultExtensions(),
		DefaultExclusions:   true,
		DependencyScan:      true,
		WatcherDebounceMS:   int(DefaultWatcherDebounce / time.Millisecond),
		SimilarityThreshold: DefaultSimilarityThreshold,
	}
}

// Load reads a TOML configuration file and applies environment overrides
// on top of the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides settings from CONTEXTBRAIN_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("CONTEXTBRAIN_DB_ROOT"); v != "" {
		c.DBRoot = v
	}
	if v := os.Getenv("CONTEXTBRAIN_EMBEDDING_PROVIDER"); v != "" {
		c.EmbeddingProvider = v
	}
	if v := os.Getenv("CONTEXTBRAIN_EMBEDDING_MODEL"); v != "" {
		c.EmbeddingModelID = v
	}
	if v := os.Getenv("CONTEXTBRAIN_VECTOR_BACKEND"); v != "" {
		c.VectorBackend = v
	}
	if v := os.Getenv("QDRANT_ADDR"); v != "" {
		c.QdrantAddr = v
	}
	if v := os.Getenv("CONTEXTBRAIN_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.BatchSize = n
		}
	}
	if v := os.Getenv("CONTEXTBRAIN_MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.MaxFileSizeBytes = n
		}
	}
}

// Validate checks option ranges.
func (c *Config) Validate() error {
	if c.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("max_file_size_bytes must be positive, got %d", c.MaxFileSizeBytes)
	}
	if c.ChunkSizeChars <= 0 {
		return fmt.Errorf("chunk_size_chars must be positive, got %d", c.ChunkSizeChars)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in [0,1], got %f", c.SimilarityThreshold)
	}
	switch c.VectorBackend {
	case "local", "qdrant":
	default:
		return fmt.Errorf("unknown vector_backend %q", c.VectorBackend)
	}
	return nil
}

// WatcherDebounce returns the debounce window as a duration.
func (c *Config) WatcherDebounce() time.Duration {
	if c.WatcherDebounceMS <= 0 {
		return DefaultWatcherDebounce
	}
	return time.Duration(c.WatcherDebounceMS) * time.Millisecond
}

// StructuredDBPath returns the path of the relational store.
func (c *Config) StructuredDBPath() string {
	return filepath.Join(c.DBRoot, "structured.db")
}

// VectorDir returns the directory holding the vector store.
func (c *Config) VectorDir() string {
	return filepath.Join(c.DBRoot, "vectors")
}

func defaultDBRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".contextbrain"
	}
	return filepath.Join(home, ".contextbrain")
}

// DefaultExtensions returns the built-in extension to language table.
func DefaultExtensions() map[string]string {
	return map[string]string{
		".py":       "python",
		".js":       "javascript",
		".jsx":      "javascript",
		".ts":       "typescript",
		".tsx":      "typescript",
		".java":     "java",
		".c":        "c",
		".h":        "c",
		".cpp":      "cpp",
		".cxx":      "cpp",
		".cc":       "cpp",
		".hpp":      "cpp",
		".cs":       "csharp",
		".go":       "go",
		".rs":       "rust",
		".php":      "php",
		".rb":       "ruby",
		".swift":    "swift",
		".kt":       "kotlin",
		".scala":    "scala",
		".sh":       "bash",
		".bash":     "bash",
		".sql":      "sql",
		".html":     "html",
		".htm":      "html",
		".css":      "css",
		".json":     "json",
		".yaml":     "yaml",
		".yml":      "yaml",
		".xml":      "xml",
		".md":       "markdown",
		".markdown": "markdown",
		".rst":      "rst",
		".txt":      "text",
	}
}
