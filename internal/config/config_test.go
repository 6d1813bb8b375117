package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, int64(DefaultMaxFileSizeBytes), cfg.MaxFileSizeBytes)
	assert.Equal(t, DefaultChunkSizeChars, cfg.ChunkSizeChars)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, "local", cfg.VectorBackend)
	assert.True(t, cfg.DefaultExclusions)
	assert.True(t, cfg.DependencyScan)
	assert.Equal(t, DefaultSimilarityThreshold, cfg.SimilarityThreshold)
	assert.Equal(t, "python", cfg.SupportedExtensions[".py"])
	assert.NoError(t, cfg.Validate())
}

func TestLoad_TOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contextbrain.toml")
	content := `
db_root = "/tmp/cb"
chunk_size_chars = 512
batch_size = 8
watcher_debounce_ms = 250
similarity_threshold = 0.4
exclude_patterns = ["generated"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cb", cfg.DBRoot)
	assert.Equal(t, 512, cfg.ChunkSizeChars)
	assert.Equal(t, 8, cfg.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.WatcherDebounce())
	assert.Equal(t, 0.4, cfg.SimilarityThreshold)
	assert.Equal(t, []string{"generated"}, cfg.ExcludePatterns)
	// Unset options keep defaults.
	assert.Equal(t, int64(DefaultMaxFileSizeBytes), cfg.MaxFileSizeBytes)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONTEXTBRAIN_DB_ROOT", "/env/root")
	t.Setenv("CONTEXTBRAIN_BATCH_SIZE", "4")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/env/root", cfg.DBRoot)
	assert.Equal(t, 4, cfg.BatchSize)
}

func TestValidate_Ranges(t *testing.T) {
	cfg := Default()
	cfg.SimilarityThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.ChunkSizeChars = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.VectorBackend = "mystery"
	assert.Error(t, cfg.Validate())
}

func TestPaths(t *testing.T) {
	cfg := Default()
	cfg.DBRoot = "/data"
	assert.Equal(t, filepath.Join("/data", "structured.db"), cfg.StructuredDBPath())
	assert.Equal(t, filepath.Join("/data", "vectors"), cfg.VectorDir())
}
