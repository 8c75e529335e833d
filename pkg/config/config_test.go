package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHasFilesBackend(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "files", cfg.Backend)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "files", cfg.Backend)
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "backend: kv\nkv_path: /var/lib/refstore/kv\nlogging:\n  level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "kv", cfg.Backend)
	assert.Equal(t, "/var/lib/refstore/kv", cfg.KVPath)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestWriteSampleProducesLoadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.yaml")
	require.NoError(t, WriteSample(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "files", cfg.Backend)
}
