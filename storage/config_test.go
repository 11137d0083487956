package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigFillsReasonableValues(t *testing.T) {
	cfg := DefaultConfig("/tmp/armdb")
	require.Equal(t, "/tmp/armdb", cfg.DataDir)
	require.Positive(t, cfg.BufferPoolPages)
	require.Positive(t, cfg.ReplacerK)
}

func TestLoadConfigFillsDefaultsForZeroFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: "+dir+"\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, dir, cfg.DataDir)
	require.Equal(t, 256, cfg.BufferPoolPages)
	require.Equal(t, 2, cfg.ReplacerK)
}

func TestLoadConfigRequiresDataDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("buffer_pool_pages: 64\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigMissingFileIsError(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
}

func TestLoadConfigHonorsCatalogBootstrapDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "data_dir: " + dir + "\ncatalog_bootstrap_dir: /etc/armdb/bootstrap\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "/etc/armdb/bootstrap", cfg.CatalogBootstrapDir)
}
