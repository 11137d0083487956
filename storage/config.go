// Package storage is the Storage Engine façade (create database / create
// table / insert row / point lookup / range scan), wiring together the
// Disk Manager, Buffer Pool Manager, B+Tree and system catalog behind a
// single entry point.
package storage

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lawnboyy/armdb/internal/dberr"
)

// Config is the engine's on-disk configuration, loaded from YAML (the
// ambient config-loading story the rest of this codebase follows, e.g.
// the command-line entry point's own flags layer over it).
type Config struct {
	DataDir             string `yaml:"data_dir"`
	BufferPoolPages     int    `yaml:"buffer_pool_pages"`
	ReplacerK           int    `yaml:"replacer_k"`
	BackgroundFlushCron string `yaml:"background_flush_cron"`

	// CatalogBootstrapDir, if set, names a directory containing
	// sys_databases.json/sys_tables.json/sys_columns.json/
	// sys_constraints.json (spec.md §6) consulted only on the very
	// first boot of a fresh data directory (spec.md §4.7). Left empty,
	// the engine uses its built-in system-table schemas.
	CatalogBootstrapDir string `yaml:"catalog_bootstrap_dir"`
}

// DefaultConfig returns reasonable defaults for a standalone instance.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:             dataDir,
		BufferPoolPages:     256,
		ReplacerK:           2,
		BackgroundFlushCron: "@every 30s",
	}
}

// LoadConfig reads and parses a YAML config file, filling in any field
// left zero-valued with DefaultConfig's value.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, dberr.IO("read config "+path, err)
	}
	cfg := DefaultConfig("")
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, dberr.Validation("parse config %s: %v", path, err)
	}
	if cfg.DataDir == "" {
		return Config{}, dberr.Validation("config %s: data_dir is required", path)
	}
	if cfg.BufferPoolPages <= 0 {
		cfg.BufferPoolPages = 256
	}
	if cfg.ReplacerK <= 0 {
		cfg.ReplacerK = 2
	}
	return cfg, nil
}
