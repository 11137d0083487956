package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/lawnboyy/armdb/internal/btree"
	"github.com/lawnboyy/armdb/internal/buffer"
	"github.com/lawnboyy/armdb/internal/catalog"
	"github.com/lawnboyy/armdb/internal/dberr"
	"github.com/lawnboyy/armdb/internal/dblog"
	"github.com/lawnboyy/armdb/internal/disk"
	"github.com/lawnboyy/armdb/internal/fsx"
	"github.com/lawnboyy/armdb/internal/record"
)

var log = dblog.For("storage")

// Engine is ArmDb's single entry point: create a database, create a
// table within it, insert rows, and look them up or scan them, all
// backed by the Disk Manager / Buffer Pool Manager / B+Tree stack.
type Engine struct {
	pool *buffer.Pool
	dm   *disk.Manager
	cat  *catalog.Catalog
}

// Open creates (if needed) the data directory described by cfg, wires
// up the Disk Manager and Buffer Pool Manager, and bootstraps the
// system catalog.
func Open(ctx context.Context, cfg Config) (*Engine, error) {
	fs := fsx.OSFileSystem{}
	if !fs.DirExists(cfg.DataDir) {
		if err := fs.MkdirAll(cfg.DataDir); err != nil {
			return nil, err
		}
	}
	dm := disk.NewManager(fs, cfg.DataDir)
	pool := buffer.NewPool(dm, cfg.BufferPoolPages, cfg.ReplacerK)
	if cfg.BackgroundFlushCron != "" {
		if err := pool.StartBackgroundFlusher(cfg.BackgroundFlushCron); err != nil {
			return nil, err
		}
	}

	cat := catalog.New(pool, dm)
	if err := cat.Bootstrap(ctx, fs, cfg.CatalogBootstrapDir); err != nil {
		return nil, err
	}
	return &Engine{pool: pool, dm: dm, cat: cat}, nil
}

// Close flushes every dirty page and stops the background flusher.
func (e *Engine) Close(ctx context.Context) error {
	return e.pool.Dispose(ctx)
}

// CreateDatabase allocates the next database id and records it in the
// system catalog.
func (e *Engine) CreateDatabase(ctx context.Context, name string) (int32, error) {
	corrID := uuid.NewString()
	log.WithField("correlation_id", corrID).WithField("database", name).Info("create_database")
	return e.cat.CreateDatabase(ctx, name)
}

// CreateTable allocates a table id, initializes its file, and records
// its schema in the system catalog.
func (e *Engine) CreateTable(ctx context.Context, databaseID int32, def *record.TableDefinition) (int32, error) {
	corrID := uuid.NewString()
	log.WithField("correlation_id", corrID).WithField("table", def.Name).Info("create_table")
	return e.cat.CreateTable(ctx, databaseID, def)
}

// GetTableDefinition reconstructs a table's schema from the system
// catalog (sys_tables/sys_columns/sys_constraints), as loaded at
// Bootstrap or recorded by a prior CreateTable.
func (e *Engine) GetTableDefinition(databaseID int32, tableName string) (*record.TableDefinition, error) {
	tableID, ok := e.cat.TableIDByName(databaseID, tableName)
	if !ok {
		return nil, dberr.ErrNotFound
	}
	def, ok := e.cat.TableDefinition(tableID)
	if !ok {
		return nil, dberr.ErrNotFound
	}
	return def, nil
}

// resolveTree resolves a (databaseID, tableName) pair to its B+Tree.
func (e *Engine) resolveTree(databaseID int32, tableName string) (*btree.Tree, error) {
	tableID, ok := e.cat.TableIDByName(databaseID, tableName)
	if !ok {
		return nil, dberr.ErrNotFound
	}
	tree, ok := e.cat.Tree(tableID)
	if !ok {
		return nil, dberr.ErrNotFound
	}
	return tree, nil
}

// InsertRow inserts row into the named table.
func (e *Engine) InsertRow(ctx context.Context, databaseID int32, tableName string, row record.Record) error {
	corrID := uuid.NewString()
	tree, err := e.resolveTree(databaseID, tableName)
	if err != nil {
		return err
	}
	err = tree.Insert(ctx, row)
	log.WithField("correlation_id", corrID).WithField("table", tableName).WithError(err).Debug("insert_row")
	return err
}

// GetRow performs a point lookup by primary key.
func (e *Engine) GetRow(ctx context.Context, databaseID int32, tableName string, key record.Key) (record.Record, bool, error) {
	tree, err := e.resolveTree(databaseID, tableName)
	if err != nil {
		return record.Record{}, false, err
	}
	return tree.Search(ctx, key)
}

// Scan returns a lazy cursor over [min, max] in the named table.
func (e *Engine) Scan(ctx context.Context, databaseID int32, tableName string, min, max *record.Key, minInclusive, maxInclusive bool) (*btree.Cursor, error) {
	tree, err := e.resolveTree(databaseID, tableName)
	if err != nil {
		return nil, err
	}
	return tree.Scan(ctx, min, max, minInclusive, maxInclusive)
}

// DeleteRow removes the row with the given primary key, returning false
// if it did not exist.
func (e *Engine) DeleteRow(ctx context.Context, databaseID int32, tableName string, key record.Key) (bool, error) {
	tree, err := e.resolveTree(databaseID, tableName)
	if err != nil {
		return false, err
	}
	return tree.Delete(ctx, key)
}
