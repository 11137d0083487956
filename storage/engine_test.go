package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lawnboyy/armdb/internal/dberr"
	"github.com/lawnboyy/armdb/internal/record"
)

func widgetsTableDef() *record.TableDefinition {
	return &record.TableDefinition{
		Name: "widgets",
		Columns: []record.ColumnDefinition{
			{Name: "id", Type: record.DataTypeInfo{Primitive: record.Int32}, Ordinal: 0},
			{Name: "label", Type: record.DataTypeInfo{Primitive: record.String, MaxLength: 64}, Ordinal: 1},
		},
		Constraints: []record.TableConstraint{{Name: "pk", Kind: record.PrimaryKey, ColumnNames: []string{"id"}}},
	}
}

func openTestEngine(t *testing.T) (*Engine, context.Context) {
	t.Helper()
	ctx := context.Background()
	cfg := DefaultConfig(t.TempDir())
	cfg.BackgroundFlushCron = ""
	engine, err := Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close(ctx) })
	return engine, ctx
}

func TestEngineEndToEndCreateInsertGetScanDelete(t *testing.T) {
	engine, ctx := openTestEngine(t)

	dbID, err := engine.CreateDatabase(ctx, "demo")
	require.NoError(t, err)

	tableID, err := engine.CreateTable(ctx, dbID, widgetsTableDef())
	require.NoError(t, err)
	require.GreaterOrEqual(t, tableID, int32(100))

	for i := int32(1); i <= 5; i++ {
		row := record.NewRecord(record.NewInt32(i), record.NewString("widget"))
		require.NoError(t, engine.InsertRow(ctx, dbID, "widgets", row))
	}

	got, ok, err := engine.GetRow(ctx, dbID, "widgets", record.NewKey(record.NewInt32(3)))
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 3, got.Values[0].Int32())

	cur, err := engine.Scan(ctx, dbID, "widgets", nil, nil, false, false)
	require.NoError(t, err)
	count := 0
	for {
		_, ok, err := cur.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	require.Equal(t, 5, count)

	deleted, err := engine.DeleteRow(ctx, dbID, "widgets", record.NewKey(record.NewInt32(3)))
	require.NoError(t, err)
	require.True(t, deleted)

	_, ok, err = engine.GetRow(ctx, dbID, "widgets", record.NewKey(record.NewInt32(3)))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEngineResolveMissingTableOrDatabaseIsNotFound(t *testing.T) {
	engine, ctx := openTestEngine(t)
	dbID, err := engine.CreateDatabase(ctx, "demo")
	require.NoError(t, err)

	_, _, err = engine.GetRow(ctx, dbID, "nope", record.NewKey(record.NewInt32(1)))
	require.ErrorIs(t, err, dberr.ErrNotFound)

	_, _, err = engine.GetRow(ctx, 999, "widgets", record.NewKey(record.NewInt32(1)))
	require.ErrorIs(t, err, dberr.ErrNotFound)
}

func TestEngineGetTableDefinitionRoundTripsThroughCatalog(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	cfg := DefaultConfig(dataDir)
	cfg.BackgroundFlushCron = ""

	engine, err := Open(ctx, cfg)
	require.NoError(t, err)
	dbID, err := engine.CreateDatabase(ctx, "demo")
	require.NoError(t, err)
	_, err = engine.CreateTable(ctx, dbID, widgetsTableDef())
	require.NoError(t, err)
	require.NoError(t, engine.Close(ctx))

	// Reopen so the definition below is reconstructed from the catalog
	// tables on disk, not served from the in-memory schema CreateTable
	// built it from.
	engine2, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer engine2.Close(ctx)

	def, err := engine2.GetTableDefinition(dbID, "widgets")
	require.NoError(t, err)
	require.Equal(t, "widgets", def.Name)
	require.Len(t, def.Columns, 2)
	require.Equal(t, "id", def.Columns[0].Name)
	require.Equal(t, "label", def.Columns[1].Name)
	require.Len(t, def.Constraints, 1)
	require.Equal(t, record.PrimaryKey, def.Constraints[0].Kind)

	_, err = engine2.GetTableDefinition(dbID, "nope")
	require.Error(t, err)
}

func TestEngineReopenPersistsData(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	cfg := DefaultConfig(dataDir)
	cfg.BackgroundFlushCron = ""

	engine, err := Open(ctx, cfg)
	require.NoError(t, err)

	dbID, err := engine.CreateDatabase(ctx, "demo")
	require.NoError(t, err)
	_, err = engine.CreateTable(ctx, dbID, widgetsTableDef())
	require.NoError(t, err)
	require.NoError(t, engine.InsertRow(ctx, dbID, "widgets", record.NewRecord(record.NewInt32(1), record.NewString("a"))))
	require.NoError(t, engine.Close(ctx))

	engine2, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer engine2.Close(ctx)

	got, ok, err := engine2.GetRow(ctx, dbID, "widgets", record.NewKey(record.NewInt32(1)))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", got.Values[1].Str())
}
