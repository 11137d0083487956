package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lawnboyy/armdb/internal/buffer"
	"github.com/lawnboyy/armdb/internal/dberr"
	"github.com/lawnboyy/armdb/internal/disk"
	"github.com/lawnboyy/armdb/internal/fsx"
	"github.com/lawnboyy/armdb/internal/record"
)

func newTestCatalog(t *testing.T) (*Catalog, context.Context) {
	t.Helper()
	dm := disk.NewManager(fsx.OSFileSystem{}, t.TempDir())
	pool := buffer.NewPool(dm, 64, 2)
	return New(pool, dm), context.Background()
}

func TestBootstrapWithBuiltinSchemasThenReload(t *testing.T) {
	dir := t.TempDir()
	dm := disk.NewManager(fsx.OSFileSystem{}, dir)
	pool := buffer.NewPool(dm, 64, 2)
	ctx := context.Background()

	cat := New(pool, dm)
	require.NoError(t, cat.Bootstrap(ctx, nil, ""))

	def, ok := cat.TableDefinition(sysTablesTableID)
	require.True(t, ok)
	require.Equal(t, "sys_tables", def.Name)

	require.NoError(t, pool.Dispose(ctx))

	// Reopen against the same data directory: the second Bootstrap call
	// must see firstBoot=false and reconstruct schemas purely from the
	// catalog rows already on disk, not the built-in defaults.
	pool2 := buffer.NewPool(dm, 64, 2)
	cat2 := New(pool2, dm)
	require.NoError(t, cat2.Bootstrap(ctx, nil, ""))
	def2, ok := cat2.TableDefinition(sysTablesTableID)
	require.True(t, ok)
	require.Equal(t, "sys_tables", def2.Name)
	require.Len(t, def2.Columns, len(def.Columns))
}

func TestCreateDatabaseAndCreateTable(t *testing.T) {
	cat, ctx := newTestCatalog(t)
	require.NoError(t, cat.Bootstrap(ctx, nil, ""))

	dbID, err := cat.CreateDatabase(ctx, "demo")
	require.NoError(t, err)
	require.EqualValues(t, 1, dbID)

	got, ok := cat.DatabaseIDByName("DEMO")
	require.True(t, ok)
	require.Equal(t, dbID, got)

	table := &record.TableDefinition{
		Name: "widgets",
		Columns: []record.ColumnDefinition{
			{Name: "id", Type: record.DataTypeInfo{Primitive: record.Int32}, Ordinal: 0},
		},
		Constraints: []record.TableConstraint{{Name: "pk", Kind: record.PrimaryKey, ColumnNames: []string{"id"}}},
	}
	tableID, err := cat.CreateTable(ctx, dbID, table)
	require.NoError(t, err)
	require.GreaterOrEqual(t, tableID, int32(100))

	gotID, ok := cat.TableIDByName(dbID, "Widgets")
	require.True(t, ok)
	require.Equal(t, tableID, gotID)

	tree, ok := cat.Tree(tableID)
	require.True(t, ok)
	require.NotNil(t, tree)
}

func TestCreateDatabaseDuplicateNameRejected(t *testing.T) {
	cat, ctx := newTestCatalog(t)
	require.NoError(t, cat.Bootstrap(ctx, nil, ""))

	_, err := cat.CreateDatabase(ctx, "demo")
	require.NoError(t, err)
	_, err = cat.CreateDatabase(ctx, "Demo")
	require.Error(t, err)
}

func TestCreateTableDuplicateNameWithinDatabaseRejected(t *testing.T) {
	cat, ctx := newTestCatalog(t)
	require.NoError(t, cat.Bootstrap(ctx, nil, ""))
	dbID, err := cat.CreateDatabase(ctx, "demo")
	require.NoError(t, err)

	table := &record.TableDefinition{
		Name:    "widgets",
		Columns: []record.ColumnDefinition{{Name: "id", Type: record.DataTypeInfo{Primitive: record.Int32}, Ordinal: 0}},
		Constraints: []record.TableConstraint{
			{Name: "pk", Kind: record.PrimaryKey, ColumnNames: []string{"id"}},
		},
	}
	_, err = cat.CreateTable(ctx, dbID, table)
	require.NoError(t, err)
	_, err = cat.CreateTable(ctx, dbID, table)
	require.Error(t, err)
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// TestBootstrapFromJSONOverridesBuiltinSchemas exercises the spec.md §6
// catalog bootstrap JSON format on a fresh data directory.
func TestBootstrapFromJSONOverridesBuiltinSchemas(t *testing.T) {
	bootstrapDir := t.TempDir()

	writeJSON(t, filepath.Join(bootstrapDir, "sys_databases.json"), jsonTableDef{
		Name: "sys_databases",
		Columns: []jsonColumn{
			{Name: "database_id", DataType: jsonDataType{PrimitiveType: "Int32"}},
			{Name: "name", DataType: jsonDataType{PrimitiveType: "String", MaxLength: 64}},
		},
		Constraints: []jsonConstraint{{ConstraintType: "PrimaryKey", ColumnNames: []string{"database_id"}}},
	})
	writeJSON(t, filepath.Join(bootstrapDir, "sys_tables.json"), jsonTableDef{
		Name: "sys_tables",
		Columns: []jsonColumn{
			{Name: "table_id", DataType: jsonDataType{PrimitiveType: "Int32"}},
			{Name: "database_id", DataType: jsonDataType{PrimitiveType: "Int32"}},
			{Name: "name", DataType: jsonDataType{PrimitiveType: "String", MaxLength: 64}},
		},
		Constraints: []jsonConstraint{{ConstraintType: "PrimaryKey", ColumnNames: []string{"table_id"}}},
	})
	writeJSON(t, filepath.Join(bootstrapDir, "sys_columns.json"), jsonTableDef{
		Name: "sys_columns",
		Columns: []jsonColumn{
			{Name: "table_id", DataType: jsonDataType{PrimitiveType: "Int32"}},
			{Name: "ordinal", DataType: jsonDataType{PrimitiveType: "Int32"}},
			{Name: "name", DataType: jsonDataType{PrimitiveType: "String", MaxLength: 64}},
			{Name: "primitive_type", DataType: jsonDataType{PrimitiveType: "Int32"}},
			{Name: "max_length", DataType: jsonDataType{PrimitiveType: "Int32"}},
			{Name: "precision", DataType: jsonDataType{PrimitiveType: "Int32"}},
			{Name: "scale", DataType: jsonDataType{PrimitiveType: "Int32"}},
			{Name: "nullable", DataType: jsonDataType{PrimitiveType: "Bool"}},
			{Name: "default_expr", DataType: jsonDataType{PrimitiveType: "String", MaxLength: 256}, IsNullable: true},
		},
		Constraints: []jsonConstraint{{ConstraintType: "PrimaryKey", ColumnNames: []string{"table_id", "ordinal"}}},
	})
	writeJSON(t, filepath.Join(bootstrapDir, "sys_constraints.json"), jsonTableDef{
		Name: "sys_constraints",
		Columns: []jsonColumn{
			{Name: "table_id", DataType: jsonDataType{PrimitiveType: "Int32"}},
			{Name: "constraint_ordinal", DataType: jsonDataType{PrimitiveType: "Int32"}},
			{Name: "name", DataType: jsonDataType{PrimitiveType: "String", MaxLength: 64}},
			{Name: "kind", DataType: jsonDataType{PrimitiveType: "String", MaxLength: 32}},
			{Name: "column_names", DataType: jsonDataType{PrimitiveType: "String", MaxLength: 512}},
			{Name: "referencing_column_names", DataType: jsonDataType{PrimitiveType: "String", MaxLength: 512}, IsNullable: true},
			{Name: "referenced_table_name", DataType: jsonDataType{PrimitiveType: "String", MaxLength: 128}, IsNullable: true},
			{Name: "referenced_column_names", DataType: jsonDataType{PrimitiveType: "String", MaxLength: 512}, IsNullable: true},
			{Name: "on_update_action", DataType: jsonDataType{PrimitiveType: "String", MaxLength: 16}, IsNullable: true},
			{Name: "on_delete_action", DataType: jsonDataType{PrimitiveType: "String", MaxLength: 16}, IsNullable: true},
		},
		Constraints: []jsonConstraint{{ConstraintType: "PrimaryKey", ColumnNames: []string{"table_id", "constraint_ordinal"}}},
	})

	cat, ctx := newTestCatalog(t)
	require.NoError(t, cat.Bootstrap(ctx, fsx.OSFileSystem{}, bootstrapDir))

	def, ok := cat.TableDefinition(sysDatabasesTableID)
	require.True(t, ok)
	require.Len(t, def.Columns, 2)
	col, ok := def.ColumnByName("name")
	require.True(t, ok)
	require.Equal(t, 64, col.Type.MaxLength)
}

func TestLoadBootstrapTableDefinitionMissingFileIsValidationError(t *testing.T) {
	_, err := loadBootstrapTableDefinition(fsx.OSFileSystem{}, filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, dberr.ErrValidation)
}

func TestLoadBootstrapTableDefinitionUnknownPrimitiveTypeIsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	writeJSON(t, path, jsonTableDef{
		Name:    "bad",
		Columns: []jsonColumn{{Name: "x", DataType: jsonDataType{PrimitiveType: "Nonsense"}}},
	})
	_, err := loadBootstrapTableDefinition(fsx.OSFileSystem{}, path)
	require.Error(t, err)
}
