// Package catalog bootstraps and serves the system catalog
// (sys_databases, sys_tables, sys_columns, sys_constraints): ordinary
// tables, managed by the same buffer pool and B+Tree machinery as user
// tables, that describe every database and table the engine knows
// about.
package catalog

import "github.com/lawnboyy/armdb/internal/record"

// Reserved table ids for the four system tables. User tables are
// assigned ids starting at firstUserTableID.
const (
	sysDatabasesTableID   int32 = 1
	sysTablesTableID      int32 = 2
	sysColumnsTableID     int32 = 3
	sysConstraintsTableID int32 = 4

	firstUserTableID int32 = 100
)

func varchar(maxLen int) record.DataTypeInfo {
	return record.DataTypeInfo{Primitive: record.String, MaxLength: maxLen}
}

func int32Type() record.DataTypeInfo {
	return record.DataTypeInfo{Primitive: record.Int32}
}

func boolType() record.DataTypeInfo {
	return record.DataTypeInfo{Primitive: record.Bool}
}

func col(name string, t record.DataTypeInfo, nullable bool, ordinal int) record.ColumnDefinition {
	return record.ColumnDefinition{Name: name, Type: t, Nullable: nullable, Ordinal: ordinal}
}

func pk(columnNames ...string) record.TableConstraint {
	return record.TableConstraint{Name: "pk", Kind: record.PrimaryKey, ColumnNames: columnNames}
}

func sysDatabasesTable() *record.TableDefinition {
	return &record.TableDefinition{
		Name: "sys_databases",
		Columns: []record.ColumnDefinition{
			col("database_id", int32Type(), false, 0),
			col("name", varchar(128), false, 1),
		},
		Constraints: []record.TableConstraint{pk("database_id")},
	}
}

func sysTablesTable() *record.TableDefinition {
	return &record.TableDefinition{
		Name: "sys_tables",
		Columns: []record.ColumnDefinition{
			col("table_id", int32Type(), false, 0),
			col("database_id", int32Type(), false, 1),
			col("name", varchar(128), false, 2),
		},
		Constraints: []record.TableConstraint{pk("table_id")},
	}
}

func sysColumnsTable() *record.TableDefinition {
	return &record.TableDefinition{
		Name: "sys_columns",
		Columns: []record.ColumnDefinition{
			col("table_id", int32Type(), false, 0),
			col("ordinal", int32Type(), false, 1),
			col("name", varchar(128), false, 2),
			col("primitive_type", int32Type(), false, 3),
			col("max_length", int32Type(), false, 4),
			col("precision", int32Type(), false, 5),
			col("scale", int32Type(), false, 6),
			col("nullable", boolType(), false, 7),
			col("default_expr", varchar(256), true, 8),
		},
		Constraints: []record.TableConstraint{pk("table_id", "ordinal")},
	}
}

func sysConstraintsTable() *record.TableDefinition {
	return &record.TableDefinition{
		Name: "sys_constraints",
		Columns: []record.ColumnDefinition{
			col("table_id", int32Type(), false, 0),
			col("constraint_ordinal", int32Type(), false, 1),
			col("name", varchar(128), false, 2),
			col("kind", varchar(32), false, 3),
			col("column_names", varchar(512), false, 4),
			col("referencing_column_names", varchar(512), true, 5),
			col("referenced_table_name", varchar(128), true, 6),
			col("referenced_column_names", varchar(512), true, 7),
			col("on_update_action", varchar(16), true, 8),
			col("on_delete_action", varchar(16), true, 9),
		},
		Constraints: []record.TableConstraint{pk("table_id", "constraint_ordinal")},
	}
}
