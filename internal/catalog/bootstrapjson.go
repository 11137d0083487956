package catalog

import (
	"encoding/json"

	"github.com/lawnboyy/armdb/internal/dberr"
	"github.com/lawnboyy/armdb/internal/fsx"
	"github.com/lawnboyy/armdb/internal/record"
)

// jsonDataType mirrors spec.md §6's bootstrap JSON DataType object:
// `{ PrimitiveType, MaxLength?, Precision?, Scale? }`.
type jsonDataType struct {
	PrimitiveType string `json:"PrimitiveType"`
	MaxLength     int    `json:"MaxLength"`
	Precision     int    `json:"Precision"`
	Scale         int    `json:"Scale"`
}

type jsonColumn struct {
	Name                   string       `json:"Name"`
	DataType               jsonDataType `json:"DataType"`
	IsNullable             bool         `json:"IsNullable"`
	DefaultValueExpression string       `json:"DefaultValueExpression"`
}

// jsonConstraint mirrors spec.md §6's discriminated constraint entry:
// `ConstraintType` picks which of the per-type fields apply.
type jsonConstraint struct {
	ConstraintType         string   `json:"ConstraintType"`
	ColumnNames            []string `json:"ColumnNames"`
	ReferencingColumnNames []string `json:"ReferencingColumnNames"`
	ReferencedTableName    string   `json:"ReferencedTableName"`
	ReferencedColumnNames  []string `json:"ReferencedColumnNames"`
	OnUpdateAction         string   `json:"OnUpdateAction"`
	OnDeleteAction         string   `json:"OnDeleteAction"`
}

type jsonTableDef struct {
	Name        string           `json:"Name"`
	Columns     []jsonColumn     `json:"Columns"`
	Constraints []jsonConstraint `json:"Constraints"`
}

// loadBootstrapTableDefinition reads and parses one catalog bootstrap
// JSON file (spec.md §6: "one file per system table") into a
// record.TableDefinition, consumed only at first boot
// (spec.md §4.7 "At startup, the façade loads catalog definitions from
// external JSON files ... only on the first boot").
func loadBootstrapTableDefinition(fs fsx.FileSystem, path string) (*record.TableDefinition, error) {
	if !fs.FileExists(path) {
		return nil, dberr.Validation("bootstrap file %s does not exist", path)
	}
	length, err := fs.Length(path)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	if err := fs.ReadAt(path, 0, buf); err != nil {
		return nil, err
	}

	var jd jsonTableDef
	if err := json.Unmarshal(buf, &jd); err != nil {
		return nil, dberr.Validation("parse bootstrap file %s: %v", path, err)
	}

	columns := make([]record.ColumnDefinition, len(jd.Columns))
	for i, jc := range jd.Columns {
		pt, err := record.ParsePrimitiveType(jc.DataType.PrimitiveType)
		if err != nil {
			return nil, dberr.Validation("bootstrap file %s, column %q: %v", path, jc.Name, err)
		}
		columns[i] = record.ColumnDefinition{
			Name: jc.Name,
			Type: record.DataTypeInfo{
				Primitive: pt,
				MaxLength: jc.DataType.MaxLength,
				Precision: jc.DataType.Precision,
				Scale:     jc.DataType.Scale,
			},
			Nullable:               jc.IsNullable,
			Ordinal:                i,
			DefaultValueExpression: jc.DefaultValueExpression,
		}
	}

	constraints := make([]record.TableConstraint, len(jd.Constraints))
	for i, jcon := range jd.Constraints {
		kind := record.ConstraintKind(jcon.ConstraintType)
		con := record.TableConstraint{Kind: kind}
		switch kind {
		case record.PrimaryKey, record.Unique:
			con.Name = string(kind)
			con.ColumnNames = jcon.ColumnNames
		case record.ForeignKey:
			con.Name = string(kind)
			con.ReferencingColumnNames = jcon.ReferencingColumnNames
			con.ReferencedTableName = jcon.ReferencedTableName
			con.ReferencedColumnNames = jcon.ReferencedColumnNames
			con.OnUpdateAction = record.ReferentialAction(jcon.OnUpdateAction)
			con.OnDeleteAction = record.ReferentialAction(jcon.OnDeleteAction)
		default:
			return nil, dberr.Validation("bootstrap file %s: unknown ConstraintType %q", path, jcon.ConstraintType)
		}
		constraints[i] = con
	}

	return &record.TableDefinition{Name: jd.Name, Columns: columns, Constraints: constraints}, nil
}

// loadBootstrapSchemas loads all four system-table definitions from
// dir/sys_databases.json, dir/sys_tables.json, dir/sys_columns.json and
// dir/sys_constraints.json, in that fixed order (matching sysIDs in
// catalog.go's Bootstrap).
func loadBootstrapSchemas(fs fsx.FileSystem, dir string) ([]*record.TableDefinition, error) {
	names := []string{"sys_databases.json", "sys_tables.json", "sys_columns.json", "sys_constraints.json"}
	defs := make([]*record.TableDefinition, len(names))
	for i, name := range names {
		def, err := loadBootstrapTableDefinition(fs, fs.Join(dir, name))
		if err != nil {
			return nil, err
		}
		defs[i] = def
	}
	return defs, nil
}
