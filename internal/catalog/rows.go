package catalog

import (
	"strings"

	"github.com/lawnboyy/armdb/internal/record"
)

func joinNames(names []string) string { return strings.Join(names, ",") }

func splitNames(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func optionalString(s string) record.DataValue {
	if s == "" {
		return record.Null(record.String)
	}
	return record.NewString(s)
}

func stringOrEmpty(v record.DataValue) string {
	if v.IsNull() {
		return ""
	}
	return v.Str()
}

func databaseRow(id int32, name string) record.Record {
	return record.NewRecord(record.NewInt32(id), record.NewString(name))
}

func tableRow(tableID, databaseID int32, name string) record.Record {
	return record.NewRecord(record.NewInt32(tableID), record.NewInt32(databaseID), record.NewString(name))
}

func columnRow(tableID int32, c record.ColumnDefinition) record.Record {
	return record.NewRecord(
		record.NewInt32(tableID),
		record.NewInt32(int32(c.Ordinal)),
		record.NewString(c.Name),
		record.NewInt32(int32(c.Type.Primitive)),
		record.NewInt32(int32(c.Type.MaxLength)),
		record.NewInt32(int32(c.Type.Precision)),
		record.NewInt32(int32(c.Type.Scale)),
		record.NewBool(c.Nullable),
		optionalString(c.DefaultValueExpression),
	)
}

func columnFromRow(r record.Record) record.ColumnDefinition {
	return record.ColumnDefinition{
		Ordinal: int(r.Values[1].Int32()),
		Name:    r.Values[2].Str(),
		Type: record.DataTypeInfo{
			Primitive: record.PrimitiveType(r.Values[3].Int32()),
			MaxLength: int(r.Values[4].Int32()),
			Precision: int(r.Values[5].Int32()),
			Scale:     int(r.Values[6].Int32()),
		},
		Nullable:               r.Values[7].Bool(),
		DefaultValueExpression: stringOrEmpty(r.Values[8]),
	}
}

func constraintRow(tableID int32, ordinal int, c record.TableConstraint) record.Record {
	return record.NewRecord(
		record.NewInt32(tableID),
		record.NewInt32(int32(ordinal)),
		record.NewString(c.Name),
		record.NewString(string(c.Kind)),
		record.NewString(joinNames(c.ColumnNames)),
		optionalString(joinNames(c.ReferencingColumnNames)),
		optionalString(c.ReferencedTableName),
		optionalString(joinNames(c.ReferencedColumnNames)),
		optionalString(string(c.OnUpdateAction)),
		optionalString(string(c.OnDeleteAction)),
	)
}

func constraintFromRow(r record.Record) record.TableConstraint {
	return record.TableConstraint{
		Name:                   r.Values[2].Str(),
		Kind:                   record.ConstraintKind(r.Values[3].Str()),
		ColumnNames:            splitNames(r.Values[4].Str()),
		ReferencingColumnNames: splitNames(stringOrEmpty(r.Values[5])),
		ReferencedTableName:    stringOrEmpty(r.Values[6]),
		ReferencedColumnNames:  splitNames(stringOrEmpty(r.Values[7])),
		OnUpdateAction:         record.ReferentialAction(stringOrEmpty(r.Values[8])),
		OnDeleteAction:         record.ReferentialAction(stringOrEmpty(r.Values[9])),
	}
}
