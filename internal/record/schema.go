package record

import "strings"

// ReferentialAction is the action taken on a foreign key's parent-row
// update/delete (spec.md §6).
type ReferentialAction string

const (
	ActionNoAction   ReferentialAction = "NoAction"
	ActionCascade    ReferentialAction = "Cascade"
	ActionSetNull    ReferentialAction = "SetNull"
	ActionSetDefault ReferentialAction = "SetDefault"
	ActionRestrict   ReferentialAction = "Restrict"
)

// ColumnDefinition is spec.md §3's "(name, data-type-info, nullable?,
// ordinal, optional default expression)".
type ColumnDefinition struct {
	Name                   string
	Type                   DataTypeInfo
	Nullable               bool
	Ordinal                int
	DefaultValueExpression string // empty means "no default"
}

// ConstraintKind discriminates a TableConstraint (spec.md §6
// ConstraintType).
type ConstraintKind string

const (
	PrimaryKey ConstraintKind = "PrimaryKey"
	ForeignKey ConstraintKind = "ForeignKey"
	Unique     ConstraintKind = "Unique"
)

// TableConstraint is spec.md §3's constraint shape, covering all three
// kinds; only the fields relevant to Kind are populated.
type TableConstraint struct {
	Name string
	Kind ConstraintKind

	// PrimaryKey / Unique
	ColumnNames []string

	// ForeignKey
	ReferencingColumnNames []string
	ReferencedTableName    string
	ReferencedColumnNames  []string
	OnUpdateAction         ReferentialAction
	OnDeleteAction         ReferentialAction
}

// TableDefinition is spec.md §3's "(name, ordered columns,
// constraints)".
type TableDefinition struct {
	Name        string
	Columns     []ColumnDefinition
	Constraints []TableConstraint
}

// ColumnByName performs the case-insensitive lookup spec.md §3 requires
// ("Names are case-insensitive for lookup") with a linear scan over
// t.Columns. internal/catalog's radix trees index database and table
// names only, not column or constraint names.
func (t *TableDefinition) ColumnByName(name string) (ColumnDefinition, bool) {
	lower := strings.ToLower(name)
	for _, c := range t.Columns {
		if strings.ToLower(c.Name) == lower {
			return c, true
		}
	}
	return ColumnDefinition{}, false
}

// PrimaryKeyConstraint returns the table's single PrimaryKey constraint,
// if any (spec.md §3: "At most one primary-key constraint").
func (t *TableDefinition) PrimaryKeyConstraint() (TableConstraint, bool) {
	for _, c := range t.Constraints {
		if c.Kind == PrimaryKey {
			return c, true
		}
	}
	return TableConstraint{}, false
}

// PrimaryKeyOrdinals returns, for each primary-key column in PK order,
// its ordinal position in t.Columns (table column order).
func (t *TableDefinition) PrimaryKeyOrdinals() []int {
	pk, ok := t.PrimaryKeyConstraint()
	if !ok {
		return nil
	}
	ordinals := make([]int, 0, len(pk.ColumnNames))
	for _, name := range pk.ColumnNames {
		col, ok := t.ColumnByName(name)
		if !ok {
			continue
		}
		ordinals = append(ordinals, col.Ordinal)
	}
	return ordinals
}
