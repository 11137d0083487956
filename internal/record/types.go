// Package record implements spec.md §3 (DataValue, Record, Key, column
// and table definitions) and §4.3 (the binary record serializer and the
// key comparator).
package record

import (
	"fmt"
	"strings"
)

// PrimitiveType is the closed set of primitive types ArmDb understands
// (spec.md §3).
type PrimitiveType byte

const (
	Int32 PrimitiveType = iota
	Int64
	Bool
	Float64
	Decimal
	DateTime
	String
	Blob
)

func (t PrimitiveType) String() string {
	switch t {
	case Int32:
		return "INT"
	case Int64:
		return "BIGINT"
	case Bool:
		return "BOOLEAN"
	case Float64:
		return "DOUBLE"
	case Decimal:
		return "DECIMAL"
	case DateTime:
		return "DATETIME"
	case String:
		return "VARCHAR"
	case Blob:
		return "BLOB"
	default:
		return fmt.Sprintf("PrimitiveType(%d)", byte(t))
	}
}

// ParsePrimitiveType parses the PrimitiveDataType enum strings spec.md §6
// describes for catalog bootstrap JSON (case-insensitive; both the
// "Int32"-style enum spelling and this package's own String() spelling
// are accepted, since the bootstrap files are hand-authored).
func ParsePrimitiveType(s string) (PrimitiveType, error) {
	switch strings.ToUpper(s) {
	case "INT32", "INT", "INTEGER":
		return Int32, nil
	case "INT64", "BIGINT", "LONG":
		return Int64, nil
	case "BOOL", "BOOLEAN":
		return Bool, nil
	case "FLOAT64", "DOUBLE", "FLOAT":
		return Float64, nil
	case "DECIMAL":
		return Decimal, nil
	case "DATETIME", "TIMESTAMP":
		return DateTime, nil
	case "STRING", "VARCHAR", "TEXT":
		return String, nil
	case "BLOB", "BYTES", "BINARY":
		return Blob, nil
	default:
		return 0, fmt.Errorf("unknown PrimitiveDataType %q", s)
	}
}

// IsFixedWidth reports whether values of this type are serialized with a
// fixed byte width (spec.md §4.3 "Fixed-width payloads").
func (t PrimitiveType) IsFixedWidth() bool {
	switch t {
	case String, Blob:
		return false
	default:
		return true
	}
}

// FixedWidth returns the on-disk width in bytes of a fixed-width
// primitive type. Panics for variable-width types.
func (t PrimitiveType) FixedWidth() int {
	switch t {
	case Int32:
		return 4
	case Int64:
		return 8
	case Bool:
		return 1
	case Float64:
		return 8
	case Decimal:
		return 16
	case DateTime:
		return 8
	default:
		panic(fmt.Sprintf("%s is not fixed-width", t))
	}
}

// DataTypeInfo adds type parameters beyond the bare primitive tag:
// max length for strings/blobs, precision/scale for decimals
// (spec.md §3 "Column definition").
type DataTypeInfo struct {
	Primitive PrimitiveType
	MaxLength int // strings, blobs
	Precision int // decimal
	Scale     int // decimal
}
