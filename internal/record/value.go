package record

import (
	"bytes"
	"hash/fnv"
	"math"
	"time"

	"github.com/lawnboyy/armdb/internal/dberr"
)

// DataValue is an immutable tagged value: a primitive type tag plus an
// optional payload (spec.md §3). The zero value of each payload field is
// never observed unless Null is true.
type DataValue struct {
	typ  PrimitiveType
	null bool

	i32  int32
	i64  int64
	b    bool
	f64  float64
	dec  Decimal
	t    time.Time
	s    string
	blob []byte
}

func NewInt32(v int32) DataValue       { return DataValue{typ: Int32, i32: v} }
func NewInt64(v int64) DataValue       { return DataValue{typ: Int64, i64: v} }
func NewBool(v bool) DataValue         { return DataValue{typ: Bool, b: v} }
func NewFloat64(v float64) DataValue   { return DataValue{typ: Float64, f64: v} }
func NewDecimal(v Decimal) DataValue   { return DataValue{typ: Decimal, dec: v} }
func NewDateTime(v time.Time) DataValue {
	return DataValue{typ: DateTime, t: v.UTC()}
}
func NewString(v string) DataValue { return DataValue{typ: String, s: v} }
func NewBlob(v []byte) DataValue   { return DataValue{typ: Blob, blob: append([]byte(nil), v...)} }

// Null constructs the NULL value of the given primitive type.
func Null(t PrimitiveType) DataValue {
	return DataValue{typ: t, null: true}
}

func (v DataValue) Type() PrimitiveType { return v.typ }
func (v DataValue) IsNull() bool        { return v.null }

func (v DataValue) Int32() int32 {
	v.mustType(Int32)
	return v.i32
}
func (v DataValue) Int64() int64 {
	v.mustType(Int64)
	return v.i64
}
func (v DataValue) Bool() bool {
	v.mustType(Bool)
	return v.b
}
func (v DataValue) Float64() float64 {
	v.mustType(Float64)
	return v.f64
}
func (v DataValue) DecimalValue() Decimal {
	v.mustType(Decimal)
	return v.dec
}
func (v DataValue) DateTime() time.Time {
	v.mustType(DateTime)
	return v.t
}
// Str returns the underlying string payload. Named Str rather than
// String to avoid accidentally satisfying fmt.Stringer (and panicking on
// a non-string DataValue whenever something is logged with %v).
func (v DataValue) Str() string {
	v.mustType(String)
	return v.s
}
func (v DataValue) Blob() []byte {
	v.mustType(Blob)
	return v.blob
}

func (v DataValue) mustType(want PrimitiveType) {
	if v.typ != want {
		dberr.Violate("DataValue: expected %s, got %s", want, v.typ)
	}
}

// Equal reports value equality: type-then-value. Two NULLs of the same
// type are equal; blob equality is by content (spec.md §3).
func (a DataValue) Equal(b DataValue) bool {
	if a.typ != b.typ {
		return false
	}
	if a.null || b.null {
		return a.null == b.null
	}
	switch a.typ {
	case Int32:
		return a.i32 == b.i32
	case Int64:
		return a.i64 == b.i64
	case Bool:
		return a.b == b.b
	case Float64:
		return a.f64 == b.f64
	case Decimal:
		return a.dec.Equal(b.dec)
	case DateTime:
		return a.t.Equal(b.t)
	case String:
		return a.s == b.s
	case Blob:
		return bytes.Equal(a.blob, b.blob)
	default:
		return false
	}
}

// Hash returns a content-based hash of the value.
func (v DataValue) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte{byte(v.typ)})
	if v.null {
		h.Write([]byte{0})
		return h.Sum64()
	}
	h.Write([]byte{1})
	switch v.typ {
	case Int32:
		h.Write([]byte{byte(v.i32), byte(v.i32 >> 8), byte(v.i32 >> 16), byte(v.i32 >> 24)})
	case Int64:
		var b [8]byte
		for i := range b {
			b[i] = byte(v.i64 >> (8 * i))
		}
		h.Write(b[:])
	case Bool:
		if v.b {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	case Float64:
		bits := math.Float64bits(v.f64)
		var b [8]byte
		for i := range b {
			b[i] = byte(bits >> (8 * i))
		}
		h.Write(b[:])
	case Decimal:
		h.Write(v.dec.bigMagnitudeBytes())
	case DateTime:
		h.Write([]byte(v.t.UTC().Format(time.RFC3339Nano)))
	case String:
		h.Write([]byte(v.s))
	case Blob:
		h.Write(v.blob)
	}
	return h.Sum64()
}

// Compare orders two values of the same type per spec.md §3's key
// ordering rules: NULL sorts below any non-NULL; two NULLs at the same
// position are equal; otherwise per-type ordering. Returns <0, 0, >0
// and a dberr.ErrValidation error if the types differ (spec.md §7:
// "mismatched types in key comparison" is a validation error, not a
// contract violation, since it can be triggered by caller-supplied
// data crossing a schema boundary).
func (a DataValue) Compare(b DataValue) (int, error) {
	if a.typ != b.typ {
		return 0, dberr.Validation("cannot compare %s with %s", a.typ, b.typ)
	}
	if a.null && b.null {
		return 0, nil
	}
	if a.null {
		return -1, nil
	}
	if b.null {
		return 1, nil
	}
	switch a.typ {
	case Int32:
		return cmpInt(int64(a.i32), int64(b.i32)), nil
	case Int64:
		return cmpInt(a.i64, b.i64), nil
	case Bool:
		return cmpBool(a.b, b.b), nil
	case Float64:
		return cmpFloat(a.f64, b.f64), nil
	case Decimal:
		return a.dec.Compare(b.dec), nil
	case DateTime:
		switch {
		case a.t.Before(b.t):
			return -1, nil
		case a.t.After(b.t):
			return 1, nil
		default:
			return 0, nil
		}
	case String:
		return bytes.Compare([]byte(a.s), []byte(b.s)), nil
	case Blob:
		return bytes.Compare(a.blob, b.blob), nil
	default:
		dberr.Violate("unorderable type %s", a.typ)
		return 0, nil
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1 // false < true
	}
	return 1
}
