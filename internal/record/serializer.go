package record

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/lawnboyy/armdb/internal/dberr"
)

// nullBitmapSize returns ceil(columnCount/8).
func nullBitmapSize(columnCount int) int {
	return (columnCount + 7) / 8
}

func bitSet(bitmap []byte, i int) bool {
	return bitmap[i/8]&(1<<uint(i%8)) != 0
}

func setBit(bitmap []byte, i int) {
	bitmap[i/8] |= 1 << uint(i%8)
}

// Serialize encodes r according to columns' table-column-order layout
// (spec.md §4.3): a null bitmap, then fixed-width payloads for non-null
// fixed-width columns (table order), then variable-width payloads
// (length-prefixed) for non-null variable-width columns (table order).
//
// Every non-null primary-key column must be materialised: the
// serializer refuses (spec.md §3 invariant) to produce a row with a
// NULL in any PK position, for the ordinals passed in pkOrdinals.
// Callers with nothing to check (the B+Tree's separator-key encoder)
// pass pkOrdinals=nil to skip the check.
func Serialize(columns []ColumnDefinition, r Record, pkOrdinals []int) ([]byte, error) {
	if len(r.Values) != len(columns) {
		return nil, dberr.Validation("record arity %d does not match column count %d", len(r.Values), len(columns))
	}
	for _, ord := range pkOrdinals {
		if r.Values[ord].IsNull() {
			return nil, dberr.Validation("primary key column %q cannot be NULL", columns[ord].Name)
		}
	}

	bitmapLen := nullBitmapSize(len(columns))
	bitmap := make([]byte, bitmapLen)
	fixed := make([]byte, 0, 64)
	variable := make([]byte, 0, 64)

	for i, col := range columns {
		v := r.Values[i]
		if v.IsNull() {
			setBit(bitmap, i)
			continue
		}
		if col.Type.Primitive.IsFixedWidth() {
			buf := make([]byte, col.Type.Primitive.FixedWidth())
			if err := encodeFixed(buf, col.Type.Primitive, v); err != nil {
				return nil, err
			}
			fixed = append(fixed, buf...)
		} else {
			payload := variableBytes(v)
			var lenBuf [4]byte
			binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
			variable = append(variable, lenBuf[:]...)
			variable = append(variable, payload...)
		}
	}

	out := make([]byte, 0, bitmapLen+len(fixed)+len(variable))
	out = append(out, bitmap...)
	out = append(out, fixed...)
	out = append(out, variable...)
	return out, nil
}

func encodeFixed(dst []byte, pt PrimitiveType, v DataValue) error {
	switch pt {
	case Int32:
		binary.LittleEndian.PutUint32(dst, uint32(v.Int32()))
	case Int64:
		binary.LittleEndian.PutUint64(dst, uint64(v.Int64()))
	case Bool:
		if v.Bool() {
			dst[0] = 1
		} else {
			dst[0] = 0
		}
	case Float64:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(v.Float64()))
	case Decimal:
		return EncodeDecimal(dst, v.DecimalValue())
	case DateTime:
		binary.LittleEndian.PutUint64(dst, uint64(v.DateTime().UnixNano()))
	default:
		dberr.Violate("unexpected fixed-width type %s", pt)
	}
	return nil
}

func variableBytes(v DataValue) []byte {
	switch v.Type() {
	case String:
		return []byte(v.Str())
	case Blob:
		return v.Blob()
	default:
		dberr.Violate("unexpected variable-width type %s", v.Type())
		return nil
	}
}

// Deserialize is Serialize's inverse.
func Deserialize(columns []ColumnDefinition, data []byte) (Record, error) {
	bitmapLen := nullBitmapSize(len(columns))
	if len(data) < bitmapLen {
		return Record{}, dberr.DataIntegrity("record shorter than its null bitmap")
	}
	bitmap := data[:bitmapLen]
	pos := bitmapLen

	values := make([]DataValue, len(columns))
	for i, col := range columns {
		if bitSet(bitmap, i) {
			values[i] = Null(col.Type.Primitive)
			continue
		}
		if !col.Type.Primitive.IsFixedWidth() {
			continue // filled in on the variable-width pass below
		}
		width := col.Type.Primitive.FixedWidth()
		if pos+width > len(data) {
			return Record{}, dberr.DataIntegrity("record truncated while reading fixed column %q", col.Name)
		}
		v, err := decodeFixed(col.Type, data[pos:pos+width])
		if err != nil {
			return Record{}, err
		}
		values[i] = v
		pos += width
	}
	for i, col := range columns {
		if bitSet(bitmap, i) || col.Type.Primitive.IsFixedWidth() {
			continue
		}
		if pos+4 > len(data) {
			return Record{}, dberr.DataIntegrity("record truncated while reading length of column %q", col.Name)
		}
		length := int(binary.LittleEndian.Uint32(data[pos:]))
		pos += 4
		if pos+length > len(data) {
			return Record{}, dberr.DataIntegrity("record truncated while reading payload of column %q", col.Name)
		}
		payload := data[pos : pos+length]
		pos += length
		switch col.Type.Primitive {
		case String:
			values[i] = NewString(string(payload))
		case Blob:
			values[i] = NewBlob(payload)
		default:
			return Record{}, dberr.DataIntegrity("unexpected variable-width primitive %s", col.Type.Primitive)
		}
	}
	return Record{Values: values}, nil
}

func decodeFixed(t DataTypeInfo, src []byte) (DataValue, error) {
	switch t.Primitive {
	case Int32:
		return NewInt32(int32(binary.LittleEndian.Uint32(src))), nil
	case Int64:
		return NewInt64(int64(binary.LittleEndian.Uint64(src))), nil
	case Bool:
		return NewBool(src[0] != 0), nil
	case Float64:
		return NewFloat64(math.Float64frombits(binary.LittleEndian.Uint64(src))), nil
	case Decimal:
		return NewDecimal(DecodeDecimal(src, t.Precision, t.Scale)), nil
	case DateTime:
		return NewDateTime(time.Unix(0, int64(binary.LittleEndian.Uint64(src))).UTC()), nil
	default:
		return DataValue{}, dberr.DataIntegrity("unexpected fixed-width primitive %s", t.Primitive)
	}
}

// DeserializePrimaryKey walks the physical (table-order) layout once but
// emits the key's DataValues in primary-key order (spec.md §4.3). It
// fails with a data-integrity error if any PK column's null bit is set,
// since a stored row must never have a NULL in a PK position
// (spec.md §3 invariant).
func DeserializePrimaryKey(table *TableDefinition, data []byte) (Key, error) {
	bitmapLen := nullBitmapSize(len(table.Columns))
	if len(data) < bitmapLen {
		return Key{}, dberr.DataIntegrity("record shorter than its null bitmap")
	}
	bitmap := data[:bitmapLen]

	pkOrdinals := table.PrimaryKeyOrdinals()
	wanted := make(map[int]bool, len(pkOrdinals))
	for _, ord := range pkOrdinals {
		if bitSet(bitmap, ord) {
			return Key{}, dberr.DataIntegrity("primary key column %q is NULL in stored record", table.Columns[ord].Name)
		}
		wanted[ord] = true
	}

	byOrdinal := make(map[int]DataValue, len(pkOrdinals))
	pos := bitmapLen
	for i, col := range table.Columns {
		if bitSet(bitmap, i) {
			continue
		}
		if !col.Type.Primitive.IsFixedWidth() {
			continue
		}
		width := col.Type.Primitive.FixedWidth()
		if pos+width > len(data) {
			return Key{}, dberr.DataIntegrity("record truncated while reading fixed column %q", col.Name)
		}
		if wanted[i] {
			v, err := decodeFixed(col.Type, data[pos:pos+width])
			if err != nil {
				return Key{}, err
			}
			byOrdinal[i] = v
		}
		pos += width
	}
	for i, col := range table.Columns {
		if bitSet(bitmap, i) || col.Type.Primitive.IsFixedWidth() {
			continue
		}
		if pos+4 > len(data) {
			return Key{}, dberr.DataIntegrity("record truncated while reading length of column %q", col.Name)
		}
		length := int(binary.LittleEndian.Uint32(data[pos:]))
		pos += 4
		if pos+length > len(data) {
			return Key{}, dberr.DataIntegrity("record truncated while reading payload of column %q", col.Name)
		}
		if wanted[i] {
			payload := data[pos : pos+length]
			switch col.Type.Primitive {
			case String:
				byOrdinal[i] = NewString(string(payload))
			case Blob:
				byOrdinal[i] = NewBlob(payload)
			}
		}
		pos += length
	}

	values := make([]DataValue, len(pkOrdinals))
	for idx, ord := range pkOrdinals {
		values[idx] = byOrdinal[ord]
	}
	return Key{Values: values}, nil
}

// PrimaryKeyOf projects a table-order Record into PK order, for callers
// (B+Tree insert) that already hold the Record in memory and don't need
// to round-trip through bytes.
func PrimaryKeyOf(table *TableDefinition, r Record) (Key, error) {
	ordinals := table.PrimaryKeyOrdinals()
	values := make([]DataValue, len(ordinals))
	for i, ord := range ordinals {
		if r.Values[ord].IsNull() {
			return Key{}, dberr.Validation("primary key column %q cannot be NULL", table.Columns[ord].Name)
		}
		values[i] = r.Values[ord]
	}
	return Key{Values: values}, nil
}
