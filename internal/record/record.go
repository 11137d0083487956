package record

import "github.com/lawnboyy/armdb/internal/dberr"

// Record is an immutable ordered sequence of DataValues whose arity
// equals the owning table's column count (spec.md §3).
type Record struct {
	Values []DataValue
}

// NewRecord builds a Record from values, in table column order.
func NewRecord(values ...DataValue) Record {
	return Record{Values: values}
}

// Equal reports sequence-equality of contained values (spec.md §3).
func (r Record) Equal(o Record) bool {
	if len(r.Values) != len(o.Values) {
		return false
	}
	for i := range r.Values {
		if !r.Values[i].Equal(o.Values[i]) {
			return false
		}
	}
	return true
}

// Key is an ordered sequence of DataValues in primary-key order, which
// need not match the owning table's physical column order (spec.md §3).
type Key struct {
	Values []DataValue
}

// NewKey builds a Key from values already in primary-key order.
func NewKey(values ...DataValue) Key {
	return Key{Values: values}
}

// Compare lexicographically compares two keys per spec.md §3: for each
// position, a strict type match is required (else a validation error);
// NULL sorts below any non-NULL; two NULLs at the same position are
// equal. Returns <0, 0, >0.
func (k Key) Compare(o Key) (int, error) {
	if len(k.Values) != len(o.Values) {
		return 0, dberr.Validation("key arity mismatch: %d vs %d", len(k.Values), len(o.Values))
	}
	for i := range k.Values {
		c, err := k.Values[i].Compare(o.Values[i])
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return c, nil
		}
	}
	return 0, nil
}

// Equal reports whether two keys compare equal, per Compare's rules.
// A type mismatch is treated as "not equal" rather than propagating an
// error, since callers that only need equality (e.g. a cache key) don't
// need to handle the validation-error path of a full ordering compare.
func (k Key) Equal(o Key) bool {
	c, err := k.Compare(o)
	return err == nil && c == 0
}
