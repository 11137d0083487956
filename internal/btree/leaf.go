package btree

import (
	"github.com/lawnboyy/armdb/internal/page"
	"github.com/lawnboyy/armdb/internal/record"
)

// searchLeafSlot binary-searches a leaf's slots by primary key. A
// non-negative result is the slot holding an exact match; a negative
// result is the bitwise complement of the index at which key would be
// inserted, the conventional "not found" sentinel.
func searchLeafSlot(p *page.Page, table *record.TableDefinition, key record.Key) (int, error) {
	n := p.ItemCount()
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		midKey, err := record.DeserializePrimaryKey(table, page.GetRawRecord(p, mid))
		if err != nil {
			return 0, err
		}
		c, err := midKey.Compare(key)
		if err != nil {
			return 0, err
		}
		if c < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < n {
		midKey, err := record.DeserializePrimaryKey(table, page.GetRawRecord(p, lo))
		if err != nil {
			return 0, err
		}
		if midKey.Equal(key) {
			return lo, nil
		}
	}
	return ^lo, nil
}
