package btree

import (
	"github.com/lawnboyy/armdb/internal/page"
	"github.com/lawnboyy/armdb/internal/record"
)

// internalKeyAt decodes the separator key stored at slotIndex.
func internalKeyAt(p *page.Page, pkCols []record.ColumnDefinition, slotIndex int) (record.Key, error) {
	raw := page.GetRawRecord(p, slotIndex)
	keyBytes, _ := splitInternalPayload(raw)
	return decodeSeparatorKey(pkCols, keyBytes)
}

// internalChildAt returns the left-child page index stored alongside the
// separator at slotIndex: the child whose keys are all less than that
// separator.
func internalChildAt(p *page.Page, slotIndex int) int32 {
	raw := page.GetRawRecord(p, slotIndex)
	_, child := splitInternalPayload(raw)
	return child
}

func setInternalChildAt(p *page.Page, slotIndex int, child int32) {
	raw := page.GetRawRecord(p, slotIndex)
	putChildIndex(raw[len(raw)-childIndexWidth:], child)
}

// childIndexForKey descends one level of an internal node: the smallest
// i such that key < separator_i selects child_i; if key is >= every
// separator, the node's rightmost child is selected.
func childIndexForKey(p *page.Page, pkCols []record.ColumnDefinition, key record.Key) (int32, error) {
	n := p.ItemCount()
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		sep, err := internalKeyAt(p, pkCols, mid)
		if err != nil {
			return 0, err
		}
		c, err := key.Compare(sep)
		if err != nil {
			return 0, err
		}
		if c < 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	if lo == n {
		return p.RightmostChildIndex(), nil
	}
	return internalChildAt(p, lo), nil
}

// positionOfChild returns the slot index whose left-child is childIdx,
// or -1 if childIdx is instead the node's rightmost child.
func positionOfChild(p *page.Page, childIdx int32) int {
	n := p.ItemCount()
	for i := 0; i < n; i++ {
		if internalChildAt(p, i) == childIdx {
			return i
		}
	}
	return -1
}

type internalEntry struct {
	keyBytes []byte
	left     int32
}
