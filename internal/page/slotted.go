package page

import (
	"encoding/binary"

	"github.com/lawnboyy/armdb/internal/dberr"
)

// Layout after the header (spec.md §4.2): a growing-forward slot array,
// a gap of free space, and a growing-backward record heap.
//
//	[ header | slot 0 | slot 1 | ... | free space | ... | rec 1 | rec 0 ]
//
// Each slot is (offset uint16, length uint16) pointing into the heap.
// DataStartOffset marks the lowest byte currently used by the heap.

// Initialize clears the buffer and writes a fresh, empty page header of
// the given type (spec.md §4.2 "initialize").
func Initialize(p *Page, pt Type) {
	p.Zero()
	p.SetItemCount(0)
	p.SetDataStartOffset(Size)
	p.SetParentPageIndex(NoParent)
	p.SetType(pt)
	switch pt {
	case Leaf:
		p.SetPrevSiblingIndex(NoSibling)
		p.SetNextSiblingIndex(NoSibling)
	case Internal:
		p.SetRightmostChildIndex(NoSibling)
	}
}

func slotOffset(i int) int {
	return HeaderSize + i*SlotSize
}

func readSlot(p *Page, i int) (offset, length int) {
	base := slotOffset(i)
	o := binary.LittleEndian.Uint16(p.Buf[base:])
	l := binary.LittleEndian.Uint16(p.Buf[base+2:])
	return int(o), int(l)
}

func writeSlot(p *Page, i, offset, length int) {
	base := slotOffset(i)
	binary.LittleEndian.PutUint16(p.Buf[base:], uint16(offset))
	binary.LittleEndian.PutUint16(p.Buf[base+2:], uint16(length))
}

// checkSlotIndex validates i against the page's current item count. When
// allowEnd is true, i == ItemCount() is permitted (insertion at the end
// of the slot array); otherwise i must address an existing slot.
func checkSlotIndex(p *Page, i int, allowEnd bool) {
	n := p.ItemCount()
	upper := n - 1
	if allowEnd {
		upper = n
	}
	if i < 0 || i > upper {
		dberr.Violate("slot index %d out of range [0,%d] on page %+v", i, upper, p.ID)
	}
}

// FreeSpace returns the number of bytes available for a new slot plus
// its record bytes (spec.md §4.2 "free_space").
func FreeSpace(p *Page) int {
	n := p.ItemCount()
	return p.DataStartOffset() - (HeaderSize + n*SlotSize)
}

// TryAddRecord attempts to insert bytes as a new record at slotIndex,
// shifting the slot array right to make room (spec.md §4.2
// "try_add_record"). Returns false without mutating the page iff free
// space is less than len(bytes) + SlotSize.
func TryAddRecord(p *Page, bytes []byte, slotIndex int) bool {
	checkSlotIndex(p, slotIndex, true)
	if FreeSpace(p) < len(bytes)+SlotSize {
		return false
	}

	n := p.ItemCount()
	newDataStart := p.DataStartOffset() - len(bytes)

	// Shift slot array entries at and after slotIndex forward by one
	// slot to make room for the new slot (copy from the end to avoid
	// clobbering).
	for i := n; i > slotIndex; i-- {
		o, l := readSlot(p, i-1)
		writeSlot(p, i, o, l)
	}
	writeSlot(p, slotIndex, newDataStart, len(bytes))
	copy(p.Buf[newDataStart:newDataStart+len(bytes)], bytes)

	p.SetItemCount(n + 1)
	p.SetDataStartOffset(newDataStart)
	return true
}

// DeleteRecord removes the slot at slotIndex, compacting the slot array
// left. The heap bytes are left in place as garbage and DataStartOffset
// is unchanged (spec.md §4.2 "delete_record").
func DeleteRecord(p *Page, slotIndex int) {
	checkSlotIndex(p, slotIndex, false)
	n := p.ItemCount()
	for i := slotIndex; i < n-1; i++ {
		o, l := readSlot(p, i+1)
		writeSlot(p, i, o, l)
	}
	writeSlot(p, n-1, 0, 0)
	p.SetItemCount(n - 1)
}

// GetRawRecord returns a read-only view of the record bytes addressed by
// slotIndex (spec.md §4.2 "get_raw_record").
func GetRawRecord(p *Page, slotIndex int) []byte {
	checkSlotIndex(p, slotIndex, false)
	o, l := readSlot(p, slotIndex)
	return p.Buf[o : o+l : o+l]
}

// RecordSize returns the byte length of the record at slotIndex without
// copying it.
func RecordSize(p *Page, slotIndex int) int {
	checkSlotIndex(p, slotIndex, false)
	_, l := readSlot(p, slotIndex)
	return l
}
