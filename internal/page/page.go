// Package page implements the fixed-size, little-endian page format of
// spec.md §4.1 (Page and Page Header) and §4.2 (Slotted Page). A Page is
// the unit of I/O between the Disk Manager and the Buffer Pool Manager;
// everything above it (record serializer, B+Tree node views) works
// against typed accessors instead of raw offsets.
package page

import (
	"encoding/binary"

	"github.com/lawnboyy/armdb/internal/dberr"
)

// Size is the compile-time page size constant (spec.md §6 default).
// Every page on disk is exactly this many bytes.
const Size = 8192

// HeaderSize is the fixed-length header prefix (spec.md §4.1 table,
// padded to a round 32 bytes: 8+4+4+4+1+4+4 = 29, +3 reserved).
const HeaderSize = 32

// SlotSize is the byte width of one slot-array entry: offset (u16) +
// length (u16).
const SlotSize = 4

// Header field offsets, little-endian (spec.md §6).
const (
	offPageLSN          = 0  // 8 bytes
	offItemCount         = 8  // 4 bytes
	offDataStartOffset   = 12 // 4 bytes
	offParentPageIndex   = 16 // 4 bytes
	offPageType          = 20 // 1 byte
	offTypeSpecific1     = 24 // 4 bytes
	offTypeSpecific2     = 28 // 4 bytes
)

// Type identifies a page's logical content.
type Type byte

const (
	Invalid  Type = 0
	Leaf     Type = 1
	Internal Type = 2
)

func (t Type) String() string {
	switch t {
	case Invalid:
		return "Invalid"
	case Leaf:
		return "Leaf"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// ID identifies a page by its owning table and index within that
// table's file (spec.md §3: PageId = (table_id, page_index)).
type ID struct {
	TableID   int32
	PageIndex int32
}

// NoParent is the sentinel ParentPageIndex value for a root page.
const NoParent int32 = -1

// NoSibling is the sentinel leaf sibling-pointer / internal rightmost-
// child value meaning "none".
const NoSibling int32 = -1

// Page is a fixed-size byte buffer with an identity and typed views onto
// its header (spec.md §4.1).
type Page struct {
	ID  ID
	Buf []byte // always len() == Size
}

// New allocates a zeroed page with the given identity. Logical content
// (page type, slot array) is uninitialized until Initialize is called.
func New(id ID) *Page {
	return &Page{ID: id, Buf: make([]byte, Size)}
}

// Zero clears the entire buffer to zero bytes.
func (p *Page) Zero() {
	clear(p.Buf)
}

func (p *Page) LSN() int64 {
	return int64(binary.LittleEndian.Uint64(p.Buf[offPageLSN:]))
}

func (p *Page) SetLSN(v int64) {
	binary.LittleEndian.PutUint64(p.Buf[offPageLSN:], uint64(v))
}

func (p *Page) ItemCount() int {
	return int(int32(binary.LittleEndian.Uint32(p.Buf[offItemCount:])))
}

func (p *Page) SetItemCount(v int) {
	binary.LittleEndian.PutUint32(p.Buf[offItemCount:], uint32(int32(v)))
}

func (p *Page) DataStartOffset() int {
	return int(int32(binary.LittleEndian.Uint32(p.Buf[offDataStartOffset:])))
}

func (p *Page) SetDataStartOffset(v int) {
	binary.LittleEndian.PutUint32(p.Buf[offDataStartOffset:], uint32(int32(v)))
}

func (p *Page) ParentPageIndex() int32 {
	return int32(binary.LittleEndian.Uint32(p.Buf[offParentPageIndex:]))
}

func (p *Page) SetParentPageIndex(v int32) {
	binary.LittleEndian.PutUint32(p.Buf[offParentPageIndex:], uint32(v))
}

func (p *Page) Type() Type {
	return Type(p.Buf[offPageType])
}

func (p *Page) SetType(t Type) {
	p.Buf[offPageType] = byte(t)
}

// requireType panics with a ContractViolation if the page's stored type
// does not match want, per spec.md §4.1: "Accessors that do not match
// the stored PageType fail with a programmer-error signal."
func (p *Page) requireType(want Type) {
	if p.Type() != want {
		dberr.Violate("page %+v: expected type %s, got %s", p.ID, want, p.Type())
	}
}

// PrevSiblingIndex returns a leaf's previous-sibling page index, or
// NoSibling. Only valid on a Leaf page.
func (p *Page) PrevSiblingIndex() int32 {
	p.requireType(Leaf)
	return int32(binary.LittleEndian.Uint32(p.Buf[offTypeSpecific1:]))
}

func (p *Page) SetPrevSiblingIndex(v int32) {
	p.requireType(Leaf)
	binary.LittleEndian.PutUint32(p.Buf[offTypeSpecific1:], uint32(v))
}

// NextSiblingIndex returns a leaf's next-sibling page index, or
// NoSibling. Only valid on a Leaf page.
func (p *Page) NextSiblingIndex() int32 {
	p.requireType(Leaf)
	return int32(binary.LittleEndian.Uint32(p.Buf[offTypeSpecific2:]))
}

func (p *Page) SetNextSiblingIndex(v int32) {
	p.requireType(Leaf)
	binary.LittleEndian.PutUint32(p.Buf[offTypeSpecific2:], uint32(v))
}

// RightmostChildIndex returns an internal node's rightmost-child page
// index. Only valid on an Internal page.
func (p *Page) RightmostChildIndex() int32 {
	p.requireType(Internal)
	return int32(binary.LittleEndian.Uint32(p.Buf[offTypeSpecific1:]))
}

func (p *Page) SetRightmostChildIndex(v int32) {
	p.requireType(Internal)
	binary.LittleEndian.PutUint32(p.Buf[offTypeSpecific1:], uint32(v))
}
