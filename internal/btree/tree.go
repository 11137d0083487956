package btree

import (
	"context"
	"sync"

	"github.com/lawnboyy/armdb/internal/buffer"
	"github.com/lawnboyy/armdb/internal/dberr"
	"github.com/lawnboyy/armdb/internal/dblog"
	"github.com/lawnboyy/armdb/internal/page"
	"github.com/lawnboyy/armdb/internal/record"
)

var log = dblog.For("btree")

// Tree is a clustered B+Tree index over a single table's file: page
// index 0 of the file is always the tree's root, whether that root is
// a leaf (small table) or an internal node.
//
// Writes take writeMu for their whole duration: this is the
// coarse-grained, table-level locking option the storage engine's
// concurrency model permits as an alternative to per-page latches.
// Reads (Search, Scan) do not take it; a page is only ever read while
// pinned, and the buffer pool's own locking protects frame metadata.
type Tree struct {
	pool    *buffer.Pool
	tableID int32
	table   *record.TableDefinition
	pkCols  []record.ColumnDefinition

	writeMu sync.Mutex
}

// NewTree constructs a B+Tree view over tableID using pool, described by
// table's schema. The caller is responsible for ensuring page index 0
// already exists (created as an empty leaf by the storage engine when
// the table itself was created).
func NewTree(pool *buffer.Pool, tableID int32, table *record.TableDefinition) *Tree {
	return &Tree{
		pool:    pool,
		tableID: tableID,
		table:   table,
		pkCols:  pkColumnDefs(table),
	}
}

func (t *Tree) rootID() page.ID {
	return page.ID{TableID: t.tableID, PageIndex: 0}
}

func (t *Tree) id(idx int32) page.ID {
	return page.ID{TableID: t.tableID, PageIndex: idx}
}

// descend walks from the root to the leaf that would contain key,
// returning the page indices of the internal ancestors visited (root
// first) and a pinned frame for the leaf. Ancestors are unpinned as
// soon as the child to follow has been determined; only the leaf frame
// is returned pinned.
func (t *Tree) descend(ctx context.Context, key record.Key) ([]int32, *buffer.Frame, error) {
	var ancestors []int32
	idx := int32(0)
	for {
		f, err := t.pool.FetchPage(ctx, t.id(idx))
		if err != nil {
			return nil, nil, err
		}
		if f.Page().Type() == page.Leaf {
			return ancestors, f, nil
		}
		child, err := childIndexForKey(f.Page(), t.pkCols, key)
		t.pool.Unpin(f.ID(), false)
		if err != nil {
			return nil, nil, err
		}
		ancestors = append(ancestors, idx)
		idx = child
	}
}

// descendLeftmost walks from the root to the leftmost leaf, for range
// scans with no lower bound.
func (t *Tree) descendLeftmost(ctx context.Context) (*buffer.Frame, error) {
	idx := int32(0)
	for {
		f, err := t.pool.FetchPage(ctx, t.id(idx))
		if err != nil {
			return nil, err
		}
		if f.Page().Type() == page.Leaf {
			return f, nil
		}
		var child int32
		if f.Page().ItemCount() > 0 {
			child = internalChildAt(f.Page(), 0)
		} else {
			child = f.Page().RightmostChildIndex()
		}
		t.pool.Unpin(f.ID(), false)
		idx = child
	}
}

// Search performs a point lookup by primary key.
func (t *Tree) Search(ctx context.Context, key record.Key) (record.Record, bool, error) {
	_, leaf, err := t.descend(ctx, key)
	if err != nil {
		return record.Record{}, false, err
	}
	defer t.pool.Unpin(leaf.ID(), false)

	slot, err := searchLeafSlot(leaf.Page(), t.table, key)
	if err != nil {
		return record.Record{}, false, err
	}
	if slot < 0 {
		return record.Record{}, false, nil
	}
	rec, err := record.Deserialize(t.table.Columns, page.GetRawRecord(leaf.Page(), slot))
	if err != nil {
		return record.Record{}, false, err
	}
	return rec, true, nil
}

// Insert adds row to the tree, keyed by its primary key projection.
// Duplicate keys are rejected without mutating the tree.
func (t *Tree) Insert(ctx context.Context, row record.Record) error {
	key, err := record.PrimaryKeyOf(t.table, row)
	if err != nil {
		return err
	}
	serialized, err := record.Serialize(t.table.Columns, row, t.table.PrimaryKeyOrdinals())
	if err != nil {
		return err
	}
	if len(serialized)+page.SlotSize > page.Size-page.HeaderSize {
		return dberr.Validation("record of %d bytes cannot fit on an empty page", len(serialized))
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	ancestors, leaf, err := t.descend(ctx, key)
	if err != nil {
		return err
	}

	slot, err := searchLeafSlot(leaf.Page(), t.table, key)
	if err != nil {
		t.pool.Unpin(leaf.ID(), false)
		return err
	}
	if slot >= 0 {
		t.pool.Unpin(leaf.ID(), false)
		return dberr.ErrDuplicateKey
	}
	insertAt := ^slot

	if page.TryAddRecord(leaf.Page(), serialized, insertAt) {
		t.pool.Unpin(leaf.ID(), true)
		return nil
	}

	return t.splitLeafAndInsert(ctx, ancestors, leaf, serialized, insertAt)
}

// splitLeafAndInsert splits a full leaf to make room for newRaw at
// insertAt, then propagates the new separator to the parent (or
// installs a new root, if the leaf being split is the root).
func (t *Tree) splitLeafAndInsert(ctx context.Context, ancestors []int32, leaf *buffer.Frame, newRaw []byte, insertAt int) error {
	p := leaf.Page()
	n := p.ItemCount()
	combined := make([][]byte, 0, n+1)
	for i := 0; i < n; i++ {
		combined = append(combined, append([]byte(nil), page.GetRawRecord(p, i)...))
	}
	combined = append(combined, nil)
	copy(combined[insertAt+1:], combined[insertAt:])
	combined[insertAt] = newRaw

	splitAt := byteSizeMedian(combined)
	leftRecs, rightRecs := combined[:splitAt], combined[splitAt:]
	log.WithField("table", t.tableID).WithField("page", leaf.ID().PageIndex).Debug("splitting leaf")

	oldPrev := p.PrevSiblingIndex()
	oldNext := p.NextSiblingIndex()
	oldParent := p.ParentPageIndex()
	leafIdx := leaf.ID().PageIndex

	right, err := t.pool.NewPage(ctx, t.tableID)
	if err != nil {
		t.pool.Unpin(leaf.ID(), false)
		return err
	}
	page.Initialize(right.Page(), page.Leaf)
	for i, r := range rightRecs {
		if !page.TryAddRecord(right.Page(), r, i) {
			dberr.Violate("leaf split: right half does not fit on a fresh page")
		}
	}

	page.Initialize(p, page.Leaf)
	for i, r := range leftRecs {
		if !page.TryAddRecord(p, r, i) {
			dberr.Violate("leaf split: left half does not fit back on its own page")
		}
	}
	p.SetPrevSiblingIndex(oldPrev)
	p.SetNextSiblingIndex(right.ID().PageIndex)
	right.Page().SetPrevSiblingIndex(leafIdx)
	right.Page().SetNextSiblingIndex(oldNext)

	if oldNext != page.NoSibling {
		nf, err := t.pool.FetchPage(ctx, t.id(oldNext))
		if err != nil {
			t.pool.Unpin(leaf.ID(), true)
			t.pool.Unpin(right.ID(), true)
			return err
		}
		nf.Page().SetPrevSiblingIndex(right.ID().PageIndex)
		t.pool.Unpin(nf.ID(), true)
	}

	separator, err := record.DeserializePrimaryKey(t.table, rightRecs[0])
	if err != nil {
		t.pool.Unpin(leaf.ID(), true)
		t.pool.Unpin(right.ID(), true)
		return err
	}

	if leafIdx == 0 {
		err := t.rootSplitLeaf(ctx, p, right, separator)
		t.pool.Unpin(leaf.ID(), true)
		t.pool.Unpin(right.ID(), true)
		return err
	}

	p.SetParentPageIndex(oldParent)
	right.Page().SetParentPageIndex(oldParent)
	t.pool.Unpin(leaf.ID(), true)
	t.pool.Unpin(right.ID(), true)

	return t.propagateSplit(ctx, ancestors, leafIdx, separator, right.ID().PageIndex)
}

// byteSizeMedian returns the smallest split index such that the first
// half's total slotted-page footprint (record bytes + slot overhead)
// is at least half of the combined total.
func byteSizeMedian(recs [][]byte) int {
	total := 0
	for _, r := range recs {
		total += len(r) + page.SlotSize
	}
	half := total / 2
	acc := 0
	for i, r := range recs {
		acc += len(r) + page.SlotSize
		if acc >= half {
			if i+1 >= len(recs) {
				return len(recs) - 1
			}
			return i + 1
		}
	}
	return len(recs) - 1
}

// rootSplitLeaf relocates the post-split left leaf (currently still
// physically on page 0) to a freshly allocated page, then reinitializes
// page 0 as the tree's new internal root, preserving the invariant that
// the root is always page index 0.
func (t *Tree) rootSplitLeaf(ctx context.Context, rootPage *page.Page, right *buffer.Frame, separator record.Key) error {
	newLeft, err := t.pool.NewPage(ctx, t.tableID)
	if err != nil {
		return err
	}
	copy(newLeft.Page().Buf, rootPage.Buf)
	newLeft.Page().SetParentPageIndex(0)

	right.Page().SetPrevSiblingIndex(newLeft.ID().PageIndex)
	right.Page().SetParentPageIndex(0)

	page.Initialize(rootPage, page.Internal)
	rootPage.SetParentPageIndex(page.NoParent)
	sepBytes, err := encodeSeparatorKey(t.pkCols, separator)
	if err != nil {
		t.pool.Unpin(newLeft.ID(), true)
		return err
	}
	payload := buildInternalPayload(sepBytes, newLeft.ID().PageIndex)
	if !page.TryAddRecord(rootPage, payload, 0) {
		dberr.Violate("root split: new root cannot hold its single separator")
	}
	rootPage.SetRightmostChildIndex(right.ID().PageIndex)

	t.pool.Unpin(newLeft.ID(), true)
	return nil
}

// propagateSplit inserts (separator, newChildIdx) into the parent of
// oldChildIdx, splitting the parent (recursively, up to the root) if it
// is full.
func (t *Tree) propagateSplit(ctx context.Context, ancestors []int32, oldChildIdx int32, separator record.Key, newChildIdx int32) error {
	parentIdx := ancestors[len(ancestors)-1]
	parent, err := t.pool.FetchPage(ctx, t.id(parentIdx))
	if err != nil {
		return err
	}

	ok, err := t.tryInsertIntoInternal(parent.Page(), oldChildIdx, separator, newChildIdx)
	if err != nil {
		t.pool.Unpin(parent.ID(), false)
		return err
	}
	if ok {
		t.pool.Unpin(parent.ID(), true)
		return nil
	}

	return t.splitInternalAndPropagate(ctx, ancestors[:len(ancestors)-1], parent, oldChildIdx, separator, newChildIdx)
}

func (t *Tree) tryInsertIntoInternal(p *page.Page, oldChildIdx int32, separator record.Key, newChildIdx int32) (bool, error) {
	sepBytes, err := encodeSeparatorKey(t.pkCols, separator)
	if err != nil {
		return false, err
	}
	payload := buildInternalPayload(sepBytes, oldChildIdx)

	pos := positionOfChild(p, oldChildIdx)
	if pos == -1 {
		if p.RightmostChildIndex() != oldChildIdx {
			dberr.Violate("internal node: child %d is neither a slot nor the rightmost child", oldChildIdx)
		}
		if !page.TryAddRecord(p, payload, p.ItemCount()) {
			return false, nil
		}
		p.SetRightmostChildIndex(newChildIdx)
		return true, nil
	}
	if !page.TryAddRecord(p, payload, pos) {
		return false, nil
	}
	setInternalChildAt(p, pos+1, newChildIdx)
	return true, nil
}

// splitInternalAndPropagate splits a full internal node (simulating the
// pending insertion first), promoting the median separator to the
// grandparent, or installing a new root if parent is page 0.
func (t *Tree) splitInternalAndPropagate(ctx context.Context, ancestors []int32, parent *buffer.Frame, oldChildIdx int32, separator record.Key, newChildIdx int32) error {
	p := parent.Page()
	n := p.ItemCount()
	entries := make([]internalEntry, n)
	for i := 0; i < n; i++ {
		raw := page.GetRawRecord(p, i)
		kb, left := splitInternalPayload(raw)
		entries[i] = internalEntry{keyBytes: append([]byte(nil), kb...), left: left}
	}
	rightmostAfter := p.RightmostChildIndex()

	sepBytes, err := encodeSeparatorKey(t.pkCols, separator)
	if err != nil {
		t.pool.Unpin(parent.ID(), false)
		return err
	}

	pos := positionOfChild(p, oldChildIdx)
	if pos == -1 {
		if p.RightmostChildIndex() != oldChildIdx {
			t.pool.Unpin(parent.ID(), false)
			dberr.Violate("internal split: child %d is neither a slot nor the rightmost child", oldChildIdx)
		}
		entries = append(entries, internalEntry{keyBytes: sepBytes, left: oldChildIdx})
		rightmostAfter = newChildIdx
	} else {
		entries = append(entries, internalEntry{})
		copy(entries[pos+1:], entries[pos:])
		entries[pos] = internalEntry{keyBytes: sepBytes, left: oldChildIdx}
		entries[pos+1].left = newChildIdx
	}

	mid := len(entries) / 2
	promotedKey, err := decodeSeparatorKey(t.pkCols, entries[mid].keyBytes)
	if err != nil {
		t.pool.Unpin(parent.ID(), false)
		return err
	}
	leftEntries := entries[:mid]
	leftRightmost := entries[mid].left
	rightEntries := entries[mid+1:]
	rightRightmost := rightmostAfter

	oldParentIdx := p.ParentPageIndex()
	parentIdx := parent.ID().PageIndex

	rightFrame, err := t.pool.NewPage(ctx, t.tableID)
	if err != nil {
		t.pool.Unpin(parent.ID(), false)
		return err
	}
	page.Initialize(rightFrame.Page(), page.Internal)
	for i, e := range rightEntries {
		if !page.TryAddRecord(rightFrame.Page(), buildInternalPayload(e.keyBytes, e.left), i) {
			dberr.Violate("internal split: right half does not fit on a fresh page")
		}
	}
	rightFrame.Page().SetRightmostChildIndex(rightRightmost)

	page.Initialize(p, page.Internal)
	for i, e := range leftEntries {
		if !page.TryAddRecord(p, buildInternalPayload(e.keyBytes, e.left), i) {
			dberr.Violate("internal split: left half does not fit back on its own page")
		}
	}
	p.SetRightmostChildIndex(leftRightmost)

	rightChildren := make([]int32, 0, len(rightEntries)+1)
	for _, e := range rightEntries {
		rightChildren = append(rightChildren, e.left)
	}
	rightChildren = append(rightChildren, rightRightmost)
	if err := t.reparentChildren(ctx, rightChildren, rightFrame.ID().PageIndex); err != nil {
		t.pool.Unpin(parent.ID(), true)
		t.pool.Unpin(rightFrame.ID(), true)
		return err
	}

	if parentIdx == 0 {
		newLeft, err := t.pool.NewPage(ctx, t.tableID)
		if err != nil {
			t.pool.Unpin(parent.ID(), true)
			t.pool.Unpin(rightFrame.ID(), true)
			return err
		}
		copy(newLeft.Page().Buf, p.Buf)
		newLeft.Page().SetParentPageIndex(0)

		leftChildren := make([]int32, 0, len(leftEntries)+1)
		for _, e := range leftEntries {
			leftChildren = append(leftChildren, e.left)
		}
		leftChildren = append(leftChildren, leftRightmost)
		if err := t.reparentChildren(ctx, leftChildren, newLeft.ID().PageIndex); err != nil {
			t.pool.Unpin(newLeft.ID(), true)
			t.pool.Unpin(parent.ID(), true)
			t.pool.Unpin(rightFrame.ID(), true)
			return err
		}

		page.Initialize(p, page.Internal)
		p.SetParentPageIndex(page.NoParent)
		promotedSep, err := encodeSeparatorKey(t.pkCols, promotedKey)
		if err != nil {
			t.pool.Unpin(newLeft.ID(), true)
			t.pool.Unpin(parent.ID(), true)
			t.pool.Unpin(rightFrame.ID(), true)
			return err
		}
		if !page.TryAddRecord(p, buildInternalPayload(promotedSep, newLeft.ID().PageIndex), 0) {
			dberr.Violate("root split: new root cannot hold its single separator")
		}
		p.SetRightmostChildIndex(rightFrame.ID().PageIndex)
		rightFrame.Page().SetParentPageIndex(0)

		t.pool.Unpin(newLeft.ID(), true)
		t.pool.Unpin(parent.ID(), true)
		t.pool.Unpin(rightFrame.ID(), true)
		return nil
	}

	p.SetParentPageIndex(oldParentIdx)
	rightFrame.Page().SetParentPageIndex(oldParentIdx)
	t.pool.Unpin(parent.ID(), true)
	t.pool.Unpin(rightFrame.ID(), true)

	if len(ancestors) == 0 {
		dberr.Violate("internal split: non-root node %d has no recorded ancestor", parentIdx)
	}
	return t.propagateSplit(ctx, ancestors, parentIdx, promotedKey, rightFrame.ID().PageIndex)
}

// reparentChildren updates the ParentPageIndex stamped on each page in
// childIndices to newParentIdx, after those pages' logical parent moved
// to a different physical page (root-split relocation, or an internal
// split that carries children into the newly allocated right sibling).
func (t *Tree) reparentChildren(ctx context.Context, childIndices []int32, newParentIdx int32) error {
	for _, idx := range childIndices {
		f, err := t.pool.FetchPage(ctx, t.id(idx))
		if err != nil {
			return err
		}
		f.Page().SetParentPageIndex(newParentIdx)
		t.pool.Unpin(f.ID(), true)
	}
	return nil
}

// Delete removes the row with the given primary key. Returns false if
// no such row exists. No rebalancing is performed on underflow.
func (t *Tree) Delete(ctx context.Context, key record.Key) (bool, error) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	_, leaf, err := t.descend(ctx, key)
	if err != nil {
		return false, err
	}

	slot, err := searchLeafSlot(leaf.Page(), t.table, key)
	if err != nil {
		t.pool.Unpin(leaf.ID(), false)
		return false, err
	}
	if slot < 0 {
		t.pool.Unpin(leaf.ID(), false)
		return false, nil
	}
	page.DeleteRecord(leaf.Page(), slot)
	t.pool.Unpin(leaf.ID(), true)
	return true, nil
}
