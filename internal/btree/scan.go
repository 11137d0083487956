package btree

import (
	"context"

	"github.com/lawnboyy/armdb/internal/buffer"
	"github.com/lawnboyy/armdb/internal/dberr"
	"github.com/lawnboyy/armdb/internal/page"
	"github.com/lawnboyy/armdb/internal/record"
)

// Cursor is the lazy, forward, finite, non-restartable sequence a range
// scan produces. Each leaf is pinned only while it is being read; call
// Close if you stop consuming before Next returns false, so a
// cancelled or abandoned scan doesn't leak a pin.
type Cursor struct {
	tree    *Tree
	frame   *buffer.Frame
	slot    int
	max     *record.Key
	maxIncl bool
	done    bool
}

// Scan begins a range scan over [min, max] (either bound may be nil for
// "unbounded"), honoring min_inclusive/max_inclusive.
func (t *Tree) Scan(ctx context.Context, min, max *record.Key, minInclusive, maxInclusive bool) (*Cursor, error) {
	var frame *buffer.Frame
	var slot int
	var err error

	if min == nil {
		frame, err = t.descendLeftmost(ctx)
		slot = 0
	} else {
		_, frame, err = t.descend(ctx, *min)
		if err == nil {
			slot, err = searchLeafSlot(frame.Page(), t.table, *min)
			if slot < 0 {
				slot = ^slot
			} else if !minInclusive {
				slot++
			}
		}
	}
	if err != nil {
		return nil, err
	}

	return &Cursor{tree: t, frame: frame, slot: slot, max: max, maxIncl: maxInclusive}, nil
}

// Next returns the next record in key order, or ok=false once the scan
// is exhausted. On error or exhaustion the cursor releases its pinned
// leaf automatically.
func (c *Cursor) Next(ctx context.Context) (record.Record, bool, error) {
	if c.done {
		return record.Record{}, false, nil
	}
	for {
		if err := ctx.Err(); err != nil {
			c.Close()
			return record.Record{}, false, dberr.Cancelled(err)
		}
		if c.slot >= c.frame.Page().ItemCount() {
			next := c.frame.Page().NextSiblingIndex()
			c.tree.pool.Unpin(c.frame.ID(), false)
			c.frame = nil
			if next == page.NoSibling {
				c.done = true
				return record.Record{}, false, nil
			}
			f, err := c.tree.pool.FetchPage(ctx, c.tree.id(next))
			if err != nil {
				c.done = true
				return record.Record{}, false, err
			}
			c.frame = f
			c.slot = 0
			continue
		}

		raw := page.GetRawRecord(c.frame.Page(), c.slot)
		if c.max != nil {
			key, err := record.DeserializePrimaryKey(c.tree.table, raw)
			if err != nil {
				c.Close()
				return record.Record{}, false, err
			}
			cmp, err := key.Compare(*c.max)
			if err != nil {
				c.Close()
				return record.Record{}, false, err
			}
			if cmp > 0 || (cmp == 0 && !c.maxIncl) {
				c.Close()
				return record.Record{}, false, nil
			}
		}

		rec, err := record.Deserialize(c.tree.table.Columns, raw)
		if err != nil {
			c.Close()
			return record.Record{}, false, err
		}
		c.slot++
		return rec, true, nil
	}
}

// Close releases any leaf the cursor currently holds pinned. Safe to
// call multiple times and after the scan has already finished.
func (c *Cursor) Close() {
	if c.frame != nil {
		c.tree.pool.Unpin(c.frame.ID(), false)
		c.frame = nil
	}
	c.done = true
}
