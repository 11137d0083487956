// Package buffer implements the Buffer Pool Manager (spec.md §4.5): a
// fixed-size array of frames caching pages, pin/unpin discipline,
// LRU-K eviction, and asynchronous-shaped load/flush through the Disk
// Manager.
package buffer

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lawnboyy/armdb/internal/dberr"
	"github.com/lawnboyy/armdb/internal/dblog"
	"github.com/lawnboyy/armdb/internal/disk"
	"github.com/lawnboyy/armdb/internal/page"
)

var log = dblog.For("buffer")

// Frame is one slot of the pool's fixed-size frame array: a page buffer
// plus the pin/dirty bookkeeping the spec requires (spec.md §4.5
// "Frame metadata").
type Frame struct {
	index    int
	id       page.ID
	hasPage  bool
	pg       *page.Page
	pinCount int
	isDirty  bool
}

// Page returns the frame's current page content. Only valid while the
// caller holds a pin on it.
func (f *Frame) Page() *page.Page { return f.pg }

// ID returns the PageId currently resident in this frame.
func (f *Frame) ID() page.ID { return f.id }

type pendingFetch struct {
	done chan struct{}
	err  error
}

// Pool is the Buffer Pool Manager. It owns a fixed number of frames and
// mediates every access to them.
type Pool struct {
	mu sync.Mutex

	frames      []*Frame
	pageToFrame map[page.ID]int
	freeFrames  []int
	pending     map[page.ID]*pendingFetch
	replacer    *lruKReplacer

	disk *disk.Manager

	flusher *cron.Cron
}

// NewPool constructs a Buffer Pool Manager with poolSizeInPages frames,
// backed by dm. k is the LRU-K replacer's history depth (2 is the
// conventional default).
func NewPool(dm *disk.Manager, poolSizeInPages, k int) *Pool {
	if poolSizeInPages <= 0 {
		dberr.Violate("pool_size_in_pages must be positive, got %d", poolSizeInPages)
	}
	frames := make([]*Frame, poolSizeInPages)
	free := make([]int, poolSizeInPages)
	for i := range frames {
		frames[i] = &Frame{index: i}
		free[i] = i
	}
	return &Pool{
		frames:      frames,
		pageToFrame: make(map[page.ID]int),
		freeFrames:  free,
		pending:     make(map[page.ID]*pendingFetch),
		replacer:    newLRUKReplacer(k, poolSizeInPages),
		disk:        dm,
	}
}

// StartBackgroundFlusher schedules a periodic flush of every dirty
// resident frame, an extension of spec.md §4.5's flush_all beyond
// eviction-triggered or caller-triggered flushes. Grounded on
// SimonWaldherr-tinySQL's github.com/robfig/cron/v3 dependency
// (SPEC_FULL.md DOMAIN STACK).
func (p *Pool) StartBackgroundFlusher(schedule string) error {
	p.mu.Lock()
	if p.flusher != nil {
		p.mu.Unlock()
		return nil
	}
	c := cron.New()
	p.flusher = c
	p.mu.Unlock()

	_, err := c.AddFunc(schedule, func() {
		if err := p.FlushAll(context.Background()); err != nil {
			log.WithError(err).Warn("background flush failed")
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	return nil
}

func checkCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return dberr.Cancelled(err)
	}
	return nil
}

// FetchPage returns a pinned Frame for id, reading it from disk if it
// is not already resident. Concurrent fetches of the same non-resident
// page result in exactly one disk read (spec.md §4.5): later callers
// wait on the first caller's in-flight load and then re-enter the
// resident fast path.
func (p *Pool) FetchPage(ctx context.Context, id page.ID) (*Frame, error) {
	for {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}
		p.mu.Lock()
		if idx, ok := p.pageToFrame[id]; ok {
			f := p.frames[idx]
			f.pinCount++
			p.replacer.recordAccess(idx)
			p.replacer.setEvictable(idx, false)
			p.mu.Unlock()
			return f, nil
		}
		if pf, ok := p.pending[id]; ok {
			p.mu.Unlock()
			select {
			case <-pf.done:
				continue // retry: either installed, or failed and freed
			case <-ctx.Done():
				return nil, dberr.Cancelled(ctx.Err())
			}
		}

		idx, err := p.acquireFrameLocked()
		if err != nil {
			p.mu.Unlock()
			return nil, err
		}
		pf := &pendingFetch{done: make(chan struct{})}
		p.pending[id] = pf
		p.mu.Unlock()

		buf := page.New(id)
		readErr := p.disk.ReadDiskPage(id, buf.Buf)

		p.mu.Lock()
		delete(p.pending, id)
		if readErr != nil {
			// Return the frame to the free list; no half-initialized
			// state survives a failed load (spec.md §5 Cancellation).
			p.freeFrames = append(p.freeFrames, idx)
			pf.err = readErr
			close(pf.done)
			p.mu.Unlock()
			return nil, readErr
		}
		f := p.frames[idx]
		f.id = id
		f.hasPage = true
		f.pg = buf
		f.pinCount = 1
		f.isDirty = false
		p.pageToFrame[id] = idx
		p.replacer.recordAccess(idx)
		p.replacer.setEvictable(idx, false)
		close(pf.done)
		p.mu.Unlock()
		return f, nil
	}
}

// NewPage allocates a fresh disk page for tableID and returns a pinned,
// dirty Frame with a zeroed buffer (spec.md §4.5 "new_page"). The
// page's logical content is uninitialized until the caller calls
// page.Initialize.
func (p *Pool) NewPage(ctx context.Context, tableID int32) (*Frame, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	id, err := p.disk.AllocateNewDiskPage(tableID)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	idx, err := p.acquireFrameLocked()
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	f := p.frames[idx]
	f.id = id
	f.hasPage = true
	f.pg = page.New(id)
	f.pinCount = 1
	f.isDirty = true
	p.pageToFrame[id] = idx
	p.replacer.recordAccess(idx)
	p.replacer.setEvictable(idx, false)
	p.mu.Unlock()
	return f, nil
}

// acquireFrameLocked returns a free frame index, evicting one if
// necessary. Caller must hold p.mu.
func (p *Pool) acquireFrameLocked() (int, error) {
	if len(p.freeFrames) > 0 {
		idx := p.freeFrames[len(p.freeFrames)-1]
		p.freeFrames = p.freeFrames[:len(p.freeFrames)-1]
		return idx, nil
	}
	idx, err := p.replacer.evict()
	if err != nil {
		return 0, dberr.ResourceExhausted("buffer pool exhausted: %v", err)
	}
	victim := p.frames[idx]
	if victim.isDirty {
		if err := p.disk.WriteDiskPage(victim.id, victim.pg.Buf); err != nil {
			// Put the frame back into the replacer's evictable set so a
			// future call can retry; do not lose track of it.
			p.replacer.recordAccess(idx)
			p.replacer.setEvictable(idx, true)
			return 0, err
		}
	}
	delete(p.pageToFrame, victim.id)
	victim.isDirty = false
	victim.hasPage = false
	victim.pg = nil
	return idx, nil
}

// Unpin decrements id's pin count. If dirty is true the frame's dirty
// flag is set (sticky until flush). Unpinning a page with pin count 0
// is a programmer error (spec.md §4.5).
func (p *Pool) Unpin(id page.ID, dirty bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.pageToFrame[id]
	if !ok {
		dberr.Violate("Unpin: page %+v is not resident", id)
	}
	f := p.frames[idx]
	if f.pinCount <= 0 {
		dberr.Violate("Unpin: page %+v has pin count 0", id)
	}
	f.pinCount--
	if dirty {
		f.isDirty = true
	}
	if f.pinCount == 0 {
		p.replacer.setEvictable(idx, true)
	}
}

// FlushPage writes id's frame back to disk if resident and dirty
// (spec.md §4.5).
func (p *Pool) FlushPage(ctx context.Context, id page.ID) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	idx, ok := p.pageToFrame[id]
	if !ok {
		p.mu.Unlock()
		return nil
	}
	f := p.frames[idx]
	if !f.isDirty {
		p.mu.Unlock()
		return nil
	}
	buf := append([]byte(nil), f.pg.Buf...)
	p.mu.Unlock()

	if err := p.disk.WriteDiskPage(id, buf); err != nil {
		return err
	}

	p.mu.Lock()
	// Re-check residency: the frame may have been evicted (and
	// re-flushed by the evictor) while we were writing.
	if idx2, ok := p.pageToFrame[id]; ok && idx2 == idx {
		p.frames[idx].isDirty = false
	}
	p.mu.Unlock()
	return nil
}

// FlushAll flushes every dirty resident frame.
func (p *Pool) FlushAll(ctx context.Context) error {
	p.mu.Lock()
	ids := make([]page.ID, 0, len(p.pageToFrame))
	for id, idx := range p.pageToFrame {
		if p.frames[idx].isDirty {
			ids = append(ids, id)
		}
	}
	p.mu.Unlock()

	for _, id := range ids {
		if err := checkCtx(ctx); err != nil {
			return err
		}
		if err := p.FlushPage(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Dispose flushes all dirty frames and stops the background flusher, if
// any (spec.md §4.5).
func (p *Pool) Dispose(ctx context.Context) error {
	err := p.FlushAll(ctx)
	p.mu.Lock()
	flusher := p.flusher
	p.flusher = nil
	p.mu.Unlock()
	if flusher != nil {
		stopCtx := flusher.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(2 * time.Second):
		}
	}
	return err
}
