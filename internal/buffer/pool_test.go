package buffer

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lawnboyy/armdb/internal/disk"
	"github.com/lawnboyy/armdb/internal/fsx"
	"github.com/lawnboyy/armdb/internal/page"
)

func newTestPool(t *testing.T, poolSize int) *Pool {
	t.Helper()
	dm := disk.NewManager(fsx.OSFileSystem{}, t.TempDir())
	return NewPool(dm, poolSize, 2)
}

func TestNewPageThenFetchPageReturnsSameContent(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, 4)

	f, err := p.NewPage(ctx, 1)
	require.NoError(t, err)
	id := f.ID()
	f.Page().Buf[100] = 0x42
	p.Unpin(id, true)

	require.NoError(t, p.FlushPage(ctx, id))

	f2, err := p.FetchPage(ctx, id)
	require.NoError(t, err)
	require.Equal(t, byte(0x42), f2.Page().Buf[100])
	p.Unpin(id, false)
}

// countingFS counts ReadAt calls so a test can observe how many disk
// reads the pool issues.
type countingFS struct {
	fsx.OSFileSystem
	reads atomic.Int32
}

func (c *countingFS) ReadAt(path string, off int64, buf []byte) error {
	c.reads.Add(1)
	return c.OSFileSystem.ReadAt(path, off, buf)
}

func TestFetchPageConcurrentCallsDedupeToOneRead(t *testing.T) {
	ctx := context.Background()
	cfs := &countingFS{}
	p := NewPool(disk.NewManager(cfs, t.TempDir()), 1, 2)

	f, err := p.NewPage(ctx, 1)
	require.NoError(t, err)
	id := f.ID()
	p.Unpin(id, true)
	require.NoError(t, p.FlushPage(ctx, id))

	// A second page in a one-frame pool evicts id, so every fetch below
	// starts as a miss.
	other, err := p.NewPage(ctx, 1)
	require.NoError(t, err)
	p.Unpin(other.ID(), false)

	const n = 8
	results := make(chan *Frame, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			fr, err := p.FetchPage(ctx, id)
			results <- fr
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
		fr := <-results
		require.Equal(t, id, fr.ID())
		p.Unpin(id, false)
	}
	require.EqualValues(t, 1, cfs.reads.Load())
}

func TestUnpinWithoutPriorFetchPanics(t *testing.T) {
	p := newTestPool(t, 4)
	require.Panics(t, func() {
		p.Unpin(page.ID{TableID: 1, PageIndex: 0}, false)
	})
}

func TestAcquireFrameEvictsWhenPoolFull(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, 2)

	f1, err := p.NewPage(ctx, 1)
	require.NoError(t, err)
	p.Unpin(f1.ID(), false)

	f2, err := p.NewPage(ctx, 1)
	require.NoError(t, err)
	p.Unpin(f2.ID(), false)

	// Both unpinned and evictable; a third NewPage must evict one of
	// them rather than fail.
	f3, err := p.NewPage(ctx, 1)
	require.NoError(t, err)
	p.Unpin(f3.ID(), false)
}

func TestEvictionFlushesDirtyVictimBeforeReuse(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, 1)

	f1, err := p.NewPage(ctx, 1)
	require.NoError(t, err)
	id1 := f1.ID()
	f1.Page().Buf[0] = 0xAB
	p.Unpin(id1, true)

	// Forces eviction of the only frame, which must flush id1 to disk
	// first since it is dirty.
	f2, err := p.NewPage(ctx, 1)
	require.NoError(t, err)
	p.Unpin(f2.ID(), false)

	f1Again, err := p.FetchPage(ctx, id1)
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), f1Again.Page().Buf[0])
	p.Unpin(id1, false)
}

func TestAcquireFrameFailsWhenAllFramesPinned(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, 1)

	_, err := p.NewPage(ctx, 1)
	require.NoError(t, err)
	// Frame never unpinned: pool has exactly one frame and it is pinned.

	_, err = p.NewPage(ctx, 1)
	require.Error(t, err)
}

func TestFlushAllFlushesOnlyDirtyFrames(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, 4)

	f1, err := p.NewPage(ctx, 1)
	require.NoError(t, err)
	id1 := f1.ID()
	p.Unpin(id1, true)

	f2, err := p.NewPage(ctx, 1)
	require.NoError(t, err)
	id2 := f2.ID()
	p.Unpin(id2, false)

	require.NoError(t, p.FlushAll(ctx))

	length, err := p.disk.FileLength(1)
	require.NoError(t, err)
	require.GreaterOrEqual(t, length, int64(2*page.Size))

	// NewPage marks both frames dirty, so the flush above wrote both and
	// left both clean. Change both in memory but unpin only id1 as dirty:
	// the next FlushAll must write id1 and leave id2's disk copy alone.
	f1, err = p.FetchPage(ctx, id1)
	require.NoError(t, err)
	f1.Page().Buf[0] = 0x11
	p.Unpin(id1, true)

	f2, err = p.FetchPage(ctx, id2)
	require.NoError(t, err)
	f2.Page().Buf[0] = 0x22
	p.Unpin(id2, false)

	require.NoError(t, p.FlushAll(ctx))

	buf := make([]byte, page.Size)
	require.NoError(t, p.disk.ReadDiskPage(id1, buf))
	require.Equal(t, byte(0x11), buf[0])
	require.NoError(t, p.disk.ReadDiskPage(id2, buf))
	require.Equal(t, byte(0), buf[0])
}

func TestCancelledContextRejectsFetchAndNewPage(t *testing.T) {
	p := newTestPool(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.NewPage(ctx, 1)
	require.Error(t, err)

	_, err = p.FetchPage(ctx, page.ID{TableID: 1, PageIndex: 0})
	require.Error(t, err)
}
