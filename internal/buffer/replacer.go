package buffer

import (
	"container/list"

	"github.com/lawnboyy/armdb/internal/dberr"
)

// lruKFrameMetadata tracks one frame's access history and evictability
// for the LRU-K replacer. A frame is "cold" while it has fewer than k
// recorded accesses (its backward k-distance is +infinity) and "hot"
// once it has accumulated k accesses (its backward k-distance is
// currentTimestamp - history[0], history always trimmed to the last k
// entries).
type lruKFrameMetadata struct {
	history     []int64
	isEvictable bool
	coldElem    *list.Element // non-nil while this frame is in the cold list
}

// lruKReplacer implements the eviction policy for internal/buffer's
// BufferPoolManager: a frame's priority for eviction follows CMU
// BusTub's LRU-K algorithm — cold (less-than-k-accesses) frames are
// always evicted before hot ones, in FIFO order of first access; among
// hot frames, the one with the largest backward k-distance (the
// least-recently-referenced-with-frequency frame) is evicted.
//
// This satisfies spec.md §4.5's eviction requirement: "a recency-aware
// policy ... must be deterministic and O(1) amortised" for the common
// case (the cold list gives O(1) eviction while frames are still
// warming up; the hot scan is over a typically small resident set).
type lruKReplacer struct {
	k                int
	maxSize          int
	size             int // count of evictable frames (cold + hot)
	currentTimestamp int64
	metadataStore    map[int]lruKFrameMetadata
	lru              *list.List // cold frames, front = earliest first access
}

func newLRUKReplacer(k, maxSize int) *lruKReplacer {
	return &lruKReplacer{
		k:             k,
		maxSize:       maxSize,
		metadataStore: make(map[int]lruKFrameMetadata),
		lru:           list.New(),
	}
}

// recordAccess records a reference to frameID, advancing the replacer's
// logical clock.
func (r *lruKReplacer) recordAccess(frameID int) {
	r.currentTimestamp++
	md, exists := r.metadataStore[frameID]
	wasHot := exists && len(md.history) >= r.k

	md.history = append(md.history, r.currentTimestamp)
	if len(md.history) > r.k {
		md.history = md.history[len(md.history)-r.k:]
	}
	isHot := len(md.history) >= r.k

	switch {
	case !exists && !isHot:
		// First-ever access, still cold (k > 1): join the FIFO list.
		md.coldElem = r.lru.PushBack(frameID)
	case !wasHot && isHot && md.coldElem != nil:
		// Transition cold -> hot: leave the FIFO list.
		r.lru.Remove(md.coldElem)
		md.coldElem = nil
	}
	r.metadataStore[frameID] = md
}

// setEvictable marks frameID as eligible (or not) for eviction. Calling
// this before any recordAccess for frameID is a no-op; the replacer
// only tracks frames it has seen.
func (r *lruKReplacer) setEvictable(frameID int, evictable bool) {
	md, ok := r.metadataStore[frameID]
	if !ok {
		return
	}
	if md.isEvictable == evictable {
		return
	}
	md.isEvictable = evictable
	r.metadataStore[frameID] = md
	if evictable {
		r.size++
	} else {
		r.size--
	}
}

// remove drops all replacer state for frameID, e.g. after the page it
// tracked has been explicitly removed from the pool.
func (r *lruKReplacer) remove(frameID int) {
	md, ok := r.metadataStore[frameID]
	if !ok {
		return
	}
	if md.coldElem != nil {
		r.lru.Remove(md.coldElem)
	}
	if md.isEvictable {
		r.size--
	}
	delete(r.metadataStore, frameID)
}

// evict selects and removes the highest-priority eviction victim,
// returning its frame id. Returns an error if no frame is currently
// evictable (spec.md §4.5: "If every frame is pinned, the call fails").
func (r *lruKReplacer) evict() (int, error) {
	// Cold frames first, front to back (earliest first access, skipping
	// any currently pinned/non-evictable entries).
	for e := r.lru.Front(); e != nil; e = e.Next() {
		frameID := e.Value.(int)
		if r.metadataStore[frameID].isEvictable {
			r.remove(frameID)
			return frameID, nil
		}
	}

	// Otherwise the hot frame with the largest backward k-distance.
	bestFrame := -1
	bestDistance := int64(-1)
	for frameID, md := range r.metadataStore {
		if md.coldElem != nil || !md.isEvictable {
			continue
		}
		distance := r.currentTimestamp - md.history[0]
		if distance > bestDistance {
			bestDistance = distance
			bestFrame = frameID
		}
	}
	if bestFrame == -1 {
		return 0, dberr.ResourceExhausted("cannot evict: no evictable frame (replacer size=%d)", r.size)
	}
	r.remove(bestFrame)
	return bestFrame, nil
}
