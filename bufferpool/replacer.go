package bufferpool

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// lruKNode tracks the access history of one resident frame: a ring of up
// to k most-recent access timestamps (microsecond monotonic) plus
// whether the replacer is currently allowed to victimize it.
type lruKNode struct {
	history   []int64
	evictable bool
}

func (n *lruKNode) recordAccess(k int, ts int64) {
	if len(n.history) == k {
		n.history = n.history[1:]
	}
	n.history = append(n.history, ts)
}

// backwardKDistance returns now-history[0] (the k-th most recent access)
// and false, or (0, true) meaning "infinite" if fewer than k accesses
// have ever been recorded.
func (n *lruKNode) backwardKDistance(k int, now int64) (int64, bool) {
	if len(n.history) < k {
		return 0, true
	}
	return now - n.history[0], false
}

func (n *lruKNode) oldestTimestamp() int64 {
	return n.history[0]
}

// LRUKReplacer selects which resident, evictable frame to reuse next. It
// tracks the backward-k distance policy from spec.md §4.1: among
// evictable frames, evict the one with the greatest backward-k distance,
// where "fewer than k accesses" counts as infinite distance and beats
// every finite one; among several infinite-distance frames, the one
// whose oldest recorded access is earliest wins (classical LRU
// fallback).
type LRUKReplacer struct {
	mu sync.Mutex

	k        int
	poolSize int

	nodes          map[FrameID]*lruKNode
	evictableCount int

	now func() int64
}

// NewLRUKReplacer returns a replacer governing poolSize frames with
// history depth k.
func NewLRUKReplacer(poolSize, k int) *LRUKReplacer {
	return &LRUKReplacer{
		k:        k,
		poolSize: poolSize,
		nodes:    make(map[FrameID]*lruKNode),
		now:      monotonicMicros,
	}
}

// clockStart anchors monotonicMicros; time.Since reads the monotonic clock.
var clockStart = time.Now()

func monotonicMicros() int64 {
	return time.Since(clockStart).Microseconds()
}

func (r *LRUKReplacer) checkFrameID(frameID FrameID) {
	if frameID < 0 || int(frameID) >= r.poolSize {
		panic(fmt.Sprintf("bufferpool: frame id %d out of range [0,%d)", frameID, r.poolSize))
	}
}

// RecordAccess appends the current timestamp to frameID's history,
// creating the entry on first touch. It never changes evictability.
func (r *LRUKReplacer) RecordAccess(frameID FrameID, accessType AccessType) {
	r.checkFrameID(frameID)
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[frameID]
	if !ok {
		n = &lruKNode{}
		r.nodes[frameID] = n
	}
	n.recordAccess(r.k, r.now())
}

// SetEvictable toggles whether frameID is a candidate for Evict,
// maintaining the evictable count used by Size.
func (r *LRUKReplacer) SetEvictable(frameID FrameID, evictable bool) {
	r.checkFrameID(frameID)
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[frameID]
	if !ok {
		n = &lruKNode{}
		r.nodes[frameID] = n
	}
	if evictable && !n.evictable {
		r.evictableCount++
	} else if !evictable && n.evictable {
		r.evictableCount--
	}
	n.evictable = evictable
}

type candidate struct {
	frameID FrameID
	isInf   bool
	oldest  int64
	dist    int64
}

// betterVictim reports whether a is a strictly better eviction candidate
// than b under the backward-k policy and its tie-break rules.
func betterVictim(a, b candidate) bool {
	if a.isInf != b.isInf {
		return a.isInf
	}
	if a.isInf {
		return a.oldest < b.oldest
	}
	return a.dist > b.dist
}

// Evict picks the victim frame per the backward-k policy and forgets it.
// It reports false if no evictable frame exists.
func (r *LRUKReplacer) Evict() (FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.evictableCount == 0 {
		return 0, false
	}

	ids := make([]FrameID, 0, len(r.nodes))
	for id := range r.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	now := r.now()
	var best *candidate
	for _, id := range ids {
		n := r.nodes[id]
		if !n.evictable {
			continue
		}
		dist, isInf := n.backwardKDistance(r.k, now)
		c := candidate{frameID: id, isInf: isInf, dist: dist}
		if isInf {
			c.oldest = n.oldestTimestamp()
		}
		if best == nil || betterVictim(c, *best) {
			best = &c
		}
	}
	if best == nil {
		return 0, false
	}

	delete(r.nodes, best.frameID)
	r.evictableCount--
	return best.frameID, true
}

// Remove forgets frameID entirely. frameID must currently be evictable.
func (r *LRUKReplacer) Remove(frameID FrameID) {
	r.checkFrameID(frameID)
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[frameID]
	if !ok {
		return
	}
	if !n.evictable {
		panic(fmt.Sprintf("bufferpool: remove of non-evictable frame %d", frameID))
	}
	delete(r.nodes, frameID)
	r.evictableCount--
}

// Size returns the number of evictable resident frames.
func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictableCount
}
