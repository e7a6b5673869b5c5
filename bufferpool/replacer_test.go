package bufferpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests drive RecordAccess timestamps deterministically
// instead of depending on wall-clock resolution.
type fakeClock struct{ t int64 }

func (c *fakeClock) now() int64 { c.t++; return c.t }

func TestLRUKReplacer_EvictsInfiniteDistanceFirst(t *testing.T) {
	// E2 from spec.md §8: pool of 3 frames, k=2, access sequence a,b,c,a,b.
	clock := &fakeClock{}
	r := NewLRUKReplacer(3, 2)
	r.now = clock.now

	a, b, c := FrameID(0), FrameID(1), FrameID(2)
	for _, f := range []FrameID{a, b, c, a, b} {
		r.RecordAccess(f, AccessUnknown)
	}
	r.SetEvictable(a, true)
	r.SetEvictable(b, true)
	r.SetEvictable(c, true)

	require.Equal(t, 3, r.Size())

	victim, ok := r.Evict()
	require.True(t, ok)
	assert.Equal(t, c, victim, "c has only one access, so its backward-2 distance is infinite")

	r.RecordAccess(c, AccessUnknown)
	r.RecordAccess(a, AccessUnknown)
	r.SetEvictable(a, true)

	victim, ok = r.Evict()
	require.True(t, ok)
	assert.Equal(t, b, victim, "b now has the largest finite backward-2 distance")
}

func TestLRUKReplacer_NonEvictableFrameNeverChosen(t *testing.T) {
	r := NewLRUKReplacer(2, 2)
	r.RecordAccess(0, AccessUnknown)
	r.RecordAccess(1, AccessUnknown)
	r.SetEvictable(1, true)

	victim, ok := r.Evict()
	require.True(t, ok)
	assert.Equal(t, FrameID(1), victim)

	_, ok = r.Evict()
	assert.False(t, ok, "frame 0 was never marked evictable")
}

func TestLRUKReplacer_RemoveOfPinnedFramePanics(t *testing.T) {
	r := NewLRUKReplacer(1, 2)
	r.RecordAccess(0, AccessUnknown)
	assert.Panics(t, func() { r.Remove(0) })
}

func TestLRUKReplacer_OutOfRangeFrameIDPanics(t *testing.T) {
	r := NewLRUKReplacer(1, 2)
	assert.Panics(t, func() { r.RecordAccess(5, AccessUnknown) })
}

func TestLRUKReplacer_SizeCountsOnlyEvictable(t *testing.T) {
	r := NewLRUKReplacer(4, 2)
	r.RecordAccess(0, AccessUnknown)
	r.RecordAccess(1, AccessUnknown)
	r.SetEvictable(0, true)
	assert.Equal(t, 1, r.Size())
	r.SetEvictable(1, true)
	assert.Equal(t, 2, r.Size())
	r.SetEvictable(1, false)
	assert.Equal(t, 1, r.Size())
}
