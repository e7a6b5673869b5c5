package pageguard

import "github.com/latticedb/latticedb/bufferpool"

// WriteGuard wraps a BasicGuard with a held write latch. Drop releases
// the latch before unpinning, same ordering as ReadGuard.
type WriteGuard struct {
	inner BasicGuard
}

// FetchPageWrite fetches pageID, takes its write latch, and returns it
// wrapped in a WriteGuard.
func FetchPageWrite(pool BufferPool, pageID bufferpool.PageID) (WriteGuard, error) {
	basic, err := FetchPageBasic(pool, pageID)
	if err != nil {
		return WriteGuard{}, err
	}
	basic.page.TakeWriteLatch()
	return WriteGuard{inner: basic}, nil
}

// NewPageGuardedWrite allocates a new page, takes its write latch, and
// returns it wrapped in a WriteGuard -- useful for initializing a
// freshly allocated node before anyone else can observe it.
func NewPageGuardedWrite(pool BufferPool) (WriteGuard, error) {
	basic, err := NewPageGuarded(pool)
	if err != nil {
		return WriteGuard{}, err
	}
	basic.page.TakeWriteLatch()
	return WriteGuard{inner: basic}, nil
}

// PageID returns the id of the guarded page.
func (g *WriteGuard) PageID() bufferpool.PageID { return g.inner.PageID() }

// Data returns the guarded frame's raw byte buffer, mutable.
func (g *WriteGuard) Data() []byte { return g.inner.Data() }

// SetDirty marks the guarded frame dirty.
func (g *WriteGuard) SetDirty() { g.inner.SetDirty() }

// Drop releases the write latch, then the pin, exactly once.
func (g *WriteGuard) Drop() {
	if !g.inner.armed() {
		return
	}
	g.inner.page.ReleaseWriteLatch()
	g.inner.Drop()
}

// MoveWrite transfers ownership from src into the returned guard,
// disarming src.
func MoveWrite(src *WriteGuard) WriteGuard {
	return WriteGuard{inner: MoveBasic(&src.inner)}
}
