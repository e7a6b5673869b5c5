package pageguard

import "github.com/latticedb/latticedb/bufferpool"

// ReadGuard wraps a BasicGuard with a held read latch. Drop releases the
// latch before unpinning, so a thread blocked on the write latch can
// never observe the pin outliving the latch.
type ReadGuard struct {
	inner BasicGuard
}

// FetchPageRead fetches pageID, takes its read latch, and returns it
// wrapped in a ReadGuard. The pin is acquired first (inside FetchPage),
// the latch second, matching §5's ordering rule that a frame's latch is
// never taken while the pool lock that FetchPage holds internally is
// still held.
func FetchPageRead(pool BufferPool, pageID bufferpool.PageID) (ReadGuard, error) {
	basic, err := FetchPageBasic(pool, pageID)
	if err != nil {
		return ReadGuard{}, err
	}
	basic.page.TakeReadLatch()
	return ReadGuard{inner: basic}, nil
}

// PageID returns the id of the guarded page.
func (g *ReadGuard) PageID() bufferpool.PageID { return g.inner.PageID() }

// Data returns the guarded frame's raw byte buffer, read-only by
// convention (the caller holds only the read latch).
func (g *ReadGuard) Data() []byte { return g.inner.Data() }

// Drop releases the read latch, then the pin, exactly once.
func (g *ReadGuard) Drop() {
	if !g.inner.armed() {
		return
	}
	g.inner.page.ReleaseReadLatch()
	g.inner.Drop()
}

// MoveRead transfers ownership from src into the returned guard,
// disarming src.
func MoveRead(src *ReadGuard) ReadGuard {
	return ReadGuard{inner: MoveBasic(&src.inner)}
}
