// Package pageguard implements RAII-style scoped acquisition of a
// pinned (and optionally latched) buffer-pool frame, ported from
// original_source/src/storage/page/page_guard.cpp. Go has no destructors,
// so "scope exit" here means "the caller defers Drop()"; the guarantee
// the type itself provides is that Drop is idempotent and that ownership
// transfer (Move*) leaves the source disarmed, so a guard dropped twice
// -- once explicitly, once via a deferred call after a Move -- only ever
// unpins once.
package pageguard

import "github.com/latticedb/latticedb/bufferpool"

// BufferPool is the subset of *bufferpool.BufferPoolManager the guards
// need. Declaring it here (rather than in bufferpool) keeps the
// dependency one-directional: pageguard imports bufferpool, never the
// reverse.
type BufferPool interface {
	NewPage() (bufferpool.PageID, *bufferpool.Page, error)
	FetchPage(pageID bufferpool.PageID) (*bufferpool.Page, error)
	UnpinPage(pageID bufferpool.PageID, isDirty bool) bool
}

// BasicGuard owns a pin on a frame and releases it exactly once, on
// Drop. It does not touch the frame's latch; ReadGuard and WriteGuard
// layer that on top.
type BasicGuard struct {
	pool  BufferPool
	page  *bufferpool.Page
	dirty bool
}

// armed reports whether this guard still owns a live pin.
func (g *BasicGuard) armed() bool { return g.page != nil }

// NewPageGuarded allocates a new page and returns it already wrapped in
// a BasicGuard.
func NewPageGuarded(pool BufferPool) (BasicGuard, error) {
	_, page, err := pool.NewPage()
	if err != nil {
		return BasicGuard{}, err
	}
	return BasicGuard{pool: pool, page: page}, nil
}

// FetchPageBasic fetches pageID and returns it wrapped in a BasicGuard.
func FetchPageBasic(pool BufferPool, pageID bufferpool.PageID) (BasicGuard, error) {
	page, err := pool.FetchPage(pageID)
	if err != nil {
		return BasicGuard{}, err
	}
	return BasicGuard{pool: pool, page: page}, nil
}

// PageID returns the id of the guarded page.
func (g *BasicGuard) PageID() bufferpool.PageID {
	if !g.armed() {
		return bufferpool.InvalidPageID
	}
	return g.page.ID()
}

// Data returns the guarded frame's raw byte buffer.
func (g *BasicGuard) Data() []byte { return g.page.Data() }

// SetDirty marks the guarded frame dirty; the bit is delivered to the
// pool's single source of truth (Page.isDirty) when the guard drops.
func (g *BasicGuard) SetDirty() { g.dirty = true }

// Drop releases the pin this guard owns, if any, exactly once. Dropping
// a disarmed guard (never acquired, or already moved-from/dropped) is a
// no-op.
func (g *BasicGuard) Drop() {
	if !g.armed() {
		return
	}
	g.pool.UnpinPage(g.page.ID(), g.dirty)
	g.page = nil
	g.pool = nil
	g.dirty = false
}

// MoveBasic transfers ownership of src's pin into the returned guard,
// disarming src. Calling Drop on src afterward is a no-op; calling it on
// self-move (MoveBasic(&g) assigned back into g, or called on a nil
// source) is also safe.
func MoveBasic(src *BasicGuard) BasicGuard {
	if src == nil || !src.armed() {
		return BasicGuard{}
	}
	moved := BasicGuard{pool: src.pool, page: src.page, dirty: src.dirty}
	src.pool = nil
	src.page = nil
	src.dirty = false
	return moved
}
