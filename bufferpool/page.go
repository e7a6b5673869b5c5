package bufferpool

import (
	"fmt"
	"sync"
)

// PageSize is the fixed size, in bytes, of every page in the system.
const PageSize = 4096

// PageID identifies a page; INVALID_PAGE_ID in spec terms.
type PageID int32

// InvalidPageID is the sentinel for "no page".
const InvalidPageID PageID = -1

// FrameID is a dense index into the buffer pool's frame array. Distinct
// from PageID: a frame is a physical slot, a page is a logical unit.
type FrameID int

// AccessType records why a page was touched. The LRU-K policy itself is
// blind to it (backward-k distance only), but callers that distinguish a
// point lookup from a sequential scan can tag the access so a future
// policy refinement has something to key off of without an interface
// change.
type AccessType int

const (
	AccessUnknown AccessType = iota
	AccessLookup
	AccessScan
	AccessIndex
)

// LatchState tracks which kind of latch, if any, a page guard currently
// holds on this frame. It exists purely so ReleaseAnyLatch knows which
// half of the RWMutex to give back; it is not itself a lock.
type LatchState int

const (
	LatchNone LatchState = iota
	LatchRead
	LatchWrite
)

// Page is a frame: PageSize bytes of payload plus the bookkeeping the
// buffer pool and the page guards need to manage it. Its byte buffer is
// reinterpreted by higher layers (bptree) as a header, leaf, or internal
// node layout; Page itself knows nothing about that structure.
type Page struct {
	latch      sync.RWMutex
	latchState LatchState

	id       PageID
	pinCount int
	isDirty  bool
	data     [PageSize]byte
}

// NewPage allocates a zeroed frame for the given page id.
func NewPage(id PageID) *Page {
	return &Page{id: id}
}

// reset clears a frame back to its just-allocated state so it can be
// reused for a different page id without leaking the old contents:
// id, pin count, dirty bit and latch state are reset and the bytes
// are zeroed.
func (p *Page) reset(id PageID) {
	p.id = id
	p.pinCount = 0
	p.isDirty = false
	p.latchState = LatchNone
	for i := range p.data {
		p.data[i] = 0
	}
}

// ID returns the page id currently occupying this frame.
func (p *Page) ID() PageID { return p.id }

// PinCount returns the current pin count.
func (p *Page) PinCount() int { return p.pinCount }

// IsDirty reports whether the frame has unflushed writes.
func (p *Page) IsDirty() bool { return p.isDirty }

// SetDirty ORs the dirty bit on. It never clears it; only a flush does.
func (p *Page) SetDirty() { p.isDirty = true }

func (p *Page) incPinCount() { p.pinCount++ }

func (p *Page) decPinCount() {
	if p.pinCount > 0 {
		p.pinCount--
	}
}

// Data returns the raw byte buffer backing this frame. Callers holding at
// least a read latch may read it; callers holding a write latch may
// mutate it and must call SetDirty (directly, or through a guard) to
// record that the change needs to be written back.
func (p *Page) Data() []byte { return p.data[:] }

// TakeReadLatch blocks until a shared latch on the frame is held.
func (p *Page) TakeReadLatch() {
	p.latch.RLock()
	p.latchState = LatchRead
}

// ReleaseReadLatch releases a previously taken shared latch.
func (p *Page) ReleaseReadLatch() {
	p.latch.RUnlock()
	p.latchState = LatchNone
}

// TakeWriteLatch blocks until an exclusive latch on the frame is held.
func (p *Page) TakeWriteLatch() {
	p.latch.Lock()
	p.latchState = LatchWrite
}

// ReleaseWriteLatch releases a previously taken exclusive latch.
func (p *Page) ReleaseWriteLatch() {
	p.latch.Unlock()
	p.latchState = LatchNone
}

// ReleaseAnyLatch releases whichever latch, if any, is currently held.
func (p *Page) ReleaseAnyLatch() {
	switch p.latchState {
	case LatchRead:
		p.ReleaseReadLatch()
	case LatchWrite:
		p.ReleaseWriteLatch()
	}
}

// LatchState reports which latch, if any, is currently held.
func (p *Page) LatchState() LatchState { return p.latchState }

func (p *Page) String() string {
	return fmt.Sprintf("page(id=%d pin=%d dirty=%t)", p.id, p.pinCount, p.isDirty)
}
