package bufferpool

import (
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/latticedb/latticedb/logger"
)

// ErrNoFreeFrames is returned when the buffer pool cannot obtain a frame
// for a new or fetched page: the free list is empty and every resident
// frame is pinned (not evictable). Per spec.md §4.2/§7 this is fatal to
// the caller; the B+ tree layer treats it as an unrecoverable allocation
// failure.
var ErrNoFreeFrames = errors.New("bufferpool: no free frames available")

// BufferPoolManager provides the illusion of unlimited paged memory over
// a fixed-size pool of frames, backed by a DiskManager and governed by an
// LRUKReplacer. All of the five bookkeeping structures named in spec.md
// §4.2 (frame array, page table, free list, replacer state, pin counts)
// are mutated only while mu is held, so every operation below is
// atomic relative to every other one.
type BufferPoolManager struct {
	mu sync.Mutex

	poolSize    int
	diskManager DiskManager
	replacer    *LRUKReplacer

	frames    []*Page
	pageTable map[PageID]FrameID
	freeList  []FrameID

	nextPageID PageID

	log     logger.Logger
	metrics *Metrics
}

// NewBufferPoolManager returns a buffer pool of poolSize frames, using an
// LRU-K replacer with history depth k. A nil log defaults to the no-op
// logger.
func NewBufferPoolManager(poolSize, k int, dm DiskManager, log logger.Logger) *BufferPoolManager {
	if log == nil {
		log = logger.NopLogger
	}
	freeList := make([]FrameID, poolSize)
	for i := 0; i < poolSize; i++ {
		freeList[i] = FrameID(i)
	}
	return &BufferPoolManager{
		poolSize:    poolSize,
		diskManager: dm,
		replacer:    NewLRUKReplacer(poolSize, k),
		frames:      make([]*Page, poolSize),
		pageTable:   make(map[PageID]FrameID),
		freeList:    freeList,
		log:         log,
		metrics:     newMetrics(),
	}
}

// Metrics exposes the pool's prometheus collectors for registration.
func (b *BufferPoolManager) Metrics() *Metrics { return b.metrics }

// acquireFrame returns a frame ready for reuse: from the free list if one
// exists, otherwise the replacer's chosen victim, written back first if
// dirty. Caller must hold mu.
func (b *BufferPoolManager) acquireFrame() (FrameID, error) {
	if n := len(b.freeList); n > 0 {
		frameID := b.freeList[n-1]
		b.freeList = b.freeList[:n-1]
		return frameID, nil
	}

	frameID, ok := b.replacer.Evict()
	if !ok {
		return 0, ErrNoFreeFrames
	}
	b.metrics.evictions.Inc()

	victim := b.frames[frameID]
	if victim != nil {
		if victim.IsDirty() {
			if err := b.diskManager.WritePage(victim.ID(), victim.Data()); err != nil {
				return 0, errors.Wrap(err, "write back evicted page")
			}
			b.metrics.diskWrites.Inc()
		}
		delete(b.pageTable, victim.ID())
	}
	return frameID, nil
}

// NewPage allocates a fresh page, backed by a frame obtained from the
// free list or by eviction, and returns it pinned once.
func (b *BufferPoolManager) NewPage() (PageID, *Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, err := b.acquireFrame()
	if err != nil {
		return InvalidPageID, nil, err
	}

	pageID := b.nextPageID
	b.nextPageID++

	page := NewPage(pageID)
	page.incPinCount()

	b.frames[frameID] = page
	b.pageTable[pageID] = frameID
	b.replacer.RecordAccess(frameID, AccessUnknown)
	b.replacer.SetEvictable(frameID, false)
	b.metrics.pagesAllocated.Inc()

	return pageID, page, nil
}

// FetchPage returns pageID's frame, pinning it, loading it from disk if
// it was not already resident.
func (b *BufferPoolManager) FetchPage(pageID PageID) (*Page, error) {
	return b.fetchPage(pageID, AccessUnknown)
}

// FetchPageWithAccessType is FetchPage with an AccessType hint recorded
// alongside the replacer access.
func (b *BufferPoolManager) FetchPageWithAccessType(pageID PageID, accessType AccessType) (*Page, error) {
	return b.fetchPage(pageID, accessType)
}

func (b *BufferPoolManager) fetchPage(pageID PageID, accessType AccessType) (*Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if frameID, ok := b.pageTable[pageID]; ok {
		page := b.frames[frameID]
		page.incPinCount()
		b.replacer.RecordAccess(frameID, accessType)
		b.replacer.SetEvictable(frameID, false)
		b.metrics.hits.Inc()
		return page, nil
	}

	frameID, err := b.acquireFrame()
	if err != nil {
		return nil, err
	}

	page := NewPage(pageID)
	if err := b.diskManager.ReadPage(pageID, page.Data()); err != nil {
		// the old occupant, if any, is already detached; return the frame
		// to the free list rather than leaving it in limbo.
		b.freeList = append(b.freeList, frameID)
		return nil, errors.Wrap(err, "read page")
	}
	b.metrics.diskReads.Inc()
	page.incPinCount()

	b.frames[frameID] = page
	b.pageTable[pageID] = frameID
	b.replacer.RecordAccess(frameID, accessType)
	b.replacer.SetEvictable(frameID, false)
	b.metrics.misses.Inc()

	return page, nil
}

// UnpinPage decrements pageID's pin count and ORs in isDirty. It reports
// false if the page is not resident or is already unpinned.
func (b *BufferPoolManager) UnpinPage(pageID PageID, isDirty bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		return false
	}
	page := b.frames[frameID]
	if page.PinCount() == 0 {
		return false
	}
	page.decPinCount()
	if isDirty {
		page.SetDirty()
	}
	if page.PinCount() == 0 {
		b.replacer.SetEvictable(frameID, true)
	}
	return true
}

// FlushPage writes pageID's frame to disk and clears its dirty bit. It
// reports false if the page is not resident.
func (b *BufferPoolManager) FlushPage(pageID PageID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushPageLocked(pageID)
}

func (b *BufferPoolManager) flushPageLocked(pageID PageID) bool {
	frameID, ok := b.pageTable[pageID]
	if !ok {
		return false
	}
	page := b.frames[frameID]
	if err := b.diskManager.WritePage(pageID, page.Data()); err != nil {
		b.log.Errorf("bufferpool: flush page %d: %v", pageID, err)
		return false
	}
	b.metrics.diskWrites.Inc()
	page.isDirty = false
	return true
}

// FlushAllPages flushes every resident page.
func (b *BufferPoolManager) FlushAllPages() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for pageID := range b.pageTable {
		b.flushPageLocked(pageID)
	}
}

// DeletePage releases pageID's frame back to the free list. It succeeds
// vacuously if the page is not resident, and fails if it is pinned.
// Per spec.md §9, dirty data of a deleted page is deliberately not
// written back; flush first if the caller needs that.
func (b *BufferPoolManager) DeletePage(pageID PageID) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		return true, nil
	}
	page := b.frames[frameID]
	if page.PinCount() > 0 {
		return false, nil
	}

	delete(b.pageTable, pageID)
	// a page reaching pin 0 is already marked evictable by UnpinPage; make
	// the replacer forget it outright so the frame-id never surfaces again.
	b.replacer.SetEvictable(frameID, true)
	b.replacer.Remove(frameID)
	page.reset(InvalidPageID)
	b.frames[frameID] = nil
	b.freeList = append(b.freeList, frameID)

	return true, nil
}

// OnDiskSize exposes the backing disk manager's size, where supported.
func (b *BufferPoolManager) OnDiskSize() int64 {
	type sizer interface{ FileSize() int64 }
	if s, ok := b.diskManager.(sizer); ok {
		return s.FileSize()
	}
	return 0
}

// Close flushes every resident page and closes the disk manager.
func (b *BufferPoolManager) Close() error {
	b.FlushAllPages()
	return b.diskManager.Close()
}

// DumpFrames writes one line per resident frame to w, via Page.String(),
// for callers debugging what the pool currently holds (see
// ctl/inspect.go's buffer-pool-state section).
func (b *BufferPoolManager) DumpFrames(w io.Writer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for frameID, page := range b.frames {
		if page == nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "frame[%d] %s\n", frameID, page); err != nil {
			return err
		}
	}
	return nil
}
