package bptree

import "github.com/latticedb/latticedb/bufferpool"

// Leaf page layout: commonHeaderSize bytes of {page_type, current_size,
// max_size}, then a 4-byte next_page_id, then an array of
// leafEntrySize-wide (key, record_id) entries. Grounded on
// original_source/src/storage/page/b_plus_tree_leaf_page.cpp.
const (
	leafNextPageIDOffset = commonHeaderSize
	leafHeaderSize        = commonHeaderSize + 4
	leafEntrySize          = keySize + 8 // key + RecordID
)

// leafView interprets a page's buffer as a leaf node.
type leafView struct {
	buf []byte
}

func newLeafView(buf []byte) leafView { return leafView{buf: buf} }

// initLeaf formats buf as a fresh, empty leaf with the given max size
// (clamped to what the page can hold) and an invalid next-leaf pointer.
func initLeaf(buf []byte, maxSize int) leafView {
	v := leafView{buf: buf}
	writePageType(buf, PageTypeLeaf)
	writeCurrentSize(buf, 0)
	writeMaxSize(buf, capacityFor(leafHeaderSize, leafEntrySize, maxSize))
	v.setNextPageID(bufferpool.InvalidPageID)
	return v
}

func (v leafView) pageType() PageType   { return readPageType(v.buf) }
func (v leafView) size() int            { return readCurrentSize(v.buf) }
func (v leafView) setSize(n int)        { writeCurrentSize(v.buf, n) }
func (v leafView) maxSize() int         { return readMaxSize(v.buf) }
func (v leafView) isFull() bool         { return v.size() >= v.maxSize() }
func (v leafView) isUnderflowing(minSize int) bool { return v.size() < minSize }

func (v leafView) nextPageID() bufferpool.PageID {
	return readPageID(v.buf, leafNextPageIDOffset)
}

func (v leafView) setNextPageID(id bufferpool.PageID) {
	writePageID(v.buf, leafNextPageIDOffset, id)
}

func (v leafView) entryOffset(i int) int { return leafHeaderSize + i*leafEntrySize }

func (v leafView) keyAt(i int) Key { return readKey(v.buf, v.entryOffset(i)) }

func (v leafView) valueAt(i int) RecordID {
	return readRecordID(v.buf, v.entryOffset(i)+keySize)
}

func (v leafView) setEntryAt(i int, k Key, rid RecordID) {
	off := v.entryOffset(i)
	writeKey(v.buf, off, k)
	writeRecordID(v.buf, off+keySize, rid)
}

// search returns the index of key if present, and the index where it
// would be inserted to keep the array sorted if not (a la sort.Search).
func (v leafView) search(key Key) (idx int, found bool) {
	lo, hi := 0, v.size()
	for lo < hi {
		mid := (lo + hi) / 2
		if v.keyAt(mid) < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, lo < v.size() && v.keyAt(lo) == key
}

// insertAt shifts entries right to open a slot at idx, then writes it.
// Caller must make sure a physical slot is free: size() may reach
// maxSize()+1 (the slot capacityFor reserves) before a split.
func (v leafView) insertAt(idx int, k Key, rid RecordID) {
	n := v.size()
	for i := n; i > idx; i-- {
		srcOff, dstOff := v.entryOffset(i-1), v.entryOffset(i)
		copy(v.buf[dstOff:dstOff+leafEntrySize], v.buf[srcOff:srcOff+leafEntrySize])
	}
	v.setEntryAt(idx, k, rid)
	v.setSize(n + 1)
}

// removeAt shifts entries left over the slot at idx.
func (v leafView) removeAt(idx int) {
	n := v.size()
	for i := idx; i < n-1; i++ {
		srcOff, dstOff := v.entryOffset(i+1), v.entryOffset(i)
		copy(v.buf[dstOff:dstOff+leafEntrySize], v.buf[srcOff:srcOff+leafEntrySize])
	}
	v.setSize(n - 1)
}

// moveHalfTo transplants the upper half of v's entries onto the (empty)
// sibling dst, used when v is split after an overflowing insert.
func (v leafView) moveHalfTo(dst leafView) {
	n := v.size()
	mid := n / 2
	for i := mid; i < n; i++ {
		dst.insertAt(dst.size(), v.keyAt(i), v.valueAt(i))
	}
	v.setSize(mid)
}

// moveAllTo appends all of v's entries onto dst, used when merging v
// into its left sibling during delete-driven rebalancing.
func (v leafView) moveAllTo(dst leafView) {
	n := v.size()
	for i := 0; i < n; i++ {
		dst.insertAt(dst.size(), v.keyAt(i), v.valueAt(i))
	}
	v.setSize(0)
}
