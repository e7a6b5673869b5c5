package bptree

import "github.com/latticedb/latticedb/bufferpool"

// Internal page layout: commonHeaderSize bytes of {page_type,
// current_size, max_size}, then an array of internalEntrySize-wide
// (key, child_page_id) entries. Slot 0's key is never read -- only its
// child pointer is meaningful, per the usual B+ tree convention that an
// internal node with n children carries only n-1 separator keys.
// Grounded on original_source/src/storage/page/b_plus_tree_internal_page.cpp.
const (
	internalHeaderSize = commonHeaderSize
	internalEntrySize  = keySize + 4 // key + child PageID
)

type internalView struct {
	buf []byte
}

func newInternalView(buf []byte) internalView { return internalView{buf: buf} }

// initInternal formats buf as a fresh, empty internal node.
func initInternal(buf []byte, maxSize int) internalView {
	v := internalView{buf: buf}
	writePageType(buf, PageTypeInternal)
	writeCurrentSize(buf, 0)
	writeMaxSize(buf, capacityFor(internalHeaderSize, internalEntrySize, maxSize))
	return v
}

func (v internalView) pageType() PageType { return readPageType(v.buf) }
func (v internalView) size() int          { return readCurrentSize(v.buf) }
func (v internalView) setSize(n int)      { writeCurrentSize(v.buf, n) }
func (v internalView) maxSize() int       { return readMaxSize(v.buf) }
func (v internalView) isFull() bool       { return v.size() >= v.maxSize() }
func (v internalView) isUnderflowing(minSize int) bool { return v.size() < minSize }

func (v internalView) entryOffset(i int) int { return internalHeaderSize + i*internalEntrySize }

// keyAt is meaningless for i == 0.
func (v internalView) keyAt(i int) Key { return readKey(v.buf, v.entryOffset(i)) }

func (v internalView) setKeyAt(i int, k Key) { writeKey(v.buf, v.entryOffset(i), k) }

func (v internalView) childAt(i int) bufferpool.PageID {
	return readPageID(v.buf, v.entryOffset(i)+keySize)
}

func (v internalView) setChildAt(i int, id bufferpool.PageID) {
	writePageID(v.buf, v.entryOffset(i)+keySize, id)
}

func (v internalView) setEntryAt(i int, k Key, child bufferpool.PageID) {
	v.setKeyAt(i, k)
	v.setChildAt(i, child)
}

// setRoot is used only when promoting a brand-new root: one separator
// key and exactly two children.
func (v internalView) setRoot(left bufferpool.PageID, sep Key, right bufferpool.PageID) {
	v.setSize(2)
	v.setChildAt(0, left)
	v.setEntryAt(1, sep, right)
}

// lookup returns the index of the child pointer to follow for key:
// the last slot whose key is <= key, or slot 0 if key is smaller than
// every separator.
func (v internalView) lookup(key Key) int {
	lo, hi := 1, v.size()
	for lo < hi {
		mid := (lo + hi) / 2
		if v.keyAt(mid) <= key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo - 1
}

// indexOfChild returns the slot holding childID, or -1.
func (v internalView) indexOfChild(childID bufferpool.PageID) int {
	for i := 0; i < v.size(); i++ {
		if v.childAt(i) == childID {
			return i
		}
	}
	return -1
}

func (v internalView) insertAt(idx int, k Key, child bufferpool.PageID) {
	n := v.size()
	for i := n; i > idx; i-- {
		srcOff, dstOff := v.entryOffset(i-1), v.entryOffset(i)
		copy(v.buf[dstOff:dstOff+internalEntrySize], v.buf[srcOff:srcOff+internalEntrySize])
	}
	v.setEntryAt(idx, k, child)
	v.setSize(n + 1)
}

func (v internalView) removeAt(idx int) {
	n := v.size()
	for i := idx; i < n-1; i++ {
		srcOff, dstOff := v.entryOffset(i+1), v.entryOffset(i)
		copy(v.buf[dstOff:dstOff+internalEntrySize], v.buf[srcOff:srcOff+internalEntrySize])
	}
	v.setSize(n - 1)
}

// insertAfterChild inserts (sep, newChild) right after the slot holding
// existingChild, used when a child splits and promotes sep upward.
func (v internalView) insertAfterChild(existingChild bufferpool.PageID, sep Key, newChild bufferpool.PageID) {
	idx := v.indexOfChild(existingChild)
	v.insertAt(idx+1, sep, newChild)
}

// moveHalfTo transplants the upper half of v's entries (including their
// separator keys) onto the empty sibling dst, used when v overflows. It
// returns the key that used to separate the two halves -- neither side
// keeps it; the caller promotes it to the parent.
func (v internalView) moveHalfTo(dst internalView) Key {
	n := v.size()
	mid := n / 2
	promoted := v.keyAt(mid)
	dst.setChildAt(0, v.childAt(mid))
	dst.setSize(1)
	for i := mid + 1; i < n; i++ {
		dst.insertAt(dst.size(), v.keyAt(i), v.childAt(i))
	}
	v.setSize(mid)
	return promoted
}

// moveAllTo appends all of v's entries onto dst during a merge. sepKey
// is the separator that used to sit between the two nodes in their
// parent; it becomes the key for v's first child once appended.
func (v internalView) moveAllTo(dst internalView, sepKey Key) {
	dst.insertAt(dst.size(), sepKey, v.childAt(0))
	n := v.size()
	for i := 1; i < n; i++ {
		dst.insertAt(dst.size(), v.keyAt(i), v.childAt(i))
	}
	v.setSize(0)
}
