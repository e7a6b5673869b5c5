package bptree

import (
	"github.com/latticedb/latticedb/bufferpool"
	"github.com/latticedb/latticedb/pageguard"
)

// Iterator walks the leaf chain left to right starting from some
// position, following next_page_id pointers (spec.md §4.4's range-scan
// contract). It holds a read latch on at most one leaf at a time.
type Iterator struct {
	tree  *BPlusTree
	guard pageguard.ReadGuard
	leaf  leafView
	idx   int
	done  bool
}

// SeekToFirst returns an iterator positioned at the smallest key in the
// tree, or an exhausted iterator if the tree is empty.
func (t *BPlusTree) SeekToFirst() (*Iterator, error) {
	return t.seek(func(v internalView) int { return 0 }, nil)
}

// Seek returns an iterator positioned at the first key >= key.
func (t *BPlusTree) Seek(key Key) (*Iterator, error) {
	return t.seek(func(v internalView) int { return v.lookup(key) }, &key)
}

func (t *BPlusTree) seek(childIndex func(internalView) int, key *Key) (*Iterator, error) {
	headerGuard, err := pageguard.FetchPageRead(t.pool, t.headerPageID)
	if err != nil {
		return nil, err
	}
	root := newHeaderView(headerGuard.Data()).rootPageID()
	headerGuard.Drop()
	if root == bufferpool.InvalidPageID {
		return &Iterator{done: true}, nil
	}

	cur := root
	for {
		guard, err := pageguard.FetchPageRead(t.pool, cur)
		if err != nil {
			return nil, err
		}
		if readPageType(guard.Data()) == PageTypeLeaf {
			leaf := newLeafView(guard.Data())
			idx := 0
			if key != nil {
				idx, _ = leaf.search(*key)
			}
			it := &Iterator{tree: t, guard: guard, leaf: leaf, idx: idx}
			if idx >= leaf.size() {
				// key sorts after every entry of this leaf: the first key
				// >= key, if any, starts the next leaf in the chain.
				it.idx = leaf.size() - 1
				if err := it.Next(); err != nil {
					return nil, err
				}
			}
			return it, nil
		}
		view := newInternalView(guard.Data())
		next := view.childAt(childIndex(view))
		guard.Drop()
		cur = next
	}
}

// Valid reports whether Key/Value may be called.
func (it *Iterator) Valid() bool { return !it.done }

// Key returns the current entry's key.
func (it *Iterator) Key() Key { return it.leaf.keyAt(it.idx) }

// Value returns the current entry's record id.
func (it *Iterator) Value() RecordID { return it.leaf.valueAt(it.idx) }

// Next advances to the following entry, crossing into the next leaf via
// next_page_id if the current one is exhausted.
func (it *Iterator) Next() error {
	if it.done {
		return nil
	}
	it.idx++
	if it.idx < it.leaf.size() {
		return nil
	}

	next := it.leaf.nextPageID()
	it.guard.Drop()
	if next == bufferpool.InvalidPageID {
		it.done = true
		return nil
	}
	guard, err := pageguard.FetchPageRead(it.tree.pool, next)
	if err != nil {
		return err
	}
	it.guard = guard
	it.leaf = newLeafView(guard.Data())
	it.idx = 0
	it.done = it.leaf.size() == 0
	return nil
}

// Close releases the iterator's held latch, if any. Safe to call more
// than once, and safe on an exhausted iterator.
func (it *Iterator) Close() {
	it.guard.Drop()
}
