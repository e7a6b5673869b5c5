package bptree

import (
	"sync"

	"github.com/latticedb/latticedb/bufferpool"
	"github.com/latticedb/latticedb/logger"
	"github.com/latticedb/latticedb/pageguard"
)

// BPlusTree is a disk-resident B+ tree index living entirely on
// buffer-pool pages, per spec.md §4.4. Every node is reached through a
// pageguard, so a frame is never read or written without the matching
// latch held. Structural mutation (Insert/Delete) holds the whole
// root-to-leaf path latched write-side for the duration of the call,
// serialized by mu; the spec deliberately excludes fine-grained
// latch-crabbing, so this is not an optimization, it's the design.
// Get and the Iterator instead hold at most one node's read latch at a
// time, which protects against torn reads of a single node but -- since
// there is no crabbing -- not against following a child pointer into a
// page a concurrent Delete merges away between the parent read and the
// child fetch. That relaxation is accepted scope, not an oversight.
type BPlusTree struct {
	mu sync.Mutex

	pool            *bufferpool.BufferPoolManager
	headerPageID    bufferpool.PageID
	leafMaxSize     int
	internalMaxSize int
	log             logger.Logger
}

// CreateBPlusTree allocates a fresh header page and returns an empty
// tree backed by it. leafMaxSize and internalMaxSize are clamped to
// each page type's physical capacity.
func CreateBPlusTree(pool *bufferpool.BufferPoolManager, leafMaxSize, internalMaxSize int, log logger.Logger) (*BPlusTree, error) {
	guard, err := pageguard.NewPageGuardedWrite(pool)
	if err != nil {
		return nil, err
	}
	newHeaderView(guard.Data()).setRootPageID(bufferpool.InvalidPageID)
	guard.SetDirty()
	headerPageID := guard.PageID()
	guard.Drop()

	return OpenBPlusTree(pool, headerPageID, leafMaxSize, internalMaxSize, log), nil
}

// OpenBPlusTree returns a tree backed by an existing header page, e.g.
// after a process restart (spec.md's durable-metadata non-goal means the
// caller is responsible for remembering headerPageID itself).
func OpenBPlusTree(pool *bufferpool.BufferPoolManager, headerPageID bufferpool.PageID, leafMaxSize, internalMaxSize int, log logger.Logger) *BPlusTree {
	if log == nil {
		log = logger.NopLogger
	}
	return &BPlusTree{
		pool:            pool,
		headerPageID:    headerPageID,
		leafMaxSize:     capacityFor(leafHeaderSize, leafEntrySize, leafMaxSize),
		internalMaxSize: capacityFor(internalHeaderSize, internalEntrySize, internalMaxSize),
		log:             log,
	}
}

// HeaderPageID returns the page identifying this tree's root, for
// callers that need to persist it externally.
func (t *BPlusTree) HeaderPageID() bufferpool.PageID { return t.headerPageID }

func (t *BPlusTree) minLeafSize() int     { return (t.leafMaxSize + 1) / 2 }
func (t *BPlusTree) minInternalSize() int { return (t.internalMaxSize + 1) / 2 }

// IsEmpty reports whether the tree has no root yet.
func (t *BPlusTree) IsEmpty() (bool, error) {
	headerGuard, err := pageguard.FetchPageRead(t.pool, t.headerPageID)
	if err != nil {
		return false, err
	}
	defer headerGuard.Drop()
	return newHeaderView(headerGuard.Data()).rootPageID() == bufferpool.InvalidPageID, nil
}

// Get returns the value stored under key, if any.
func (t *BPlusTree) Get(key Key) (RecordID, bool, error) {
	headerGuard, err := pageguard.FetchPageRead(t.pool, t.headerPageID)
	if err != nil {
		return 0, false, err
	}
	root := newHeaderView(headerGuard.Data()).rootPageID()
	headerGuard.Drop()
	if root == bufferpool.InvalidPageID {
		return 0, false, nil
	}

	cur := root
	for {
		guard, err := pageguard.FetchPageRead(t.pool, cur)
		if err != nil {
			return 0, false, err
		}
		if readPageType(guard.Data()) == PageTypeLeaf {
			leaf := newLeafView(guard.Data())
			idx, found := leaf.search(key)
			var rid RecordID
			if found {
				rid = leaf.valueAt(idx)
			}
			guard.Drop()
			return rid, found, nil
		}
		view := newInternalView(guard.Data())
		next := view.childAt(view.lookup(key))
		guard.Drop()
		cur = next
	}
}

// ancestor is one internal node on the path from root to the leaf being
// modified, recorded while descending so Insert/Delete can walk back up
// without re-fetching. childIdx is the slot within view that was
// followed to reach the next node down.
type ancestor struct {
	guard    pageguard.WriteGuard
	view     internalView
	childIdx int
}

// Insert adds key -> value. It reports false without modifying the tree
// if key is already present; this index enforces unique keys.
func (t *BPlusTree) Insert(key Key, value RecordID) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	headerGuard, err := pageguard.FetchPageWrite(t.pool, t.headerPageID)
	if err != nil {
		return false, err
	}
	defer headerGuard.Drop()
	header := newHeaderView(headerGuard.Data())

	root := header.rootPageID()
	if root == bufferpool.InvalidPageID {
		leafGuard, err := pageguard.NewPageGuardedWrite(t.pool)
		if err != nil {
			return false, err
		}
		leaf := initLeaf(leafGuard.Data(), t.leafMaxSize)
		leaf.insertAt(0, key, value)
		leafGuard.SetDirty()
		header.setRootPageID(leafGuard.PageID())
		headerGuard.SetDirty()
		leafGuard.Drop()
		return true, nil
	}

	var ancestors []ancestor
	defer func() {
		for i := len(ancestors) - 1; i >= 0; i-- {
			ancestors[i].guard.Drop()
		}
	}()

	cur := root
	for {
		guard, err := pageguard.FetchPageWrite(t.pool, cur)
		if err != nil {
			return false, err
		}
		if readPageType(guard.Data()) == PageTypeLeaf {
			return t.insertIntoLeaf(&headerGuard, header, ancestors, guard, key, value)
		}
		view := newInternalView(guard.Data())
		idx := view.lookup(key)
		ancestors = append(ancestors, ancestor{guard: guard, view: view, childIdx: idx})
		cur = view.childAt(idx)
	}
}

func (t *BPlusTree) insertIntoLeaf(headerGuard *pageguard.WriteGuard, header headerView, ancestors []ancestor, leafGuard pageguard.WriteGuard, key Key, value RecordID) (bool, error) {
	defer leafGuard.Drop()
	leaf := newLeafView(leafGuard.Data())
	idx, found := leaf.search(key)
	if found {
		return false, nil
	}
	leaf.insertAt(idx, key, value)
	leafGuard.SetDirty()

	if leaf.size() <= leaf.maxSize() {
		return true, nil
	}

	newLeafGuard, err := pageguard.NewPageGuardedWrite(t.pool)
	if err != nil {
		return false, err
	}
	defer newLeafGuard.Drop()
	newLeaf := initLeaf(newLeafGuard.Data(), t.leafMaxSize)
	newLeaf.setNextPageID(leaf.nextPageID())
	leaf.moveHalfTo(newLeaf)
	leaf.setNextPageID(newLeafGuard.PageID())
	newLeafGuard.SetDirty()

	promoted := newLeaf.keyAt(0)
	if err := t.insertIntoParent(headerGuard, header, ancestors, leafGuard.PageID(), promoted, newLeafGuard.PageID()); err != nil {
		return false, err
	}
	return true, nil
}

// insertIntoParent attaches (sep, rightChild) right after leftChild in
// leftChild's parent (the last entry of ancestors), splitting that
// parent too if it overflows, and so on up to the root. An empty
// ancestors means leftChild was the root; a new root is created.
func (t *BPlusTree) insertIntoParent(headerGuard *pageguard.WriteGuard, header headerView, ancestors []ancestor, leftChild bufferpool.PageID, sep Key, rightChild bufferpool.PageID) error {
	if len(ancestors) == 0 {
		newRootGuard, err := pageguard.NewPageGuardedWrite(t.pool)
		if err != nil {
			return err
		}
		defer newRootGuard.Drop()
		newRoot := initInternal(newRootGuard.Data(), t.internalMaxSize)
		newRoot.setRoot(leftChild, sep, rightChild)
		newRootGuard.SetDirty()
		header.setRootPageID(newRootGuard.PageID())
		headerGuard.SetDirty()
		return nil
	}

	parent := &ancestors[len(ancestors)-1]
	parent.view.insertAfterChild(leftChild, sep, rightChild)
	parent.guard.SetDirty()

	if parent.view.size() <= parent.view.maxSize() {
		return nil
	}

	newGuard, err := pageguard.NewPageGuardedWrite(t.pool)
	if err != nil {
		return err
	}
	defer newGuard.Drop()
	newView := initInternal(newGuard.Data(), t.internalMaxSize)
	promoted := parent.view.moveHalfTo(newView)
	newGuard.SetDirty()

	return t.insertIntoParent(headerGuard, header, ancestors[:len(ancestors)-1], parent.guard.PageID(), promoted, newGuard.PageID())
}

// Delete removes key, if present, rebalancing the tree (borrow from a
// sibling, or merge, cascading upward) to keep every node at or above
// its minimum occupancy. It reports false if key was not present.
func (t *BPlusTree) Delete(key Key) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	headerGuard, err := pageguard.FetchPageWrite(t.pool, t.headerPageID)
	if err != nil {
		return false, err
	}
	defer headerGuard.Drop()
	header := newHeaderView(headerGuard.Data())

	root := header.rootPageID()
	if root == bufferpool.InvalidPageID {
		return false, nil
	}

	var ancestors []ancestor
	defer func() {
		for i := len(ancestors) - 1; i >= 0; i-- {
			ancestors[i].guard.Drop()
		}
	}()

	cur := root
	var leafGuard pageguard.WriteGuard
	for {
		guard, err := pageguard.FetchPageWrite(t.pool, cur)
		if err != nil {
			return false, err
		}
		if readPageType(guard.Data()) == PageTypeLeaf {
			leafGuard = guard
			break
		}
		view := newInternalView(guard.Data())
		idx := view.lookup(key)
		ancestors = append(ancestors, ancestor{guard: guard, view: view, childIdx: idx})
		cur = view.childAt(idx)
	}
	defer leafGuard.Drop()

	leaf := newLeafView(leafGuard.Data())
	idx, found := leaf.search(key)
	if !found {
		return false, nil
	}
	leaf.removeAt(idx)
	leafGuard.SetDirty()

	if len(ancestors) == 0 {
		if leaf.size() == 0 {
			leafPageID := leafGuard.PageID()
			leafGuard.Drop()
			if _, err := t.pool.DeletePage(leafPageID); err != nil {
				return false, err
			}
			header.setRootPageID(bufferpool.InvalidPageID)
			headerGuard.SetDirty()
		}
		return true, nil
	}

	if !leaf.isUnderflowing(t.minLeafSize()) {
		return true, nil
	}

	if err := t.rebalanceLeaf(&headerGuard, header, ancestors, &leafGuard, leaf); err != nil {
		return false, err
	}
	return true, nil
}

// rebalanceLeaf follows spec.md §4.4 steps 4-5: try to borrow from the
// left sibling, then the right, and only merge if neither can lend --
// merging with whichever sibling is larger when both exist. A sibling
// the node is the first or last child of is simply absent from the
// comparison, per the design note that each side's absence must be
// handled independently.
func (t *BPlusTree) rebalanceLeaf(headerGuard *pageguard.WriteGuard, header headerView, ancestors []ancestor, leafGuard *pageguard.WriteGuard, leaf leafView) error {
	minSize := t.minLeafSize()
	parent := &ancestors[len(ancestors)-1]
	idx := parent.childIdx
	hasLeft := idx > 0
	hasRight := idx+1 < parent.view.size()

	var leftGuard pageguard.WriteGuard
	var left leafView
	if hasLeft {
		g, err := pageguard.FetchPageWrite(t.pool, parent.view.childAt(idx-1))
		if err != nil {
			return err
		}
		leftGuard = g
		left = newLeafView(g.Data())
	}
	var rightGuard pageguard.WriteGuard
	var right leafView
	if hasRight {
		g, err := pageguard.FetchPageWrite(t.pool, parent.view.childAt(idx+1))
		if err != nil {
			if hasLeft {
				leftGuard.Drop()
			}
			return err
		}
		rightGuard = g
		right = newLeafView(g.Data())
	}

	switch {
	case hasLeft && left.size() > minSize:
		if hasRight {
			rightGuard.Drop()
		}
		n := left.size()
		k, v := left.keyAt(n-1), left.valueAt(n-1)
		left.removeAt(n - 1)
		leaf.insertAt(0, k, v)
		parent.view.setKeyAt(idx, leaf.keyAt(0))
		leftGuard.SetDirty()
		leafGuard.SetDirty()
		parent.guard.SetDirty()
		leftGuard.Drop()
		return nil

	case hasRight && right.size() > minSize:
		if hasLeft {
			leftGuard.Drop()
		}
		k, v := right.keyAt(0), right.valueAt(0)
		right.removeAt(0)
		leaf.insertAt(leaf.size(), k, v)
		parent.view.setKeyAt(idx+1, right.keyAt(0))
		rightGuard.SetDirty()
		leafGuard.SetDirty()
		parent.guard.SetDirty()
		rightGuard.Drop()
		return nil

	case hasLeft && (!hasRight || left.size() >= right.size()):
		if hasRight {
			rightGuard.Drop()
		}
		leaf.moveAllTo(left)
		left.setNextPageID(leaf.nextPageID())
		leftGuard.SetDirty()
		parent.view.removeAt(idx)
		parent.guard.SetDirty()
		leafPageID := leafGuard.PageID()
		leafGuard.Drop()
		leftGuard.Drop()
		if _, err := t.pool.DeletePage(leafPageID); err != nil {
			return err
		}
		return t.rebalanceInternal(headerGuard, header, ancestors)

	default:
		if hasLeft {
			leftGuard.Drop()
		}
		right.moveAllTo(leaf)
		leaf.setNextPageID(right.nextPageID())
		leafGuard.SetDirty()
		parent.view.removeAt(idx + 1)
		parent.guard.SetDirty()
		rightPageID := rightGuard.PageID()
		rightGuard.Drop()
		if _, err := t.pool.DeletePage(rightPageID); err != nil {
			return err
		}
		return t.rebalanceInternal(headerGuard, header, ancestors)
	}
}

// rebalanceInternal checks ancestors[len-1] -- the node whose child set
// just changed -- and borrows, merges, or (at the root) collapses it as
// needed, recursing toward the root as a merge keeps propagating.
func (t *BPlusTree) rebalanceInternal(headerGuard *pageguard.WriteGuard, header headerView, ancestors []ancestor) error {
	if len(ancestors) == 0 {
		return nil
	}
	node := &ancestors[len(ancestors)-1]

	if len(ancestors) == 1 {
		if node.view.size() == 1 {
			onlyChild := node.view.childAt(0)
			rootPageID := node.guard.PageID()
			node.guard.Drop()
			if _, err := t.pool.DeletePage(rootPageID); err != nil {
				return err
			}
			header.setRootPageID(onlyChild)
			headerGuard.SetDirty()
		}
		return nil
	}

	minSize := t.minInternalSize()
	if !node.view.isUnderflowing(minSize) {
		return nil
	}

	parent := &ancestors[len(ancestors)-2]
	idx := parent.childIdx
	hasLeft := idx > 0
	hasRight := idx+1 < parent.view.size()

	var leftGuard pageguard.WriteGuard
	var left internalView
	if hasLeft {
		g, err := pageguard.FetchPageWrite(t.pool, parent.view.childAt(idx-1))
		if err != nil {
			return err
		}
		leftGuard = g
		left = newInternalView(g.Data())
	}
	var rightGuard pageguard.WriteGuard
	var right internalView
	if hasRight {
		g, err := pageguard.FetchPageWrite(t.pool, parent.view.childAt(idx+1))
		if err != nil {
			if hasLeft {
				leftGuard.Drop()
			}
			return err
		}
		rightGuard = g
		right = newInternalView(g.Data())
	}

	switch {
	case hasLeft && left.size() > minSize:
		if hasRight {
			rightGuard.Drop()
		}
		n := left.size()
		kBorrow := left.keyAt(n - 1)
		childBorrow := left.childAt(n - 1)
		sep := parent.view.keyAt(idx)
		left.removeAt(n - 1)
		node.view.insertAt(0, 0, childBorrow)
		node.view.setKeyAt(1, sep)
		parent.view.setKeyAt(idx, kBorrow)
		leftGuard.SetDirty()
		node.guard.SetDirty()
		parent.guard.SetDirty()
		leftGuard.Drop()
		return nil

	case hasRight && right.size() > minSize:
		if hasLeft {
			leftGuard.Drop()
		}
		sep := parent.view.keyAt(idx + 1)
		k1 := right.keyAt(1)
		e0 := right.childAt(0)
		right.removeAt(0)
		node.view.insertAt(node.view.size(), sep, e0)
		parent.view.setKeyAt(idx+1, k1)
		rightGuard.SetDirty()
		node.guard.SetDirty()
		parent.guard.SetDirty()
		rightGuard.Drop()
		return nil

	case hasLeft && (!hasRight || left.size() >= right.size()):
		if hasRight {
			rightGuard.Drop()
		}
		sep := parent.view.keyAt(idx)
		node.view.moveAllTo(left, sep)
		leftGuard.SetDirty()
		parent.view.removeAt(idx)
		parent.guard.SetDirty()
		nodePageID := node.guard.PageID()
		node.guard.Drop()
		leftGuard.Drop()
		if _, err := t.pool.DeletePage(nodePageID); err != nil {
			return err
		}
		return t.rebalanceInternal(headerGuard, header, ancestors[:len(ancestors)-1])

	default:
		if hasLeft {
			leftGuard.Drop()
		}
		sep := parent.view.keyAt(idx + 1)
		right.moveAllTo(node.view, sep)
		node.guard.SetDirty()
		parent.view.removeAt(idx + 1)
		parent.guard.SetDirty()
		rightPageID := rightGuard.PageID()
		rightGuard.Drop()
		if _, err := t.pool.DeletePage(rightPageID); err != nil {
			return err
		}
		return t.rebalanceInternal(headerGuard, header, ancestors[:len(ancestors)-1])
	}
}
