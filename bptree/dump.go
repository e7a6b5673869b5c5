package bptree

import (
	"fmt"
	"io"

	"github.com/latticedb/latticedb/bufferpool"
	"github.com/latticedb/latticedb/pageguard"
)

// Dump writes a human-readable, depth-first rendering of the tree's page
// structure to w: one line per page, indented by depth, showing its id,
// type, and occupancy. It is a debugging aid (the teacher and the
// original both carry an analogous page-dump helper), not used by any
// Insert/Get/Delete path.
func (t *BPlusTree) Dump(w io.Writer) error {
	headerGuard, err := pageguard.FetchPageRead(t.pool, t.headerPageID)
	if err != nil {
		return err
	}
	root := newHeaderView(headerGuard.Data()).rootPageID()
	headerGuard.Drop()

	fmt.Fprintf(w, "header(page=%d) root=%d\n", t.headerPageID, root)
	if root == bufferpool.InvalidPageID {
		fmt.Fprintln(w, "  (empty)")
		return nil
	}
	return t.dumpNode(w, root, 1)
}

func (t *BPlusTree) dumpNode(w io.Writer, pageID bufferpool.PageID, depth int) error {
	guard, err := pageguard.FetchPageRead(t.pool, pageID)
	if err != nil {
		return err
	}
	defer guard.Drop()

	indent := func() { fmt.Fprint(w, indentOf(depth)) }

	if readPageType(guard.Data()) == PageTypeLeaf {
		leaf := newLeafView(guard.Data())
		indent()
		fmt.Fprintf(w, "leaf(page=%d) size=%d/%d next=%d keys=", pageID, leaf.size(), leaf.maxSize(), leaf.nextPageID())
		for i := 0; i < leaf.size(); i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, "%d", leaf.keyAt(i))
		}
		fmt.Fprintln(w)
		return nil
	}

	view := newInternalView(guard.Data())
	indent()
	fmt.Fprintf(w, "internal(page=%d) size=%d/%d\n", pageID, view.size(), view.maxSize())
	children := make([]bufferpool.PageID, view.size())
	seps := make([]Key, view.size())
	for i := 0; i < view.size(); i++ {
		children[i] = view.childAt(i)
		seps[i] = view.keyAt(i)
	}
	guard.Drop()

	for i, child := range children {
		if i > 0 {
			indent()
			fmt.Fprintf(w, "  sep[%d]=%d\n", i, seps[i])
		}
		if err := t.dumpNode(w, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func indentOf(depth int) string {
	s := ""
	for i := 0; i < depth; i++ {
		s += "  "
	}
	return s
}
