package bptree

import "github.com/latticedb/latticedb/bufferpool"

// headerView interprets a page's buffer as the tree's header page: a
// single root_page_id field at a fixed offset, per spec.md §6.
type headerView struct {
	buf []byte
}

const headerRootPageIDOffset = 0

func newHeaderView(buf []byte) headerView { return headerView{buf: buf} }

func (h headerView) rootPageID() bufferpool.PageID {
	return readPageID(h.buf, headerRootPageIDOffset)
}

func (h headerView) setRootPageID(id bufferpool.PageID) {
	writePageID(h.buf, headerRootPageIDOffset, id)
}
