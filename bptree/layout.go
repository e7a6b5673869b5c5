// Package bptree implements the disk-resident, buffer-pool-backed B+
// tree index described in spec.md §4.4, grounded in the teacher's tstore
// package (btree.go / btreenode.go / range.go) and in
// original_source/src/storage/index/b_plus_tree.cpp and its leaf/internal
// page counterparts.
package bptree

import (
	"encoding/binary"

	"github.com/latticedb/latticedb/bufferpool"
)

// Key is the ordered, unique key type used throughout the index. The
// comparator is plain integer order (T-1/T-2 require only a strict total
// order; this spec never asks for user-pluggable key types the way a
// generic C++ template does).
type Key int64

// RecordID is the opaque payload a leaf entry points at -- the row
// identifier spec.md treats as an uninterpreted POD value.
type RecordID int64

// PageType tags a page's byte-buffer layout, per spec.md §6.
type PageType uint32

const (
	PageTypeInvalid  PageType = 0
	PageTypeLeaf     PageType = 1
	PageTypeInternal PageType = 2
	PageTypeHeader   PageType = 3
)

// Common header shared by leaf and internal pages: page type, current
// size, max size. Internal pages' entry array starts right after it;
// leaf pages interpose one more field (nextPageID) first.
const (
	offPageType    = 0
	offCurrentSize = 4
	offMaxSize     = 8
	commonHeaderSize = 12
)

func readPageType(buf []byte) PageType {
	return PageType(binary.LittleEndian.Uint32(buf[offPageType:]))
}

func writePageType(buf []byte, t PageType) {
	binary.LittleEndian.PutUint32(buf[offPageType:], uint32(t))
}

func readCurrentSize(buf []byte) int {
	return int(int32(binary.LittleEndian.Uint32(buf[offCurrentSize:])))
}

func writeCurrentSize(buf []byte, size int) {
	binary.LittleEndian.PutUint32(buf[offCurrentSize:], uint32(int32(size)))
}

func readMaxSize(buf []byte) int {
	return int(int32(binary.LittleEndian.Uint32(buf[offMaxSize:])))
}

func writeMaxSize(buf []byte, size int) {
	binary.LittleEndian.PutUint32(buf[offMaxSize:], uint32(int32(size)))
}

func readKey(buf []byte, off int) Key {
	return Key(int64(binary.LittleEndian.Uint64(buf[off:])))
}

func writeKey(buf []byte, off int, k Key) {
	binary.LittleEndian.PutUint64(buf[off:], uint64(int64(k)))
}

func readPageID(buf []byte, off int) bufferpool.PageID {
	return bufferpool.PageID(int32(binary.LittleEndian.Uint32(buf[off:])))
}

func writePageID(buf []byte, off int, id bufferpool.PageID) {
	binary.LittleEndian.PutUint32(buf[off:], uint32(int32(id)))
}

func readRecordID(buf []byte, off int) RecordID {
	return RecordID(int64(binary.LittleEndian.Uint64(buf[off:])))
}

func writeRecordID(buf []byte, off int, rid RecordID) {
	binary.LittleEndian.PutUint64(buf[off:], uint64(int64(rid)))
}

// keySize is the on-page width of a Key (int64).
const keySize = 8

// capacityFor returns the largest max_size that fits entrySize-wide
// entries into a page after headerSize bytes of fixed header, clamping a
// caller-requested size to that ceiling (spec.md §4.4: "clamped by the
// per-page capacity implied by 4 KiB / entry size"). It reserves one
// slot of the physical ceiling: a split is driven by "insert into the
// node, then split if it now exceeds max_size", which briefly holds
// max_size+1 entries in the same physical page before the split moves
// half of them out.
func capacityFor(headerSize, entrySize, requested int) int {
	ceiling := (bufferpool.PageSize-headerSize)/entrySize - 1
	if requested <= 0 || requested > ceiling {
		return ceiling
	}
	return requested
}
