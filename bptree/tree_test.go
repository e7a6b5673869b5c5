package bptree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticedb/latticedb/bufferpool"
)

func newTestTree(t *testing.T, leafMaxSize, internalMaxSize int) *BPlusTree {
	t.Helper()
	dm := bufferpool.NewInMemDiskManager(1 << 20)
	pool := bufferpool.NewBufferPoolManager(64, 2, dm, nil)
	tree, err := CreateBPlusTree(pool, leafMaxSize, internalMaxSize, nil)
	require.NoError(t, err)
	return tree
}

func TestBPlusTree_InsertNoSplit(t *testing.T) {
	// E3 from spec.md §8.
	tree := newTestTree(t, 4, 4)

	ok, err := tree.Insert(3, 100)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tree.Insert(1, 101)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tree.Insert(4, 103)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tree.Insert(1, 999)
	require.NoError(t, err)
	assert.False(t, ok, "duplicate key must be rejected")

	v, found, err := tree.Get(1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, RecordID(101), v)

	_, found, err = tree.Get(2)
	require.NoError(t, err)
	assert.False(t, found)

	v, found, err = tree.Get(4)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, RecordID(103), v)
}

func insertOneToFive(t *testing.T, tree *BPlusTree) {
	t.Helper()
	for i := 1; i <= 5; i++ {
		ok, err := tree.Insert(Key(i), RecordID(i*100))
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestBPlusTree_LeafSplitPromotesRoot(t *testing.T) {
	// E4 from spec.md §8.
	tree := newTestTree(t, 4, 4)
	insertOneToFive(t, tree)

	for i := 1; i <= 5; i++ {
		v, found, err := tree.Get(Key(i))
		require.NoError(t, err)
		require.True(t, found, "key %d", i)
		assert.Equal(t, RecordID(i*100), v)
	}

	rootID, err := headerRoot(t, tree)
	require.NoError(t, err)
	guard, err := fetchForTest(tree, rootID)
	require.NoError(t, err)
	assert.Equal(t, PageTypeInternal, readPageType(guard))
	root := newInternalView(guard)
	require.Equal(t, 2, root.size())
	assert.Equal(t, Key(3), root.keyAt(1))
}

func TestBPlusTree_IteratorWalksInOrder(t *testing.T) {
	// E5 from spec.md §8.
	tree := newTestTree(t, 4, 4)
	insertOneToFive(t, tree)

	it, err := tree.SeekToFirst()
	require.NoError(t, err)
	var keys []Key
	for it.Valid() {
		keys = append(keys, it.Key())
		require.NoError(t, it.Next())
	}
	it.Close()
	assert.Equal(t, []Key{1, 2, 3, 4, 5}, keys)

	it2, err := tree.Seek(3)
	require.NoError(t, err)
	require.True(t, it2.Valid())
	assert.Equal(t, Key(3), it2.Key())
	it2.Close()
}

func TestBPlusTree_DeleteTriggersMergeAndRootCollapse(t *testing.T) {
	// E6 from spec.md §8: continuing from E4, delete 5 then 4.
	tree := newTestTree(t, 4, 4)
	insertOneToFive(t, tree)

	ok, err := tree.Delete(5)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tree.Delete(4)
	require.NoError(t, err)
	assert.True(t, ok)

	for i, want := range map[Key]RecordID{1: 100, 2: 200, 3: 300} {
		v, found, err := tree.Get(i)
		require.NoError(t, err)
		require.True(t, found, "key %d", i)
		assert.Equal(t, want, v)
	}
	_, found, err := tree.Get(4)
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = tree.Get(5)
	require.NoError(t, err)
	assert.False(t, found)

	rootID, err := headerRoot(t, tree)
	require.NoError(t, err)
	guard, err := fetchForTest(tree, rootID)
	require.NoError(t, err)
	assert.Equal(t, PageTypeLeaf, readPageType(guard), "root must have collapsed to the merged leaf")
	leaf := newLeafView(guard)
	assert.Equal(t, 3, leaf.size())
}

func TestBPlusTree_DeleteMissingKeyReportsFalse(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	insertOneToFive(t, tree)

	ok, err := tree.Delete(42)
	require.NoError(t, err)
	assert.False(t, ok)
}

// headerRoot and fetchForTest reach past the pageguard layer directly for
// assertions that need to inspect page contents without holding a latch
// across the whole test.
func headerRoot(t *testing.T, tree *BPlusTree) (bufferpool.PageID, error) {
	t.Helper()
	page, err := tree.pool.FetchPage(tree.headerPageID)
	if err != nil {
		return bufferpool.InvalidPageID, err
	}
	defer tree.pool.UnpinPage(tree.headerPageID, false)
	return newHeaderView(page.Data()).rootPageID(), nil
}

func fetchForTest(tree *BPlusTree, id bufferpool.PageID) ([]byte, error) {
	page, err := tree.pool.FetchPage(id)
	if err != nil {
		return nil, err
	}
	defer tree.pool.UnpinPage(id, false)
	buf := make([]byte, len(page.Data()))
	copy(buf, page.Data())
	return buf, nil
}

// TestBPlusTree_BulkShuffledInsertAndDelete drives enough keys through a
// small-fanout tree to force multiple levels of internal splits and
// merges, then deletes half of them. Get is checked against a plain map
// after the inserts and again after the deletes; the iterator's order and
// count are checked after the inserts.
func TestBPlusTree_BulkShuffledInsertAndDelete(t *testing.T) {
	const n = 500
	tree := newTestTree(t, 4, 3)

	keys := make([]int, n)
	for i := range keys {
		keys[i] = i
	}
	rand.New(rand.NewSource(7)).Shuffle(n, func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	want := make(map[Key]RecordID, n)
	for _, k := range keys {
		ok, err := tree.Insert(Key(k), RecordID(k*10))
		require.NoError(t, err)
		require.True(t, ok)
		want[Key(k)] = RecordID(k * 10)
	}

	for k, v := range want {
		got, found, err := tree.Get(k)
		require.NoError(t, err)
		require.True(t, found, "key %d", k)
		assert.Equal(t, v, got)
	}

	it, err := tree.SeekToFirst()
	require.NoError(t, err)
	var prev Key
	count := 0
	for it.Valid() {
		if count > 0 {
			assert.True(t, it.Key() > prev, "iterator must yield strictly increasing keys")
		}
		prev = it.Key()
		count++
		require.NoError(t, it.Next())
	}
	it.Close()
	assert.Equal(t, n, count)

	rand.New(rand.NewSource(11)).Shuffle(n, func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	for _, k := range keys[:n/2] {
		ok, err := tree.Delete(Key(k))
		require.NoError(t, err)
		require.True(t, ok)
		delete(want, Key(k))
	}

	for k, v := range want {
		got, found, err := tree.Get(k)
		require.NoError(t, err)
		require.True(t, found, "key %d", k)
		assert.Equal(t, v, got)
	}
	for _, k := range keys[:n/2] {
		_, found, err := tree.Get(Key(k))
		require.NoError(t, err)
		assert.False(t, found, "key %d should have been deleted", k)
	}
}
