package bufferpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferPoolManager_NewPageFetchUnpin(t *testing.T) {
	dm := NewInMemDiskManager(1 << 20)
	bp := NewBufferPoolManager(2, 2, dm, nil)

	id, page, err := bp.NewPage()
	require.NoError(t, err)
	assert.Equal(t, PageID(0), id)
	assert.Equal(t, 1, page.PinCount())

	copy(page.Data(), []byte("hello"))
	page.SetDirty()

	fetched, err := bp.FetchPage(id)
	require.NoError(t, err)
	assert.Equal(t, 2, fetched.PinCount(), "fetching an already-resident page pins it again")
	assert.Equal(t, byte('h'), fetched.Data()[0])

	assert.True(t, bp.UnpinPage(id, false))
	assert.True(t, bp.UnpinPage(id, false))
	assert.Equal(t, 0, fetched.PinCount())
}

func TestBufferPoolManager_EvictsAndWritesBackDirtyPage(t *testing.T) {
	// E1 from spec.md §8: pool of 1 frame, k=2.
	dm := NewInMemDiskManager(1 << 20)
	bp := NewBufferPoolManager(1, 2, dm, nil)

	id0, page0, err := bp.NewPage()
	require.NoError(t, err)
	copy(page0.Data(), []byte("dirty"))
	page0.SetDirty()
	require.True(t, bp.UnpinPage(id0, true))

	id1, page1, err := bp.NewPage()
	require.NoError(t, err)
	assert.NotEqual(t, id0, id1, "single-frame pool must have evicted id0's frame for id1")
	assert.Equal(t, 1, page1.PinCount())

	buf := make([]byte, PageSize)
	require.NoError(t, dm.ReadPage(id0, buf))
	assert.Equal(t, byte('d'), buf[0], "id0's dirty page must have been written back on eviction")
}

func TestBufferPoolManager_NoFreeFramesWhenAllPinned(t *testing.T) {
	dm := NewInMemDiskManager(1 << 20)
	bp := NewBufferPoolManager(1, 2, dm, nil)

	_, _, err := bp.NewPage()
	require.NoError(t, err)

	_, _, err = bp.NewPage()
	assert.ErrorIs(t, err, ErrNoFreeFrames)
}

func TestBufferPoolManager_DeletePageDoesNotWriteBackDirtyData(t *testing.T) {
	dm := NewInMemDiskManager(1 << 20)
	bp := NewBufferPoolManager(2, 2, dm, nil)

	id, page, err := bp.NewPage()
	require.NoError(t, err)
	copy(page.Data(), []byte("scratch"))
	page.SetDirty()
	require.True(t, bp.UnpinPage(id, true))

	ok, err := bp.DeletePage(id)
	require.NoError(t, err)
	assert.True(t, ok)

	buf := make([]byte, PageSize)
	err = dm.ReadPage(id, buf)
	if err == nil {
		assert.NotEqual(t, byte('s'), buf[0], "deleted page's dirty contents must not reach disk")
	}
}

func TestBufferPoolManager_DeletePagePinnedFails(t *testing.T) {
	dm := NewInMemDiskManager(1 << 20)
	bp := NewBufferPoolManager(1, 2, dm, nil)

	id, _, err := bp.NewPage()
	require.NoError(t, err)

	ok, err := bp.DeletePage(id)
	require.NoError(t, err)
	assert.False(t, ok)
}
