package pageguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticedb/latticedb/bufferpool"
)

func newTestPool(t *testing.T, poolSize int) *bufferpool.BufferPoolManager {
	t.Helper()
	dm := bufferpool.NewInMemDiskManager(1 << 20)
	return bufferpool.NewBufferPoolManager(poolSize, 2, dm, nil)
}

func TestBasicGuard_DropIsIdempotent(t *testing.T) {
	pool := newTestPool(t, 2)
	g, err := NewPageGuarded(pool)
	require.NoError(t, err)

	id := g.PageID()
	g.Drop()
	g.Drop() // must not double-unpin
	g.Drop()

	page, err := pool.FetchPage(id)
	require.NoError(t, err)
	assert.Equal(t, 1, page.PinCount(), "double Drop must not have driven the pin count negative")
	pool.UnpinPage(id, false)
}

func TestBasicGuard_MoveDisarmsSource(t *testing.T) {
	pool := newTestPool(t, 2)
	src, err := NewPageGuarded(pool)
	require.NoError(t, err)
	id := src.PageID()

	dst := MoveBasic(&src)
	assert.Equal(t, bufferpool.InvalidPageID, src.PageID(), "moved-from guard must be disarmed")
	assert.Equal(t, id, dst.PageID())

	src.Drop() // no-op, already disarmed
	page, err := pool.FetchPage(id)
	require.NoError(t, err)
	assert.Equal(t, 2, page.PinCount(), "src's drop must not have released dst's pin")
	pool.UnpinPage(id, false) // releases the FetchPage above, not dst's pin

	dst.Drop() // releases the pin moved over from src
	assert.Equal(t, 0, page.PinCount())
}

func TestReadGuard_FetchThenDoubleDropIsSafe(t *testing.T) {
	pool := newTestPool(t, 2)
	basic, err := NewPageGuarded(pool)
	require.NoError(t, err)
	id := basic.PageID()
	basic.Drop()

	g, err := FetchPageRead(pool, id)
	require.NoError(t, err)
	assert.Equal(t, id, g.PageID())
	g.Drop()
	g.Drop()
}

func TestWriteGuard_DataIsMutable(t *testing.T) {
	pool := newTestPool(t, 2)
	g, err := NewPageGuardedWrite(pool)
	require.NoError(t, err)
	copy(g.Data(), []byte("payload"))
	g.SetDirty()
	id := g.PageID()
	g.Drop()

	page, err := pool.FetchPage(id)
	require.NoError(t, err)
	assert.Equal(t, byte('p'), page.Data()[0])
	assert.True(t, page.IsDirty())
	pool.UnpinPage(id, false)
}

func TestWriteGuard_MoveDisarmsSource(t *testing.T) {
	pool := newTestPool(t, 2)
	src, err := NewPageGuardedWrite(pool)
	require.NoError(t, err)
	id := src.PageID()

	dst := MoveWrite(&src)
	assert.Equal(t, bufferpool.InvalidPageID, src.PageID())
	src.Drop() // no-op

	dst.Drop()
	page, err := pool.FetchPage(id)
	require.NoError(t, err)
	assert.Equal(t, 1, page.PinCount(), "dst's own Drop must have released the one real pin")
	pool.UnpinPage(id, false)
}
