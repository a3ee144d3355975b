package badger

import (
	"context"
	"testing"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/h5s3/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openInMemory(t *testing.T) *Transport {
	t.Helper()
	tr, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestTransport_Segments(t *testing.T) {
	ctx := context.Background()
	tr := openInMemory(t)

	require.NoError(t, tr.PutRange(ctx, "bucket/data.h5", 0, []byte("page0")))
	require.NoError(t, tr.PutRange(ctx, "bucket/data.h5", 4096, []byte("page1")))

	got, err := tr.GetRange(ctx, "bucket/data.h5", 4096, 4096)
	require.NoError(t, err)
	assert.Equal(t, []byte("page1"), got)

	got, err = tr.GetRange(ctx, "bucket/data.h5", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("pag"), got)

	_, err = tr.GetRange(ctx, "bucket/data.h5", 8192, 4096)
	assert.ErrorIs(t, err, transport.ErrNotFound)
}

func TestTransport_Overwrite(t *testing.T) {
	ctx := context.Background()
	tr := openInMemory(t)

	buf := []byte("first")
	require.NoError(t, tr.PutRange(ctx, "k", 0, buf))
	buf[0] = 'X'
	require.NoError(t, tr.PutRange(ctx, "k", 0, []byte("second")))

	got, err := tr.GetRange(ctx, "k", 0, 100)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestTransport_OnDiskPersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tr, err := Open(Config{Dir: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, tr.PutRange(ctx, "k", 0, []byte("durable")))
	require.NoError(t, tr.Close())

	tr, err = Open(Config{Dir: dir})
	require.NoError(t, err)
	defer tr.Close()

	got, err := tr.GetRange(ctx, "k", 0, 64)
	require.NoError(t, err)
	assert.Equal(t, []byte("durable"), got)
}

func TestTransport_ClosedDB(t *testing.T) {
	db, err := badgerdb.Open(badgerdb.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)

	tr := New(db)
	require.NoError(t, tr.Close(), "borrowed database is left open")
	require.NoError(t, tr.PutRange(context.Background(), "k", 0, []byte("x")))

	require.NoError(t, db.Close())
	err = tr.PutRange(context.Background(), "k", 0, []byte("x"))
	var te *transport.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, transport.CategoryIO, te.Category)
}

func TestOpen_RequiresDir(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
	assert.Equal(t, "badger", (&Transport{}).Name())
}
