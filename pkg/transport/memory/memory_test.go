package memory

import (
	"context"
	"testing"

	"github.com/marmos91/h5s3/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_MissingObject(t *testing.T) {
	s := New()
	_, err := s.GetRange(context.Background(), "nope", 0, 10)
	assert.ErrorIs(t, err, transport.ErrNotFound)
	assert.Equal(t, 1, s.Gets("nope"))
}

func TestStore_RangeRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.PutRange(ctx, "k", 4, []byte("abcd")))

	got, err := s.GetRange(ctx, "k", 0, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 'a', 'b', 'c', 'd'}, got)

	got, err = s.GetRange(ctx, "k", 6, 100)
	require.NoError(t, err)
	assert.Equal(t, []byte("cd"), got, "short object returns fewer bytes")

	got, err = s.GetRange(ctx, "k", 50, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.PutRange(ctx, "k", 0, []byte("xy")))
	obj, ok := s.Object("k")
	require.True(t, ok)
	assert.Equal(t, []byte{'x', 'y', 0, 0, 'a', 'b', 'c', 'd'}, obj)
	assert.Equal(t, 2, s.Puts("k"))
}

func TestStore_CopiesData(t *testing.T) {
	ctx := context.Background()
	s := New()

	buf := []byte("data")
	require.NoError(t, s.PutRange(ctx, "k", 0, buf))
	buf[0] = 'X'

	got, err := s.GetRange(ctx, "k", 0, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)
	got[1] = 'Y'

	obj, _ := s.Object("k")
	assert.Equal(t, []byte("data"), obj)
}

func TestStore_Faults(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := &transport.TransportError{Op: "put", Key: "k", StatusCode: 503, Category: transport.CategoryServer}

	s.FailNext(OpPut, "k", boom, 2)
	assert.ErrorIs(t, s.PutRange(ctx, "k", 0, []byte{1}), boom)
	assert.ErrorIs(t, s.PutRange(ctx, "k", 0, []byte{1}), boom)
	assert.NoError(t, s.PutRange(ctx, "k", 0, []byte{1}))
	assert.Equal(t, 3, s.Puts("k"))

	s.FailAlways(OpGet, "", boom)
	for range 3 {
		_, err := s.GetRange(ctx, "other", 0, 1)
		assert.ErrorIs(t, err, boom)
	}
	s.ClearFaults()
	_, err := s.GetRange(ctx, "k", 0, 1)
	assert.NoError(t, err)
}

func TestStore_CountersAndKeys(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.PutRange(ctx, "b", 0, []byte{1}))
	require.NoError(t, s.PutRange(ctx, "a", 0, []byte{1}))
	s.SetObject("c", []byte{2})
	_, _ = s.GetRange(ctx, "a", 0, 1)

	assert.Equal(t, []string{"a", "b", "c"}, s.Keys())
	assert.Equal(t, 2, s.TotalPuts())
	assert.Equal(t, 1, s.TotalGets())

	s.ResetCounters()
	assert.Zero(t, s.TotalPuts())

	s.Delete("a")
	assert.Equal(t, []string{"b", "c"}, s.Keys())
}

func TestStore_Closed(t *testing.T) {
	s := New()
	require.NoError(t, s.Close())

	err := s.PutRange(context.Background(), "k", 0, []byte{1})
	var te *transport.TransportError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, ErrClosed)
}
