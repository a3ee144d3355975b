package engine

import (
	"context"
	"math/rand"
	"testing"

	"github.com/marmos91/h5s3/pkg/transport/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWrite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	e := openEngine(t, store, 64, 3)

	rng := rand.New(rand.NewSource(42))
	var model []byte

	for step := 0; step < 1000; step++ {
		switch op := rng.Intn(10); {
		case op < 5:
			off := int64(rng.Intn(1200))
			data := make([]byte, rng.Intn(300)+1)
			rng.Read(data)
			require.NoError(t, e.Write(ctx, off, data))

			if end := int(off) + len(data); end > len(model) {
				model = append(model, make([]byte, end-len(model))...)
			}
			copy(model[off:], data)
			require.EqualValues(t, len(model), e.EOF())
		case op < 9:
			if len(model) == 0 {
				continue
			}
			off := rng.Intn(len(model))
			n := rng.Intn(len(model)-off) + 1
			got, err := e.Read(ctx, int64(off), int64(n))
			require.NoError(t, err)
			require.Equal(t, model[off:off+n], got, "step %d read %d@%d", step, n, off)
		default:
			require.NoError(t, e.Flush(ctx))
		}
	}

	require.NoError(t, e.Close(ctx))

	e = openEngine(t, store, 0, 3)
	require.EqualValues(t, len(model), e.EOF())
	got, err := e.Read(ctx, 0, int64(len(model)))
	require.NoError(t, err)
	assert.Equal(t, model, got)
}

func TestRead_PastEOFNeverFetches(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	e := openEngine(t, store, 64, 8)
	require.NoError(t, e.Write(ctx, 0, pattern(100, 1)))
	require.NoError(t, e.Close(ctx))

	e = openEngine(t, store, 64, 8)
	store.ResetCounters()

	got, err := e.Read(ctx, 200, 300)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 300), got)

	got, err = e.Read(ctx, 100, 28) // the tail of page 1 past EOF
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 28), got)
	assert.Zero(t, store.TotalGets())

	got, err = e.Read(ctx, 90, 20) // straddles EOF
	require.NoError(t, err)
	assert.Equal(t, append(pattern(100, 1)[90:], make([]byte, 10)...), got)
	assert.Equal(t, 1, store.Gets(testKey))
}

func TestReadAt_ReportsBytesBeforeEOF(t *testing.T) {
	ctx := context.Background()
	e := openEngine(t, memory.New(), 64, 4)
	require.NoError(t, e.Write(ctx, 0, pattern(50, 2)))

	buf := make([]byte, 80)
	for i := range buf {
		buf[i] = 0xff
	}
	n, err := e.ReadAt(ctx, buf, 10)
	require.NoError(t, err)
	assert.Equal(t, 40, n)
	assert.Equal(t, pattern(50, 2)[10:], buf[:40])
	assert.Equal(t, make([]byte, 40), buf[40:], "remainder is zeroed")

	n, err = e.ReadAt(ctx, buf, 500)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRead_FreshObject(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	e := openEngine(t, store, 64, 4)

	got, err := e.Read(ctx, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 100), got)
	assert.Zero(t, store.TotalGets(), "an empty object has nothing to fetch")
}

func TestRead_MissingDataObjectIsZeros(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, storeMeta(ctx, store, testKey, meta{PageSize: 64, EOF: 100}))

	e := openEngine(t, store, 0, 4)
	got, err := e.Read(ctx, 0, 100)
	require.NoError(t, err, "not found maps to zeros")
	assert.Equal(t, make([]byte, 100), got)
	assert.Equal(t, 2, store.Gets(testKey))
}

func TestWrite_ExtendsEOF(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	e := openEngine(t, store, 64, 4)

	require.NoError(t, e.Write(ctx, 0, pattern(30, 0)))
	assert.EqualValues(t, 30, e.EOF())

	require.NoError(t, e.Write(ctx, 30, pattern(20, 5)))
	assert.EqualValues(t, 50, e.EOF(), "visible before any flush")
	assert.Zero(t, store.TotalPuts())

	got, err := e.Read(ctx, 30, 20)
	require.NoError(t, err)
	assert.Equal(t, pattern(20, 5), got)

	require.NoError(t, e.Write(ctx, 200, []byte("far")))
	assert.EqualValues(t, 203, e.EOF())
	got, err = e.Read(ctx, 50, 150)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 150), got, "gap reads as zeros")

	require.NoError(t, e.Write(ctx, 10, []byte("inside")))
	assert.EqualValues(t, 203, e.EOF(), "writes inside the file keep the size")
}

// Two-page cache: writing 8192 bytes then 10 bytes at 9000 evicts page 0,
// so reading the first 8192 bytes again must fetch it.
func TestEviction_TwoPageScenario(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	e := openEngine(t, store, 4096, 2)

	data := pattern(8192, 7)
	require.NoError(t, e.Write(ctx, 0, data))
	require.NoError(t, e.Write(ctx, 9000, pattern(10, 99)))

	assert.Equal(t, 1, store.Puts(testKey), "page 0 written back on eviction")
	assert.Zero(t, store.Gets(testKey))
	assert.LessOrEqual(t, e.Stats().Resident, 2)

	got, err := e.Read(ctx, 0, 8192)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.GreaterOrEqual(t, store.Gets(testKey), 1, "page 0 was a cache miss")

	got, err = e.Read(ctx, 9000, 10)
	require.NoError(t, err)
	assert.Equal(t, pattern(10, 99), got)
}

func TestEviction_DirtyDataSurvivesPressure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	e := openEngine(t, store, 64, 2)

	require.NoError(t, e.Write(ctx, 5, []byte("first page")))
	for i := int64(1); i < 20; i++ {
		_, err := e.Read(ctx, i*64, 1)
		require.NoError(t, err)
		require.NoError(t, e.Write(ctx, i*64, []byte{byte(i)}))
	}

	got, err := e.Read(ctx, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("first page"), got)
}

func TestRead_StorageFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	e := openEngine(t, store, 64, 8)
	require.NoError(t, e.Write(ctx, 0, pattern(192, 4)))
	require.NoError(t, e.Close(ctx))

	e = openEngine(t, store, 64, 8)
	store.ResetCounters()

	_, err := e.Read(ctx, 0, 64)
	require.NoError(t, err)

	store.FailNext(memory.OpGet, testKey, serverError, 1)
	_, err = e.Read(ctx, 0, 192)
	require.ErrorIs(t, err, ErrStorageUnavailable, "failures never read as zeros")

	got, err := e.Read(ctx, 0, 192)
	require.NoError(t, err)
	assert.Equal(t, pattern(192, 4), got)
	assert.Equal(t, 4, store.Gets(testKey), "page 0 stayed cached across the failure")
}

func TestWrite_StorageFailureKeepsPrefix(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, storeMeta(ctx, store, testKey, meta{PageSize: 64, EOF: 256}))

	e := openEngine(t, store, 0, 8)
	_, err := e.Read(ctx, 0, 1)
	require.NoError(t, err)

	store.FailNext(memory.OpGet, testKey, serverError, 1)
	n, err := e.WriteAt(ctx, pattern(100, 1), 10)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Equal(t, 54, n, "page 0 was applied before page 1 failed")
	assert.EqualValues(t, 256, e.EOF())
}

func TestNegativeArguments(t *testing.T) {
	ctx := context.Background()
	e := openEngine(t, memory.New(), 64, 2)

	_, err := e.Read(ctx, -1, 10)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = e.Read(ctx, 0, -10)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, e.Write(ctx, -5, []byte("x")), ErrInvalidArgument)
	assert.ErrorIs(t, e.Truncate(ctx, -1), ErrInvalidArgument)
}

func TestSpans(t *testing.T) {
	var got []span
	for s := range spans(100, 200, 64) {
		got = append(got, s)
	}
	assert.Equal(t, []span{
		{Page: 1, Offset: 36, Length: 28, BufOffset: 0},
		{Page: 2, Offset: 0, Length: 64, BufOffset: 28},
		{Page: 3, Offset: 0, Length: 64, BufOffset: 92},
		{Page: 4, Offset: 0, Length: 44, BufOffset: 156},
	}, got)

	for range spans(10, 0, 64) {
		t.Fatal("empty range yields nothing")
	}

	var first []span
	for s := range spans(0, 1000, 64) {
		first = append(first, s)
		break
	}
	assert.Len(t, first, 1)
}
