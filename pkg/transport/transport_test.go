package transport_test

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/h5s3/pkg/transport"
	"github.com/marmos91/h5s3/pkg/transport/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportError(t *testing.T) {
	cause := errors.New("connection reset")
	err := &transport.TransportError{Op: "get", Key: "b/k/0", StatusCode: 503, Category: transport.CategoryServer, Code: "SlowDown", Err: cause}

	assert.Equal(t, "get b/k/0: server (status 503 SlowDown): connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, err.Temporary())

	wrapped := fmt.Errorf("flush: %w", err)
	assert.True(t, transport.IsTemporary(wrapped))
	assert.False(t, transport.IsTemporary(cause))
}

func TestTransportError_Temporary(t *testing.T) {
	tests := []struct {
		category transport.Category
		status   int
		want     bool
	}{
		{transport.CategoryAuth, 403, false},
		{transport.CategoryClient, 400, false},
		{transport.CategoryClient, 429, true},
		{transport.CategoryClient, 408, true},
		{transport.CategoryServer, 500, true},
		{transport.CategoryNetwork, 0, true},
		{transport.CategoryTLS, 0, false},
		{transport.CategoryIO, 0, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d", tt.category, tt.status), func(t *testing.T) {
			e := &transport.TransportError{Category: tt.category, StatusCode: tt.status}
			assert.Equal(t, tt.want, e.Temporary())
		})
	}
}

func TestCategoryForStatus(t *testing.T) {
	assert.Equal(t, transport.CategoryAuth, transport.CategoryForStatus(401))
	assert.Equal(t, transport.CategoryAuth, transport.CategoryForStatus(403))
	assert.Equal(t, transport.CategoryClient, transport.CategoryForStatus(400))
	assert.Equal(t, transport.CategoryClient, transport.CategoryForStatus(416))
	assert.Equal(t, transport.CategoryServer, transport.CategoryForStatus(500))
	assert.Equal(t, transport.CategoryServer, transport.CategoryForStatus(503))
}

func TestNetworkCategory(t *testing.T) {
	assert.Equal(t, transport.CategoryNetwork, transport.NetworkCategory(errors.New("dial tcp: refused")))
	assert.Equal(t, transport.CategoryTLS, transport.NetworkCategory(fmt.Errorf("get: %w", x509.UnknownAuthorityError{})))
}

func TestSegmentName(t *testing.T) {
	assert.Equal(t, "dir/data.h5/0", transport.SegmentName("dir/data.h5", 0))
	assert.Equal(t, "data.h5/2097152", transport.SegmentName("data.h5", 2097152))
	assert.Equal(t, "data.h5.meta", transport.MetaKey("data.h5"))
}

type recordedRequest struct {
	backend, op, outcome string
	bytes                int
}

type fakeMetrics struct {
	mu   sync.Mutex
	reqs []recordedRequest
}

func (f *fakeMetrics) ObserveRequest(backend, op, outcome string, bytes int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, recordedRequest{backend, op, outcome, bytes})
}

func TestInstrument(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	m := &fakeMetrics{}
	tr := transport.Instrument(store, "", m)

	assert.Equal(t, "memory", tr.Name())
	assert.Same(t, store, tr.Unwrap())

	_, err := tr.GetRange(ctx, "k", 0, 4)
	assert.ErrorIs(t, err, transport.ErrNotFound)

	require.NoError(t, tr.PutRange(ctx, "k", 0, []byte("abcd")))
	got, err := tr.GetRange(ctx, "k", 0, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), got)

	store.FailNext(memory.OpPut, "k", &transport.TransportError{Op: "put", Key: "k", StatusCode: 403, Category: transport.CategoryAuth}, 1)
	err = tr.PutRange(ctx, "k", 0, []byte("x"))
	var te *transport.TransportError
	require.ErrorAs(t, err, &te)

	_, err = tr.GetRange(ctx, "k", 0, 1)
	require.NoError(t, err)

	assert.Equal(t, []recordedRequest{
		{"memory", "get", transport.OutcomeNotFound, 0},
		{"memory", "put", transport.OutcomeOK, 4},
		{"memory", "get", transport.OutcomeOK, 4},
		{"memory", "put", "auth", 0},
		{"memory", "get", transport.OutcomeOK, 1},
	}, m.reqs)

	require.NoError(t, tr.Close())
	_, err = store.GetRange(ctx, "k", 0, 1)
	assert.Error(t, err, "Close reaches the wrapped transport")
}

func TestInstrument_NilMetrics(t *testing.T) {
	tr := transport.Instrument(memory.New(), "custom", nil)
	assert.Equal(t, "custom", tr.Name())
	require.NoError(t, tr.PutRange(context.Background(), "k", 0, []byte{1}))
}

func TestNameOfAndClose(t *testing.T) {
	var plain transport.Transport = plainTransport{}
	assert.Equal(t, "unknown", transport.NameOf(plain))
	assert.NoError(t, transport.Close(plain))
}

type plainTransport struct{}

func (plainTransport) GetRange(context.Context, string, int64, int64) ([]byte, error) {
	return nil, transport.ErrNotFound
}

func (plainTransport) PutRange(context.Context, string, int64, []byte) error { return nil }
