package transport

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/h5s3/internal/logger"
	"github.com/marmos91/h5s3/internal/telemetry"
)

// Outcome labels for Metrics.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeCanceled = "canceled"
)

// Metrics observes transport requests. Implementations must be safe for
// concurrent use; a nil Metrics disables collection.
type Metrics interface {
	// ObserveRequest records one request. outcome is OutcomeOK,
	// OutcomeNotFound, OutcomeCanceled or a Category.
	ObserveRequest(backend, op, outcome string, bytes int, d time.Duration)
}

// Instrumented decorates a Transport with tracing, metrics and debug logs.
type Instrumented struct {
	inner   Transport
	backend string
	metrics Metrics
}

var _ Transport = (*Instrumented)(nil)

// Instrument wraps t. An empty backend name defaults to NameOf(t).
func Instrument(t Transport, backend string, m Metrics) *Instrumented {
	if backend == "" {
		backend = NameOf(t)
	}
	return &Instrumented{inner: t, backend: backend, metrics: m}
}

// Unwrap returns the decorated transport.
func (i *Instrumented) Unwrap() Transport { return i.inner }

// Name returns the backend name.
func (i *Instrumented) Name() string { return i.backend }

// Close closes the decorated transport.
func (i *Instrumented) Close() error { return Close(i.inner) }

func (i *Instrumented) GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	ctx, span := telemetry.StartTransportSpan(ctx, telemetry.SpanTransportGet, i.backend, key,
		telemetry.Offset(offset), telemetry.Length(length))
	defer span.End()

	start := time.Now()
	data, err := i.inner.GetRange(ctx, key, offset, length)
	i.observe(ctx, "get", key, offset, len(data), start, err)
	return data, err
}

func (i *Instrumented) PutRange(ctx context.Context, key string, offset int64, data []byte) error {
	ctx, span := telemetry.StartTransportSpan(ctx, telemetry.SpanTransportPut, i.backend, key,
		telemetry.Offset(offset), telemetry.Length(int64(len(data))))
	defer span.End()

	start := time.Now()
	err := i.inner.PutRange(ctx, key, offset, data)
	n := len(data)
	if err != nil {
		n = 0
	}
	i.observe(ctx, "put", key, offset, n, start, err)
	return err
}

func (i *Instrumented) observe(ctx context.Context, op, key string, offset int64, n int, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := outcomeOf(err)

	if i.metrics != nil {
		i.metrics.ObserveRequest(i.backend, op, outcome, n, elapsed)
	}

	telemetry.SetAttributes(ctx, telemetry.Bytes(n))
	var te *TransportError
	if errors.As(err, &te) {
		telemetry.SetAttributes(ctx, telemetry.Status(te.StatusCode), telemetry.ErrorKind(string(te.Category)))
	}
	if err != nil && outcome != OutcomeNotFound {
		telemetry.RecordError(ctx, err)
	}

	logger.DebugCtx(ctx, "transport request",
		logger.KeyBackend, i.backend,
		logger.KeyOperation, op,
		logger.KeyKey, key,
		logger.KeyOffset, offset,
		logger.KeyLength, n,
		"outcome", outcome,
		logger.KeyDurationMs, float64(elapsed.Microseconds())/1000.0,
	)
}

func outcomeOf(err error) string {
	var te *TransportError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	case errors.As(err, &te):
		return string(te.Category)
	default:
		return string(CategoryIO)
	}
}
