package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys.
const (
	AttrBackend   = "storage.backend"
	AttrBucket    = "storage.bucket"
	AttrKey       = "storage.key"
	AttrRegion    = "storage.region"
	AttrOffset    = "io.offset"
	AttrLength    = "io.length"
	AttrBytes     = "io.bytes"
	AttrEOF       = "io.eof"
	AttrPage      = "cache.page"
	AttrCacheHit  = "cache.hit"
	AttrDirty     = "cache.dirty"
	AttrStatus    = "http.response.status_code"
	AttrErrorKind = "error.type"
)

// Span names.
const (
	SpanTransportGet = "transport.get_range"
	SpanTransportPut = "transport.put_range"

	SpanEngineRead     = "engine.read"
	SpanEngineWrite    = "engine.write"
	SpanEngineFlush    = "engine.flush"
	SpanEngineTruncate = "engine.truncate"
	SpanEngineClose    = "engine.close"
	SpanEngineOpen     = "engine.open"
)

// Backend returns the storage backend attribute.
func Backend(name string) attribute.KeyValue { return attribute.String(AttrBackend, name) }

// StorageKey returns the object key attribute.
func StorageKey(key string) attribute.KeyValue { return attribute.String(AttrKey, key) }

// Offset returns the byte offset attribute.
func Offset(off int64) attribute.KeyValue { return attribute.Int64(AttrOffset, off) }

// Length returns the requested length attribute.
func Length(n int64) attribute.KeyValue { return attribute.Int64(AttrLength, n) }

// Bytes returns the transferred byte count attribute.
func Bytes(n int) attribute.KeyValue { return attribute.Int(AttrBytes, n) }

// EOF returns the logical size attribute.
func EOF(n int64) attribute.KeyValue { return attribute.Int64(AttrEOF, n) }

// Page returns the page index attribute.
func Page(idx int64) attribute.KeyValue { return attribute.Int64(AttrPage, idx) }

// CacheHit returns the cache hit attribute.
func CacheHit(hit bool) attribute.KeyValue { return attribute.Bool(AttrCacheHit, hit) }

// Dirty returns the dirty page count attribute.
func Dirty(n int) attribute.KeyValue { return attribute.Int(AttrDirty, n) }

// Status returns the HTTP status attribute.
func Status(code int) attribute.KeyValue { return attribute.Int(AttrStatus, code) }

// ErrorKind returns the error classification attribute.
func ErrorKind(kind string) attribute.KeyValue { return attribute.String(AttrErrorKind, kind) }

// StartTransportSpan starts a client span for one object-store request.
func StartTransportSpan(ctx context.Context, name, backend, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{Backend(backend), StorageKey(key)}, attrs...)
	return StartSpan(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(all...))
}

// StartEngineSpan starts an internal span for an engine operation.
func StartEngineSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, name, trace.WithSpanKind(trace.SpanKindInternal), trace.WithAttributes(attrs...))
}
