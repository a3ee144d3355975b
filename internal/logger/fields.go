package logger

import (
	"log/slog"
)

// Standard field keys. Use these consistently so logs from the engine,
// the page cache and the transports can be joined on the same keys.
const (
	// Tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Handle and operation
	KeyOperation = "operation" // read, write, flush, truncate, close
	KeyURI       = "uri"
	KeyHandle    = "handle"
	KeyState     = "state"

	// Byte ranges
	KeyOffset       = "offset"
	KeyLength       = "length"
	KeyBytesRead    = "bytes_read"
	KeyBytesWritten = "bytes_written"
	KeyEOF          = "eof"
	KeySize         = "size"

	// Pages
	KeyPage      = "page"
	KeyPageSize  = "page_size"
	KeyDirty     = "dirty"
	KeyResident  = "resident"
	KeyCapacity  = "capacity"
	KeyEvicted   = "evicted"
	KeyCacheHit  = "cache_hit"
	KeyZeroFill  = "zero_fill"
	KeyFirstZero = "first_zero_page"

	// Transport
	KeyBackend    = "backend"
	KeyBucket     = "bucket"
	KeyKey        = "key"
	KeyRegion     = "region"
	KeyHost       = "host"
	KeyStatus     = "status"
	KeyErrorCode  = "error_code"
	KeyCategory   = "category"
	KeyAttempt    = "attempt"
	KeyMaxRetries = "max_retries"

	// Misc
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
)

// TraceID returns a slog.Attr for an OpenTelemetry trace ID
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for an OpenTelemetry span ID
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// Operation returns a slog.Attr for the engine operation name
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

// URI returns a slog.Attr for an object URI
func URI(u string) slog.Attr { return slog.String(KeyURI, u) }

// Offset returns a slog.Attr for a byte offset
func Offset(off int64) slog.Attr { return slog.Int64(KeyOffset, off) }

// Length returns a slog.Attr for a byte count
func Length(n int64) slog.Attr { return slog.Int64(KeyLength, n) }

// EOF returns a slog.Attr for a logical size
func EOF(n int64) slog.Attr { return slog.Int64(KeyEOF, n) }

// Page returns a slog.Attr for a page index
func Page(idx int64) slog.Attr { return slog.Int64(KeyPage, idx) }

// PageSize returns a slog.Attr for the page size
func PageSize(n int64) slog.Attr { return slog.Int64(KeyPageSize, n) }

// Dirty returns a slog.Attr for a dirty-page count or flag
func Dirty(n int) slog.Attr { return slog.Int(KeyDirty, n) }

// Resident returns a slog.Attr for the resident-page count
func Resident(n int) slog.Attr { return slog.Int(KeyResident, n) }

// Capacity returns a slog.Attr for the page cache capacity
func Capacity(n int) slog.Attr { return slog.Int(KeyCapacity, n) }

// Backend returns a slog.Attr for the transport backend name
func Backend(name string) slog.Attr { return slog.String(KeyBackend, name) }

// Bucket returns a slog.Attr for a bucket name
func Bucket(name string) slog.Attr { return slog.String(KeyBucket, name) }

// Key returns a slog.Attr for an object key
func Key(k string) slog.Attr { return slog.String(KeyKey, k) }

// Region returns a slog.Attr for a storage region
func Region(r string) slog.Attr { return slog.String(KeyRegion, r) }

// Status returns a slog.Attr for an HTTP status code
func Status(code int) slog.Attr { return slog.Int(KeyStatus, code) }

// Attempt returns a slog.Attr for a retry attempt number
func Attempt(n int) slog.Attr { return slog.Int(KeyAttempt, n) }

// DurationMs returns a slog.Attr for a duration in milliseconds
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr for an error. A nil error yields an empty attr,
// which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
