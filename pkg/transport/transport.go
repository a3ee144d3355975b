// Package transport defines the object-storage contract the page cache
// talks to, plus its error model.
//
// A transport moves byte ranges of one logical object to and from a backend.
// Every call maps to exactly one remote request: no batching and no
// retries. Retry policy belongs to the caller.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotFound is returned by GetRange when the object does not exist.
// Callers treat it as "all zeros", not as a failure.
var ErrNotFound = errors.New("object not found")

// Transport reads and writes byte ranges of objects.
type Transport interface {
	// GetRange returns up to length bytes of key starting at offset.
	// A short object yields fewer bytes; callers pad with zeros.
	// Returns ErrNotFound when the object does not exist and a
	// *TransportError for any other failure.
	GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error)

	// PutRange stores data at offset of key. Returns a *TransportError on
	// failure.
	PutRange(ctx context.Context, key string, offset int64, data []byte) error
}

// Named is implemented by transports that report a backend name for
// logs, spans and metrics.
type Named interface {
	Name() string
}

// Closer is implemented by transports holding resources (database handles,
// idle connections).
type Closer interface {
	Close() error
}

// Category classifies a transport failure.
type Category string

const (
	CategoryAuth    Category = "auth"    // 401, 403, signature rejected
	CategoryClient  Category = "client"  // other 4xx
	CategoryServer  Category = "server"  // 5xx, throttling
	CategoryNetwork Category = "network" // connect, reset, timeout
	CategoryTLS     Category = "tls"     // handshake, certificate
	CategoryIO      Category = "io"      // local disk or database
)

// TransportError describes a failed remote request.
type TransportError struct {
	Op         string // "get" or "put"
	Key        string
	StatusCode int // 0 when no response was received
	Category   Category
	Code       string // service error code, e.g. "AccessDenied"
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", e.Op, e.Key, e.Category)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d", e.StatusCode)
		if e.Code != "" {
			b.WriteString(" " + e.Code)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Temporary reports whether retrying the same request may succeed.
func (e *TransportError) Temporary() bool {
	switch e.Category {
	case CategoryServer, CategoryNetwork, CategoryIO:
		return true
	case CategoryClient:
		// request timeout and throttling are client codes that clear up
		return e.StatusCode == 408 || e.StatusCode == 429
	}
	return false
}

// IsTemporary reports whether err wraps a temporary *TransportError.
func IsTemporary(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Temporary()
}

// CategoryForStatus maps a non-2xx, non-404 HTTP status to a category.
func CategoryForStatus(status int) Category {
	switch {
	case status == 401 || status == 403:
		return CategoryAuth
	case status >= 500:
		return CategoryServer
	default:
		return CategoryClient
	}
}

// SegmentName is the physical object holding the range written at offset
// of key in segmented backends (object stores, key-value stores). Such
// backends cannot rewrite part of an object, so each written range is its
// own object and reads must address a previously written start offset.
func SegmentName(key string, offset int64) string {
	return key + "/" + strconv.FormatInt(offset, 10)
}

// MetaKey is the sidecar object that records page size and logical size
// for key.
func MetaKey(key string) string {
	return key + ".meta"
}

// NameOf returns t's backend name, or "unknown".
func NameOf(t Transport) string {
	if n, ok := t.(Named); ok {
		return n.Name()
	}
	return "unknown"
}

// Close releases t's resources when it holds any.
func Close(t Transport) error {
	if c, ok := t.(Closer); ok {
		return c.Close()
	}
	return nil
}
