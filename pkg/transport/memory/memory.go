// Package memory provides an in-memory transport for tests and benchmarks.
//
// Objects are flat byte slices addressed by key, so any byte range can be
// read back. The store counts requests per key and can inject failures.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/marmos91/h5s3/pkg/transport"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("memory transport closed")

// Op selects which requests a fault applies to.
type Op string

const (
	OpGet Op = "get"
	OpPut Op = "put"
)

type fault struct {
	op        Op
	key       string // "" matches every key
	err       error
	remaining int // < 0 means forever
}

// Store is an in-memory transport.Transport.
type Store struct {
	mu      sync.Mutex
	objects map[string][]byte
	gets    map[string]int
	puts    map[string]int
	faults  []*fault
	closed  bool
}

var _ transport.Transport = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		objects: make(map[string][]byte),
		gets:    make(map[string]int),
		puts:    make(map[string]int),
	}
}

// Name implements transport.Named.
func (s *Store) Name() string { return "memory" }

// GetRange returns a copy of up to length bytes at offset. Reading at or
// past the end of an existing object returns an empty slice.
func (s *Store) GetRange(_ context.Context, key string, offset, length int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, &transport.TransportError{Op: "get", Key: key, Category: transport.CategoryIO, Err: ErrClosed}
	}
	s.gets[key]++
	if err := s.takeFault(OpGet, key); err != nil {
		return nil, err
	}

	data, ok := s.objects[key]
	if !ok {
		return nil, transport.ErrNotFound
	}
	if offset >= int64(len(data)) {
		return []byte{}, nil
	}
	end := min(offset+length, int64(len(data)))
	out := make([]byte, end-offset)
	copy(out, data[offset:end])
	return out, nil
}

// PutRange writes data at offset, growing the object with zeros as needed.
func (s *Store) PutRange(_ context.Context, key string, offset int64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &transport.TransportError{Op: "put", Key: key, Category: transport.CategoryIO, Err: ErrClosed}
	}
	s.puts[key]++
	if err := s.takeFault(OpPut, key); err != nil {
		return err
	}

	obj := s.objects[key]
	if end := offset + int64(len(data)); end > int64(len(obj)) {
		grown := make([]byte, end)
		copy(grown, obj)
		obj = grown
	}
	copy(obj[offset:], data)
	s.objects[key] = obj
	return nil
}

// Close marks the store closed; later requests fail.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Store) takeFault(op Op, key string) error {
	for i, f := range s.faults {
		if f.op != op || (f.key != "" && f.key != key) {
			continue
		}
		if f.remaining > 0 {
			f.remaining--
			if f.remaining == 0 {
				s.faults = append(s.faults[:i], s.faults[i+1:]...)
			}
		}
		return f.err
	}
	return nil
}

// FailNext makes the next n requests of kind op on key fail with err.
// An empty key matches every key.
func (s *Store) FailNext(op Op, key string, err error, n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.faults = append(s.faults, &fault{op: op, key: key, err: err, remaining: n})
	s.mu.Unlock()
}

// FailAlways makes every request of kind op on key fail with err until
// ClearFaults.
func (s *Store) FailAlways(op Op, key string, err error) {
	s.mu.Lock()
	s.faults = append(s.faults, &fault{op: op, key: key, err: err, remaining: -1})
	s.mu.Unlock()
}

// ClearFaults removes every injected fault.
func (s *Store) ClearFaults() {
	s.mu.Lock()
	s.faults = nil
	s.mu.Unlock()
}

// Gets returns the number of GetRange calls made for key.
func (s *Store) Gets(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets[key]
}

// Puts returns the number of PutRange calls made for key.
func (s *Store) Puts(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts[key]
}

// TotalGets returns the number of GetRange calls across all keys.
func (s *Store) TotalGets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sum(s.gets)
}

// TotalPuts returns the number of PutRange calls across all keys.
func (s *Store) TotalPuts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sum(s.puts)
}

// ResetCounters zeroes the request counters.
func (s *Store) ResetCounters() {
	s.mu.Lock()
	s.gets = make(map[string]int)
	s.puts = make(map[string]int)
	s.mu.Unlock()
}

// Object returns a copy of the object stored under key.
func (s *Store) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// SetObject replaces the object stored under key without counting a PUT.
func (s *Store) SetObject(key string, data []byte) {
	s.mu.Lock()
	s.objects[key] = append([]byte(nil), data...)
	s.mu.Unlock()
}

// Delete removes key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sum(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
