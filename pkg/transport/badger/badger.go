// Package badger is a transport storing segments in a Badger key-value
// database, either on disk or purely in memory.
package badger

import (
	"context"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/h5s3/pkg/transport"
)

// Config configures the database.
type Config struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps everything in RAM; contents vanish on Close.
	InMemory bool

	// SyncWrites fsyncs after every write.
	SyncWrites bool
}

// Transport stores the range written at offset o of key K under the
// database key K/<o>.
type Transport struct {
	db    *badgerdb.DB
	owned bool
}

var _ transport.Transport = (*Transport)(nil)

// Open opens (or creates) the database described by cfg.
func Open(cfg Config) (*Transport, error) {
	var opts badgerdb.Options
	switch {
	case cfg.InMemory:
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	case cfg.Dir != "":
		opts = badgerdb.DefaultOptions(cfg.Dir).WithSyncWrites(cfg.SyncWrites)
	default:
		return nil, errors.New("badger: dir is required unless in-memory")
	}
	opts = opts.WithLogger(nil)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open: %w", err)
	}
	return &Transport{db: db, owned: true}, nil
}

// New wraps an already open database; Close leaves it open.
func New(db *badgerdb.DB) *Transport {
	return &Transport{db: db}
}

// DB returns the underlying database.
func (t *Transport) DB() *badgerdb.DB { return t.db }

// Name implements transport.Named.
func (t *Transport) Name() string { return "badger" }

// GetRange returns up to length bytes of the segment written at offset.
func (t *Transport) GetRange(_ context.Context, key string, offset, length int64) ([]byte, error) {
	name := transport.SegmentName(key, offset)

	var data []byte
	err := t.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, transport.ErrNotFound
	}
	if err != nil {
		return nil, &transport.TransportError{Op: "get", Key: name, Category: transport.CategoryIO, Err: err}
	}

	if int64(len(data)) > length {
		data = data[:length]
	}
	return data, nil
}

// PutRange stores data as the segment for offset.
func (t *Transport) PutRange(_ context.Context, key string, offset int64, data []byte) error {
	name := transport.SegmentName(key, offset)

	value := append([]byte(nil), data...)
	err := t.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(name), value)
	})
	if err != nil {
		return &transport.TransportError{Op: "put", Key: name, Category: transport.CategoryIO, Err: err}
	}
	return nil
}

// Close closes the database if Open created it.
func (t *Transport) Close() error {
	if !t.owned {
		return nil
	}
	return t.db.Close()
}
