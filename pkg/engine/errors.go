package engine

import (
	"errors"

	"github.com/marmos91/h5s3/pkg/pagecache"
)

// Engine errors. Callers match them with errors.Is.
var (
	// ErrInvalidConfiguration is returned by Open for a bad page size, cache
	// size or a page size that disagrees with the one the object was written
	// with. It never surfaces from I/O calls.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrStorageUnavailable wraps every transport failure reaching an I/O
	// call: network and service errors as well as auth rejection. A missing
	// object is not one of them; it reads as zeros.
	ErrStorageUnavailable = pagecache.ErrStorageUnavailable

	// ErrInvalidState is returned by any call on a closed handle.
	ErrInvalidState = errors.New("invalid handle state")

	// ErrInvalidArgument is returned for negative offsets, lengths or sizes.
	ErrInvalidArgument = errors.New("invalid argument")
)
