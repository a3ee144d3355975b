package pagecache

import "errors"

var (
	// ErrStorageUnavailable wraps any transport failure reaching the cache:
	// network errors, service errors and auth rejection alike.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrPageNotResident is returned by MarkDirty for a page that is not in
	// the cache. Callers must GetPage first.
	ErrPageNotResident = errors.New("page not resident")

	// ErrOutOfPage is returned when a sub-range does not fit in one page.
	ErrOutOfPage = errors.New("range exceeds page bounds")
)
