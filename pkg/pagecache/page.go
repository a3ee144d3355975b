package pagecache

// page is one fixed-size buffer. It is owned by the cache and never handed
// out; callers see it through a View.
type page struct {
	index   int64
	data    []byte
	dirty   bool
	lastUse uint64
}

// View is a read-only window on a resident page. It copies data out and
// never exposes the page buffer, so holding a View cannot keep a page from
// being evicted or let a caller modify it behind the cache's back.
type View struct {
	p *page
}

// Index returns the page index.
func (v View) Index() int64 { return v.p.index }

// Len returns the page size.
func (v View) Len() int { return len(v.p.data) }

// Dirty reports whether the page had unflushed changes when the view was
// taken.
func (v View) Dirty() bool { return v.p.dirty }

// CopyTo copies page bytes starting at off into dst and returns the count.
func (v View) CopyTo(dst []byte, off int64) int {
	if off < 0 || off >= int64(len(v.p.data)) {
		return 0
	}
	return copy(dst, v.p.data[off:])
}

// Bytes returns a copy of the whole page.
func (v View) Bytes() []byte {
	return append([]byte(nil), v.p.data...)
}
