package pagecache

// Metrics observes page cache activity. It is optional: a nil Metrics
// skips collection entirely.
type Metrics interface {
	// RecordHit records a GetPage served from memory.
	RecordHit()

	// RecordMiss records a GetPage that had to materialise a page. fetched
	// is false when the page was known to be zero and no request was made.
	RecordMiss(fetched bool)

	// RecordEviction records a page leaving the cache. writeBack is true
	// when the page had to be flushed first.
	RecordEviction(writeBack bool)

	// RecordWriteBack records one page PUT and whether it succeeded.
	RecordWriteBack(ok bool)

	// RecordResidency reports the current resident and dirty page counts.
	RecordResidency(resident, dirty int)
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Resident   int    `json:"resident" yaml:"resident"`
	Dirty      int    `json:"dirty" yaml:"dirty"`
	Capacity   int    `json:"capacity" yaml:"capacity"`
	Hits       uint64 `json:"hits" yaml:"hits"`
	Misses     uint64 `json:"misses" yaml:"misses"`
	Fetches    uint64 `json:"fetches" yaml:"fetches"`       // misses that issued a GET
	ZeroFills  uint64 `json:"zero_fills" yaml:"zero_fills"` // misses served as known-zero pages
	Evictions  uint64 `json:"evictions" yaml:"evictions"`
	WriteBacks uint64 `json:"write_backs" yaml:"write_backs"` // successful page PUTs
	Failures   uint64 `json:"failures" yaml:"failures"`       // failed page PUTs
}
