package pagecache

import (
	"slices"
	"sort"
)

// pageRuns is a set of page indices kept as sorted, disjoint and
// non-adjacent half-open runs. Contiguous pages cost one entry.
type pageRuns []pageRun

type pageRun struct{ lo, hi int64 }

// after returns the position of the first run starting past idx.
func (r pageRuns) after(idx int64) int {
	return sort.Search(len(r), func(i int) bool { return r[i].lo > idx })
}

func (r pageRuns) contains(idx int64) bool {
	i := r.after(idx)
	return i > 0 && idx < r[i-1].hi
}

func (r *pageRuns) add(idx int64) {
	s := *r
	i := s.after(idx)
	if i > 0 && idx < s[i-1].hi {
		return
	}

	joinPrev := i > 0 && s[i-1].hi == idx
	joinNext := i < len(s) && s[i].lo == idx+1
	switch {
	case joinPrev && joinNext:
		s[i-1].hi = s[i].hi
		s = slices.Delete(s, i, i+1)
	case joinPrev:
		s[i-1].hi = idx + 1
	case joinNext:
		s[i].lo = idx
	default:
		s = slices.Insert(s, i, pageRun{lo: idx, hi: idx + 1})
	}
	*r = s
}

// truncate removes every index at or past from.
func (r *pageRuns) truncate(from int64) {
	s := *r
	i := sort.Search(len(s), func(i int) bool { return s[i].lo >= from })
	s = s[:i]
	if i > 0 && s[i-1].hi > from {
		s[i-1].hi = from
	}
	*r = s
}

// popRunAt removes the run starting exactly at lo and returns its end.
func (r *pageRuns) popRunAt(lo int64) (hi int64, ok bool) {
	s := *r
	if len(s) == 0 || s[0].lo != lo {
		return 0, false
	}
	hi = s[0].hi
	*r = slices.Delete(s, 0, 1)
	return hi, true
}
