package engine

// span is the part of a byte range that falls inside one page.
type span struct {
	Page      int64 // page index
	Offset    int64 // offset within the page
	Length    int64
	BufOffset int64 // offset within the caller's buffer
}

// spans yields the page sub-ranges of [offset, offset+length) in offset
// order.
func spans(offset, length, pageSize int64) func(yield func(span) bool) {
	return func(yield func(span) bool) {
		var done int64
		for done < length {
			pos := offset + done
			in := pos % pageSize
			n := min(length-done, pageSize-in)

			if !yield(span{Page: pos / pageSize, Offset: in, Length: n, BufOffset: done}) {
				return
			}
			done += n
		}
	}
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
