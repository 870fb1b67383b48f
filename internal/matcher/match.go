package matcher

// Candidate is one occurrence found by Scan, before overlap resolution.
type Candidate struct {
	Start      int  // byte offset, inclusive
	End        int  // byte offset, exclusive
	Owner      int  // Tag.Owner of the scanned group
	Priority   int  // Tag.Priority of the scanned group
	IsWildcard bool // the fragment that fired contains '*' or '?'
}

// Len returns the span length in bytes.
func (c Candidate) Len() int {
	return c.End - c.Start
}

// Overlaps reports whether c shares at least one byte with [start, end).
func (c Candidate) Overlaps(start, end int) bool {
	return c.Start < end && c.End > start
}

// Tag identifies who a scanned group belongs to. It is copied into every
// Candidate the scan produces.
type Tag struct {
	Owner    int
	Priority int
}

// hit is a raw occurrence reported by a searcher: the span of the fired
// fragment's capture group and the fragment's index within its chunk.
type hit struct {
	start int
	end   int
	frag  int
}

// searcher runs one compiled chunk over a text.
type searcher interface {
	// cursor prepares a search over the scanner's text. Cursors are not
	// shared between goroutines; the searcher itself is.
	cursor(s *Scanner) cursor
	close()
}

// cursor yields the occurrences of one chunk in a text.
type cursor interface {
	// next returns the leftmost occurrence starting at or after at.
	next(at int) (hit, bool)
}
