package matcher

import "unicode/utf8"

// Scanner runs groups over one text. It caches per-text state (the
// ASCII-lowered copy and whether the text is pure ASCII) across the groups it
// scans, so one Scanner should be used per text and per goroutine.
type Scanner struct {
	text   []byte
	folded []byte
	ascii  int8 // 0 unknown, 1 ASCII, -1 not
}

// NewScanner prepares a scan of text. text must not be modified while the
// Scanner is in use.
func NewScanner(text []byte) *Scanner {
	return &Scanner{text: text}
}

// Scan is a convenience wrapper that scans a single group.
func Scan(text string, g *Group, tag Tag) []Candidate {
	return NewScanner([]byte(text)).Append(nil, g, tag)
}

// Append appends every occurrence of g to dst. Occurrences from one chunk do
// not overlap each other; occurrences from different chunks may.
func (s *Scanner) Append(dst []Candidate, g *Group, tag Tag) []Candidate {
	if g == nil || len(s.text) == 0 {
		return dst
	}

	for i := range g.chunks {
		c := &g.chunks[i]
		if !c.prefilter.mayMatch(s.text, s.foldedText) {
			continue
		}

		cur := c.search.cursor(s)
		pos := 0
		for pos <= len(s.text) {
			h, ok := cur.next(pos)
			if !ok {
				break
			}
			if h.end <= h.start {
				// An empty occurrence would never advance the cursor.
				pos = h.start + runeLen(s.text, h.start)
				continue
			}
			dst = append(dst, Candidate{
				Start:      h.start,
				End:        h.end,
				Owner:      tag.Owner,
				Priority:   tag.Priority,
				IsWildcard: c.wildcard[h.frag],
			})
			pos = h.end
		}
	}
	return dst
}

func (s *Scanner) foldedText() []byte {
	if s.folded == nil {
		s.folded = asciiLower(s.text)
	}
	return s.folded
}

func (s *Scanner) isASCII() bool {
	if s.ascii == 0 {
		s.ascii = 1
		for _, c := range s.text {
			if c >= utf8.RuneSelf {
				s.ascii = -1
				break
			}
		}
	}
	return s.ascii > 0
}
