// Package pattern parses raw highlight words into structured entries and
// compiles them into search-expression fragments.
package pattern

import (
	"strings"
	"unicode/utf8"
)

// Prefixes recognized at the start of a raw entry, checked in this order.
const (
	PrefixCaseSensitive = "CS:"
	PrefixLiteral       = "LIT:" // '*' and '?' match themselves
	PrefixExact         = "//"
)

// Entry is the parsed form of one raw pattern string.
type Entry struct {
	Text           string // glob text, ASCII-lowercased unless CaseSensitive
	CaseSensitive  bool
	Literal        bool
	Exact          bool
	BoundaryBefore bool
	BoundaryAfter  bool
	HasWildcard    bool
}

// Parse turns a raw pattern string into an Entry.
// ok is false when nothing remains after trimming; such entries are skipped,
// not reported as errors.
func Parse(raw string) (e Entry, ok bool) {
	s := raw
	if rest, found := strings.CutPrefix(s, PrefixCaseSensitive); found {
		e.CaseSensitive = true
		s = rest
	}
	if rest, found := strings.CutPrefix(s, PrefixLiteral); found {
		e.Literal = true
		s = rest
	}
	if rest, found := strings.CutPrefix(s, PrefixExact); found {
		e.Exact = true
		s = rest
	}

	// The whitespace itself is the signal, so look before trimming.
	if len(s) > 0 {
		e.BoundaryBefore = isMarkerSpace(s[0])
		e.BoundaryAfter = isMarkerSpace(s[len(s)-1])
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return Entry{}, false
	}
	if !e.CaseSensitive {
		s = lowerASCII(s)
	}
	e.Text = s
	e.HasWildcard = !e.Literal && strings.ContainsAny(s, "*?")

	if e.Exact {
		e.BoundaryBefore = true
		e.BoundaryAfter = true
	}
	return e, true
}

// Len is the length of the glob text in runes. Longer entries are tried first
// when several entries share one alternation.
func (e Entry) Len() int {
	return utf8.RuneCountInString(e.Text)
}

func isMarkerSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// lowerASCII lowers A-Z only. Other runes are left for the backend's case
// folding: full Unicode lowering can produce text that simple folding no
// longer matches (U+0130 becomes "i\u0307").
func lowerASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + 'a' - 'A'
		}
		return r
	}, s)
}
