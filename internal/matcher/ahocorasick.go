package matcher

import (
	"unicode/utf8"

	"github.com/coregx/ahocorasick"

	"github.com/dl/hilite/internal/pattern"
)

// literalPrefilter rejects texts that cannot contain any occurrence of a
// chunk. Every fragment contributes its longest literal run; if none of those
// runs appears in the text, the chunk's expression is never executed.
type literalPrefilter struct {
	auto *ahocorasick.Automaton
	fold bool // compare against an ASCII-lowered copy of the text
}

// newLiteralPrefilter returns nil when the chunk cannot be prefiltered
// because some fragment has no usable literal run.
func newLiteralPrefilter(entries []pattern.Entry, caseSensitive bool) *literalPrefilter {
	if len(entries) == 0 {
		return nil
	}
	fold := !caseSensitive
	builder := ahocorasick.NewBuilder()
	for _, e := range entries {
		lit := requiredLiteral(e, fold)
		if lit == "" {
			return nil
		}
		builder.AddPattern([]byte(lit))
	}
	auto, err := builder.Build()
	if err != nil {
		return nil
	}
	return &literalPrefilter{auto: auto, fold: fold}
}

// mayMatch reports whether text can contain an occurrence. folded returns the
// ASCII-lowered text; it is computed lazily and shared between chunks.
func (p *literalPrefilter) mayMatch(text []byte, folded func() []byte) bool {
	if p == nil {
		return true
	}
	if p.fold {
		return p.auto.IsMatch(folded())
	}
	return p.auto.IsMatch(text)
}

// requiredLiteral returns the longest run of the entry text that every
// occurrence must contain. With fold, the run must also survive comparison
// against ASCII-lowered text: non-ASCII runes and the letters k and s (which
// U+212A and U+017F fold to) end a run.
func requiredLiteral(e pattern.Entry, fold bool) string {
	best := ""
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start > len(best) {
			best = e.Text[start:end]
		}
		start = -1
	}
	for i, r := range e.Text {
		stop := pattern.IsSpace(r) || (!e.Literal && (r == '*' || r == '?'))
		if fold && (r >= utf8.RuneSelf || r == 'k' || r == 's') {
			stop = true
		}
		if stop {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(e.Text))
	return best
}

// asciiLower returns a copy of text with A-Z lowered and every other byte
// untouched, so offsets are preserved.
func asciiLower(text []byte) []byte {
	out := make([]byte, len(text))
	for i, c := range text {
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}
