package pattern

import (
	"strings"
	"unicode"

	"github.com/coregx/coregex"
)

// Dialect selects the expression syntax a fragment is written in.
type Dialect int

const (
	// DialectRE2 targets Go's regexp with Unicode classes. The engine has no
	// look-around, so the before-boundary is left to the scanner (see
	// NeedsBoundaryCheck) and the after-boundary consumes one separator rune
	// outside the capture group.
	DialectRE2 Dialect = iota
	// DialectASCII is DialectRE2 restricted to ASCII classes. It targets
	// coregex and is only valid for subjects that are entirely ASCII.
	DialectASCII
	// DialectPCRE targets PCRE2 in byte mode with zero-width look-around.
	// Classes consume whole UTF-8 sequences; only ASCII whitespace and
	// punctuation act as separators.
	DialectPCRE
)

func (d Dialect) String() string {
	switch d {
	case DialectRE2:
		return "re2"
	case DialectASCII:
		return "ascii"
	case DialectPCRE:
		return "pcre"
	}
	return "unknown"
}

// classes holds the character classes a dialect expands wildcards into.
type classes struct {
	space    string // one whitespace rune
	nonSpace string // one non-whitespace rune
	token    string // one rune that is neither whitespace nor punctuation
	any      string // any rune, newlines included
	sepOrEnd string // one separator rune or end of text, consuming
	behind   string // zero-width: preceded by a separator or start of text
	ahead    string // zero-width: followed by a separator or end of text
}

const (
	asciiSpace = `\t\n\x0b\f\r\x20`
	// ASCII members of Unicode category P. Symbols such as $ + < = > ^ ` | ~
	// belong to words.
	asciiPunct = `\x21-\x23\x25-\x2a\x2c-\x2f\x3a\x3b\x3f\x40\x5b-\x5d\x5f\x7b\x7d`
	// utf8Seq is one multibyte UTF-8 sequence in byte mode. The possessive
	// tail keeps backtracking from splitting it.
	utf8Seq = `[\xc0-\xff][\x80-\xbf]*+`
)

var re2Classes = classes{
	space:    `[\t\n\x0b\f\r\x{85}\p{Z}]`,
	nonSpace: `[^\t\n\x0b\f\r\x{85}\p{Z}]`,
	token:    `[^\t\n\x0b\f\r\x{85}\p{Z}\p{P}]`,
	any:      `(?s:.)`,
	sepOrEnd: `(?:[\t\n\x0b\f\r\x{85}\p{Z}\p{P}]|\z)`,
}

var asciiClasses = classes{
	space:    `[` + asciiSpace + `]`,
	nonSpace: `[^` + asciiSpace + `]`,
	token:    `[^` + asciiSpace + asciiPunct + `]`,
	any:      `(?s:.)`,
	sepOrEnd: `(?:[` + asciiSpace + asciiPunct + `]|\z)`,
}

var pcreClasses = classes{
	space:    `[` + asciiSpace + `]`,
	nonSpace: `(?:[^` + asciiSpace + `\x80-\xff]|` + utf8Seq + `)`,
	token:    `(?:[^` + asciiSpace + asciiPunct + `\x80-\xff]|` + utf8Seq + `)`,
	any:      `(?:[\x00-\x7f]|` + utf8Seq + `)`,
	ahead:    `(?![^` + asciiSpace + asciiPunct + `])`,
	behind:   `(?<![^` + asciiSpace + asciiPunct + `])`,
}

// Fragment compiles the entry into one alternative of a search expression.
// The matched span is always capture group 1 of the returned fragment, so a
// combined alternation has exactly one group per entry.
func (e Entry) Fragment(d Dialect) string {
	var b strings.Builder
	switch d {
	case DialectPCRE:
		if e.BoundaryBefore {
			b.WriteString(pcreClasses.behind)
		}
		b.WriteByte('(')
		b.WriteString(e.glob(&pcreClasses))
		b.WriteByte(')')
		if e.BoundaryAfter {
			b.WriteString(pcreClasses.ahead)
		}
	default:
		c := &re2Classes
		if d == DialectASCII {
			c = &asciiClasses
		}
		b.WriteByte('(')
		b.WriteString(e.glob(c))
		b.WriteByte(')')
		if e.BoundaryAfter {
			b.WriteString(c.sepOrEnd)
		}
	}
	return b.String()
}

// NeedsBoundaryCheck reports whether a DialectRE2 or DialectASCII fragment relies on the
// caller to verify the rune before the match.
func (e Entry) NeedsBoundaryCheck() bool {
	return e.BoundaryBefore
}

// glob expands the entry text into an expression body.
func (e Entry) glob(c *classes) string {
	runes := []rune(e.Text)
	hasSpace := strings.ContainsFunc(e.Text, IsSpace)

	var b strings.Builder
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case IsSpace(r):
			for i+1 < len(runes) && IsSpace(runes[i+1]) {
				i++
			}
			b.WriteString(c.space)
			b.WriteByte('+')
		case r == '*' && !e.Literal:
			first := i
			for i+1 < len(runes) && runes[i+1] == '*' {
				i++
			}
			switch {
			case first == 0 || i == len(runes)-1:
				b.WriteString(c.token)
				b.WriteByte('*')
			case hasSpace:
				b.WriteString(c.any)
				b.WriteString("*?")
			default:
				b.WriteString(c.nonSpace)
				b.WriteString("*?")
			}
		case r == '?' && !e.Literal:
			if hasSpace {
				b.WriteString(c.any)
			} else {
				b.WriteString(c.nonSpace)
			}
		default:
			b.WriteString(coregex.QuoteMeta(string(r)))
		}
	}
	return b.String()
}

// IsSpace reports whether r counts as whitespace between words.
func IsSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', 0x85:
		return true
	}
	return unicode.Is(unicode.Z, r)
}

// IsSeparator reports whether r satisfies a word boundary: whitespace or
// punctuation.
func IsSeparator(r rune) bool {
	return IsSpace(r) || unicode.IsPunct(r)
}
