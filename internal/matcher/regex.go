package matcher

import (
	"regexp"
	"unicode/utf8"

	"github.com/coregx/coregex"

	"github.com/dl/hilite/internal/pattern"
)

// regexSearcher runs a chunk as RE2 expressions. Neither engine has
// look-behind, so the chunk is split into two passes: one for fragments that
// need a boundary before the match (verified after each hit) and one for the
// rest. Each pass is a single leftmost-first alternation.
//
// coregex only agrees with regexp on pure ASCII input, so it serves ASCII
// texts when every fragment of the pass is ASCII too; folded passes then run
// case-sensitively over the ASCII-lowered text. Everything else runs on
// regexp with Unicode classes.
type regexSearcher struct {
	fold   bool
	passes []regexPass
}

type regexPass struct {
	fast        *coregex.Regexp // nil when some fragment is not ASCII
	full        *regexp.Regexp
	frags       []int // capture group i+1 -> fragment index in the chunk
	checkBefore bool
}

func newRegexSearcher(entries []pattern.Entry, caseSensitive bool) (*regexSearcher, error) {
	var plain, checked []int
	for i, e := range entries {
		if e.NeedsBoundaryCheck() {
			checked = append(checked, i)
		} else {
			plain = append(plain, i)
		}
	}

	s := &regexSearcher{fold: !caseSensitive}
	for _, p := range []struct {
		frags       []int
		checkBefore bool
	}{
		{plain, false},
		{checked, true},
	} {
		if len(p.frags) == 0 {
			continue
		}
		sub := make([]pattern.Entry, len(p.frags))
		ascii := true
		for j, idx := range p.frags {
			sub[j] = entries[idx]
			ascii = ascii && isASCIIString(sub[j].Text)
		}

		expr := alternation(sub, pattern.DialectRE2)
		if s.fold {
			expr = "(?i)" + expr
		}
		full, err := regexp.Compile(expr)
		if err != nil {
			return nil, err
		}
		pass := regexPass{full: full, frags: p.frags, checkBefore: p.checkBefore}
		if ascii {
			pass.fast, err = coregex.Compile(alternation(sub, pattern.DialectASCII))
			if err != nil {
				return nil, err
			}
		}
		s.passes = append(s.passes, pass)
	}
	return s, nil
}

func (s *regexSearcher) cursor(sc *Scanner) cursor {
	c := &regexCursor{
		text:   sc.text,
		passes: s.passes,
		cached: make([]regexCached, len(s.passes)),
	}
	if sc.isASCII() {
		c.subject = sc.text
		if s.fold {
			c.subject = sc.foldedText()
		}
		c.ascii = true
	}
	for i := range c.cached {
		c.cached[i].from = -1
	}
	return c
}

func (s *regexSearcher) close() {}

// regexCached remembers the last answer of a pass: the leftmost hit at or
// after from. It stays valid for any later at <= h.start, and for any later
// at at all when there was no hit.
type regexCached struct {
	from int
	h    hit
	ok   bool
}

type regexCursor struct {
	text    []byte
	subject []byte // what the fast expressions run on; same offsets as text
	ascii   bool
	passes  []regexPass
	cached  []regexCached
}

func (c *regexCursor) next(at int) (hit, bool) {
	var best hit
	found := false
	for i := range c.passes {
		cc := &c.cached[i]
		if cc.from < 0 || at < cc.from || (cc.ok && at > cc.h.start) {
			cc.h, cc.ok = c.find(&c.passes[i], at)
			cc.from = at
		}
		if !cc.ok {
			continue
		}
		// Same start: the fragment sorted first (longer) wins, as it would
		// inside a single alternation.
		if !found || cc.h.start < best.start || (cc.h.start == best.start && cc.h.frag < best.frag) {
			best = cc.h
			found = true
		}
	}
	return best, found
}

// find returns the leftmost occurrence of the pass at or after at.
func (c *regexCursor) find(p *regexPass, at int) (hit, bool) {
	text := c.text
	for at <= len(text) {
		var loc []int
		if c.ascii && p.fast != nil {
			loc = p.fast.FindSubmatchIndex(c.subject[at:])
		} else {
			loc = p.full.FindSubmatchIndex(text[at:])
		}
		if loc == nil {
			return hit{}, false
		}
		idx, start, end, ok := firstGroup(loc)
		if !ok {
			return hit{}, false
		}
		start += at
		end += at
		if p.checkBefore && !boundaryBefore(text, start) {
			at = start + runeLen(text, start)
			continue
		}
		return hit{start: start, end: end, frag: p.frags[idx]}, true
	}
	return hit{}, false
}

// boundaryBefore reports whether pos is at the start of text or right after a
// separator rune.
func boundaryBefore(text []byte, pos int) bool {
	if pos == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRune(text[:pos])
	return pattern.IsSeparator(r)
}

func isASCIIString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// runeLen is the width of the rune at pos, at least 1.
func runeLen(text []byte, pos int) int {
	if pos >= len(text) {
		return 1
	}
	_, n := utf8.DecodeRune(text[pos:])
	return n
}
