package matcher

import (
	"runtime"
	"sync"

	"go.elara.ws/pcre"

	"github.com/dl/hilite/internal/pattern"
)

// pcreSearcher runs a chunk as one PCRE2 alternation via the pure Go pcre
// package. Look-behind and look-ahead express the boundaries directly, so no
// post-check or pass split is needed. PCRE2 backtracks: patterns from
// untrusted authors are safer on the re2 engine.
type pcreSearcher struct {
	mu sync.Mutex // the compiled code and its match data are not shared safely
	re *pcre.Regexp
}

func newPCRESearcher(entries []pattern.Entry, caseSensitive bool) (*pcreSearcher, error) {
	var opts pcre.CompileOption
	if !caseSensitive {
		opts |= pcre.Caseless
	}

	re, err := pcre.CompileOpts(alternation(entries, pattern.DialectPCRE), opts)
	if err != nil {
		return nil, err
	}

	// CompileOpts attaches a finalizer that frees the code, so snapshots
	// that are dropped without Close are still released.
	return &pcreSearcher{re: re}, nil
}

// cursor runs the whole search up front; PCRE2 needs the full subject for
// look-behind at the start of each attempt.
func (s *pcreSearcher) cursor(sc *Scanner) cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.re == nil {
		return &pcreCursor{}
	}
	return &pcreCursor{locs: s.re.FindAllSubmatchIndex(sc.text, -1)}
}

// close releases the compiled PCRE regex resources. Regexp.Close is not
// idempotent, so the library finalizer is cleared first.
func (s *pcreSearcher) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.re != nil {
		runtime.SetFinalizer(s.re, nil)
		s.re.Close()
		s.re = nil
	}
}

type pcreCursor struct {
	locs [][]int
	i    int
}

func (c *pcreCursor) next(at int) (hit, bool) {
	for ; c.i < len(c.locs); c.i++ {
		idx, start, end, ok := firstGroup(c.locs[c.i])
		if !ok || start < at {
			continue
		}
		return hit{start: start, end: end, frag: idx}, true
	}
	return hit{}, false
}
