package matcher

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dl/hilite/internal/pattern"
)

// Engine names a search backend.
type Engine string

const (
	// EngineRE2 uses coregex on ASCII text and Go's regexp otherwise: linear
	// time, no look-around.
	EngineRE2 Engine = "re2"
	// EnginePCRE uses PCRE2 (pure Go port) with native look-around.
	EnginePCRE Engine = "pcre"
)

// DefaultChunkSize bounds the number of alternatives in one expression.
const DefaultChunkSize = 256

// ParseEngine validates an engine name. The empty string selects EngineRE2.
func ParseEngine(s string) (Engine, error) {
	switch Engine(strings.ToLower(s)) {
	case "", EngineRE2:
		return EngineRE2, nil
	case EnginePCRE:
		return EnginePCRE, nil
	}
	return "", fmt.Errorf("unknown engine %q (use re2 or pcre)", s)
}

// Options configures group construction.
type Options struct {
	Engine    Engine
	ChunkSize int // 0 means DefaultChunkSize
}

// ChunkError reports an expression the backend refused to build.
// The chunk is dropped; the rest of the group is unaffected.
type ChunkError struct {
	CaseSensitive bool
	Fragments     int
	Err           error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("dropping %d-pattern chunk (case-sensitive=%v): %v", e.Fragments, e.CaseSensitive, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// Group is the compiled, immutable form of one case-sensitivity bucket of a
// category. It is safe for concurrent use by multiple scans.
type Group struct {
	caseSensitive bool
	chunks        []chunk
}

type chunk struct {
	search    searcher
	wildcard  []bool // by fragment index
	prefilter *literalPrefilter
}

// CaseSensitive reports which bucket the group was built for.
func (g *Group) CaseSensitive() bool {
	return g.caseSensitive
}

// Close releases backend resources. Scanning a closed group is not allowed.
func (g *Group) Close() {
	for _, c := range g.chunks {
		c.search.close()
	}
}

// NewGroups compiles entries into at most two groups: case-insensitive first,
// then case-sensitive. Chunks that fail to build are skipped and reported in
// errs. An empty result means the entries can never match.
func NewGroups(entries []pattern.Entry, opts Options) (groups []*Group, errs []error) {
	size := opts.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}

	var folded, exact []pattern.Entry
	for _, e := range entries {
		if e.CaseSensitive {
			exact = append(exact, e)
		} else {
			folded = append(folded, e)
		}
	}

	for _, bucket := range []struct {
		caseSensitive bool
		entries       []pattern.Entry
	}{
		{false, folded},
		{true, exact},
	} {
		if len(bucket.entries) == 0 {
			continue
		}
		// Longer entries first, so the alternation prefers them at a shared
		// start position.
		sorted := slices.Clone(bucket.entries)
		slices.SortStableFunc(sorted, func(a, b pattern.Entry) int {
			return b.Len() - a.Len()
		})

		g := &Group{caseSensitive: bucket.caseSensitive}
		for part := range slices.Chunk(sorted, size) {
			c, err := newChunk(part, bucket.caseSensitive, opts.Engine)
			if err != nil {
				errs = append(errs, &ChunkError{
					CaseSensitive: bucket.caseSensitive,
					Fragments:     len(part),
					Err:           err,
				})
				continue
			}
			g.chunks = append(g.chunks, c)
		}
		if len(g.chunks) > 0 {
			groups = append(groups, g)
		}
	}
	return groups, errs
}

func newChunk(entries []pattern.Entry, caseSensitive bool, engine Engine) (chunk, error) {
	c := chunk{
		wildcard:  make([]bool, len(entries)),
		prefilter: newLiteralPrefilter(entries, caseSensitive),
	}
	for i, e := range entries {
		c.wildcard[i] = e.HasWildcard
	}

	var err error
	c.search, err = newSearcher(entries, caseSensitive, engine)
	if err != nil {
		return chunk{}, err
	}
	return c, nil
}

// newSearcher builds the backend for one chunk. Tests replace it to simulate
// expressions the backend rejects.
var newSearcher = func(entries []pattern.Entry, caseSensitive bool, engine Engine) (searcher, error) {
	if engine == EnginePCRE {
		return newPCRESearcher(entries, caseSensitive)
	}
	return newRegexSearcher(entries, caseSensitive)
}

// alternation joins fragments into one expression. Capture group i+1 belongs
// to the fragment at index i.
func alternation(entries []pattern.Entry, d pattern.Dialect) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString("(?:")
		b.WriteString(e.Fragment(d))
		b.WriteByte(')')
	}
	return b.String()
}

// firstGroup returns the index of the first participating capture group
// (ignoring group 0) and its span.
func firstGroup(loc []int) (idx, start, end int, ok bool) {
	for i := 2; i+1 < len(loc); i += 2 {
		if loc[i] >= 0 {
			return i/2 - 1, loc[i], loc[i+1], true
		}
	}
	return 0, 0, 0, false
}
