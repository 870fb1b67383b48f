package engine

import (
	"cmp"
	"slices"
	"sort"

	"github.com/dl/hilite/internal/matcher"
)

// span is a half-open byte range.
type span struct {
	start, end int
}

// ignoreZones merges the ignore-list occurrences into sorted, disjoint
// ranges.
func ignoreZones(hits []matcher.Candidate) []span {
	if len(hits) == 0 {
		return nil
	}
	zones := make([]span, len(hits))
	for i, h := range hits {
		zones[i] = span{h.Start, h.End}
	}
	slices.SortFunc(zones, func(a, b span) int {
		return cmp.Compare(a.start, b.start)
	})
	merged := zones[:1]
	for _, z := range zones[1:] {
		last := &merged[len(merged)-1]
		if z.start < last.end {
			last.end = max(last.end, z.end)
			continue
		}
		merged = append(merged, z)
	}
	return merged
}

// ignored reports whether c shares a byte with any zone.
func ignored(c matcher.Candidate, zones []span) bool {
	i := sort.Search(len(zones), func(i int) bool { return zones[i].end > c.Start })
	return i < len(zones) && zones[i].start < c.End
}

// compareCandidates orders by start, then specificity, priority, length and
// end.
func compareCandidates(a, b matcher.Candidate) int {
	if a.Start != b.Start {
		return cmp.Compare(a.Start, b.Start)
	}
	return compareRank(a, b)
}

// compareRank is the overlap tie-break: non-wildcard beats wildcard, then
// lower priority, longer span, earlier start, earlier end. Negative means a
// is better.
func compareRank(a, b matcher.Candidate) int {
	if a.IsWildcard != b.IsWildcard {
		if b.IsWildcard {
			return -1
		}
		return 1
	}
	if a.Priority != b.Priority {
		return cmp.Compare(a.Priority, b.Priority)
	}
	if a.Len() != b.Len() {
		return cmp.Compare(b.Len(), a.Len())
	}
	if a.Start != b.Start {
		return cmp.Compare(a.Start, b.Start)
	}
	return cmp.Compare(a.End, b.End)
}

// resolve drops candidates that touch an ignore zone and reduces the rest to
// a non-overlapping set sorted by start. cands is reordered in place.
func resolve(cands []matcher.Candidate, zones []span) []matcher.Candidate {
	if len(zones) > 0 {
		cands = slices.DeleteFunc(cands, func(c matcher.Candidate) bool {
			return ignored(c, zones)
		})
	}
	if len(cands) == 0 {
		return nil
	}

	slices.SortStableFunc(cands, compareCandidates)

	out := make([]matcher.Candidate, 0, len(cands))
	winner := cands[0]
	for _, c := range cands[1:] {
		if !winner.Overlaps(c.Start, c.End) {
			out = append(out, winner)
			winner = c
			continue
		}
		if compareRank(c, winner) < 0 {
			winner = c
		}
	}
	return append(out, winner)
}
