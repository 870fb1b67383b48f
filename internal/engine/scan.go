package engine

import "github.com/dl/hilite/internal/matcher"

// Match is one highlighted span. Start and End are byte offsets into the
// scanned text, End exclusive.
type Match struct {
	Start      int    `json:"start"`
	End        int    `json:"end"`
	CategoryID string `json:"categoryId,omitempty"`
	Category   string `json:"category"`
	Color      string `json:"color"`
	FColor     string `json:"fColor"`
}

// Scan returns the matches of c in text, sorted by Start and pairwise
// disjoint. A nil c matches nothing.
func Scan(text string, c *Compiled) []Match {
	return c.Scan(text)
}

// Scan is the method form of the package-level Scan.
func (c *Compiled) Scan(text string) []Match {
	if c == nil || text == "" {
		return nil
	}
	return c.ScanBytes([]byte(text))
}

// ScanBytes is Scan over a byte slice. text is only read.
func (c *Compiled) ScanBytes(text []byte) []Match {
	if c == nil || len(text) == 0 || len(c.categories) == 0 {
		return nil
	}
	scansTotal.Inc()

	s := matcher.NewScanner(text)
	var hits []matcher.Candidate
	for _, g := range c.ignore {
		hits = s.Append(hits, g, matcher.Tag{})
	}
	zones := ignoreZones(hits)

	var cands []matcher.Candidate
	for i := range c.categories {
		cat := &c.categories[i]
		tag := matcher.Tag{Owner: i, Priority: cat.priority}
		for _, g := range cat.groups {
			cands = s.Append(cands, g, tag)
		}
	}

	winners := resolve(cands, zones)
	if len(winners) == 0 {
		return nil
	}
	matchesTotal.Add(len(winners))

	out := make([]Match, len(winners))
	for i, w := range winners {
		cat := &c.categories[w.Owner]
		out[i] = Match{
			Start:      w.Start,
			End:        w.End,
			CategoryID: cat.id,
			Category:   cat.name,
			Color:      cat.color,
			FColor:     cat.fColor,
		}
	}
	return out
}
