package engine

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/dl/hilite/internal/matcher"
	"github.com/dl/hilite/internal/pattern"
)

// Compiled is an immutable, compiled configuration. It is safe for
// concurrent use; a configuration change produces a new Compiled rather than
// modifying an existing one.
type Compiled struct {
	ignore     []*matcher.Group
	categories []compiledCategory
}

type compiledCategory struct {
	id       string
	name     string
	color    string
	fColor   string
	priority int
	groups   []*matcher.Group
}

// Compile builds a snapshot of cfg. Unusable patterns never fail compilation:
// blank entries are skipped, and chunks the search backend rejects are
// dropped with a warning. The error is reserved for invalid options.
func Compile(cfg Config, opts Options) (*Compiled, error) {
	engine, err := matcher.ParseEngine(string(opts.Engine))
	if err != nil {
		return nil, err
	}
	if opts.ChunkSize < 0 {
		return nil, fmt.Errorf("chunk size must not be negative, got %d", opts.ChunkSize)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	mopts := matcher.Options{Engine: engine, ChunkSize: opts.ChunkSize}

	c := &Compiled{
		ignore: compileWords(cfg.IgnoreList, mopts, logger, ""),
	}
	for _, cat := range cfg.Categories {
		if !cat.Enabled {
			continue
		}
		groups := compileWords(cat.Words, mopts, logger, cat.Name)
		if len(groups) == 0 {
			continue
		}
		c.categories = append(c.categories, compiledCategory{
			id:       cat.ID,
			name:     cat.Name,
			color:    cat.Color,
			fColor:   cat.FColor,
			priority: len(c.categories),
			groups:   groups,
		})
	}
	compilesTotal.Inc()
	return c, nil
}

// compileWords parses words and builds their groups. category names the
// owner in warnings; the ignore list passes "".
func compileWords(words []string, opts matcher.Options, logger Logger, category string) []*matcher.Group {
	entries := make([]pattern.Entry, 0, len(words))
	for _, w := range words {
		if e, ok := pattern.Parse(w); ok {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return nil
	}

	groups, errs := matcher.NewGroups(entries, opts)
	for _, err := range errs {
		droppedChunksTotal.Inc()
		if category == "" {
			logger.Warn("ignore list: pattern chunk dropped", "err", err)
		} else {
			logger.Warn("pattern chunk dropped", "category", category, "err", err)
		}
	}
	return groups
}

// Categories returns the number of categories that can produce matches.
func (c *Compiled) Categories() int {
	if c == nil {
		return 0
	}
	return len(c.categories)
}

// HasIgnore reports whether an ignore list was compiled.
func (c *Compiled) HasIgnore() bool {
	return c != nil && len(c.ignore) > 0
}

// Close releases backend resources early. c must not be scanned afterwards,
// so only call it once no scan can still be using the snapshot.
func (c *Compiled) Close() {
	if c == nil {
		return
	}
	for _, g := range c.ignore {
		g.Close()
	}
	for _, cat := range c.categories {
		for _, g := range cat.groups {
			g.Close()
		}
	}
}
