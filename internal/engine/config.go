// Package engine compiles a highlight configuration (an ignore list plus an
// ordered list of categories) into an immutable snapshot and finds the
// non-overlapping matches of that snapshot in arbitrary text.
package engine

import "github.com/dl/hilite/internal/matcher"

// Category is a named, colored list of patterns. Its priority is its
// position among the enabled categories that compile to at least one group.
type Category struct {
	ID      string
	Name    string
	Color   string
	FColor  string
	Enabled bool
	Words   []string
}

// Config is the input to Compile.
type Config struct {
	IgnoreList []string
	Categories []Category
}

// Logger receives warnings about pattern chunks that could not be built.
// *log.Logger from charmbracelet/log satisfies it.
type Logger interface {
	Warn(msg interface{}, keyvals ...interface{})
}

// Options tunes compilation.
type Options struct {
	Engine    matcher.Engine // "" selects re2
	ChunkSize int            // 0 selects matcher.DefaultChunkSize
	Logger    Logger         // nil selects log.Default()
}
