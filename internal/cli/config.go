package cli

import (
	"fmt"
	"strings"

	"github.com/dl/hilite/internal/matcher"
)

// ColorMode controls when colored output is used.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // color when stdout is a terminal
	ColorAlways                  // always use color
	ColorNever                   // never use color
)

// ParseColorMode parses the --color flag value.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	}
	return ColorAuto, fmt.Errorf("invalid color mode %q (use auto, always or never)", s)
}

// Config holds all configuration for one hilite run.
type Config struct {
	ConfigPath    string // highlight configuration file; "" searches the defaults
	Engine        string
	ChunkSize     int
	Recursive     bool
	Hidden        bool
	NoIgnore      bool
	Exclude       []string
	Workers       int
	JSONOutput    bool
	CountOnly     bool
	Color         ColorMode
	Watch         bool
	Stream        bool
	Metrics       bool
	Verbose       bool
	Words         []string // ad-hoc words for the trailing "cli" category
	Ignore        []string // extra ignore-list entries
	MmapThreshold int64
	Paths         []string
}

// Validate checks that the config is valid and returns an error if not.
func (c *Config) Validate() error {
	if _, err := matcher.ParseEngine(c.Engine); err != nil {
		return err
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("invalid chunk size: %d", c.ChunkSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid worker count: %d", c.Workers)
	}
	if c.Watch && c.Stream {
		return fmt.Errorf("cannot use --watch and --stream together")
	}
	if c.Watch && len(c.Paths) == 0 {
		return fmt.Errorf("--watch needs at least one path")
	}
	if c.Stream && len(c.Paths) > 0 {
		return fmt.Errorf("--stream reads stdin and takes no paths")
	}
	if (c.Watch || c.Stream) && c.CountOnly {
		return fmt.Errorf("cannot use -c (count) with --watch or --stream")
	}
	return nil
}
