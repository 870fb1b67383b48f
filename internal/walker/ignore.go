package walker

import (
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// ignoreFiles are read from every visited directory. Later files can
// re-include what earlier ones excluded only within their own layer.
var ignoreFiles = []string{".gitignore", ".hiliteignore"}

// ignoreLayer holds the compiled rules found in one directory. Parsers are
// immutable and shared between the layer stacks of sibling directories.
type ignoreLayer struct {
	dir     string
	parsers []*ignore.GitIgnore
}

// loadIgnoreLayer compiles the ignore files present in dir. A missing or
// unreadable file contributes no rules.
func loadIgnoreLayer(dir string) ignoreLayer {
	layer := ignoreLayer{dir: dir}
	for _, name := range ignoreFiles {
		p, err := ignore.CompileIgnoreFile(joinPath(dir, name))
		if err != nil {
			continue
		}
		layer.parsers = append(layer.parsers, p)
	}
	return layer
}

// pushLayer returns parent extended with dir's layer. The parent slice is
// never modified, since siblings share it.
func pushLayer(parent []ignoreLayer, dir string) []ignoreLayer {
	layer := loadIgnoreLayer(dir)
	if len(layer.parsers) == 0 {
		return parent
	}
	out := make([]ignoreLayer, len(parent)+1)
	copy(out, parent)
	out[len(parent)] = layer
	return out
}

// ignored reports whether any layer matches path.
func ignored(layers []ignoreLayer, path string, isDir bool) bool {
	for _, layer := range layers {
		rel, err := filepath.Rel(layer.dir, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
			// A layer only governs paths beneath its own directory.
			continue
		}
		if isDir {
			rel += "/"
		}
		for _, p := range layer.parsers {
			if p.MatchesPath(rel) {
				return true
			}
		}
	}
	return false
}

// excludeMatcher applies --exclude globs relative to each walk root.
type excludeMatcher struct {
	parser *ignore.GitIgnore
}

func newExcludeMatcher(globs []string) *excludeMatcher {
	if len(globs) == 0 {
		return nil
	}
	return &excludeMatcher{parser: ignore.CompileIgnoreLines(globs...)}
}

func (m *excludeMatcher) match(root, path string, isDir bool) bool {
	if m == nil {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if isDir {
		rel += "/"
	}
	return m.parser.MatchesPath(rel)
}
