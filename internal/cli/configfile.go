package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dl/hilite/internal/engine"
)

// LoadFlagArgs reads the hilite flags file and returns its arguments, to be
// placed before the command line ones.
// Location: HILITE_FLAGS_PATH env var, or ~/.hilite.
// Format: one flag per line, # comments, empty lines ignored.
// Returns nil if no flags file is found.
func LoadFlagArgs() []string {
	path := os.Getenv("HILITE_FLAGS_PATH")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		path = filepath.Join(home, ".hilite")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var args []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		args = append(args, line)
	}
	return args
}

// highlightFile is the on-disk form of engine.Config. JSON files decode too,
// JSON being a subset of YAML.
type highlightFile struct {
	IgnoreList []string       `yaml:"ignoreList"`
	Categories []fileCategory `yaml:"categories"`
}

type fileCategory struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Color   string   `yaml:"color"`
	FColor  string   `yaml:"fColor"`
	Enabled *bool    `yaml:"enabled"` // absent means enabled
	Words   []string `yaml:"words"`
}

// HighlightPath returns the highlight configuration file to use when no
// --config flag is given: HILITE_CONFIG, then the XDG config directory, then
// ~/.config/hilite/config.yaml. It returns "" when no location is known.
func HighlightPath() string {
	if path := os.Getenv("HILITE_CONFIG"); path != "" {
		return path
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hilite", "config.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "hilite", "config.yaml")
	}
	return ""
}

// LoadHighlight reads the highlight configuration. An explicit path must
// exist; a missing default file yields an empty configuration. The returned
// path is the file that was (or would have been) read, for watching.
func LoadHighlight(explicit string) (engine.Config, string, error) {
	path := explicit
	if path == "" {
		path = HighlightPath()
	}
	if path == "" {
		return engine.Config{}, "", nil
	}

	cfg, err := loadHighlightFile(path)
	if err != nil {
		if explicit == "" && errors.Is(err, fs.ErrNotExist) {
			return engine.Config{}, path, nil
		}
		return engine.Config{}, path, fmt.Errorf("failed to load config file: %w", err)
	}
	return cfg, path, nil
}

func loadHighlightFile(path string) (engine.Config, error) {
	// #nosec G304 - the path comes from the command line or standard locations
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Config{}, err
	}
	return parseHighlight(data)
}

// parseHighlight decodes a highlight configuration. A category needs a name
// or an id; a missing name falls back to the id.
func parseHighlight(data []byte) (engine.Config, error) {
	var hf highlightFile
	if err := yaml.Unmarshal(data, &hf); err != nil {
		return engine.Config{}, err
	}

	cfg := engine.Config{IgnoreList: hf.IgnoreList}
	for i, fc := range hf.Categories {
		name := fc.Name
		if name == "" {
			name = fc.ID
		}
		if name == "" {
			return engine.Config{}, fmt.Errorf("category %d has neither name nor id", i+1)
		}
		enabled := fc.Enabled == nil || *fc.Enabled
		cfg.Categories = append(cfg.Categories, engine.Category{
			ID:      fc.ID,
			Name:    name,
			Color:   fc.Color,
			FColor:  fc.FColor,
			Enabled: enabled,
			Words:   fc.Words,
		})
	}
	return cfg, nil
}

// cliCategory names the category built from --word flags.
const cliCategory = "cli"

// mergeFlags adds the --ignore entries and a trailing category for the
// --word entries, so words given on the command line rank below every
// configured category.
func mergeFlags(base engine.Config, cfg Config) engine.Config {
	out := engine.Config{
		IgnoreList: append(append([]string(nil), base.IgnoreList...), cfg.Ignore...),
		Categories: append([]engine.Category(nil), base.Categories...),
	}
	if len(cfg.Words) > 0 {
		out.Categories = append(out.Categories, engine.Category{
			ID:      cliCategory,
			Name:    cliCategory,
			Color:   "#ffff00",
			Enabled: true,
			Words:   cfg.Words,
		})
	}
	return out
}

// ApplyEnv fills options the command line left unset from HILITE_ENGINE and
// HILITE_CHUNK_SIZE.
func ApplyEnv(cfg *Config) error {
	if cfg.Engine == "" {
		cfg.Engine = os.Getenv("HILITE_ENGINE")
	}
	if size := os.Getenv("HILITE_CHUNK_SIZE"); size != "" && cfg.ChunkSize == 0 {
		n, err := strconv.Atoi(size)
		if err != nil {
			return fmt.Errorf("invalid HILITE_CHUNK_SIZE: %w", err)
		}
		cfg.ChunkSize = n
	}
	return nil
}
