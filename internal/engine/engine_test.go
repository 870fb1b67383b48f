package engine

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"

	"github.com/dl/hilite/internal/matcher"
)

// skipIfPCRE skips PCRE runs when HILITE_SKIP_PCRE=1 (modernc.org/libc
// trips checkptr under -race).
func skipIfPCRE(t *testing.T) {
	t.Helper()
	if os.Getenv("HILITE_SKIP_PCRE") == "1" {
		t.Skip("skipping PCRE test: checkptr incompatible with modernc.org/libc")
	}
}

// recordLogger collects warnings instead of printing them.
type recordLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordLogger) Warn(msg interface{}, keyvals ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, fmt.Sprint(append([]interface{}{msg}, keyvals...)...))
}

func cat(name string, words ...string) Category {
	return Category{ID: "id-" + name, Name: name, Color: "#" + name, FColor: "#fff", Enabled: true, Words: words}
}

// forEngines compiles cfg with every backend and hands the snapshot to fn.
func forEngines(t *testing.T, cfg Config, fn func(t *testing.T, c *Compiled)) {
	t.Helper()
	for _, engine := range []matcher.Engine{matcher.EngineRE2, matcher.EnginePCRE} {
		t.Run(string(engine), func(t *testing.T) {
			if engine == matcher.EnginePCRE {
				skipIfPCRE(t)
			}
			logger := &recordLogger{}
			c, err := Compile(cfg, Options{Engine: engine, Logger: logger})
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			if len(logger.msgs) > 0 {
				t.Fatalf("unexpected warnings: %v", logger.msgs)
			}
			fn(t, c)
		})
	}
}

// hit is a match reduced to what most tables compare.
type hit struct {
	Text     string
	Category string
}

func hits(text string, ms []Match) []hit {
	out := []hit{}
	for _, m := range ms {
		out = append(out, hit{text[m.Start:m.End], m.Category})
	}
	return out
}

func TestScan_Properties(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		text string
		want []hit
	}{
		{
			name: "boundary word standalone",
			cfg:  Config{Categories: []Category{cat("a", " elf ")}},
			text: "I bought elf makeup",
			want: []hit{{"elf", "a"}},
		},
		{
			name: "boundary word not inside another word",
			cfg:  Config{Categories: []Category{cat("a", " elf ")}},
			text: "herself",
			want: []hit{},
		},
		{
			name: "plain word matches both",
			cfg:  Config{Categories: []Category{cat("a", "elf")}},
			text: "herself bought elf makeup",
			want: []hit{{"elf", "a"}, {"elf", "a"}},
		},
		{
			name: "ignore list blocks a category match",
			cfg: Config{
				IgnoreList: []string{"elf makeup"},
				Categories: []Category{cat("a", " elf ")},
			},
			text: "I bought elf makeup",
			want: []hit{},
		},
		{
			name: "partial ignore overlap still blocks",
			cfg: Config{
				IgnoreList: []string{"bought e*"},
				Categories: []Category{cat("a", "elf makeup")},
			},
			text: "I bought elf makeup",
			want: []hit{},
		},
		{
			name: "ignore elsewhere leaves match",
			cfg: Config{
				IgnoreList: []string{"makeup"},
				Categories: []Category{cat("a", " elf ")},
			},
			text: "I bought elf makeup",
			want: []hit{{"elf", "a"}},
		},
		{
			name: "wildcard stays in token",
			cfg:  Config{Categories: []Category{cat("a", "sh*t")}},
			text: "shit happens. This should never match",
			want: []hit{{"shit", "a"}},
		},
		{
			name: "multi-word wildcard short",
			cfg:  Config{Categories: []Category{cat("a", "took * days")}},
			text: "It took 5 days to arrive.",
			want: []hit{{"took 5 days", "a"}},
		},
		{
			name: "multi-word wildcard long",
			cfg:  Config{Categories: []Category{cat("a", "took * days")}},
			text: "It took several long days.",
			want: []hit{{"took several long days", "a"}},
		},
		{
			name: "exact flag",
			cfg:  Config{Categories: []Category{cat("a", "//HP")}},
			text: "My HP works, cheapness does not",
			want: []hit{{"HP", "a"}},
		},
		{
			name: "case sensitive",
			cfg:  Config{Categories: []Category{cat("a", "CS:HP")}},
			text: "My HP printer, the hp brand",
			want: []hit{{"HP", "a"}},
		},
		{
			name: "specific beats vague despite priority",
			cfg:  Config{Categories: []Category{cat("vague", "app*"), cat("specific", "apple")}},
			text: "apple pie",
			want: []hit{{"apple", "specific"}},
		},
		{
			name: "priority beats length",
			cfg:  Config{Categories: []Category{cat("first", "apple"), cat("second", "apple pie")}},
			text: "apple pie",
			want: []hit{{"apple", "first"}},
		},
		{
			name: "longer wins within a category",
			cfg:  Config{Categories: []Category{cat("a", "new", "new york", "york city")}},
			text: "new york city",
			want: []hit{{"new york", "a"}},
		},
		{
			name: "disabled category never matches",
			cfg: Config{Categories: []Category{
				{Name: "off", Enabled: false, Words: []string{"apple"}},
				cat("on", "pie"),
			}},
			text: "apple pie",
			want: []hit{{"pie", "on"}},
		},
		{
			name: "blank words are skipped",
			cfg:  Config{Categories: []Category{cat("blank", "", "   "), cat("a", "pie")}},
			text: "apple pie",
			want: []hit{{"pie", "a"}},
		},
		{
			name: "adjacent matches are both kept",
			cfg:  Config{Categories: []Category{cat("a", "ab"), cat("b", "cd")}},
			text: "abcd",
			want: []hit{{"ab", "a"}, {"cd", "b"}},
		},
		{
			name: "multibyte text",
			cfg:  Config{Categories: []Category{cat("a", "café", " naïve ")}},
			text: "Un Café très naïve.",
			want: []hit{{"Café", "a"}, {"naïve", "a"}},
		},
		{
			name: "question mark is one multibyte character",
			cfg:  Config{Categories: []Category{cat("a", "caf?")}},
			text: "un café noir",
			want: []hit{{"café", "a"}},
		},
		{
			name: "edge star runs through multibyte runes",
			cfg:  Config{Categories: []Category{cat("a", "amazon*")}},
			text: "amazoné is here",
			want: []hit{{"amazoné", "a"}},
		},
		{
			name: "symbols stay inside the token",
			cfg:  Config{Categories: []Category{cat("a", "amazon*", " deal ")}},
			text: "amazon$prime, $deal deal",
			want: []hit{{"amazon$prime", "a"}, {"deal", "a"}},
		},
		{
			name: "non-ASCII literal",
			cfg:  Config{Categories: []Category{cat("a", "naïve")}},
			text: "so naïve",
			want: []hit{{"naïve", "a"}},
		},
		{
			name: "dotted capital I",
			cfg:  Config{Categories: []Category{cat("a", "İstanbul")}},
			text: "to İstanbul.",
			want: []hit{{"İstanbul", "a"}},
		},
		{
			name: "empty config",
			cfg:  Config{},
			text: "anything at all",
			want: []hit{},
		},
		{
			name: "empty text",
			cfg:  Config{Categories: []Category{cat("a", "x")}},
			text: "",
			want: []hit{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forEngines(t, tt.cfg, func(t *testing.T, c *Compiled) {
				got := hits(tt.text, c.Scan(tt.text))
				if diff := cmp.Diff(tt.want, got); diff != "" {
					t.Errorf("Scan(%q) mismatch (-want +got):\n%s", tt.text, diff)
				}
			})
		})
	}
}

func TestScan_Metadata(t *testing.T) {
	c, err := Compile(Config{Categories: []Category{
		{ID: "7", Name: "fruit", Color: "#ff0", FColor: "#000", Enabled: true, Words: []string{"pear"}},
	}}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	got := Scan("a pear", c)
	want := []Match{{Start: 2, End: 6, CategoryID: "7", Category: "fruit", Color: "#ff0", FColor: "#000"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Scan mismatch (-want +got):\n%s", diff)
	}
}

var invariantConfig = Config{
	IgnoreList: []string{"not this", "//x"},
	Categories: []Category{
		cat("a", "th*", "is", " a ", "*ing"),
		cat("b", "this is", "s?n", "the * of"),
		cat("c", "CS:The", "in", "of the"),
		cat("d", "*"),
		cat("e", "caf?", "amazon*", "*é", "naïve", "x?y"),
	},
}

var invariantTexts = []string{
	"this is a test of the scanning thing",
	"The sun sings in the heart of the morning, not this x or x-ray.",
	"ééé this\tis\n\na sunny thing*?",
	strings.Repeat("the king of things ", 20),
	" ",
	"x",
	"un café noir, amazoné and naïve x€y",
	"éé?é*ü the thingé ofé the",
	"日本語 the 日本 of 語",
}

func TestScan_Invariants(t *testing.T) {
	forEngines(t, invariantConfig, func(t *testing.T, c *Compiled) {
		for _, text := range invariantTexts {
			ms := c.Scan(text)
			for i, m := range ms {
				if m.Start < 0 || m.End > len(text) || m.Start >= m.End {
					t.Errorf("%q: bad span [%d,%d)", text, m.Start, m.End)
				}
				if i > 0 && ms[i-1].End > m.Start {
					t.Errorf("%q: [%d,%d) overlaps [%d,%d)", text, ms[i-1].Start, ms[i-1].End, m.Start, m.End)
				}
				if !onRuneBoundary(text, m.Start) || !onRuneBoundary(text, m.End) {
					t.Errorf("%q: [%d,%d) splits a rune", text, m.Start, m.End)
				}
				if m.Start < m.End && m.End <= len(text) && !utf8.ValidString(text[m.Start:m.End]) {
					t.Errorf("%q: [%d,%d) is not valid UTF-8", text, m.Start, m.End)
				}
			}
		}
	})
}

func onRuneBoundary(text string, i int) bool {
	return i == len(text) || (i >= 0 && i < len(text) && utf8.RuneStart(text[i]))
}

func TestScan_UnicodeFolding(t *testing.T) {
	tests := []struct {
		word string
		text string
		want string
	}{
		{"kelvin", "\u212Aelvin", "\u212Aelvin"},
		{"sun", "ſun", "ſun"},
		{"café", "CAFÉ!", "CAFÉ"},
		{"ÉCOLE", "une école", "école"},
		{"naïve", "NAÏVE", "NAÏVE"},
	}
	for _, tt := range tests {
		c, err := Compile(Config{Categories: []Category{cat("a", tt.word)}}, Options{Engine: matcher.EngineRE2})
		if err != nil {
			t.Fatal(err)
		}
		got := hits(tt.text, c.Scan(tt.text))
		if diff := cmp.Diff([]hit{{tt.want, "a"}}, got); diff != "" {
			t.Errorf("%q in %q mismatch (-want +got):\n%s", tt.word, tt.text, diff)
		}
	}
}

func TestCompile_DropAndCollect(t *testing.T) {
	skipIfPCRE(t)
	opts := Options{Engine: matcher.EnginePCRE}
	cache := NewCache(1)
	for i := range 5 {
		cfg := Config{Categories: []Category{cat("a", fmt.Sprintf("word%d", i), " elf ")}}
		evicted, err := cache.Compile(cfg, opts)
		if err != nil {
			t.Fatal(err)
		}
		evicted.Scan("word1 elf word3")

		closed, err := Compile(cfg, opts)
		if err != nil {
			t.Fatal(err)
		}
		closed.Scan("word1 elf word3")
		closed.Close()
		closed.Close()
	}
	runtime.GC()
	runtime.GC()

	c, err := cache.Compile(Config{Categories: []Category{cat("a", "word4", " elf ")}}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(c.Scan("word4 elf")); got != 2 {
		t.Errorf("got %d matches after collection, want 2", got)
	}
}

func TestCompile_Idempotent(t *testing.T) {
	for _, engine := range []matcher.Engine{matcher.EngineRE2, matcher.EnginePCRE} {
		t.Run(string(engine), func(t *testing.T) {
			if engine == matcher.EnginePCRE {
				skipIfPCRE(t)
			}
			opts := Options{Engine: engine}
			first, err := Compile(invariantConfig, opts)
			if err != nil {
				t.Fatal(err)
			}
			second, err := Compile(invariantConfig, opts)
			if err != nil {
				t.Fatal(err)
			}
			for _, text := range invariantTexts {
				if diff := cmp.Diff(first.Scan(text), second.Scan(text)); diff != "" {
					t.Errorf("%q: results differ between compilations (-first +second):\n%s", text, diff)
				}
			}
		})
	}
}

func TestCompile_DensePriority(t *testing.T) {
	c, err := Compile(Config{Categories: []Category{
		{Name: "off", Words: []string{"x"}},
		cat("empty", " "),
		cat("first", "y"),
		cat("second", "z"),
	}}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if c.Categories() != 2 {
		t.Fatalf("got %d categories, want 2", c.Categories())
	}
	for i, want := range []string{"first", "second"} {
		got := c.categories[i]
		if got.name != want || got.priority != i {
			t.Errorf("category %d: got {%s, %d}, want {%s, %d}", i, got.name, got.priority, want, i)
		}
	}
	if c.HasIgnore() {
		t.Error("HasIgnore() = true for an empty ignore list")
	}
}

func TestCompile_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"unknown engine", Options{Engine: "onig"}},
		{"negative chunk size", Options{ChunkSize: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Compile(Config{}, tt.opts)
			if err == nil {
				t.Fatal("expected error")
			}
			if c != nil {
				t.Error("expected nil snapshot on error")
			}
		})
	}
}

func TestCompile_ChunkSize(t *testing.T) {
	var words []string
	for i := range 50 {
		words = append(words, fmt.Sprintf("w%02d", i))
	}
	cfg := Config{Categories: []Category{cat("a", words...)}}
	text := strings.Join(words, " ")
	forEngines(t, cfg, func(t *testing.T, whole *Compiled) {
		small, err := Compile(cfg, Options{ChunkSize: 7})
		if err != nil {
			t.Fatal(err)
		}
		if got, want := len(small.Scan(text)), len(whole.Scan(text)); got != want || got != 50 {
			t.Errorf("chunked: got %d matches, unchunked %d, want 50", got, want)
		}
	})
}

func TestScan_NilCompiled(t *testing.T) {
	var c *Compiled
	if got := Scan("text", c); got != nil {
		t.Errorf("got %v, want nil", got)
	}
	if c.Categories() != 0 || c.HasIgnore() {
		t.Error("nil snapshot reports content")
	}
	c.Close()
}

func TestScan_Concurrent(t *testing.T) {
	forEngines(t, invariantConfig, func(t *testing.T, c *Compiled) {
		text := strings.Join(invariantTexts, "\n")
		want := c.Scan(text)

		var wg sync.WaitGroup
		errc := make(chan string, 16)
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if diff := cmp.Diff(want, c.Scan(text)); diff != "" {
					errc <- diff
				}
			}()
		}
		wg.Wait()
		close(errc)
		for diff := range errc {
			t.Errorf("concurrent scan differs:\n%s", diff)
		}
	})
}

func BenchmarkScan(b *testing.B) {
	var words []string
	for i := range 2000 {
		words = append(words, fmt.Sprintf("term%d", i), fmt.Sprintf("pre%d*", i))
	}
	c, err := Compile(Config{Categories: []Category{cat("a", words...)}}, Options{})
	if err != nil {
		b.Fatal(err)
	}
	text := strings.Repeat("some ordinary prose with term42 and pre7fix inside ", 100)
	b.SetBytes(int64(len(text)))
	b.ResetTimer()
	for b.Loop() {
		c.Scan(text)
	}
}
