package matcher

import (
	"strings"
	"testing"

	"github.com/dl/hilite/internal/pattern"
)

func TestRequiredLiteral(t *testing.T) {
	tests := []struct {
		raw  string
		fold bool
		want string
	}{
		{"hello", true, "hello"},
		{"new york", true, "new"},
		{"sh*t", false, "sh"},
		{"sh*t", true, "h"},
		{"took * days", true, "too"},
		{"colo?r", true, "colo"},
		{"LIT:5*", true, "5*"},
		{"*", true, ""},
		{"CS:Straße", false, "Straße"},
		{"café", true, "caf"},
		{"kiss", true, "i"},
	}
	for _, tt := range tests {
		e, ok := pattern.Parse(tt.raw)
		if !ok {
			t.Fatalf("Parse(%q) rejected", tt.raw)
		}
		if got := requiredLiteral(e, tt.fold); got != tt.want {
			t.Errorf("requiredLiteral(%q, fold=%v) = %q, want %q", tt.raw, tt.fold, got, tt.want)
		}
	}
}

func TestLiteralPrefilter(t *testing.T) {
	p := newLiteralPrefilter(entries(t, "apple", "cherry"), false)
	if p == nil {
		t.Fatal("prefilter not built")
	}
	fold := func(text []byte) func() []byte {
		return func() []byte { return asciiLower(text) }
	}
	tests := []struct {
		text string
		want bool
	}{
		{"an apple a day", true},
		{"cherry pie", true},
		{"APPLE", true},
		{"banana split", false},
		{"", false},
	}
	for _, tt := range tests {
		text := []byte(tt.text)
		if got := p.mayMatch(text, fold(text)); got != tt.want {
			t.Errorf("mayMatch(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}

	cs := newLiteralPrefilter(entries(t, "CS:Apple"), true)
	if cs.mayMatch([]byte("apple"), fold([]byte("apple"))) {
		t.Error("case-sensitive prefilter accepted different case")
	}

	if p := newLiteralPrefilter(entries(t, "apple", "*"), false); p != nil {
		t.Error("prefilter built for a chunk with a literal-free fragment")
	}
	var none *literalPrefilter
	if !none.mayMatch([]byte("x"), nil) {
		t.Error("nil prefilter must accept every text")
	}
}

// The prefilter must never hide an occurrence the expression would find.
func TestLiteralPrefilter_FoldedRunes(t *testing.T) {
	tests := []struct {
		word string
		text string
	}{
		// U+212A KELVIN SIGN folds to k.
		{"kelvin", "Kelvin"},
		// U+017F LATIN SMALL LETTER LONG S folds to s.
		{"sun", "ſun"},
		{"ÉCOLE", "école"},
	}
	for _, tt := range tests {
		groups, _ := NewGroups(entries(t, tt.word), Options{})
		if got := Scan(tt.text, groups[0], Tag{}); len(got) != 1 {
			t.Errorf("scan %q for %q: got %d matches, want 1", tt.text, tt.word, len(got))
		}
	}
}

func TestAsciiLower(t *testing.T) {
	in := "ÀB cDK"
	got := string(asciiLower([]byte(in)))
	if want := "Àb cdK"; got != want {
		t.Errorf("asciiLower(%q) = %q, want %q", in, got, want)
	}
	if len(got) != len(in) {
		t.Errorf("length changed: got %d, want %d", len(got), len(in))
	}
}

func BenchmarkPrefilter_NoMatch(b *testing.B) {
	var raw []string
	for i := range 200 {
		raw = append(raw, "term"+strings.Repeat("x", i%7)+"q")
	}
	var es []pattern.Entry
	for _, r := range raw {
		e, _ := pattern.Parse(r)
		es = append(es, e)
	}
	groups, _ := NewGroups(es, Options{})
	text := []byte(strings.Repeat("nothing to see here ", 500))
	b.SetBytes(int64(len(text)))
	b.ResetTimer()
	for b.Loop() {
		NewScanner(text).Append(nil, groups[0], Tag{})
	}
}
