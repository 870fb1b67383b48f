package output

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dl/hilite/internal/engine"
)

// TextFormatter formats results as one line per match:
// [path:]line:column:category:text.
type TextFormatter struct {
	styles    Styles
	countOnly bool
	useColor  bool
	painted   map[[2]string]lipgloss.Style // by {color, fColor}
}

// NewTextFormatter creates a TextFormatter. A TextFormatter is used from a
// single goroutine.
func NewTextFormatter(styles Styles, countOnly bool, useColor bool) *TextFormatter {
	return &TextFormatter{
		styles:    styles,
		countOnly: countOnly,
		useColor:  useColor,
		painted:   make(map[[2]string]lipgloss.Style),
	}
}

func (f *TextFormatter) Format(buf []byte, result Result, multiFile bool) []byte {
	if result.Err != nil {
		return buf
	}

	if f.countOnly {
		if multiFile {
			buf = f.appendStyled(buf, f.styles.Filename, result.FilePath)
			buf = f.appendStyled(buf, f.styles.Separator, ":")
		}
		buf = strconv.AppendInt(buf, int64(len(result.Matches)), 10)
		return append(buf, '\n')
	}

	cur := newLineCursor(result.Data, result.FirstLine)
	for _, m := range result.Matches {
		line := cur.seek(m.Start)
		col := cur.column(m.Start)
		if multiFile {
			buf = f.appendStyled(buf, f.styles.Filename, result.FilePath)
			buf = f.appendStyled(buf, f.styles.Separator, ":")
		}
		buf = f.appendStyled(buf, f.styles.LineNum, strconv.Itoa(line))
		buf = f.appendStyled(buf, f.styles.Separator, ":")
		buf = strconv.AppendInt(buf, int64(col), 10)
		buf = f.appendStyled(buf, f.styles.Separator, ":")
		buf = f.appendStyled(buf, f.styles.Category, m.Category)
		buf = f.appendStyled(buf, f.styles.Separator, ":")
		buf = f.appendStyled(buf, f.paint(m), displayText(result.Data[m.Start:m.End]))
		buf = append(buf, '\n')
	}
	return buf
}

func (f *TextFormatter) appendStyled(buf []byte, st lipgloss.Style, s string) []byte {
	if !f.useColor || s == "" {
		return append(buf, s...)
	}
	return append(buf, st.Render(s)...)
}

func (f *TextFormatter) paint(m engine.Match) lipgloss.Style {
	key := [2]string{m.Color, m.FColor}
	st, ok := f.painted[key]
	if !ok {
		st = f.styles.matchStyle(m.Color, m.FColor)
		f.painted[key] = st
	}
	return st
}

// displayText keeps a match on one output line: whitespace runs, including
// line breaks inside multi-word matches, become a single space.
func displayText(b []byte) string {
	s := string(b)
	if !strings.ContainsAny(s, "\t\n\v\f\r") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}

// Ensure TextFormatter implements Formatter.
var _ Formatter = (*TextFormatter)(nil)
