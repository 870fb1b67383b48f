package output

import (
	"encoding/json"
)

// JSONFormatter formats results as JSON Lines (one JSON object per match).
type JSONFormatter struct{}

// NewJSONFormatter creates a JSONFormatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// jsonMatch is the JSON serialization format for a match.
type jsonMatch struct {
	Type       string `json:"type"`
	File       string `json:"file,omitempty"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	Start      int64  `json:"start"`
	End        int64  `json:"end"`
	Category   string `json:"category"`
	CategoryID string `json:"categoryId,omitempty"`
	Color      string `json:"color,omitempty"`
	FColor     string `json:"fColor,omitempty"`
	Text       string `json:"text"`
}

// jsonCount is emitted once per input in count mode.
type jsonCount struct {
	Type  string `json:"type"`
	File  string `json:"file,omitempty"`
	Count int    `json:"count"`
}

// Format writes one object per match. Start and End are byte offsets into
// the input; Line and Column are 1-based, Column counted in runes.
func (f *JSONFormatter) Format(buf []byte, result Result, multiFile bool) []byte {
	if result.Err != nil || len(result.Matches) == 0 {
		return buf
	}

	cur := newLineCursor(result.Data, result.FirstLine)
	for _, m := range result.Matches {
		line := cur.seek(m.Start)
		jm := jsonMatch{
			Type:       "match",
			File:       result.FilePath,
			Line:       line,
			Column:     cur.column(m.Start),
			Start:      result.Offset + int64(m.Start),
			End:        result.Offset + int64(m.End),
			Category:   m.Category,
			CategoryID: m.CategoryID,
			Color:      m.Color,
			FColor:     m.FColor,
			Text:       string(result.Data[m.Start:m.End]),
		}
		data, _ := json.Marshal(jm)
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}
	return buf
}

// JSONCountFormatter formats per-input match counts as JSON Lines.
type JSONCountFormatter struct{}

func (JSONCountFormatter) Format(buf []byte, result Result, multiFile bool) []byte {
	if result.Err != nil {
		return buf
	}
	data, _ := json.Marshal(jsonCount{Type: "count", File: result.FilePath, Count: len(result.Matches)})
	buf = append(buf, data...)
	return append(buf, '\n')
}

// Ensure the JSON formatters implement Formatter.
var (
	_ Formatter = (*JSONFormatter)(nil)
	_ Formatter = JSONCountFormatter{}
)
