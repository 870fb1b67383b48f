package output

import (
	"bytes"
	"unicode/utf8"
)

// walkLimit is the gap below which the cursor steps line by line instead of
// counting newlines in one pass.
const walkLimit = 256

// lineCursor maps ascending byte offsets to line and column numbers.
type lineCursor struct {
	data      []byte
	line      int // number of the line starting at lineStart
	lineStart int
	lineEnd   int // offset of the terminating '\n', or len(data)
}

func newLineCursor(data []byte, firstLine int) lineCursor {
	if firstLine <= 0 {
		firstLine = 1
	}
	c := lineCursor{data: data, line: firstLine}
	c.lineEnd = c.endFrom(0)
	return c
}

func (c *lineCursor) endFrom(pos int) int {
	if i := bytes.IndexByte(c.data[pos:], '\n'); i >= 0 {
		return pos + i
	}
	return len(c.data)
}

// seek moves to the line containing pos and returns its number. pos must not
// be smaller than in the previous call.
func (c *lineCursor) seek(pos int) int {
	if pos <= c.lineEnd {
		return c.line
	}

	if pos-c.lineEnd <= walkLimit {
		for pos > c.lineEnd && c.lineEnd < len(c.data) {
			c.lineStart = c.lineEnd + 1
			c.line++
			c.lineEnd = c.endFrom(c.lineStart)
		}
		return c.line
	}

	// Large gap: count the skipped newlines and find the enclosing line
	// directly.
	gap := c.data[c.lineEnd:pos]
	c.line += bytes.Count(gap, []byte{'\n'})
	c.lineStart = c.lineEnd + bytes.LastIndexByte(gap, '\n') + 1
	c.lineEnd = c.endFrom(pos)
	return c.line
}

// column returns the 1-based rune column of pos on the current line.
func (c *lineCursor) column(pos int) int {
	return utf8.RuneCount(c.data[c.lineStart:pos]) + 1
}
