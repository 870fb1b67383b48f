package output

import "github.com/dl/hilite/internal/engine"

// Result aggregates the matches found in one input.
type Result struct {
	FilePath string
	SeqNum   int
	// Data is the scanned content. Match offsets index into it.
	Data []byte
	// FirstLine is the line number of Data[0] and Offset its byte offset in
	// the input. Appended chunks and streamed lines set them to continue the
	// numbering; zero values mean the start of the input.
	FirstLine int
	Offset    int64
	Matches   []engine.Match
	Err       error
	// Closer releases the buffer Data points into. It must be called after
	// the result has been formatted.
	Closer func() error
}

// Count returns the number of matches in this result.
func (r *Result) Count() int {
	return len(r.Matches)
}

// HasMatch returns true if this result has at least one match.
func (r *Result) HasMatch() bool {
	return r.Err == nil && len(r.Matches) > 0
}

// Release calls Closer once and drops the reference to Data.
func (r *Result) Release() {
	if r.Closer != nil {
		r.Closer()
		r.Closer = nil
	}
	r.Data = nil
}
