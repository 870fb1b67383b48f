package input

import (
	"io"
	"os"
)

// StdinReader reads all of its source, stdin unless told otherwise. The path
// argument of Read is ignored.
type StdinReader struct {
	src io.Reader
}

// NewStdinReader creates a StdinReader over os.Stdin.
func NewStdinReader() *StdinReader {
	return &StdinReader{src: os.Stdin}
}

// NewReaderFrom creates a StdinReader over src.
func NewReaderFrom(src io.Reader) *StdinReader {
	return &StdinReader{src: src}
}

func (r *StdinReader) Read(_ string) (ReadResult, error) {
	data, err := io.ReadAll(r.src)
	if err != nil {
		return ReadResult{}, err
	}
	return ReadResult{Data: data, Closer: noopCloser}, nil
}
