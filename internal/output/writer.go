package output

import (
	"golang.org/x/sys/unix"
)

// Writer writes formatted output to a file descriptor with write(2),
// bypassing os.File buffering so output from one result is never split.
type Writer struct {
	fd int
}

// NewWriter creates a Writer for fd (normally stdout).
func NewWriter(fd int) *Writer {
	return &Writer{fd: fd}
}

// Write writes all of data, retrying on short writes and EINTR.
func (w *Writer) Write(data []byte) (int, error) {
	total := 0
	for len(data) > 0 {
		n, err := unix.Write(w.fd, data)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return total, err
		}
		total += n
		data = data[n:]
	}
	return total, nil
}

// OrderedWriter receives results from a channel and writes them in sequence
// order, so output is deterministic even with parallel workers.
type OrderedWriter struct {
	writer    *Writer
	formatter Formatter
	multiFile bool
	buf       []byte
}

// NewOrderedWriter creates an OrderedWriter.
func NewOrderedWriter(w *Writer, f Formatter, multiFile bool) *OrderedWriter {
	return &OrderedWriter{
		writer:    w,
		formatter: f,
		multiFile: multiFile,
	}
}

// WriteOrdered consumes results, buffering out-of-order ones, and writes them
// by SeqNum starting at 1. Each result is released once written. onResult, if
// set, sees every result in sequence order before it is released; it is
// where callers count matches and report per-file errors.
func (ow *OrderedWriter) WriteOrdered(results <-chan Result, onResult func(*Result)) error {
	next := 1
	pending := make(map[int]Result)
	var firstErr error

	emit := func(r Result) {
		if onResult != nil {
			onResult(&r)
		}
		if err := ow.WriteResult(r); err != nil && firstErr == nil {
			firstErr = err
		}
		r.Release()
	}

	for r := range results {
		if r.SeqNum != next {
			pending[r.SeqNum] = r
			continue
		}
		emit(r)
		next++
		for {
			p, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			emit(p)
			next++
		}
	}
	return firstErr
}

// WriteResult formats and writes one result without releasing it.
func (ow *OrderedWriter) WriteResult(r Result) error {
	if r.Err != nil {
		return nil
	}
	ow.buf = ow.formatter.Format(ow.buf[:0], r, ow.multiFile)
	if len(ow.buf) == 0 {
		return nil
	}
	_, err := ow.writer.Write(ow.buf)
	return err
}
