package input

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// Line is one line of a stream without its line terminator.
type Line struct {
	Data   []byte
	Num    int   // 1-based
	Offset int64 // byte offset of Data[0] in the stream
	Err    error
}

// Lines reads r line by line on a separate goroutine, so that endless inputs
// (a pipe from tail -f) are scanned as they arrive. Each Line owns its Data.
// A read error is delivered as a final Line with Err set.
func Lines(r io.Reader) <-chan Line {
	ch := make(chan Line, 256)
	go func() {
		defer close(ch)
		br := bufio.NewReaderSize(r, 64*1024)
		num := 0
		var offset int64
		for {
			raw, err := br.ReadBytes('\n')
			if len(raw) > 0 {
				num++
				data := bytes.TrimSuffix(raw, []byte{'\n'})
				data = bytes.TrimSuffix(data, []byte{'\r'})
				ch <- Line{Data: data, Num: num, Offset: offset}
				offset += int64(len(raw))
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					ch <- Line{Num: num, Offset: offset, Err: err}
				}
				return
			}
		}
	}()
	return ch
}
