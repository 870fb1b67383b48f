package output

// Formatter formats a Result into bytes for output.
// buf is a reusable buffer; implementations append to it and return the
// result, so callers can pass buf[:0] to avoid allocating.
type Formatter interface {
	Format(buf []byte, result Result, multiFile bool) []byte
}
