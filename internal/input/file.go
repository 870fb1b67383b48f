package input

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultMmapThreshold is the file size from which FileReader maps files
// instead of copying them.
const DefaultMmapThreshold = 4 << 20

// bufPool pools read buffers to reduce per-file heap allocations.
// Buffers are stored as *[]byte so the pool can reuse the backing array
// even when the slice grows beyond its original capacity.
var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 64*1024)
		return &b
	},
}

// FileReader opens a file once, stats it with fstat and then either copies it
// into a pooled buffer with pread or memory-maps it, depending on its size.
// Files that are not regular (pipes, character devices) are read to EOF.
type FileReader struct {
	mmapThreshold int64
}

// NewFileReader creates a FileReader. mmapThreshold <= 0 selects
// DefaultMmapThreshold.
func NewFileReader(mmapThreshold int64) *FileReader {
	if mmapThreshold <= 0 {
		mmapThreshold = DefaultMmapThreshold
	}
	return &FileReader{mmapThreshold: mmapThreshold}
}

func (r *FileReader) Read(path string) (ReadResult, error) {
	fd, err := openFile(path)
	if err != nil {
		return ReadResult{}, fmt.Errorf("open %s: %w", path, err)
	}

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return ReadResult{}, fmt.Errorf("stat %s: %w", path, err)
	}

	switch {
	case stat.Mode&unix.S_IFMT != unix.S_IFREG:
		f := os.NewFile(uintptr(fd), path)
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return ReadResult{}, fmt.Errorf("read %s: %w", path, err)
		}
		return ReadResult{Data: data, Closer: noopCloser}, nil
	case stat.Size == 0:
		unix.Close(fd)
		return ReadResult{Closer: noopCloser}, nil
	case stat.Size >= r.mmapThreshold:
		return readMapped(fd, stat.Size)
	}
	return readPooled(fd, stat.Size)
}

// readPooled reads a file from an open fd into a pooled buffer. It takes
// ownership of fd.
func readPooled(fd int, size int64) (ReadResult, error) {
	defer unix.Close(fd)

	bp := bufPool.Get().(*[]byte)
	buf := *bp
	if int64(cap(buf)) < size {
		buf = make([]byte, size)
	} else {
		buf = buf[:size]
	}
	release := func() error {
		*bp = buf[:0]
		bufPool.Put(bp)
		return nil
	}

	// pread keeps no seek state; a file that shrank since fstat ends early.
	n := 0
	for int64(n) < size {
		m, err := unix.Pread(fd, buf[n:], int64(n))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			release()
			return ReadResult{}, err
		}
		if m == 0 {
			break
		}
		n += m
	}
	return ReadResult{Data: buf[:n], Closer: release}, nil
}

// readMapped memory-maps an open fd of known size, falling back to a copy
// when mmap fails. It takes ownership of fd.
func readMapped(fd int, size int64) (ReadResult, error) {
	unix.Fadvise(fd, 0, size, unix.FADV_SEQUENTIAL)

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE|unix.MAP_POPULATE)
	if err != nil {
		return readPooled(fd, size)
	}
	unix.Madvise(data, unix.MADV_SEQUENTIAL)
	unix.Close(fd)

	return ReadResult{
		Data: data,
		Closer: func() error {
			return unix.Munmap(data)
		},
	}, nil
}

// openFile opens a file with O_NOATIME, falling back without it.
func openFile(path string) (int, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC|unix.O_NOATIME, 0)
	if err != nil {
		fd, err = unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	}
	return fd, err
}
