// Package watch follows files as they grow, using raw inotify and epoll.
// It backs hilite's --watch mode: appended lines are annotated as they are
// written, and the highlight config is reloaded when it changes.
package watch

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// Event is a change to a watched path.
type Event struct {
	Path string
	Type EventType
	Err  error
}

// EventType identifies the kind of change.
type EventType int

const (
	EventModified EventType = iota
	EventCreated
	EventDeleted
)

func (t EventType) String() string {
	switch t {
	case EventModified:
		return "modified"
	case EventCreated:
		return "created"
	case EventDeleted:
		return "deleted"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Chunk is newly appended content of a followed file, cut at the last
// complete line.
type Chunk struct {
	Data      []byte
	FirstLine int   // 1-based line number of Data[0]
	Offset    int64 // byte offset of Data[0] in the file
}

// tail tracks how far a followed file has been consumed.
type tail struct {
	offset int64 // next byte to read
	line   int   // line number at offset
}

// Watcher watches files and directories for changes.
type Watcher struct {
	inotifyFd int
	epollFd   int
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	watches map[int]string // wd -> path
	tails   map[string]*tail
}

// New creates a watcher.
func New() (*Watcher, error) {
	ifd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}

	efd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		unix.Close(ifd)
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}

	event := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(ifd)}
	if err := unix.EpollCtl(efd, unix.EPOLL_CTL_ADD, ifd, &event); err != nil {
		unix.Close(efd)
		unix.Close(ifd)
		return nil, fmt.Errorf("epoll_ctl: %w", err)
	}

	return &Watcher{
		inotifyFd: ifd,
		epollFd:   efd,
		done:      make(chan struct{}),
		watches:   make(map[int]string),
		tails:     make(map[string]*tail),
	}, nil
}

const watchMask = unix.IN_MODIFY | unix.IN_CLOSE_WRITE | unix.IN_CREATE |
	unix.IN_MOVED_TO | unix.IN_MOVE_SELF | unix.IN_DELETE_SELF

// Add watches path. A file is followed from its current end; see ReadNew.
// A directory reports files created or renamed into it.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	wd, err := unix.InotifyAddWatch(w.inotifyFd, abs, watchMask)
	if err != nil {
		return fmt.Errorf("inotify_add_watch %s: %w", abs, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.watches[wd] = abs
	if _, ok := w.tails[abs]; !ok {
		var stat unix.Stat_t
		if err := unix.Stat(abs, &stat); err == nil && stat.Mode&unix.S_IFMT == unix.S_IFREG {
			w.tails[abs] = &tail{offset: stat.Size, line: 1 + countLines(abs, stat.Size)}
		}
	}
	return nil
}

// Follow starts following path from its beginning, for files created while
// watching.
func (w *Watcher) Follow(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(abs); err != nil {
		return err
	}
	w.mu.Lock()
	w.tails[abs] = &tail{line: 1}
	w.mu.Unlock()
	return nil
}

// Events returns a channel of events. It is closed after Close.
func (w *Watcher) Events() <-chan Event {
	ch := make(chan Event, 64)
	go func() {
		defer close(ch)
		buf := make([]byte, 4096)
		events := make([]unix.EpollEvent, 1)

		for {
			select {
			case <-w.done:
				return
			default:
			}

			n, err := unix.EpollWait(w.epollFd, events, 100)
			if err != nil {
				if err == unix.EINTR {
					continue
				}
				w.send(ch, Event{Err: fmt.Errorf("epoll_wait: %w", err)})
				return
			}
			if n == 0 {
				continue
			}

			nbytes, err := unix.Read(w.inotifyFd, buf)
			if err != nil {
				if err == unix.EAGAIN {
					continue
				}
				w.send(ch, Event{Err: fmt.Errorf("read inotify: %w", err)})
				return
			}
			for _, ev := range w.parseEvents(buf[:nbytes]) {
				if !w.send(ch, ev) {
					return
				}
			}
		}
	}()
	return ch
}

func (w *Watcher) send(ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-w.done:
		return false
	}
}

// inotify event header layout:
//
//	int32  wd       (offset 0)
//	uint32 mask     (offset 4)
//	uint32 cookie   (offset 8)
//	uint32 len      (offset 12)
//	char   name[]   (offset 16)
const inotifyEventSize = 16

func (w *Watcher) parseEvents(buf []byte) []Event {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []Event
	for off := 0; off+inotifyEventSize <= len(buf); {
		wd := int32(binary.LittleEndian.Uint32(buf[off:]))
		mask := binary.LittleEndian.Uint32(buf[off+4:])
		nameLen := int(binary.LittleEndian.Uint32(buf[off+12:]))
		nameStart := off + inotifyEventSize
		if nameStart+nameLen > len(buf) {
			break
		}
		name := string(bytes.TrimRight(buf[nameStart:nameStart+nameLen], "\x00"))
		off = nameStart + nameLen

		path := w.watches[int(wd)]
		if name != "" {
			path = filepath.Join(path, name)
		}

		switch {
		case mask&(unix.IN_CREATE|unix.IN_MOVED_TO) != 0:
			out = append(out, Event{Path: path, Type: EventCreated})
		case mask&(unix.IN_MODIFY|unix.IN_CLOSE_WRITE) != 0:
			out = append(out, Event{Path: path, Type: EventModified})
		case mask&(unix.IN_DELETE_SELF|unix.IN_MOVE_SELF) != 0:
			out = append(out, Event{Path: path, Type: EventDeleted})
		}
	}
	return out
}

// ReadNew returns the complete lines appended to path since the previous
// call. A trailing partial line stays unread until its newline arrives. A
// file that shrank is assumed rotated and is read again from the start.
// Paths that are not followed return a zero Chunk.
func (w *Watcher) ReadNew(path string) (Chunk, error) {
	w.mu.Lock()
	t, ok := w.tails[path]
	w.mu.Unlock()
	if !ok {
		return Chunk{}, nil
	}

	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC|unix.O_NOATIME, 0)
	if err != nil {
		fd, err = unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
		if err != nil {
			return Chunk{}, err
		}
	}
	defer unix.Close(fd)

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return Chunk{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if stat.Size < t.offset {
		t.offset, t.line = 0, 1
	}
	if stat.Size == t.offset {
		return Chunk{}, nil
	}

	buf := make([]byte, stat.Size-t.offset)
	n, err := unix.Pread(fd, buf, t.offset)
	if err != nil {
		return Chunk{}, err
	}
	buf = buf[:n]
	end := bytes.LastIndexByte(buf, '\n')
	if end < 0 {
		return Chunk{}, nil
	}
	buf = buf[:end+1]

	c := Chunk{Data: buf, FirstLine: t.line, Offset: t.offset}
	t.offset += int64(len(buf))
	t.line += bytes.Count(buf, []byte{'\n'})
	return c, nil
}

// countLines counts newlines in the first size bytes of path. Errors count
// as zero lines; line numbers are then relative to the watch start.
func countLines(path string, size int64) int {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return 0
	}
	defer unix.Close(fd)

	buf := make([]byte, 64*1024)
	lines := 0
	for off := int64(0); off < size; {
		n, err := unix.Pread(fd, buf[:min(int64(len(buf)), size-off)], off)
		if err != nil || n == 0 {
			break
		}
		lines += bytes.Count(buf[:n], []byte{'\n'})
		off += int64(n)
	}
	return lines
}

// Close stops the watcher and releases its descriptors. It is safe to call
// more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		unix.Close(w.epollFd)
		err = unix.Close(w.inotifyFd)
	})
	return err
}
