// Package walker lists the files hilite annotates. Directory trees are read
// with raw getdents64 by a pool of workers, honoring .gitignore and
// .hiliteignore files and skipping hidden and binary-looking entries.
package walker

import (
	"errors"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ErrIsDirectory is reported for a directory given without Recursive.
var ErrIsDirectory = errors.New("is a directory")

// FileEntry is a file discovered during traversal.
type FileEntry struct {
	Path string
}

// Options configures traversal.
type Options struct {
	Recursive bool
	NoIgnore  bool     // skip .gitignore and .hiliteignore processing
	Hidden    bool     // include hidden files and directories
	Exclude   []string // gitignore-style globs, relative to each root
	Workers   int      // 0 means runtime.NumCPU()
}

// WalkError is an error tied to one path. Traversal continues after it.
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return "walk " + e.Path + ": " + e.Err.Error()
}

func (e *WalkError) Unwrap() error {
	return e.Err
}

// Walk sends every file under roots on the returned channel. Without
// Recursive, roots are taken as file paths and directories are reported as
// errors. Both channels are closed when traversal ends; callers must drain
// the error channel or size their reads so the walk is not blocked on it.
func Walk(roots []string, opts Options) (<-chan FileEntry, <-chan error) {
	fileCh := make(chan FileEntry, 256)
	errCh := make(chan error, 16)

	go func() {
		defer close(fileCh)
		defer close(errCh)

		if !opts.Recursive {
			for _, root := range roots {
				var stat unix.Stat_t
				if err := unix.Stat(root, &stat); err != nil {
					errCh <- &WalkError{Path: root, Err: err}
					continue
				}
				switch stat.Mode & unix.S_IFMT {
				case unix.S_IFDIR:
					errCh <- &WalkError{Path: root, Err: ErrIsDirectory}
				default:
					fileCh <- FileEntry{Path: root}
				}
			}
			return
		}

		w := &treeWalker{
			fileCh:  fileCh,
			errCh:   errCh,
			opts:    opts,
			exclude: newExcludeMatcher(opts.Exclude),
		}
		w.cond = sync.NewCond(&w.mu)

		for _, root := range roots {
			var stat unix.Stat_t
			if err := unix.Stat(root, &stat); err != nil {
				errCh <- &WalkError{Path: root, Err: err}
				continue
			}
			if stat.Mode&unix.S_IFMT != unix.S_IFDIR {
				// Explicit files bypass hidden and ignore filtering.
				fileCh <- FileEntry{Path: root}
				continue
			}
			var layers []ignoreLayer
			if !opts.NoIgnore {
				layers = pushLayer(nil, root)
			}
			w.enqueue(dirItem{root: root, path: root, ignores: layers})
		}
		if w.pending == 0 {
			return
		}

		workers := opts.Workers
		if workers <= 0 {
			workers = runtime.NumCPU()
		}
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.work()
			}()
		}
		wg.Wait()
	}()

	return fileCh, errCh
}

// dirItem is a directory waiting to be read.
type dirItem struct {
	root    string
	path    string
	ignores []ignoreLayer
}

// treeWalker coordinates a breadth-first traversal shared by all workers.
type treeWalker struct {
	fileCh  chan<- FileEntry
	errCh   chan<- error
	opts    Options
	exclude *excludeMatcher

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []dirItem
	pending int // enqueued but not yet fully read
}

func (w *treeWalker) enqueue(items ...dirItem) {
	if len(items) == 0 {
		return
	}
	w.mu.Lock()
	w.queue = append(w.queue, items...)
	w.pending += len(items)
	w.mu.Unlock()
	w.cond.Broadcast()
}

// next blocks until an item is available. It returns false once every
// directory has been read.
func (w *treeWalker) next() (dirItem, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.queue) == 0 && w.pending > 0 {
		w.cond.Wait()
	}
	if len(w.queue) == 0 {
		return dirItem{}, false
	}
	item := w.queue[0]
	w.queue = w.queue[1:]
	return item, true
}

func (w *treeWalker) done() {
	w.mu.Lock()
	w.pending--
	last := w.pending == 0
	w.mu.Unlock()
	if last {
		w.cond.Broadcast()
	}
}

func (w *treeWalker) work() {
	buf := make([]byte, 32*1024)
	for {
		item, ok := w.next()
		if !ok {
			return
		}
		// Children are queued after the directory fd is closed, so open fds
		// stay bounded by the worker count.
		w.enqueue(w.readDir(item, buf)...)
		w.done()
	}
}

func (w *treeWalker) readDir(item dirItem, buf []byte) []dirItem {
	fd, err := unix.Open(item.path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC|unix.O_NOATIME, 0)
	if err != nil {
		fd, err = unix.Open(item.path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
		if err != nil {
			w.errCh <- &WalkError{Path: item.path, Err: err}
			return nil
		}
	}
	defer unix.Close(fd)

	var subdirs []dirItem
	for {
		n, err := unix.Getdents(fd, buf)
		if err != nil {
			w.errCh <- &WalkError{Path: item.path, Err: err}
			return subdirs
		}
		if n == 0 {
			return subdirs
		}
		for name, typ := range dirents(buf, n) {
			path := joinPath(item.path, name)
			switch w.classify(item, name, path, typ) {
			case kindFile:
				w.fileCh <- FileEntry{Path: path}
			case kindDir:
				child := dirItem{root: item.root, path: path, ignores: item.ignores}
				if !w.opts.NoIgnore {
					child.ignores = pushLayer(item.ignores, path)
				}
				subdirs = append(subdirs, child)
			}
		}
	}
}

type entryKind int

const (
	kindSkip entryKind = iota
	kindFile
	kindDir
)

// classify decides what to do with one directory entry. Symlinks and entries
// of unknown type are resolved with stat; broken links are skipped.
func (w *treeWalker) classify(item dirItem, name, path string, typ uint8) entryKind {
	kind := kindSkip
	switch typ {
	case dtReg:
		kind = kindFile
	case dtDir:
		kind = kindDir
	case dtLnk, dtUnknown:
		var stat unix.Stat_t
		if err := unix.Stat(path, &stat); err != nil {
			if typ == dtUnknown {
				w.errCh <- &WalkError{Path: path, Err: err}
			}
			return kindSkip
		}
		switch stat.Mode & unix.S_IFMT {
		case unix.S_IFREG:
			kind = kindFile
		case unix.S_IFDIR:
			kind = kindDir
		}
	}
	if kind == kindSkip {
		return kindSkip
	}

	isDir := kind == kindDir
	if isDir && isVCSDir(name) {
		return kindSkip
	}
	if !w.opts.Hidden && name[0] == '.' {
		return kindSkip
	}
	if !isDir && IsBinaryExtension(name) {
		return kindSkip
	}
	if w.exclude.match(item.root, path, isDir) {
		return kindSkip
	}
	if ignored(item.ignores, path, isDir) {
		return kindSkip
	}
	return kind
}

func isVCSDir(name string) bool {
	switch name {
	case ".git", ".svn", ".hg":
		return true
	}
	return false
}

// joinPath concatenates a directory and entry name with a single separator
// in one allocation. Inputs are already clean.
func joinPath(dir, name string) string {
	sep := len(dir) == 0 || dir[len(dir)-1] != '/'
	n := len(dir) + len(name)
	if sep {
		n++
	}
	buf := make([]byte, n)
	i := copy(buf, dir)
	if sep {
		buf[i] = '/'
		i++
	}
	copy(buf[i:], name)
	return unsafe.String(&buf[0], len(buf))
}
