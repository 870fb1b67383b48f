// Package scheduler annotates files concurrently with a pool of workers.
package scheduler

import (
	"runtime"
	"sync"

	"github.com/dl/hilite/internal/engine"
	"github.com/dl/hilite/internal/input"
	"github.com/dl/hilite/internal/output"
	"github.com/dl/hilite/internal/walker"
)

// Snapshot returns the compiled configuration to scan with. It is called
// once per file, so a watcher may swap in a new snapshot between files.
type Snapshot func() *engine.Compiled

// Scheduler manages a pool of workers that scan files concurrently.
type Scheduler struct {
	workers  int
	reader   input.Reader
	snapshot Snapshot
}

// New creates a Scheduler. workers <= 0 selects NumCPU * 2.
func New(workers int, r input.Reader, snapshot Snapshot) *Scheduler {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	return &Scheduler{workers: workers, reader: r, snapshot: snapshot}
}

// Run scans the files received on files and sends one result per file.
// SeqNum follows the order files were received, starting at 1, so results
// can be written in order. Each result keeps its file data alive until the
// receiver calls Release.
func (s *Scheduler) Run(files <-chan walker.FileEntry) <-chan output.Result {
	resultCh := make(chan output.Result, s.workers*2)
	var (
		mu  sync.Mutex // pairs sequence assignment with the receive
		seq int
	)

	var wg sync.WaitGroup
	for range s.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				mu.Lock()
				entry, ok := <-files
				seq++
				seqNum := seq
				mu.Unlock()
				if !ok {
					return
				}
				result := s.ScanFile(entry.Path)
				result.SeqNum = seqNum
				resultCh <- result
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	return resultCh
}

// ScanFile reads and scans one file. Binary files yield a result with no
// matches.
func (s *Scheduler) ScanFile(path string) output.Result {
	result := output.Result{FilePath: path}

	rr, err := s.reader.Read(path)
	if err != nil {
		result.Err = err
		return result
	}
	if rr.Data == nil || walker.IsBinary(rr.Data) {
		if rr.Closer != nil {
			rr.Closer()
		}
		return result
	}

	result.Data = rr.Data
	result.Closer = rr.Closer
	result.Matches = s.snapshot().ScanBytes(rr.Data)
	return result
}
