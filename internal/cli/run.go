package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/VictoriaMetrics/metrics"
	"github.com/charmbracelet/log"

	"github.com/dl/hilite/internal/engine"
	"github.com/dl/hilite/internal/input"
	"github.com/dl/hilite/internal/matcher"
	"github.com/dl/hilite/internal/output"
	"github.com/dl/hilite/internal/scheduler"
	"github.com/dl/hilite/internal/walker"
	"github.com/dl/hilite/internal/watch"
)

// Exit codes.
const (
	ExitMatch   = 0
	ExitNoMatch = 1
	ExitError   = 2
)

// Streams are the process resources a run uses.
type Streams struct {
	Stdin  io.Reader
	Stdout int // file descriptor
	Stderr io.Writer
	// Done stops a --watch run when closed. Nil means never.
	Done <-chan struct{}
}

// Run executes hilite with the given config against the process streams,
// stopping a --watch run on SIGINT or SIGTERM.
// Returns exit code: 0 = match found, 1 = no match, 2 = error.
func Run(cfg Config) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunWith(cfg, Streams{
		Stdin:  os.Stdin,
		Stdout: int(os.Stdout.Fd()),
		Stderr: os.Stderr,
		Done:   ctx.Done(),
	})
}

// RunWith is Run with explicit streams.
func RunWith(cfg Config, st Streams) int {
	logger := log.NewWithOptions(st.Stderr, log.Options{
		Level: log.WarnLevel,
	})
	if cfg.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if err := ApplyEnv(&cfg); err != nil {
		logger.Error("invalid environment", "err", err)
		return ExitError
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid arguments", "err", err)
		return ExitError
	}

	r := &runner{
		cfg:    cfg,
		st:     st,
		logger: logger,
		cache:  engine.NewCache(4),
		writer: output.NewWriter(st.Stdout),
	}
	code := r.run()
	if cfg.Metrics {
		metrics.WritePrometheus(st.Stderr, false)
	}
	return code
}

type runner struct {
	cfg      Config
	st       Streams
	logger   *log.Logger
	cache    *engine.Cache
	snapshot atomic.Pointer[engine.Compiled]
	writer   *output.Writer
	format   output.Formatter
}

func (r *runner) run() int {
	configPath, err := r.reload()
	if err != nil {
		r.logger.Error("cannot load highlight configuration", "err", err)
		return ExitError
	}
	if r.snapshot.Load().Categories() == 0 {
		r.logger.Warn("no categories to highlight", "config", configPath)
	}

	r.format = r.formatter()

	switch {
	case r.cfg.Watch:
		return r.runWatch(configPath)
	case r.cfg.Stream:
		return r.runStream()
	case len(r.cfg.Paths) == 0:
		return r.runStdin()
	}
	return r.runFiles()
}

// reload loads and compiles the highlight configuration and publishes it as
// the current snapshot. On error the previous snapshot stays in place.
func (r *runner) reload() (string, error) {
	base, path, err := LoadHighlight(r.cfg.ConfigPath)
	if err != nil {
		return path, err
	}
	compiled, err := r.cache.Compile(mergeFlags(base, r.cfg), engine.Options{
		Engine:    matcher.Engine(r.cfg.Engine),
		ChunkSize: r.cfg.ChunkSize,
		Logger:    r.logger,
	})
	if err != nil {
		return path, err
	}
	r.snapshot.Store(compiled)
	r.logger.Debug("configuration compiled",
		"config", path,
		"categories", compiled.Categories(),
		"ignore", compiled.HasIgnore(),
		"engine", r.cfg.Engine)
	return path, nil
}

func (r *runner) formatter() output.Formatter {
	if r.cfg.JSONOutput {
		if r.cfg.CountOnly {
			return output.JSONCountFormatter{}
		}
		return output.NewJSONFormatter()
	}

	useColor := false
	switch r.cfg.Color {
	case ColorAlways:
		useColor = true
	case ColorNever:
		useColor = false
	case ColorAuto:
		useColor = output.IsTerminal(uintptr(r.st.Stdout))
	}
	styles := output.NoStyles()
	if useColor {
		styles = output.NewStyles()
	}
	return output.NewTextFormatter(styles, r.cfg.CountOnly, useColor)
}

func (r *runner) write(result output.Result, multiFile bool) {
	buf := r.format.Format(nil, result, multiFile)
	if len(buf) == 0 {
		return
	}
	if _, err := r.writer.Write(buf); err != nil {
		r.logger.Warn("write error", "err", err)
	}
}

func (r *runner) runStdin() int {
	rr, err := input.NewReaderFrom(r.st.Stdin).Read("")
	if err != nil {
		r.logger.Error("read error", "path", "stdin", "err", err)
		return ExitError
	}
	defer rr.Closer()

	result := output.Result{Data: rr.Data}
	if !walker.IsBinary(rr.Data) {
		result.Matches = r.snapshot.Load().ScanBytes(rr.Data)
	}
	r.write(result, false)
	if result.HasMatch() {
		return ExitMatch
	}
	return ExitNoMatch
}

// runStream annotates stdin line by line as it arrives.
func (r *runner) runStream() int {
	hasMatch := false
	for line := range input.Lines(r.st.Stdin) {
		if line.Err != nil {
			r.logger.Error("read error", "path", "stdin", "err", line.Err)
			return ExitError
		}
		result := output.Result{
			Data:      line.Data,
			FirstLine: line.Num,
			Offset:    line.Offset,
			Matches:   r.snapshot.Load().ScanBytes(line.Data),
		}
		if result.HasMatch() {
			hasMatch = true
			r.write(result, false)
		}
	}
	if hasMatch {
		return ExitMatch
	}
	return ExitNoMatch
}

func (r *runner) runFiles() int {
	fileCh, errCh := walker.Walk(r.cfg.Paths, walker.Options{
		Recursive: r.cfg.Recursive,
		NoIgnore:  r.cfg.NoIgnore,
		Hidden:    r.cfg.Hidden,
		Exclude:   r.cfg.Exclude,
		Workers:   r.cfg.Workers,
	})

	var hadErr atomic.Bool
	walkDone := make(chan struct{})
	go func() {
		defer close(walkDone)
		for err := range errCh {
			hadErr.Store(true)
			r.logger.Warn("walk error", "err", err)
		}
	}()

	sched := scheduler.New(r.cfg.Workers, input.NewFileReader(r.cfg.MmapThreshold), r.snapshot.Load)
	results := sched.Run(fileCh)

	hasMatch := false
	multiFile := r.cfg.Recursive || len(r.cfg.Paths) > 1
	ow := output.NewOrderedWriter(r.writer, r.format, multiFile)
	err := ow.WriteOrdered(results, func(res *output.Result) {
		if res.Err != nil {
			hadErr.Store(true)
			r.logger.Warn("read error", "path", res.FilePath, "err", res.Err)
			return
		}
		if res.HasMatch() {
			hasMatch = true
		}
	})
	<-walkDone
	if err != nil {
		r.logger.Error("write error", "err", err)
		return ExitError
	}

	switch {
	case hasMatch:
		return ExitMatch
	case hadErr.Load():
		return ExitError
	}
	return ExitNoMatch
}

// runWatch follows the given files and directories, annotating appended
// lines, and recompiles when the highlight configuration changes.
func (r *runner) runWatch(configPath string) int {
	w, err := watch.New()
	if err != nil {
		r.logger.Error("failed to create watcher", "err", err)
		return ExitError
	}
	defer w.Close()

	dirs := make(map[string]bool)
	for _, path := range r.cfg.Paths {
		if err := w.Add(path); err != nil {
			r.logger.Error("failed to watch", "path", path, "err", err)
			return ExitError
		}
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			abs, _ := filepath.Abs(path)
			dirs[abs] = true
		}
	}

	// The directory is watched rather than the file, since editors replace
	// the file on save.
	var configAbs string
	if configPath != "" {
		configAbs, _ = filepath.Abs(configPath)
		if err := w.Add(filepath.Dir(configAbs)); err != nil {
			r.logger.Warn("configuration changes will not be picked up", "config", configPath, "err", err)
			configAbs = ""
		}
	}

	if r.st.Done != nil {
		go func() {
			<-r.st.Done
			w.Close()
		}()
	}

	hasMatch := false
	for evt := range w.Events() {
		if evt.Err != nil {
			r.logger.Warn("watch error", "err", evt.Err)
			continue
		}

		switch {
		case evt.Path == configAbs && evt.Type != watch.EventDeleted:
			if _, err := r.reload(); err != nil {
				r.logger.Warn("keeping previous configuration", "config", configPath, "err", err)
			}
			continue
		case evt.Type == watch.EventCreated && dirs[filepath.Dir(evt.Path)]:
			if err := w.Follow(evt.Path); err != nil {
				r.logger.Warn("failed to watch new file", "path", evt.Path, "err", err)
				continue
			}
		case evt.Type == watch.EventDeleted:
			r.logger.Warn("watched path removed", "path", evt.Path)
			continue
		case evt.Type != watch.EventModified:
			continue
		}

		chunk, err := w.ReadNew(evt.Path)
		if err != nil {
			r.logger.Warn("read error", "path", evt.Path, "err", err)
			continue
		}
		if len(chunk.Data) == 0 || walker.IsBinary(chunk.Data) {
			continue
		}
		result := output.Result{
			FilePath:  evt.Path,
			Data:      chunk.Data,
			FirstLine: chunk.FirstLine,
			Offset:    chunk.Offset,
			Matches:   r.snapshot.Load().ScanBytes(chunk.Data),
		}
		if result.HasMatch() {
			hasMatch = true
			r.write(result, true)
		}
	}

	if hasMatch {
		return ExitMatch
	}
	return ExitNoMatch
}
