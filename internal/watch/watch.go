// Package watch runs the review pipeline for documents dropped into an
// inbox directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"grantreview/internal/extract"
	"grantreview/internal/logging"
	"grantreview/internal/pipeline"
	"grantreview/internal/review"
)

// Subdirectories of the inbox that receive handled documents.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// DefaultDebounce lets a file settle before it is read.
const DefaultDebounce = 500 * time.Millisecond

// Runner runs the pipeline for one document.
type Runner interface {
	Run(ctx context.Context, doc pipeline.Document) (*review.FinalReport, error)
}

// Saver persists a finished report.
type Saver interface {
	SaveRun(r *review.FinalReport) error
}

// Result describes one handled document.
type Result struct {
	Path    string
	MovedTo string
	Report  *review.FinalReport
	Err     error
}

// Stats counts watcher activity.
type Stats struct {
	Processed int
	Failed    int
	Errors    int
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithResults receives every handled document. The callback runs on the
// watcher goroutine and must not block for long.
func WithResults(fn func(Result)) Option {
	return func(w *Watcher) { w.onResult = fn }
}

// Watcher monitors one inbox directory (non-recursively).
type Watcher struct {
	dir      string
	runner   Runner
	saver    Saver
	debounce time.Duration
	onResult func(Result)
	log      *zap.SugaredLogger

	mu      sync.Mutex
	pending map[string]time.Time
	stats   Stats
}

// New prepares a watcher; Run starts it.
func New(dir string, runner Runner, saver Saver, opts ...Option) (*Watcher, error) {
	if runner == nil {
		return nil, errors.New("watch: runner is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve inbox %s: %w", dir, err)
	}
	w := &Watcher{
		dir:      abs,
		runner:   runner,
		saver:    saver,
		debounce: DefaultDebounce,
		log:      logging.New("watch"),
		pending:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Run blocks until ctx is canceled. Documents already in the inbox are
// queued at startup.
func (w *Watcher) Run(ctx context.Context) error {
	for _, sub := range []string{ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(w.dir, sub), 0755); err != nil {
			return fmt.Errorf("create %s dir: %w", sub, err)
		}
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.log.Infow("watching inbox", "dir", w.dir, "debounce", w.debounce)

	if err := w.queueExisting(); err != nil {
		return err
	}

	tick := time.NewTicker(max(w.debounce/5, 10*time.Millisecond))
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Infow("watcher stopped", "processed", w.Stats().Processed, "failed", w.Stats().Failed)
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnw("fs watcher error", "error", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-tick.C:
			w.processDue(ctx)
		}
	}
}

func (w *Watcher) queueExisting() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("scan inbox: %w", err)
	}
	now := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range entries {
		path := filepath.Join(w.dir, e.Name())
		if e.Type().IsRegular() && w.wants(path) {
			w.pending[path] = now
		}
	}
	return nil
}

// handleEvent queues created files and pushes back files still being written.
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if !w.wants(ev.Name) {
		return
	}
	w.mu.Lock()
	w.pending[ev.Name] = time.Now()
	w.mu.Unlock()
}

// wants accepts supported, non-hidden files directly inside the inbox.
func (w *Watcher) wants(path string) bool {
	return filepath.Dir(path) == w.dir &&
		extract.IsSupported(path) &&
		!strings.HasPrefix(filepath.Base(path), ".")
}

// processDue handles files whose last event is older than the debounce window,
// oldest first.
func (w *Watcher) processDue(ctx context.Context) {
	now := time.Now()
	w.mu.Lock()
	var due []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			due = append(due, path)
		}
	}
	sort.Slice(due, func(i, j int) bool { return w.pending[due[i]].Before(w.pending[due[j]]) })
	for _, p := range due {
		delete(w.pending, p)
	}
	w.mu.Unlock()

	for _, path := range due {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, path)
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	res := Result{Path: path}
	defer func() {
		if w.onResult != nil {
			w.onResult(res)
		}
	}()

	doc, err := pipeline.OpenDocument(path)
	if err != nil {
		res.Err = err
		res.MovedTo = w.move(path, FailedDir, "")
		w.count(false)
		return
	}
	rep, runErr := w.runner.Run(ctx, doc)
	res.Report, res.Err = rep, runErr

	runID := ""
	if rep != nil {
		runID = rep.RunID
		if w.saver != nil {
			if err := w.saver.SaveRun(rep); err != nil {
				w.log.Warnw("save run failed", "run_id", rep.RunID, "error", err)
				res.Err = errors.Join(res.Err, err)
			}
		}
	}

	ok := runErr == nil && rep != nil && rep.OverallStatus != review.StatusFailed
	dest := ProcessedDir
	if !ok {
		dest = FailedDir
	}
	res.MovedTo = w.move(path, dest, runID)
	w.count(ok)
	w.log.Infow("document handled", "file", filepath.Base(path), "run_id", runID, "moved_to", dest)
}

func (w *Watcher) count(ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ok {
		w.stats.Processed++
	} else {
		w.stats.Failed++
	}
}

// move renames path into sub, prefixing the run id when the name is taken.
func (w *Watcher) move(path, sub, runID string) string {
	name := filepath.Base(path)
	dest := filepath.Join(w.dir, sub, name)
	if _, err := os.Stat(dest); err == nil {
		prefix := runID
		if len(prefix) > 8 {
			prefix = prefix[:8]
		}
		if prefix == "" {
			prefix = time.Now().UTC().Format("20060102T150405")
		}
		dest = filepath.Join(w.dir, sub, prefix+"-"+name)
	}
	if err := os.Rename(path, dest); err != nil {
		w.log.Warnw("move document failed", "file", path, "dest", dest, "error", err)
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		return ""
	}
	return dest
}
