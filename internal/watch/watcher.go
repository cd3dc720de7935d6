// Package watch reruns a search whenever files under its root change.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/fgrep/internal/debug"
	"github.com/standardbeagle/fgrep/internal/discovery"
	fgerrors "github.com/standardbeagle/fgrep/internal/errors"
	"github.com/standardbeagle/fgrep/internal/search"
	"github.com/standardbeagle/fgrep/internal/types"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 200 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Debounce collapses bursts of events into one rerun.
	Debounce time.Duration
	// Exclude holds doublestar globs on root-relative slash paths whose
	// changes never trigger a rerun.
	Exclude []string
}

// ResultFunc receives the outcome of every run, including cancelled ones.
type ResultFunc func(run int, outcome *search.Outcome, err error)

// Watcher runs a request once, then again after every batch of relevant
// filesystem changes. A change during a run cancels it; the cancelled run
// is reported with its partial results before the rerun starts.
type Watcher struct {
	session  *search.Session
	req      types.SearchRequest
	root     string
	opts     Options
	sink     search.ProgressSink
	onResult ResultFunc

	watcher   *fsnotify.Watcher
	debouncer *debouncer
	trigger   chan struct{}

	statsMu sync.Mutex
	stats   Stats
}

// Stats counts watcher activity.
type Stats struct {
	Runs          int
	Events        int
	LastEventTime time.Time
}

// New creates a watcher for req on session. onResult may be nil.
func New(session *search.Session, req types.SearchRequest, opts Options, sink search.ProgressSink, onResult ResultFunc) (*Watcher, error) {
	root, err := filepath.Abs(req.RootDirectory)
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if sink == nil {
		sink = search.Discard
	}
	if onResult == nil {
		onResult = func(int, *search.Outcome, error) {}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		session:  session,
		req:      req,
		root:     root,
		opts:     opts,
		sink:     sink,
		onResult: onResult,
		watcher:  fsw,
		trigger:  make(chan struct{}, 1),
	}
	w.debouncer = newDebouncer(opts.Debounce, w.fire)
	return w, nil
}

// Run searches once and then on every change until ctx is done. It
// returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	defer w.debouncer.stop()

	if err := w.addWatches(); err != nil {
		return err
	}
	debug.LogWatch("watching %s (recursive: %t)\n", w.root, w.req.Recursive)

	w.trigger <- struct{}{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w.processEvents(gctx)
		return nil
	})
	g.Go(func() error {
		return w.runLoop(gctx)
	})
	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() Stats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.stats
}

func (w *Watcher) runLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.trigger:
		}

		w.statsMu.Lock()
		w.stats.Runs++
		run := w.stats.Runs
		w.statsMu.Unlock()

		outcome, err := w.session.Replace(ctx, w.req, w.sink)
		if ctx.Err() != nil {
			return nil
		}
		w.onResult(run, outcome, err)
		// a bad pattern or filter fails the same way on every rerun
		if fgerrors.IsRequestError(err) {
			return err
		}
	}
}

// fire cancels the active run and schedules a rerun.
func (w *Watcher) fire(paths []string) {
	debug.LogWatch("%d changed paths, rerunning\n", len(paths))
	w.session.Abort()
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// addWatches registers root, and every directory below it when the
// request is recursive.
func (w *Watcher) addWatches() error {
	if err := w.watcher.Add(w.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}
	if !w.req.Recursive {
		return nil
	}

	visited := map[string]bool{}
	return filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Printf("Warning: cannot watch %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() || path == w.root {
			return nil
		}
		if w.ignored(path, true) {
			return filepath.SkipDir
		}
		real, err := filepath.EvalSymlinks(path)
		if err != nil || visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true
		if err := w.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to add watch for %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) ignored(path string, isDir bool) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return discovery.Excluded(w.opts.Exclude, filepath.ToSlash(rel), isDir)
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)
		}
	}
}

// handleEvent queues a change that could alter the search's results.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	path := event.Name
	debug.LogWatch("event %v for %s\n", event.Op, path)

	info, statErr := os.Lstat(path)
	isDir := statErr == nil && info.IsDir()

	if w.ignored(path, isDir) {
		return
	}
	if isDir {
		if event.Has(fsnotify.Create) && w.req.Recursive {
			if err := w.watcher.Add(path); err != nil {
				log.Printf("Warning: failed to add watch for new directory %s: %v", path, err)
			}
			w.record(path)
		}
		return
	}
	// removed and renamed files fail Lstat but may have held matches, so
	// only the name filter decides
	if !discovery.MatchName(w.req.NameFilter, filepath.Base(path)) {
		return
	}
	w.record(path)
}

func (w *Watcher) record(path string) {
	w.statsMu.Lock()
	w.stats.Events++
	w.stats.LastEventTime = time.Now()
	w.statsMu.Unlock()
	w.debouncer.add(path)
}
