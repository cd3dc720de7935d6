// Package search runs content searches: it enumerates candidate files,
// scans them one by one, reports progress, honours cancellation between
// files and aggregates matches into per-line records.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/standardbeagle/fgrep/internal/core"
	"github.com/standardbeagle/fgrep/internal/debug"
	"github.com/standardbeagle/fgrep/internal/discovery"
	"github.com/standardbeagle/fgrep/internal/matcher"
	"github.com/standardbeagle/fgrep/internal/types"
)

// State is the lifecycle state of a search.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StateIdle
	case "running":
		*s = StateRunning
	case "completed":
		*s = StateCompleted
	case "cancelled":
		*s = StateCancelled
	default:
		return fmt.Errorf("unknown search state %q", text)
	}
	return nil
}

// Outcome is what a search returns when it does not fail.
type Outcome struct {
	Records []types.ResultRecord `json:"records"`
	// State is StateCompleted, or StateCancelled when the records are partial.
	State     State         `json:"state"`
	Total     int           `json:"total"`
	Processed int           `json:"processed"`
	Matches   int           `json:"matches"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Cancelled reports whether the search stopped before scanning every candidate.
func (o *Outcome) Cancelled() bool {
	return o.State == StateCancelled
}

// Config bundles the engine's collaborators' settings.
type Config struct {
	Discovery discovery.Options
	Scan      core.ScanOptions
	// MatcherCacheSize enables a compiled matcher cache when positive.
	MatcherCacheSize int
}

// Engine executes searches. One Engine may serve many sequential searches;
// the Tracker reflects the most recent one.
type Engine struct {
	enumerator *discovery.Enumerator
	scanner    *core.FileScanner
	matchers   *matcher.Cache
	tracker    *Tracker
}

// NewEngine builds an engine over the local filesystem.
func NewEngine(cfg Config) *Engine {
	e := NewEngineWith(discovery.New(cfg.Discovery), core.NewFileScanner(cfg.Scan))
	if cfg.MatcherCacheSize > 0 {
		e.matchers = matcher.NewCache(cfg.MatcherCacheSize)
	}
	return e
}

// NewEngineWith builds an engine from explicit collaborators.
func NewEngineWith(enumerator *discovery.Enumerator, scanner *core.FileScanner) *Engine {
	return &Engine{
		enumerator: enumerator,
		scanner:    scanner,
		tracker:    NewTracker(),
	}
}

// State returns the lifecycle state of the most recent search.
func (e *Engine) State() State {
	return e.tracker.State()
}

// Progress returns a snapshot of the most recent search's progress.
func (e *Engine) Progress() ProgressSnapshot {
	return e.tracker.Snapshot()
}

func (e *Engine) compile(req types.SearchRequest) (*matcher.Matcher, error) {
	opts := matcher.OptionsFor(req)
	if e.matchers != nil {
		return e.matchers.Compile(req.Pattern, opts)
	}
	return matcher.Compile(req.Pattern, opts)
}

// Search runs req to completion or cancellation.
//
// token is reset on entry, so a cancel issued before this call has no
// effect; pass nil when the caller never cancels. Cancellation, whether via
// token or ctx, is checked before each file and yields the records gathered
// so far with State set to StateCancelled and a nil error.
//
// Before each file sink receives {path, i, total}. Pattern, filter and root
// errors are returned before any event is emitted. A file that cannot be
// read aborts the search with an *errors.IoError.
func (e *Engine) Search(ctx context.Context, req types.SearchRequest, token *CancelToken, sink ProgressSink) (*Outcome, error) {
	if token == nil {
		token = NewCancelToken()
	}
	token.Reset()
	return e.execute(ctx, req, token, sink)
}

// execute runs a search without resetting token. Session tokens are always
// fresh, and an Abort that lands before the first file must still count.
func (e *Engine) execute(ctx context.Context, req types.SearchRequest, token *CancelToken, sink ProgressSink) (*Outcome, error) {
	if sink == nil {
		sink = Discard
	}
	run := e.tracker.start()

	outcome, err := e.run(ctx, run, req, token, sink)
	if err != nil {
		e.tracker.finish(run, StateIdle)
		debug.LogSearch("search %q failed: %v\n", req.Pattern, err)
		return nil, err
	}
	e.tracker.finish(run, outcome.State)
	debug.LogSearch("search %q %s: %d records from %d/%d files in %v\n",
		req.Pattern, outcome.State, len(outcome.Records), outcome.Processed, outcome.Total, outcome.Elapsed)
	return outcome, nil
}

func (e *Engine) run(ctx context.Context, run uint64, req types.SearchRequest, token *CancelToken, sink ProgressSink) (*Outcome, error) {
	start := time.Now()

	if err := discovery.ValidateFilter(req.NameFilter); err != nil {
		return nil, err
	}
	m, err := e.compile(req)
	if err != nil {
		return nil, err
	}

	candidates, err := e.enumerator.Enumerate(req.RootDirectory, req.Recursive, req.NameFilter)
	if err != nil {
		return nil, err
	}

	total := len(candidates)
	e.tracker.setTotal(run, total)
	results := NewResultSet()
	outcome := &Outcome{State: StateCompleted, Total: total}

	for i, cand := range candidates {
		if token.Cancelled() || ctx.Err() != nil {
			outcome.State = StateCancelled
			break
		}

		e.tracker.beginFile(run, cand.FullPath)
		notify(sink, types.ProgressEvent{Processing: cand.FullPath, Current: i + 1, Total: total})

		for lm, err := range e.scanner.Scan(cand.FullPath, m) {
			if err != nil {
				return nil, err
			}
			results.Add(cand.FullPath, lm.LineNumber, lm.Line, lm.Ranges)
		}

		outcome.Processed++
		e.tracker.finishFile(run)
	}

	outcome.Records = results.Records()
	outcome.Matches = results.MatchCount()
	outcome.Elapsed = time.Since(start)
	return outcome, nil
}
