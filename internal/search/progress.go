package search

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/standardbeagle/fgrep/internal/types"
)

// ProgressSink receives one event before each candidate file is scanned.
// Events arrive in order on the searching goroutine. A returned error is
// logged and otherwise ignored; it never stops the search.
type ProgressSink interface {
	Notify(event types.ProgressEvent) error
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(event types.ProgressEvent) error

// Notify implements ProgressSink.
func (f SinkFunc) Notify(event types.ProgressEvent) error {
	return f(event)
}

type discardSink struct{}

func (discardSink) Notify(types.ProgressEvent) error { return nil }

// Discard is a sink that drops every event.
var Discard ProgressSink = discardSink{}

// MultiSink fans an event out to several sinks. Every sink is called even
// if an earlier one fails; the first error is returned.
func MultiSink(sinks ...ProgressSink) ProgressSink {
	return SinkFunc(func(event types.ProgressEvent) error {
		var first error
		for _, s := range sinks {
			if err := s.Notify(event); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}

func notify(sink ProgressSink, event types.ProgressEvent) {
	if err := sink.Notify(event); err != nil {
		log.Printf("Warning: progress sink failed at %d/%d (%s): %v", event.Current, event.Total, event.Processing, err)
	}
}

// ProgressSnapshot is a point-in-time copy of a Tracker.
type ProgressSnapshot struct {
	State       State         `json:"state"`
	Total       int           `json:"total"`
	Processed   int           `json:"processed"`
	CurrentFile string        `json:"current_file,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Tracker records the progress of the most recent search so that other
// goroutines (status endpoints, UIs) can poll it while the search runs.
// Each search gets a run id from start; updates carrying an older id are
// dropped, so a replaced search that winds down late cannot overwrite the
// one that superseded it.
type Tracker struct {
	state     atomic.Int32
	total     atomic.Int64
	processed atomic.Int64

	mu          sync.RWMutex
	run         uint64
	currentFile string
	startTime   time.Time
	endTime     time.Time
}

// NewTracker creates an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

func (pt *Tracker) start() uint64 {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.run++
	pt.currentFile = ""
	pt.startTime = time.Now()
	pt.endTime = time.Time{}
	pt.total.Store(0)
	pt.processed.Store(0)
	pt.state.Store(int32(StateRunning))
	return pt.run
}

func (pt *Tracker) setTotal(run uint64, total int) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	if run == pt.run {
		pt.total.Store(int64(total))
	}
}

func (pt *Tracker) beginFile(run uint64, path string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	if run == pt.run {
		pt.currentFile = path
	}
}

func (pt *Tracker) finishFile(run uint64) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	if run == pt.run {
		pt.processed.Add(1)
	}
}

func (pt *Tracker) finish(run uint64, state State) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	if run != pt.run {
		return
	}
	pt.currentFile = ""
	pt.endTime = time.Now()
	pt.state.Store(int32(state))
}

// State returns the lifecycle state of the most recent search.
func (pt *Tracker) State() State {
	return State(pt.state.Load())
}

// Snapshot returns the current progress.
func (pt *Tracker) Snapshot() ProgressSnapshot {
	pt.mu.RLock()
	current := pt.currentFile
	start, end := pt.startTime, pt.endTime
	pt.mu.RUnlock()

	var elapsed time.Duration
	switch {
	case start.IsZero():
	case end.IsZero():
		elapsed = time.Since(start)
	default:
		elapsed = end.Sub(start)
	}

	return ProgressSnapshot{
		State:       pt.State(),
		Total:       int(pt.total.Load()),
		Processed:   int(pt.processed.Load()),
		CurrentFile: current,
		Elapsed:     elapsed,
	}
}
