package testhelpers

import (
	"context"
	"sync"
	"time"
)

// CompletionSignal is a reusable signal for operation completion.
type CompletionSignal struct {
	done chan struct{}
	once sync.Once
}

// NewCompletionSignal creates a new completion signal.
func NewCompletionSignal() *CompletionSignal {
	return &CompletionSignal{done: make(chan struct{})}
}

// Complete signals that the operation is complete. Only the first call has an effect.
func (cs *CompletionSignal) Complete() {
	cs.once.Do(func() { close(cs.done) })
}

// Wait waits for completion or timeout.
func (cs *CompletionSignal) Wait(timeout time.Duration) bool {
	select {
	case <-cs.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Done returns the completion channel for use in select statements.
func (cs *CompletionSignal) Done() <-chan struct{} {
	return cs.done
}

// Gate blocks callers of Wait until Open is called. Tests use it to hold a
// progress sink mid-search.
type Gate struct {
	entered *CompletionSignal
	open    *CompletionSignal
}

// NewGate creates a closed gate.
func NewGate() *Gate {
	return &Gate{entered: NewCompletionSignal(), open: NewCompletionSignal()}
}

// Wait records that a caller arrived and blocks until the gate opens or ctx ends.
func (g *Gate) Wait(ctx context.Context) {
	g.entered.Complete()
	select {
	case <-g.open.Done():
	case <-ctx.Done():
	}
}

// Entered returns a channel closed once the first caller has reached Wait.
func (g *Gate) Entered() <-chan struct{} {
	return g.entered.Done()
}

// Open releases all current and future callers.
func (g *Gate) Open() {
	g.open.Complete()
}
