package search

import "sync/atomic"

// CancelToken is a shared cancellation flag. Copies of the pointer all refer
// to the same flag, so a host can hand one to a running search and cancel it
// from any goroutine.
type CancelToken struct {
	cancelled atomic.Bool
}

// NewCancelToken returns a token in the not-cancelled state.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel requests cancellation. It never blocks, may be called any number of
// times from any goroutine, and is harmless when no search is running.
func (t *CancelToken) Cancel() {
	t.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called since the last Reset.
func (t *CancelToken) Cancelled() bool {
	return t.cancelled.Load()
}

// Reset clears the flag. A search resets its token when it starts.
func (t *CancelToken) Reset() {
	t.cancelled.Store(false)
}
