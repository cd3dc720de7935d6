package search

import (
	"context"
	"errors"
	"sync"

	"github.com/standardbeagle/fgrep/internal/types"
)

// ErrSearchInProgress is returned by Session.Run while another search is active.
var ErrSearchInProgress = errors.New("a search is already running")

// Session gives a long-lived host (socket server, MCP server, watcher) a
// single active search that can be aborted by a separate request. Every run
// gets a fresh token, so an abort aimed at an earlier run can never leak
// into a later one.
type Session struct {
	engine *Engine

	mu     sync.Mutex
	active *CancelToken
}

// NewSession creates a session around engine.
func NewSession(engine *Engine) *Session {
	return &Session{engine: engine}
}

// Engine returns the underlying engine.
func (s *Session) Engine() *Engine {
	return s.engine
}

// Run executes req as the session's active search. It fails with
// ErrSearchInProgress if another run has not finished yet.
func (s *Session) Run(ctx context.Context, req types.SearchRequest, sink ProgressSink) (*Outcome, error) {
	token, err := s.begin(false)
	if err != nil {
		return nil, err
	}
	defer s.end(token)
	return s.engine.execute(ctx, req, token, sink)
}

// Replace cancels any active search and runs req in its place. The
// cancelled run still returns its partial outcome to its own caller.
func (s *Session) Replace(ctx context.Context, req types.SearchRequest, sink ProgressSink) (*Outcome, error) {
	token, _ := s.begin(true)
	defer s.end(token)
	return s.engine.execute(ctx, req, token, sink)
}

// Abort cancels the active search. It reports whether one was running.
func (s *Session) Abort() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return false
	}
	s.active.Cancel()
	return true
}

// Active reports whether a search is running.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

func (s *Session) begin(replace bool) (*CancelToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		if !replace {
			return nil, ErrSearchInProgress
		}
		s.active.Cancel()
	}
	s.active = NewCancelToken()
	return s.active, nil
}

func (s *Session) end(token *CancelToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == token {
		s.active = nil
	}
}
