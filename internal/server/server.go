// Package server exposes a search session over HTTP on a unix socket so
// that editors and scripts can start, watch and abort searches in a
// long-running process.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/fgrep/internal/debug"
	fgerrors "github.com/standardbeagle/fgrep/internal/errors"
	"github.com/standardbeagle/fgrep/internal/search"
	"github.com/standardbeagle/fgrep/internal/types"
	"github.com/standardbeagle/fgrep/internal/version"
)

// ShutdownTimeout bounds how long Serve waits for in-flight requests.
const ShutdownTimeout = 5 * time.Second

// Server runs at most one search at a time on behalf of socket clients.
type Server struct {
	session    *search.Session
	root       string
	socketPath string

	mu        sync.Mutex
	listener  net.Listener
	server    *http.Server
	startTime time.Time

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// New creates a server whose requests default to root when they carry no
// start_directory.
func New(session *search.Session, root string) *Server {
	return &Server{
		session:      session,
		root:         root,
		socketPath:   SocketPathForRoot(root),
		shutdownChan: make(chan struct{}),
	}
}

// SocketPath returns the socket used when no root is known.
func SocketPath() string {
	return filepath.Join(os.TempDir(), "fgrep-server.sock")
}

// SocketPathForRoot returns a per-root socket path, so servers for
// different trees can run side by side.
func SocketPathForRoot(root string) string {
	if root == "" {
		return SocketPath()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return SocketPath()
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("fgrep-%016x.sock", xxhash.Sum64String(absRoot)))
}

// SetSocketPath overrides the socket location. Call before Listen.
func (s *Server) SetSocketPath(path string) {
	if path != "" {
		s.socketPath = path
	}
}

// SocketPath returns the socket this server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Listen creates the socket. A stale socket file is replaced.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("server already listening on %s", s.socketPath)
	}

	os.Remove(s.socketPath)
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket: %w", err)
	}
	os.Chmod(s.socketPath, 0600)

	mux := http.NewServeMux()
	s.registerHandlers(mux)
	s.listener = listener
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	s.startTime = time.Now()
	return nil
}

// Serve handles requests until ctx is done or a client asks for shutdown.
// It listens first if Listen has not been called.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	listening := s.listener != nil
	s.mu.Unlock()
	if !listening {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	debug.LogServer("serving on %s (pid: %d, root: %s)\n", s.socketPath, os.Getpid(), s.root)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-s.shutdownChan:
		}
		sctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return s.shutdown(sctx)
	})
	return g.Wait()
}

// RequestShutdown makes Serve return. It is safe to call more than once.
func (s *Server) RequestShutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownChan) })
}

func (s *Server) shutdown(ctx context.Context) error {
	// an active search would otherwise hold Shutdown until it finished
	s.session.Abort()

	err := s.server.Shutdown(ctx)
	os.Remove(s.socketPath)
	debug.LogServer("server on %s shut down\n", s.socketPath)
	if err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

func (s *Server) registerHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /grep", s.handleGrep)
	mux.HandleFunc("POST /abort", s.handleAbort)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/ping", s.handlePing)
	mux.HandleFunc("POST /shutdown", s.handleShutdown)
}

// handleGrep runs one search and streams its progress and result.
func (s *Server) handleGrep(w http.ResponseWriter, r *http.Request) {
	req := types.DefaultSearchRequest()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStreamError(w, http.StatusBadRequest, KindInternal, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.RootDirectory == "" {
		req.RootDirectory = s.root
	}

	stream := newStream(w)
	outcome, err := s.session.Run(r.Context(), req, search.SinkFunc(stream.progress))
	if err != nil {
		kind, status := classify(err)
		if stream.started {
			stream.send(types.StreamMessage{Type: types.MessageError, Error: err.Error(), Kind: kind})
			return
		}
		writeStreamError(w, status, kind, err)
		return
	}

	summary := types.Summary{
		State:     outcome.State.String(),
		Total:     outcome.Total,
		Processed: outcome.Processed,
		Records:   len(outcome.Records),
		Matches:   outcome.Matches,
		ElapsedMS: outcome.Elapsed.Milliseconds(),
	}
	stream.send(types.StreamMessage{Type: types.MessageResult, Records: outcome.Records})
	stream.send(types.StreamMessage{Type: types.MessageEnd, Summary: &summary})
}

func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AbortResponse{Aborted: s.session.Abort()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Active:   s.session.Active(),
		Progress: s.session.Engine().Progress(),
	})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PingResponse{
		Uptime:  time.Since(s.startTime).Seconds(),
		Version: version.Version,
		BuildID: version.BuildID(),
		PID:     os.Getpid(),
		Root:    s.root,
	})
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ShutdownResponse{Success: true, Message: "Server shutting down"})
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	s.RequestShutdown()
}

// classify maps a search error to a stream error kind and HTTP status.
func classify(err error) (string, int) {
	var pe *fgerrors.PatternError
	var ge *fgerrors.GlobError
	var ioErr *fgerrors.IoError
	switch {
	case errors.Is(err, search.ErrSearchInProgress):
		return KindBusy, http.StatusConflict
	case errors.As(err, &pe):
		return KindPattern, http.StatusBadRequest
	case errors.As(err, &ge):
		return KindGlob, http.StatusBadRequest
	case errors.As(err, &ioErr):
		return KindIO, http.StatusUnprocessableEntity
	default:
		return KindInternal, http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeStreamError(w http.ResponseWriter, status int, kind string, err error) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(types.StreamMessage{Type: types.MessageError, Error: err.Error(), Kind: kind})
}

// stream writes NDJSON messages and flushes each one. The status line is
// committed with the first message, so errors that precede any progress
// can still be reported with a proper status code.
type stream struct {
	w       http.ResponseWriter
	enc     *json.Encoder
	flusher http.Flusher
	started bool
}

func newStream(w http.ResponseWriter) *stream {
	f, _ := w.(http.Flusher)
	return &stream{w: w, enc: json.NewEncoder(w), flusher: f}
}

func (st *stream) send(msg types.StreamMessage) error {
	if !st.started {
		st.w.Header().Set("Content-Type", "application/x-ndjson")
		st.w.WriteHeader(http.StatusOK)
		st.started = true
	}
	if err := st.enc.Encode(msg); err != nil {
		return err
	}
	if st.flusher != nil {
		st.flusher.Flush()
	}
	return nil
}

func (st *stream) progress(ev types.ProgressEvent) error {
	return st.send(types.StreamMessage{Type: types.MessageProgress, Event: &ev})
}
