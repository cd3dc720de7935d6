package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/fgrep/internal/search"
	"github.com/standardbeagle/fgrep/internal/types"
	"github.com/standardbeagle/fgrep/testhelpers"
)

var socketSeq atomic.Int64

// testSocketPath stays short enough for the platform's sun_path limit.
func testSocketPath(t *testing.T) string {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("fgrep-test-%d-%d.sock", os.Getpid(), socketSeq.Add(1)))
	t.Cleanup(func() { os.Remove(path) })
	return path
}

type harness struct {
	srv     *Server
	client  *Client
	session *search.Session
	root    string
	cancel  context.CancelFunc
	g       *errgroup.Group
}

func startServer(t *testing.T, files map[string]string) *harness {
	t.Helper()
	root := testhelpers.WriteTree(t, files)
	session := search.NewSession(search.NewEngine(search.Config{}))
	srv := New(session, root)
	srv.SetSocketPath(testSocketPath(t))
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	g := &errgroup.Group{}
	g.Go(func() error { return srv.Serve(ctx) })

	client := NewClient(srv.SocketPath())
	require.NoError(t, client.WaitForReady(5*time.Second))

	h := &harness{srv: srv, client: client, session: session, root: root, cancel: cancel, g: g}
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, g.Wait())
		client.Close()
	})
	return h
}

type eventLog struct {
	mu     sync.Mutex
	events []types.ProgressEvent
}

func (l *eventLog) Notify(ev types.ProgressEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

func (l *eventLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func fiveFiles() map[string]string {
	return map[string]string{"1.txt": "hit one\n", "2.txt": "miss\n", "3.txt": "hit three\nhit again\n", "4.txt": "\n", "5.txt": "HIT\n"}
}

func TestServer_Ping(t *testing.T) {
	h := startServer(t, nil)
	ping, err := h.client.Ping()
	require.NoError(t, err)
	assert.Equal(t, h.root, ping.Root)
	assert.Equal(t, os.Getpid(), ping.PID)
	assert.NotEmpty(t, ping.Version)
	assert.NotEmpty(t, ping.BuildID)
}

func TestServer_GrepStreamsProgressAndResult(t *testing.T) {
	h := startServer(t, fiveFiles())

	req := types.DefaultSearchRequest()
	req.Pattern = "hit"
	req.RootDirectory = h.root

	events := &eventLog{}
	out, err := h.client.Grep(context.Background(), req, events)
	require.NoError(t, err)

	assert.Equal(t, search.StateCompleted, out.State)
	assert.Equal(t, 5, out.Total)
	assert.Equal(t, 5, out.Processed)
	assert.Equal(t, 4, out.Matches)
	assert.Len(t, out.Records, 4)
	assert.Equal(t, 5, events.len())
	for _, r := range out.Records {
		assert.True(t, filepath.IsAbs(r.FullPath))
		assert.NotEmpty(t, r.Ranges)
	}
}

func TestServer_GrepDefaultsToServerRoot(t *testing.T) {
	h := startServer(t, fiveFiles())

	req := types.DefaultSearchRequest()
	req.Pattern = "three"
	out, err := h.client.Grep(context.Background(), req, nil)
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	assert.Equal(t, filepath.Join(h.root, "3.txt"), out.Records[0].FullPath)
}

func TestServer_GrepRequestErrors(t *testing.T) {
	h := startServer(t, fiveFiles())

	req := types.DefaultSearchRequest()
	req.Pattern = "(unclosed"
	req.IsRegex = true
	events := &eventLog{}
	_, err := h.client.Grep(context.Background(), req, events)

	var re *RemoteError
	require.True(t, errors.As(err, &re), "got %v", err)
	assert.Equal(t, KindPattern, re.Kind)
	assert.True(t, re.IsRequestError())
	assert.Zero(t, events.len())

	req = types.DefaultSearchRequest()
	req.Pattern = "x"
	req.RootDirectory = filepath.Join(h.root, "missing")
	_, err = h.client.Grep(context.Background(), req, nil)
	require.True(t, errors.As(err, &re), "got %v", err)
	assert.Equal(t, KindIO, re.Kind)
	assert.False(t, re.IsRequestError())
}

// holdSearch starts an in-process search on the server's session that
// blocks on its first progress event until the returned gate opens.
func holdSearch(t *testing.T, h *harness) (*testhelpers.Gate, func() *search.Outcome) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	gate := testhelpers.NewGate()
	req := types.DefaultSearchRequest()
	req.Pattern = "hit"
	req.RootDirectory = h.root

	var g errgroup.Group
	var out *search.Outcome
	g.Go(func() error {
		var err error
		out, err = h.session.Run(ctx, req, search.SinkFunc(func(types.ProgressEvent) error {
			gate.Wait(ctx)
			return nil
		}))
		return err
	})
	<-gate.Entered()

	return gate, func() *search.Outcome {
		gate.Open()
		require.NoError(t, g.Wait())
		return out
	}
}

func TestServer_SecondGrepIsRejected(t *testing.T) {
	h := startServer(t, fiveFiles())
	_, finish := holdSearch(t, h)

	req := types.DefaultSearchRequest()
	req.Pattern = "hit"
	_, err := h.client.Grep(context.Background(), req, nil)
	assert.ErrorIs(t, err, search.ErrSearchInProgress)

	out := finish()
	assert.Equal(t, search.StateCompleted, out.State)
}

func TestServer_AbortAndStatus(t *testing.T) {
	h := startServer(t, fiveFiles())

	aborted, err := h.client.Abort()
	require.NoError(t, err)
	assert.False(t, aborted, "nothing running yet")

	_, finish := holdSearch(t, h)

	status, err := h.client.Status()
	require.NoError(t, err)
	assert.True(t, status.Active)
	assert.Equal(t, search.StateRunning, status.Progress.State)
	assert.Equal(t, 5, status.Progress.Total)

	aborted, err = h.client.Abort()
	require.NoError(t, err)
	assert.True(t, aborted)

	out := finish()
	assert.Equal(t, search.StateCancelled, out.State)
	assert.Equal(t, 1, out.Processed)

	status, err = h.client.Status()
	require.NoError(t, err)
	assert.False(t, status.Active)
	assert.Equal(t, search.StateCancelled, status.Progress.State)
}

func TestServer_Shutdown(t *testing.T) {
	root := testhelpers.WriteTree(t, nil)
	srv := New(search.NewSession(search.NewEngine(search.Config{})), root)
	srv.SetSocketPath(testSocketPath(t))

	var g errgroup.Group
	g.Go(func() error { return srv.Serve(context.Background()) })

	client := NewClient(srv.SocketPath())
	defer client.Close()
	require.NoError(t, client.WaitForReady(5*time.Second))
	require.NoError(t, client.Shutdown(false))
	require.NoError(t, g.Wait())

	_, err := os.Stat(srv.SocketPath())
	assert.True(t, os.IsNotExist(err), "socket file is removed")
	assert.False(t, client.IsServerRunning())
}

func TestServer_ListenTwice(t *testing.T) {
	srv := New(search.NewSession(search.NewEngine(search.Config{})), "")
	srv.SetSocketPath(testSocketPath(t))
	require.NoError(t, srv.Listen())
	defer srv.listener.Close()
	assert.Error(t, srv.Listen())
}

func TestSocketPathForRoot(t *testing.T) {
	a := SocketPathForRoot("/src/a")
	assert.Equal(t, a, SocketPathForRoot("/src/a"))
	assert.NotEqual(t, a, SocketPathForRoot("/src/b"))
	assert.Equal(t, SocketPath(), SocketPathForRoot(""))
	assert.Equal(t, ".sock", filepath.Ext(a))
}

func TestClassify(t *testing.T) {
	kind, status := classify(search.ErrSearchInProgress)
	assert.Equal(t, KindBusy, kind)
	assert.Equal(t, 409, status)

	kind, _ = classify(errors.New("boom"))
	assert.Equal(t, KindInternal, kind)
}
