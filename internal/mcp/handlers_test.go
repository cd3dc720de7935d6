package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/fgrep/internal/config"
	"github.com/standardbeagle/fgrep/internal/search"
	"github.com/standardbeagle/fgrep/internal/types"
	"github.com/standardbeagle/fgrep/testhelpers"
)

func newTestServer(t *testing.T, files map[string]string, cfg *config.Config) (*Server, string) {
	t.Helper()
	root := testhelpers.WriteTree(t, files)
	session := search.NewSession(search.NewEngine(search.Config{}))
	return NewServerWithSession(session, cfg, root, nil), root
}

func callTool(t *testing.T, handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error), args any) *mcp.CallToolResult {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	result, err := handler(context.Background(), &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: raw},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func decodeResult[T any](t *testing.T, result *mcp.CallToolResult) T {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	var out T
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestGrep_SampleProject(t *testing.T) {
	s, root := newTestServer(t, testhelpers.SampleProject(), nil)

	result := callTool(t, s.handleGrep, map[string]any{"condition": "hello", "start_directory": root})
	require.False(t, result.IsError)
	resp := decodeResult[GrepResponse](t, result)

	assert.Equal(t, "completed", resp.State)
	assert.Equal(t, 4, resp.Total)
	assert.Equal(t, 4, resp.Processed)
	assert.Equal(t, 7, resp.RecordCount)
	assert.Equal(t, 8, resp.Matches)
	assert.Len(t, resp.Records, 7)
	assert.False(t, resp.Truncated)
	for _, r := range resp.Records {
		assert.True(t, filepath.IsAbs(r.FullPath), r.FullPath)
	}
}

func TestGrep_DefaultsToServerRootAndConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Search.FileType = "*.go"
	s, root := newTestServer(t, testhelpers.SampleProject(), cfg)

	resp := decodeResult[GrepResponse](t, callTool(t, s.handleGrep, map[string]any{
		"condition": "hello",
		"relative":  true,
	}))
	assert.Equal(t, 2, resp.Total)
	for _, r := range resp.Records {
		assert.Equal(t, ".go", filepath.Ext(r.FullPath))
		assert.False(t, filepath.IsAbs(r.FullPath), "relative to %s: %s", root, r.FullPath)
	}

	// an explicit argument beats the configured default
	resp = decodeResult[GrepResponse](t, callTool(t, s.handleGrep, map[string]any{
		"condition": "calculateSum",
		"file_type": "*.js",
	}))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, 1, resp.RecordCount)
}

func TestGrep_MaxRecords(t *testing.T) {
	s, _ := newTestServer(t, testhelpers.SampleProject(), nil)

	resp := decodeResult[GrepResponse](t, callTool(t, s.handleGrep, map[string]any{
		"condition":   "hello",
		"max_records": 2,
	}))
	assert.Equal(t, 7, resp.RecordCount)
	assert.Len(t, resp.Records, 2)
	assert.True(t, resp.Truncated)
}

func TestGrep_NoMatchesHasEmptyRecords(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{"a.txt": "nothing here\n"}, nil)

	result := callTool(t, s.handleGrep, map[string]any{"condition": "absent"})
	require.False(t, result.IsError)
	text := result.Content[0].(*mcp.TextContent).Text
	assert.Contains(t, text, `"records":[]`)
}

func TestGrep_Errors(t *testing.T) {
	s, root := newTestServer(t, map[string]string{"a.txt": "x\n"}, nil)

	tests := []struct {
		name string
		args any
		kind string
	}{
		{"bad regex", map[string]any{"condition": "(unclosed", "regexp": true}, "pattern"},
		{"empty condition", map[string]any{"condition": ""}, "pattern"},
		{"bad glob", map[string]any{"condition": "x", "file_type": "[abc"}, "glob"},
		{"missing root", map[string]any{"condition": "x", "start_directory": filepath.Join(root, "nope")}, "io"},
		{"wrong type", map[string]any{"condition": 5}, "params"},
		{"negative max", map[string]any{"condition": "x", "max_records": -1}, "params"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, s.handleGrep, tt.args)
			assert.True(t, result.IsError)
			resp := decodeResult[ErrorResponse](t, result)
			assert.Equal(t, tt.kind, resp.Kind, resp.Error)
			assert.Equal(t, "grep", resp.Operation)
			assert.False(t, resp.Success)
		})
	}
}

func TestAbortAndBusy(t *testing.T) {
	s, root := newTestServer(t, map[string]string{"1.txt": "hit\n", "2.txt": "hit\n", "3.txt": "hit\n"}, nil)

	resp := decodeResult[AbortResponse](t, callTool(t, s.handleAbort, map[string]any{}))
	assert.False(t, resp.Aborted)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	gate := testhelpers.NewGate()
	req := types.DefaultSearchRequest()
	req.Pattern = "hit"
	req.RootDirectory = root

	var g errgroup.Group
	var out *search.Outcome
	g.Go(func() error {
		var err error
		out, err = s.Session().Run(ctx, req, search.SinkFunc(func(types.ProgressEvent) error {
			gate.Wait(ctx)
			return nil
		}))
		return err
	})
	<-gate.Entered()

	status := decodeResult[StatusResponse](t, callTool(t, s.handleStatus, map[string]any{}))
	assert.True(t, status.Active)
	assert.Equal(t, 3, status.Progress.Total)

	busy := callTool(t, s.handleGrep, map[string]any{"condition": "hit"})
	assert.True(t, busy.IsError)
	assert.Equal(t, "busy", decodeResult[ErrorResponse](t, busy).Kind)

	resp = decodeResult[AbortResponse](t, callTool(t, s.handleAbort, map[string]any{}))
	assert.True(t, resp.Aborted)

	gate.Open()
	require.NoError(t, g.Wait())
	assert.Equal(t, search.StateCancelled, out.State)
	assert.Equal(t, 1, out.Processed)
}

func TestProgressSink(t *testing.T) {
	var mu sync.Mutex
	var got []*mcp.ProgressNotificationParams
	notify := func(_ context.Context, p *mcp.ProgressNotificationParams) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, p)
		return nil
	}
	params := GrepParams{SearchRequest: types.SearchRequest{RootDirectory: "/src"}, Relative: true}
	sink := progressSink(context.Background(), notify, "tok-1", params, NewWriterLogger(nil))

	require.NoError(t, sink.Notify(types.ProgressEvent{Processing: "/src/a/b.go", Current: 2, Total: 5}))
	require.Len(t, got, 1)
	assert.Equal(t, "tok-1", got[0].ProgressToken)
	assert.Equal(t, 2.0, got[0].Progress)
	assert.Equal(t, 5.0, got[0].Total)
	assert.Equal(t, filepath.Join("a", "b.go"), got[0].Message)
}

func TestProgressSink_ReportsNotifyFailure(t *testing.T) {
	boom := errors.New("closed")
	notify := func(context.Context, *mcp.ProgressNotificationParams) error { return boom }
	sink := progressSink(context.Background(), notify, 7, GrepParams{}, NewWriterLogger(nil))
	assert.ErrorIs(t, sink.Notify(types.ProgressEvent{Processing: "x", Current: 1, Total: 1}), boom)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "busy", errorKind(search.ErrSearchInProgress))
	assert.Equal(t, "internal", errorKind(errors.New("boom")))
}
