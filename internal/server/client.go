package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/standardbeagle/fgrep/internal/search"
	"github.com/standardbeagle/fgrep/internal/types"
)

// maxStreamLine bounds one NDJSON message; a result message carries every record.
const maxStreamLine = 256 * 1024 * 1024

// RemoteError is a search failure reported by the server.
type RemoteError struct {
	Kind    string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, search.ErrSearchInProgress) see through a busy reply.
func (e *RemoteError) Is(target error) bool {
	return e.Kind == KindBusy && target == search.ErrSearchInProgress
}

// IsRequestError reports whether the server rejected the pattern or filter.
func (e *RemoteError) IsRequestError() bool {
	return e.Kind == KindPattern || e.Kind == KindGlob
}

// Client talks to a Server over its unix socket.
type Client struct {
	httpClient *http.Client
	socketPath string
	// CallTimeout bounds every request except /grep, which lives as long as its context.
	CallTimeout time.Duration
}

// NewClient creates a client for the socket at socketPath.
func NewClient(socketPath string) *Client {
	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		},
	}
	return &Client{httpClient: httpClient, socketPath: socketPath, CallTimeout: 10 * time.Second}
}

// NewClientForRoot connects to the server for root's default socket.
func NewClientForRoot(root string) *Client {
	return NewClient(SocketPathForRoot(root))
}

// SocketPath returns the socket this client dials.
func (c *Client) SocketPath() string {
	return c.socketPath
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// IsServerRunning checks if the server is accessible
func (c *Client) IsServerRunning() bool {
	_, err := c.Ping()
	return err == nil
}

// Ping sends a health check to the server
func (c *Client) Ping() (*PingResponse, error) {
	var resp PingResponse
	if err := c.call(http.MethodGet, "/ping", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to ping server: %w", err)
	}
	return &resp, nil
}

// Status returns the server's search progress.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call(http.MethodGet, "/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Abort cancels the server's active search and reports whether one was running.
func (c *Client) Abort() (bool, error) {
	var resp AbortResponse
	if err := c.call(http.MethodPost, "/abort", nil, &resp); err != nil {
		return false, err
	}
	return resp.Aborted, nil
}

// Shutdown requests the server to shut down
func (c *Client) Shutdown(force bool) error {
	var resp ShutdownResponse
	if err := c.call(http.MethodPost, "/shutdown", ShutdownRequest{Force: force}, &resp); err != nil {
		return fmt.Errorf("failed to shutdown: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("shutdown failed: %s", resp.Message)
	}
	return nil
}

// WaitForReady polls until the server answers or timeout elapses.
func (c *Client) WaitForReady(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if c.IsServerRunning() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for server on %s", c.socketPath)
		case <-ticker.C:
		}
	}
}

// Grep runs req on the server. Progress events are forwarded to sink as
// they arrive. Cancelling ctx drops the connection, which cancels the
// remote search; use Abort to stop it and still receive partial results.
func (c *Client) Grep(ctx context.Context, req types.SearchRequest, sink search.ProgressSink) (*search.Outcome, error) {
	if sink == nil {
		sink = search.Discard
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://unix/grep", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("grep request failed: %w", err)
	}
	defer resp.Body.Close()

	outcome := &search.Outcome{}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxStreamLine)
	for scanner.Scan() {
		var msg types.StreamMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode stream: %w", err)
		}
		switch msg.Type {
		case types.MessageProgress:
			if msg.Event != nil {
				if err := sink.Notify(*msg.Event); err != nil {
					log.Printf("Warning: progress sink failed at %d/%d: %v", msg.Event.Current, msg.Event.Total, err)
				}
			}
		case types.MessageResult:
			outcome.Records = msg.Records
		case types.MessageError:
			return nil, &RemoteError{Kind: msg.Kind, Message: msg.Error}
		case types.MessageEnd:
			if msg.Summary == nil {
				return nil, errors.New("stream ended without a summary")
			}
			if err := applySummary(outcome, *msg.Summary); err != nil {
				return nil, err
			}
			return outcome, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("grep stream interrupted: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server error: %s", resp.Status)
	}
	return nil, io.ErrUnexpectedEOF
}

func applySummary(out *search.Outcome, s types.Summary) error {
	if err := out.State.UnmarshalText([]byte(s.State)); err != nil {
		return err
	}
	out.Total = s.Total
	out.Processed = s.Processed
	out.Matches = s.Matches
	out.Elapsed = time.Duration(s.ElapsedMS) * time.Millisecond
	return nil
}

// call performs a small JSON request/response exchange.
func (c *Client) call(method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.CallTimeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, "http://unix"+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error: %s", bytes.TrimSpace(data))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
