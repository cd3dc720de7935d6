package server

import (
	"github.com/standardbeagle/fgrep/internal/search"
)

// RPC request/response types for client-server communication. The /grep
// endpoint takes a types.SearchRequest and answers with an NDJSON stream of
// types.StreamMessage values.

// Error kinds carried by stream error messages.
const (
	KindPattern  = "pattern"
	KindGlob     = "glob"
	KindIO       = "io"
	KindBusy     = "busy"
	KindInternal = "internal"
)

// StatusResponse describes the server's current or most recent search.
type StatusResponse struct {
	Active   bool                    `json:"active"`
	Progress search.ProgressSnapshot `json:"progress"`
}

// AbortResponse reports whether a running search was cancelled.
type AbortResponse struct {
	Aborted bool `json:"aborted"`
}

// ShutdownRequest requests server shutdown
type ShutdownRequest struct {
	Force bool `json:"force,omitempty"`
}

// ShutdownResponse confirms shutdown
type ShutdownResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// PingResponse confirms server is alive
type PingResponse struct {
	Uptime  float64 `json:"uptime"`
	Version string  `json:"version"`
	BuildID string  `json:"build_id"`
	PID     int     `json:"pid"`
	Root    string  `json:"root,omitempty"`
}
