package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/fgrep/internal/debug"
	"github.com/standardbeagle/fgrep/internal/search"
	"github.com/standardbeagle/fgrep/internal/types"
	"github.com/standardbeagle/fgrep/pkg/pathutil"
)

// GrepParams are the grep tool arguments. The embedded request carries
// the wire names hosts already use.
type GrepParams struct {
	types.SearchRequest
	MaxRecords int  `json:"max_records"`
	Relative   bool `json:"relative"`
}

// GrepResponse is the grep tool result.
type GrepResponse struct {
	State       string               `json:"state"`
	Total       int                  `json:"total"`
	Processed   int                  `json:"processed"`
	Matches     int                  `json:"matches"`
	RecordCount int                  `json:"record_count"`
	Truncated   bool                 `json:"truncated,omitempty"`
	ElapsedMS   int64                `json:"elapsed_ms"`
	Records     []types.ResultRecord `json:"records"`
}

// AbortResponse is the abort_grep tool result.
type AbortResponse struct {
	Aborted bool `json:"aborted"`
}

// StatusResponse is the grep_status tool result.
type StatusResponse struct {
	Active   bool                    `json:"active"`
	Progress search.ProgressSnapshot `json:"progress"`
}

// parseGrepParams decodes arguments over the configured defaults.
func (s *Server) parseGrepParams(raw json.RawMessage) (GrepParams, error) {
	params := GrepParams{SearchRequest: s.cfg.Request("", s.root)}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return params, fmt.Errorf("%w: %v", errInvalidParams, err)
		}
	}
	if params.RootDirectory == "" {
		params.RootDirectory = s.root
	}
	if params.MaxRecords < 0 {
		return params, fmt.Errorf("%w: max_records must not be negative", errInvalidParams)
	}
	return params, nil
}

func (s *Server) handleGrep(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := s.parseGrepParams(req.Params.Arguments)
	if err != nil {
		return createErrorResponse("grep", err)
	}

	sink := search.Discard
	if token := req.Params.GetProgressToken(); token != nil && req.Session != nil {
		sink = progressSink(ctx, req.Session.NotifyProgress, token, params, s.logger)
	}

	debug.LogMCP("grep %q in %s\n", params.Pattern, params.RootDirectory)
	outcome, err := s.session.Run(ctx, params.SearchRequest, sink)
	if err != nil {
		s.logger.Errorf("grep %q failed: %v", params.Pattern, err)
		return createErrorResponse("grep", err)
	}
	return createJSONResponse(buildGrepResponse(outcome, params))
}

func buildGrepResponse(outcome *search.Outcome, params GrepParams) GrepResponse {
	records := outcome.Records
	if params.Relative {
		records = pathutil.ToRelativeRecords(records, params.RootDirectory)
	}
	resp := GrepResponse{
		State:       outcome.State.String(),
		Total:       outcome.Total,
		Processed:   outcome.Processed,
		Matches:     outcome.Matches,
		RecordCount: len(records),
		ElapsedMS:   outcome.Elapsed.Milliseconds(),
		Records:     records,
	}
	if params.MaxRecords > 0 && len(records) > params.MaxRecords {
		resp.Records = records[:params.MaxRecords]
		resp.Truncated = true
	}
	if resp.Records == nil {
		resp.Records = []types.ResultRecord{}
	}
	return resp
}

type notifyFunc func(context.Context, *mcp.ProgressNotificationParams) error

// progressSink turns engine progress events into MCP progress
// notifications for token.
func progressSink(ctx context.Context, notify notifyFunc, token any, params GrepParams, logger *DiagnosticLogger) search.ProgressSink {
	return search.SinkFunc(func(ev types.ProgressEvent) error {
		if params.Relative {
			ev = pathutil.ToRelativeEvent(ev, params.RootDirectory)
		}
		err := notify(ctx, &mcp.ProgressNotificationParams{
			ProgressToken: token,
			Progress:      float64(ev.Current),
			Total:         float64(ev.Total),
			Message:       ev.Processing,
		})
		if err != nil {
			logger.Errorf("progress notification %d/%d failed: %v", ev.Current, ev.Total, err)
		}
		return err
	})
}

func (s *Server) handleAbort(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	aborted := s.session.Abort()
	debug.LogMCP("abort_grep: aborted=%t\n", aborted)
	return createJSONResponse(AbortResponse{Aborted: aborted})
}

func (s *Server) handleStatus(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return createJSONResponse(StatusResponse{
		Active:   s.session.Active(),
		Progress: s.session.Engine().Progress(),
	})
}
