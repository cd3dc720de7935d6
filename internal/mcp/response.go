package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	fgerrors "github.com/standardbeagle/fgrep/internal/errors"
	"github.com/standardbeagle/fgrep/internal/search"
)

// createJSONResponse wraps data as a single JSON text content block.
func createJSONResponse(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// ErrorResponse is the body of a failed tool call.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Operation string `json:"operation"`
}

// createErrorResponse reports a tool failure inside the result with IsError
// set, so the model sees the message instead of a protocol error.
func createErrorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	result, marshalErr := createJSONResponse(ErrorResponse{
		Success:   false,
		Error:     err.Error(),
		Kind:      errorKind(err),
		Operation: operation,
	})
	if marshalErr != nil {
		return nil, marshalErr
	}
	result.IsError = true
	return result, nil
}

// errInvalidParams marks tool arguments that could not be decoded.
var errInvalidParams = errors.New("invalid parameters")

func errorKind(err error) string {
	var pe *fgerrors.PatternError
	var ge *fgerrors.GlobError
	var ioErr *fgerrors.IoError
	switch {
	case errors.Is(err, search.ErrSearchInProgress):
		return "busy"
	case errors.Is(err, errInvalidParams):
		return "params"
	case errors.As(err, &pe):
		return "pattern"
	case errors.As(err, &ge):
		return "glob"
	case errors.As(err, &ioErr):
		return "io"
	default:
		return "internal"
	}
}
