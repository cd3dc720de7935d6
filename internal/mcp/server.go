// Package mcp exposes the search engine as Model Context Protocol tools over
// stdio: grep runs a search and reports per-file progress through MCP
// progress notifications, abort_grep cancels it.
package mcp

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/fgrep/internal/config"
	"github.com/standardbeagle/fgrep/internal/debug"
	"github.com/standardbeagle/fgrep/internal/search"
	"github.com/standardbeagle/fgrep/internal/version"
)

// Server is an MCP server with a single active search.
type Server struct {
	session *search.Session
	cfg     *config.Config
	root    string
	server  *mcp.Server
	logger  *DiagnosticLogger
}

// NewServer builds a server whose engine follows cfg. Requests without a
// start_directory search root.
func NewServer(cfg *config.Config, root string) (*Server, error) {
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}
	session := search.NewSession(search.NewEngine(engineCfg))
	return NewServerWithSession(session, cfg, root, NewDiagnosticLogger("")), nil
}

// NewServerWithSession builds a server around an existing session.
func NewServerWithSession(session *search.Session, cfg *config.Config, root string, logger *DiagnosticLogger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = NewWriterLogger(nil)
	}
	s := &Server{
		session: session,
		cfg:     cfg,
		root:    root,
		logger:  logger,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "fgrep",
			Version: version.Version,
		}, nil),
	}
	s.registerTools()
	logger.Printf("MCP server initialized (root: %s, log: %s)", root, logger.LogPath())
	return s
}

// Session returns the search session the tools run on.
func (s *Server) Session() *search.Session {
	return s.session
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name: "grep",
		Description: "Search file contents under a directory for a literal string or regular expression. " +
			"Returns every matching line with the byte ranges of each match. Reports per-file progress " +
			"when the call carries a progress token. Only one grep runs at a time; use abort_grep to stop it " +
			"and keep the partial results.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"condition": {
					Type:        "string",
					Description: "Text or regular expression to search for",
				},
				"start_directory": {
					Type:        "string",
					Description: "Directory to search (defaults to the server's root)",
				},
				"file_type": {
					Type:        "string",
					Description: "Glob on file names, e.g. \"*.go\" or \"*.{js,ts}\" (\"*.*\" matches every file)",
				},
				"match_by_word": {
					Type:        "boolean",
					Description: "Only match whole words",
				},
				"case_sensitive": {
					Type:        "boolean",
					Description: "Match case exactly",
				},
				"regexp": {
					Type:        "boolean",
					Description: "Treat condition as a regular expression",
				},
				"recursive": {
					Type:        "boolean",
					Description: "Descend into subdirectories (default true)",
				},
				"max_records": {
					Type:        "integer",
					Description: "Return at most this many records (0 returns all)",
				},
				"relative": {
					Type:        "boolean",
					Description: "Report paths relative to start_directory",
				},
			},
			Required: []string{"condition"},
		},
	}, s.handleGrep)

	s.server.AddTool(&mcp.Tool{
		Name:        "abort_grep",
		Description: "Cancel the running grep. The cancelled grep returns the results found so far.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleAbort)

	s.server.AddTool(&mcp.Tool{
		Name:        "grep_status",
		Description: "Report whether a grep is running and how many files it has searched.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleStatus)
}

// Start serves MCP over stdio until ctx is done or the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	debug.SetMCPMode(true)
	s.logger.Printf("Starting MCP server with stdio transport")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves one session over transport. Used for in-process clients.
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, transport, nil)
}

// Shutdown aborts the active search and closes the diagnostic log.
func (s *Server) Shutdown() error {
	if s.session.Abort() {
		s.logger.Printf("aborted active grep on shutdown")
	}
	return s.logger.Close()
}
