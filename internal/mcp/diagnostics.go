package mcp

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DiagnosticLogger writes MCP server diagnostics to a file. Stdout carries
// the protocol and stderr may be captured by the host, so neither is used.
type DiagnosticLogger struct {
	mu       sync.Mutex
	file     *os.File
	logger   *log.Logger
	filePath string
}

// NewDiagnosticLogger opens a timestamped log file under dir, or under the
// system temp directory when dir is empty. If the file cannot be created the
// logger discards everything rather than failing server startup.
func NewDiagnosticLogger(dir string) *DiagnosticLogger {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "fgrep-mcp-logs")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return NewWriterLogger(io.Discard)
	}

	timestamp := time.Now().Format("2006-01-02T150405")
	logPath := filepath.Join(dir, fmt.Sprintf("mcp-%s-%d.log", timestamp, os.Getpid()))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return NewWriterLogger(io.Discard)
	}

	return &DiagnosticLogger{
		file:     file,
		filePath: logPath,
		logger:   log.New(file, "[MCP] ", log.LstdFlags|log.Lshortfile),
	}
}

// NewWriterLogger logs to w. A nil w discards.
func NewWriterLogger(w io.Writer) *DiagnosticLogger {
	if w == nil {
		w = io.Discard
	}
	return &DiagnosticLogger{logger: log.New(w, "[MCP] ", 0)}
}

// Printf logs a diagnostic message.
func (dl *DiagnosticLogger) Printf(format string, v ...any) {
	if dl == nil || dl.logger == nil {
		return
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	dl.logger.Printf(format, v...)
}

// Errorf logs an error.
func (dl *DiagnosticLogger) Errorf(format string, v ...any) {
	if dl == nil || dl.logger == nil {
		return
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	dl.logger.Printf("ERROR: "+format, v...)
}

// Close closes the log file if it's open.
func (dl *DiagnosticLogger) Close() error {
	if dl == nil {
		return nil
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.file != nil {
		err := dl.file.Close()
		dl.file = nil
		return err
	}
	return nil
}

// LogPath returns the path of the log file, or "" when none is open.
func (dl *DiagnosticLogger) LogPath() string {
	if dl == nil {
		return ""
	}
	return dl.filePath
}
