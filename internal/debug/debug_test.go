package debug

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// saveAndRestoreState saves the debug package state and returns a cleanup function
func saveAndRestoreState() func() {
	originalDebug := EnableDebug
	originalMode := MCPMode
	originalRuntime := runtimeEnabled.Load()
	originalOutput := debugOutput
	originalFile := debugFile
	return func() {
		EnableDebug = originalDebug
		MCPMode = originalMode
		runtimeEnabled.Store(originalRuntime)
		debugOutput = originalOutput
		debugFile = originalFile
	}
}

// TestIsDebugEnabled tests the build flag and runtime toggle.
func TestIsDebugEnabled(t *testing.T) {
	defer saveAndRestoreState()()
	t.Setenv("DEBUG", "")
	t.Setenv("FGREP_DEBUG", "")

	EnableDebug = "false"
	Enable(false)
	assert.False(t, IsDebugEnabled())

	EnableDebug = "true"
	assert.True(t, IsDebugEnabled())

	EnableDebug = "false"
	Enable(true)
	assert.True(t, IsDebugEnabled())

	MCPMode = true
	assert.False(t, IsDebugEnabled(), "MCP mode always wins")
}

// TestIsDebugEnabled_Env tests the environment override.
func TestIsDebugEnabled_Env(t *testing.T) {
	defer saveAndRestoreState()()
	EnableDebug = "false"
	Enable(false)
	MCPMode = false

	t.Setenv("DEBUG", "")
	t.Setenv("FGREP_DEBUG", "1")
	assert.True(t, IsDebugEnabled())
}

// TestLog tests the log.
func TestLog(t *testing.T) {
	defer saveAndRestoreState()()

	var buf bytes.Buffer
	SetDebugOutput(&buf)
	EnableDebug = "true"
	MCPMode = false
	Log("TEST", "Hello %s", "World")

	output := buf.String()
	assert.Contains(t, output, "[DEBUG:TEST]")
	assert.Contains(t, output, "Hello World")
}

// TestLog_MCPMode tests that MCP mode silences logging.
func TestLog_MCPMode(t *testing.T) {
	defer saveAndRestoreState()()

	var buf bytes.Buffer
	SetDebugOutput(&buf)
	EnableDebug = "true"
	MCPMode = true
	Log("TEST", "Should not appear")

	assert.Empty(t, buf.String())
}

// TestLogHelpers tests the component helpers.
func TestLogHelpers(t *testing.T) {
	defer saveAndRestoreState()()

	EnableDebug = "true"
	MCPMode = false

	tests := []struct {
		name    string
		logFunc func(string, ...interface{})
		prefix  string
	}{
		{"LogSearch", LogSearch, "[DEBUG:SEARCH]"},
		{"LogScan", LogScan, "[DEBUG:SCAN]"},
		{"LogServer", LogServer, "[DEBUG:SERVER]"},
		{"LogMCP", LogMCP, "[DEBUG:MCP]"},
		{"LogWatch", LogWatch, "[DEBUG:WATCH]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetDebugOutput(&buf)

			tt.logFunc("value %s", "test")

			output := buf.String()
			assert.Contains(t, output, tt.prefix)
			assert.Contains(t, output, "value test")
		})
	}
}

// TestConcurrentLogging tests the concurrent logging.
func TestConcurrentLogging(t *testing.T) {
	defer saveAndRestoreState()()

	SetDebugOutput(&lockedBuffer{})
	EnableDebug = "true"
	MCPMode = false

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			Log("CONCURRENT", "Message from goroutine %d", id)
			LogSearch("Search from goroutine %d", id)
		}(i)
	}
	wg.Wait()
}

// TestNoOutputWithNilWriter tests that no output occurs when writer is nil.
func TestNoOutputWithNilWriter(t *testing.T) {
	defer saveAndRestoreState()()

	SetDebugOutput(nil)
	EnableDebug = "true"
	MCPMode = false

	Printf("test %s", "message")
	Log("TEST", "test %s", "message")
	LogSearch("test %s", "message")
	LogMCP("test %s", "message")
}

// TestInitDebugLogFile tests the init debug log file.
func TestInitDebugLogFile(t *testing.T) {
	defer saveAndRestoreState()()

	logPath, err := InitDebugLogFile()
	require.NoError(t, err)
	require.NotEmpty(t, logPath)
	defer os.Remove(logPath)

	EnableDebug = "true"
	MCPMode = false
	Printf("Test log message\n")

	require.NoError(t, CloseDebugLog())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Test log message")
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}
