// Package testhelpers provides shared utilities for testing fgrep
package testhelpers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

// LeakOptions are the goleak options every package TestMain uses.
func LeakOptions() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("sync.runtime_Semacquire"),
	}
}

// WriteTree creates files under a fresh temp directory and returns its path.
// Keys are slash-separated relative paths; parent directories are created.
//
//	root := testhelpers.WriteTree(t, map[string]string{
//	    "src/main.go": "package main",
//	})
func WriteTree(t testing.TB, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	WriteFiles(t, root, files)
	return root
}

// WriteFiles writes files below an existing root.
func WriteFiles(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

// WaitFor waits for a condition to become true with timeout
//
//	testhelpers.WaitFor(t, func() bool {
//	    return runs.Load() >= 2
//	}, 5*time.Second)
func WaitFor(t testing.TB, condition func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		if condition() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Condition not met within %v", timeout)
			return
		}
	}
}

// SkipIfShort skips the test if -short flag is provided
func SkipIfShort(t *testing.T, reason string) {
	t.Helper()
	if testing.Short() {
		t.Skipf("Skipping in short mode: %s", reason)
	}
}

// SampleProject returns a small multi-language tree for end-to-end tests.
func SampleProject() map[string]string {
	return map[string]string{
		"main.go": "package main\n\nimport \"fmt\"\n\nfunc hello() {\n\tfmt.Println(\"Hello, World!\")\n}\n\nfunc main() {\n\thello()\n}\n",
		"service/service.go": "package service\n\n// Service says hello\ntype Service struct{}\n\nfunc (s *Service) Hello() string {\n\treturn \"hello hello\"\n}\n",
		"calc.js":   "function calculateSum(a, b) {\n\treturn a + b;\n}\n",
		"README.md": "# Test Project\r\n\r\nSay Hello to the project.\r\n",
	}
}
