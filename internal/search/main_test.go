package search

import (
	"testing"

	"go.uber.org/goleak"

	"github.com/standardbeagle/fgrep/testhelpers"
)

// TestMain ensures sessions and concurrent cancel callers leave no goroutines behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, testhelpers.LeakOptions()...)
}
