package core

import (
	"testing"

	"go.uber.org/goleak"

	"github.com/standardbeagle/fgrep/testhelpers"
)

// TestMain ensures no goroutines leak in any test in the core package.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, testhelpers.LeakOptions()...)
}
