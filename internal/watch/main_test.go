package watch

import (
	"testing"

	"go.uber.org/goleak"

	"github.com/standardbeagle/fgrep/testhelpers"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, testhelpers.LeakOptions()...)
}
