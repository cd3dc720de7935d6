package discovery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/fgrep/testhelpers"
)

func TestGitignore_Ignored(t *testing.T) {
	gi, err := ParseGitignore(strings.NewReader(strings.Join([]string{
		"# comment",
		"",
		"*.log",
		"!important.log",
		"build/",
		"/root-only.txt",
		"docs/*.tmp",
		`\#literal`,
	}, "\n")))
	require.NoError(t, err)
	assert.Equal(t, 6, gi.Len())

	tests := []struct {
		path    string
		isDir   bool
		ignored bool
	}{
		{"debug.log", false, true},
		{"nested/deep/trace.log", false, true},
		{"important.log", false, false},
		{"build", true, true},
		{"build/out.bin", false, true},
		{"src/build/out.bin", false, true},
		{"build", false, false},
		{"root-only.txt", false, true},
		{"sub/root-only.txt", false, false},
		{"docs/a.tmp", false, true},
		{"other/docs/a.tmp", false, false},
		{"#literal", false, true},
		{"main.go", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.ignored, gi.Ignored(tt.path, tt.isDir))
		})
	}
}

func TestGitignore_Load(t *testing.T) {
	root := testhelpers.WriteTree(t, map[string]string{".gitignore": "*.tmp\n"})
	gi, err := LoadGitignore(root)
	require.NoError(t, err)
	assert.True(t, gi.Ignored("x.tmp", false))

	empty, err := LoadGitignore(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	var nilGi *Gitignore
	assert.False(t, nilGi.Ignored("anything", false))
}
