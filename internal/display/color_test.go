package display

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColorMode(t *testing.T) {
	for in, want := range map[string]ColorMode{"": ColorAuto, "auto": ColorAuto, "Always": ColorAlways, "never": ColorNever} {
		got, err := ParseColorMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, want.String(), got.String())
	}
	_, err := ParseColorMode("rainbow")
	assert.Error(t, err)
}

func TestColorEnabled(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	tests := []struct {
		name string
		mode ColorMode
		env  map[string]string
		want bool
	}{
		{"always", ColorAlways, nil, true},
		{"never", ColorNever, map[string]string{"FORCE_COLOR": "1"}, false},
		{"auto file is not a tty", ColorAuto, nil, false},
		{"force", ColorAuto, map[string]string{"FORCE_COLOR": "1"}, true},
		{"clicolor force", ColorAuto, map[string]string{"CLICOLOR_FORCE": "yes"}, true},
		{"force zero", ColorAuto, map[string]string{"FORCE_COLOR": "0"}, false},
		{"no color beats force", ColorAuto, map[string]string{"NO_COLOR": "1", "FORCE_COLOR": "1"}, false},
		{"dumb", ColorAuto, map[string]string{"TERM": "dumb", "FORCE_COLOR": "1"}, false},
		{"clicolor off", ColorAuto, map[string]string{"CLICOLOR": "0", "FORCE_COLOR": "1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ColorEnabled(tt.mode, f, tt.env))
		})
	}
}

func TestEnvMap(t *testing.T) {
	env := EnvMap([]string{"A=1", "B=x=y", "C", ""})
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y", "C": ""}, env)
}

func TestIsTerminalNil(t *testing.T) {
	assert.False(t, IsTerminal(nil))
}
