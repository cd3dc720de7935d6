package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildIDStable(t *testing.T) {
	id := BuildID()
	assert.NotEmpty(t, id)
	assert.Equal(t, id, BuildID())
}

func TestFullInfo(t *testing.T) {
	assert.True(t, strings.HasPrefix(FullInfo(), "fgrep "+Version))
	assert.Equal(t, Version, Info())
}
