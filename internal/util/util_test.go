package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBool(t *testing.T) {
	for _, s := range []string{"yes", " TRUE ", "1", "y", "on"} {
		assert.True(t, NormalizeBool(s), s)
	}
	for _, s := range []string{"", "no", "false", "0", "maybe"} {
		assert.False(t, NormalizeBool(s), s)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héllo", Truncate("héllo", 10))
	assert.Equal(t, "hé", Truncate("héllo", 2))
}
