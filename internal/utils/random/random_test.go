package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		s, err := String(10)
		require.NoError(t, err)
		assert.Len(t, s, 10)
		assert.Regexp(t, `^[0-9A-Za-z]{10}$`, s)
		assert.False(t, seen[s])
		seen[s] = true
	}
}
