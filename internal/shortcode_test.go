package internal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShortCode(t *testing.T) {
	code, err := NewShortCode()
	require.NoError(t, err)
	assert.Len(t, code, ShortCodeLength)

	for _, r := range code {
		assert.True(t, strings.ContainsRune(alphabet, r), "unexpected rune %q in short code", r)
	}
}

func TestNewShortCode_NoObviousCollisions(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := NewShortCode()
		require.NoError(t, err)
		assert.False(t, seen[code], "duplicate short code %q after %d draws", code, i)
		seen[code] = true
	}
}
