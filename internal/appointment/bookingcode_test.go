package appointment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBookingCodeFormat(t *testing.T) {
	code, err := generateBookingCode()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(code, "RIVO-"))
	parts := strings.Split(code, "-")
	require.Len(t, parts, 4)
	for _, p := range parts[1:] {
		assert.Len(t, p, 3)
		for _, c := range p {
			assert.Contains(t, bookingCodeAlphabet, string(c))
		}
	}
}

func TestGenerateBookingCodeVaries(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		code, err := generateBookingCode()
		require.NoError(t, err)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1, "codes should vary across 20 draws")
}
