package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRandomString(t *testing.T) {
	t.Run("generates string of requested length", func(t *testing.T) {
		for _, length := range []int{1, 6, 7, 12, 32} {
			s, err := NewRandomString(length)
			require.NoError(t, err)
			assert.Len(t, s, length)
		}
	})

	t.Run("uses only alphanumeric characters", func(t *testing.T) {
		s, err := NewRandomString(256)
		require.NoError(t, err)

		for _, r := range s {
			isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			assert.True(t, isAlnum, "unexpected character %q", r)
		}
	})

	t.Run("successive calls differ", func(t *testing.T) {
		seen := make(map[string]struct{})
		for i := 0; i < 100; i++ {
			s, err := NewRandomString(6)
			require.NoError(t, err)
			_, dup := seen[s]
			require.False(t, dup, "duplicate code %q after %d generations", s, i)
			seen[s] = struct{}{}
		}
	})
}
