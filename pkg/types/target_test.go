package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	t.Run("Binding", func(t *testing.T) {
		tg, err := ParseTarget("eth1")
		require.NoError(t, err)
		assert.True(t, tg.IsBinding())
		assert.Equal(t, "eth1", tg.String())
	})

	t.Run("Address", func(t *testing.T) {
		tg, err := ParseTarget("10.0.0.2:1900")
		require.NoError(t, err)
		assert.False(t, tg.IsBinding())
		assert.Equal(t, "10.0.0.2:1900", tg.String())
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, s := range []string{"", "10.0.0.2:0", "[::1]:1900", "10.0.0.0/24"} {
			_, err := ParseTarget(s)
			assert.Error(t, err, s)
		}
	})
}
