package types_test

import (
	"encoding/json"
	"testing"

	"code.kestrelchain.io/kestrel/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	t.Run("Hex round trip", func(t *testing.T) {
		h, err := types.HashFromHex("00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff")
		require.NoError(t, err)
		assert.Equal(t, "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff", h.String())
		assert.False(t, h.IsZero())
	})

	t.Run("Wrong length is rejected", func(t *testing.T) {
		_, err := types.HashFromBytes([]byte("short"))
		require.ErrorIs(t, err, types.ErrInvalidHashLength)

		_, err = types.HashFromHex("abcd")
		require.ErrorIs(t, err, types.ErrInvalidHashLength)
	})

	t.Run("JSON round trip through text marshalling", func(t *testing.T) {
		want, err := types.HashFromHex("ff112233445566778899aabbccddeeff00112233445566778899aabbccddeeff")
		require.NoError(t, err)

		buf, err := json.Marshal(want)
		require.NoError(t, err)

		var got types.Hash
		require.NoError(t, json.Unmarshal(buf, &got))
		assert.Equal(t, want, got)
	})

	t.Run("Zero hash", func(t *testing.T) {
		assert.True(t, types.Hash{}.IsZero())
	})
}
