package crypto

import (
	"golang.org/x/crypto/blake2b"

	"code.kestrelchain.io/kestrel/types"
)

// Hash returns the blake2b-256 digest of data.
func Hash(data []byte) types.Hash {
	return types.Hash(blake2b.Sum256(data))
}

// HashOf chains multiple byte slices into a single digest.
func HashOf(parts ...[]byte) types.Hash {
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	sum, _ := types.HashFromBytes(h.Sum(nil))
	return sum
}
