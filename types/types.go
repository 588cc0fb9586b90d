package types

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// Slot is a position in the ledger, strictly increasing from genesis.
type Slot uint64

// Epoch groups a fixed number of consecutive slots.
type Epoch uint64

// HashLen is the length in bytes of a content hash.
const HashLen = 32

var ErrInvalidHashLength = errors.New("invalid hash length")

// Hash is a 32 byte content hash, rendered as hex.
type Hash [HashLen]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

// HashFromBytes copies b into a Hash. The slice must be exactly HashLen long.
func HashFromBytes(b []byte) (Hash, error) {
	if len(b) != HashLen {
		return Hash{}, fmt.Errorf("%w: got %d bytes", ErrInvalidHashLength, len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// HashFromHex parses a hex encoded hash.
func HashFromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	return HashFromBytes(b)
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := HashFromHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
