// Package session holds the session identifier type shared by all three
// punch roles.
package session

import (
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
)

// Len is the wire size of a session ID.
const Len = 16

// ID names a rendezvous session: a server registers under an ID, and a
// client asks for the same ID to be introduced to it. IDs are opaque
// fixed-width blobs; equality is their only semantic.
type ID [Len]byte

// NewID returns a fresh random ID.
func NewID() ID {
	return ID(uuid.New())
}

var ErrBadIDLen = errors.New("session ID has wrong length")

// FromSlice copies b into an ID. It fails unless len(b) == Len.
func FromSlice(b []byte) (ID, error) {
	if len(b) != Len {
		return ID{}, ErrBadIDLen
	}
	return ID(b), nil
}

// Parse reads an ID from its string form, accepting both plain hex and the
// canonical uuid rendering.
func Parse(s string) (ID, error) {
	if b, err := hex.DecodeString(s); err == nil {
		return FromSlice(b)
	}

	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, err
	}
	return ID(u), nil
}

func (i ID) IsZero() bool {
	return i == ID{}
}

func (i ID) HexString() string {
	return hex.EncodeToString(i[:])
}

func (i ID) String() string {
	return uuid.UUID(i).String()
}

// Debug returns a shortened form for logging.
func (i ID) Debug() string {
	return i.HexString()[:8]
}
