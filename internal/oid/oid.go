// Package oid implements the 20-byte content identifier used throughout
// the reference store.
package oid

import (
	"encoding/hex"
	"fmt"
)

// Size is the length of an OID in raw bytes.
const Size = 20

// HexSize is the length of an OID in its printable hex form.
const HexSize = Size * 2

// OID is a 20-byte content identifier, printed as 40 hex characters.
type OID [Size]byte

// Null is the all-zero OID, meaning "no such value". It is used as the
// old-value in creation updates and the new-value in deletion updates.
var Null OID

// IsNull reports whether o is the all-zero OID.
func (o OID) IsNull() bool {
	return o == Null
}

// String returns the 40-character lowercase hex encoding of o.
func (o OID) String() string {
	return hex.EncodeToString(o[:])
}

// Equal reports whether o and other identify the same value.
func (o OID) Equal(other OID) bool {
	return o == other
}

// Parse decodes a 40-character hex string into an OID.
func Parse(s string) (OID, error) {
	var out OID
	if len(s) != HexSize {
		return out, fmt.Errorf("oid: wrong length %d, want %d", len(s), HexSize)
	}
	n, err := hex.Decode(out[:], []byte(s))
	if err != nil {
		return out, fmt.Errorf("oid: invalid hex: %w", err)
	}
	if n != Size {
		return out, fmt.Errorf("oid: short decode: got %d bytes", n)
	}
	return out, nil
}

// MustParse is like Parse but panics on error; intended for tests and
// constant-like initialization of known-good values.
func MustParse(s string) OID {
	o, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return o
}

// LooksLikeHex reports whether s has the right shape to be a hex-encoded
// OID (length and alphabet), without fully decoding it. Used by the files
// backend to distinguish a direct-OID loose ref from malformed content.
func LooksLikeHex(s string) bool {
	if len(s) != HexSize {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
