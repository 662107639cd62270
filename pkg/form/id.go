package form

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// DeriveID returns the form's permanent identifier: the Keccak-256 digest of
// the canonical encoding, 0x-prefixed lowercase hex. The identifier is
// reproducible purely from content; owner and timestamp are part of the
// encoding, so re-publishing the same content yields the same ID.
func DeriveID(c Content) (string, error) {
	b, err := Encode(c)
	if err != nil {
		return "", err
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	return "0x" + hex.EncodeToString(h.Sum(nil)), nil
}
