package permalog

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var ErrBadCursor = errors.New("malformed cursor")

// cursorToken is the decoded shape of an opaque continuation token. Seq is
// the log-native sequence number of the record the token points past.
type cursorToken struct {
	Seq uint64 `cbor:"1,keyasint"`
}

// EncodeCursor renders a log sequence number as an opaque token.
func EncodeCursor(seq uint64) string {
	b, _ := cbor.Marshal(cursorToken{Seq: seq})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses an opaque token back into a sequence number.
func DecodeCursor(token string) (uint64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	var t cursorToken
	if err := cbor.Unmarshal(raw, &t); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	return t.Seq, nil
}
