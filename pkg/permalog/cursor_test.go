package permalog

import (
	"errors"
	"testing"
)

func TestCursorRoundTrip(t *testing.T) {
	for _, seq := range []uint64{0, 1, 42, 1 << 40} {
		token := EncodeCursor(seq)
		back, err := DecodeCursor(token)
		if err != nil {
			t.Fatalf("DecodeCursor(%q): %v", token, err)
		}
		if back != seq {
			t.Fatalf("round trip %d -> %d", seq, back)
		}
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"%%%", "bm90LWNib3I", "AAAA"} {
		if _, err := DecodeCursor(bad); !errors.Is(err, ErrBadCursor) {
			t.Fatalf("DecodeCursor(%q): expected ErrBadCursor, got %v", bad, err)
		}
	}
}

func TestTxIDContentAddressed(t *testing.T) {
	data := []byte("payload")
	tags := []Tag{{Name: "Type", Value: "note"}}

	a := TxID(data, tags)
	b := TxID(data, tags)
	if a != b {
		t.Fatalf("same inputs produced different ids")
	}
	if TxID([]byte("payload2"), tags) == a {
		t.Fatalf("different data produced the same id")
	}
	if TxID(data, []Tag{{Name: "Type", Value: "form"}}) == a {
		t.Fatalf("different tags produced the same id")
	}
	// Tag boundaries are delimited: shifting bytes between name and value
	// must change the id.
	if TxID(data, []Tag{{Name: "Typen", Value: "ote"}}) == a {
		t.Fatalf("tag boundary shift produced the same id")
	}
}
