// Package zkproof verifies the zero-knowledge membership and attestation
// proofs gated submissions carry, and tracks their verification lifecycle.
//
// A proof is an opaque blob plus a mapping of named public signals. The
// verifier only consumes prover output; circuit internals stay external.
package zkproof

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	ErrProofInvalid = errors.New("proof invalid")
	ErrProofPending = errors.New("proof verification pending")
)

// Public signal names shared between prover and verifier.
const (
	SignalMerkleRoot             = "merkleRoot"
	SignalAttestationHash        = "attestationHash"
	SignalAttestationHashSquared = "attestationHashSquared"
	SignalSubmissionHash         = "submissionHash"
)

// FullProof pairs serialized proof bytes with named public signals. Signal
// values are decimal field-element strings.
type FullProof struct {
	Proof         string            `json:"proof"`
	PublicSignals map[string]string `json:"publicSignals"`
}

// Status is the proof verification lifecycle of one submission.
//
// Nonexistent means "not applicable" (ungated form), not "missing".
// Verifying is entered as soon as a proof is attached. Verified and Invalid
// are terminal.
type Status int

const (
	StatusNonexistent Status = iota
	StatusVerifying
	StatusVerified
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusNonexistent:
		return "nonexistent"
	case StatusVerifying:
		return "verifying"
	case StatusVerified:
		return "verified"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition leaves this status.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusInvalid
}

// Next applies the state machine's transition rule: terminal states stick,
// Nonexistent never becomes anything else, and a Verifying submission adopts
// the computed outcome. Re-verification of a terminal status is a pure
// recomputation and converges to the same value, so races between
// concurrent verifiers are benign.
func Next(current, computed Status) Status {
	if current.Terminal() || current == StatusNonexistent {
		return current
	}
	return computed
}

func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *Status) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case `"nonexistent"`:
		*s = StatusNonexistent
	case `"verifying"`:
		*s = StatusVerifying
	case `"verified"`:
		*s = StatusVerified
	case `"invalid"`:
		*s = StatusInvalid
	default:
		return fmt.Errorf("unknown proof status %s", b)
	}
	return nil
}

// membershipWitness is the decoded layout of a membership proof blob: a
// Merkle proof set in log-native order.
type membershipWitness struct {
	ProofSet   [][]byte `cbor:"1,keyasint"`
	ProofIndex uint64   `cbor:"2,keyasint"`
	NumLeaves  uint64   `cbor:"3,keyasint"`
}

// attestationWitness is the decoded layout of an attestation proof blob.
type attestationWitness struct {
	PreImage []byte `cbor:"1,keyasint"`
}

func encodeBlob(v any) (string, error) {
	b, err := cbor.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func decodeBlob(blob string, dst any) error {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return fmt.Errorf("%w: proof bytes: %v", ErrProofInvalid, err)
	}
	if err := cbor.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: proof bytes: %v", ErrProofInvalid, err)
	}
	return nil
}
