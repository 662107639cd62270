// Package submission defines answers submitted to a form and the content
// hash that binds proofs to a specific submission.
package submission

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/crypto/sha3"

	"github.com/DanTehrani/story-form-interface/pkg/form"
	"github.com/DanTehrani/story-form-interface/pkg/zkproof"
)

var ErrInvalidAnswers = errors.New("invalid answers")

// Submission is an answer set for a published form. The proof fields are
// populated before the record is durably appended when the form is gated.
// Only ProofStatus may change after append, as verification completes.
type Submission struct {
	FormID           string            `json:"formId"`
	Answers          []string          `json:"answers"`
	UnixTime         int64             `json:"unixTime"`
	AppID            string            `json:"appId"`
	MembershipProof  *zkproof.FullProof `json:"membershipProof,omitempty"`
	AttestationProof *zkproof.FullProof `json:"attestationProof,omitempty"`
	ProofStatus      zkproof.Status    `json:"proofsVerified"`
	TxID             string            `json:"txId,omitempty"`
}

// ValidateAnswers checks position alignment against the form's questions:
// one answer per question, required questions answered, selectable answers
// drawn from the question's options unless free-text is allowed.
func ValidateAnswers(questions []form.Question, answers []string) error {
	if len(answers) != len(questions) {
		return fmt.Errorf("%w: %d answers for %d questions", ErrInvalidAnswers, len(answers), len(questions))
	}
	for i, q := range questions {
		a := answers[i]
		if a == "" {
			if q.Required {
				return fmt.Errorf("%w: question %d is required", ErrInvalidAnswers, i)
			}
			continue
		}
		switch q.Type {
		case form.QuestionTypeSelect:
			if !optionOf(q, a) {
				return fmt.Errorf("%w: question %d: answer %q is not an option", ErrInvalidAnswers, i, a)
			}
		case form.QuestionTypeCheckbox:
			for _, part := range strings.Split(a, ";") {
				if part != "" && !optionOf(q, part) {
					return fmt.Errorf("%w: question %d: answer %q is not an option", ErrInvalidAnswers, i, part)
				}
			}
		}
	}
	return nil
}

func optionOf(q form.Question, answer string) bool {
	if q.Other {
		return true
	}
	for _, opt := range q.Options {
		if opt == answer {
			return true
		}
	}
	return false
}

// ContentHash derives the field element attestation proofs must bind to:
// Keccak-256 over a canonical encoding of (formId, answers, unixTime, appId),
// reduced into the BN254 scalar field and rendered as a decimal string, the
// same form public signals use.
func ContentHash(s Submission) (string, error) {
	if s.UnixTime < 0 {
		return "", fmt.Errorf("%w: negative timestamp %d", ErrInvalidAnswers, s.UnixTime)
	}
	var b bytes.Buffer
	writeString(&b, s.FormID)
	writeUvarint(&b, uint64(len(s.Answers)))
	for _, a := range s.Answers {
		writeString(&b, a)
	}
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(s.UnixTime))
	b.Write(ts[:])
	writeString(&b, s.AppID)

	h := sha3.NewLegacyKeccak256()
	h.Write(b.Bytes())
	var e fr.Element
	e.SetBytes(h.Sum(nil))
	return e.String(), nil
}

func writeString(b *bytes.Buffer, s string) {
	writeUvarint(b, uint64(len(s)))
	b.WriteString(s)
}

func writeUvarint(b *bytes.Buffer, v uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	b.Write(buf[:n])
}
