// Package form defines the semantic content of a published form and its
// content-addressed identity.
package form

import (
	"errors"
	"fmt"
	"strings"
)

const (
	QuestionTypeText     = "text"
	QuestionTypeSelect   = "select"
	QuestionTypeCheckbox = "checkbox"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// CriteriaERC721 marks a gate whose Merkle leaves commit to token-holding
// credentials, requiring an attestation proof alongside membership.
const CriteriaERC721 = "ERC721"

type Question struct {
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required,omitempty"`
	Options  []string `json:"options,omitempty"`
	Other    bool     `json:"other,omitempty"`
}

type Gate struct {
	MerkleRoot       string   `json:"merkleRoot,omitempty"`
	AllowedAddresses []string `json:"allowedAddresses,omitempty"`
}

type Settings struct {
	Gate               *Gate  `json:"gate,omitempty"`
	EncryptionPubKey   string `json:"encryptionPubKey,omitempty"`
	RespondentCriteria string `json:"respondentCriteria,omitempty"`
}

// Content is the immutable semantic payload a form identifier is derived
// from. Two field-wise equal values always encode to identical bytes.
type Content struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	UnixTime    int64      `json:"unixTime"`
	Questions   []Question `json:"questions"`
	Settings    Settings   `json:"settings"`
	Owner       string     `json:"owner"`
	Status      string     `json:"status"`
	AppID       string     `json:"appId"`
}

// Form is a published record: content plus derived identity and the log
// transaction that carries it. Content is never mutated in place; an edit
// publishes a new record that supersedes the old one.
type Form struct {
	ID string `json:"id"`
	Content
	TxID           string `json:"txId"`
	SignatureValid bool   `json:"signatureValid"`
}

var ErrInvalidAddress = errors.New("invalid address")

// NormalizeAddress lowercases a 0x-prefixed 20-byte hex address. All address
// comparisons in the pipeline go through this normal form.
func NormalizeAddress(s string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(s))
	if len(a) != 42 || !strings.HasPrefix(a, "0x") {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	for _, c := range a[2:] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
	}
	return a, nil
}
