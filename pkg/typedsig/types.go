// Package typedsig builds domain-separated typed signing payloads for form
// publishing and submission envelopes, and verifies signatures against them.
package typedsig

import "errors"

var (
	ErrSignatureRejected = errors.New("signature rejected")
	ErrInvalidEncoding   = errors.New("invalid encoding")
	ErrUnsupportedType   = errors.New("unsupported field type")
	ErrSchemaMismatch    = errors.New("schema mismatch")
)

// Domain scopes a signature to a deployment and network, preventing
// cross-network replay. Parameters are externally configured.
type Domain struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	ChainID int64  `json:"chainId"`
}

type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TypedData is a structured signing payload: a chain-scoped domain, a
// versioned type schema and the message body. Verification recomputes the
// exact same payload from the record being checked.
type TypedData struct {
	Domain      Domain            `json:"domain"`
	PrimaryType string            `json:"primaryType"`
	Types       []Field           `json:"types"`
	Message     map[string]string `json:"message"`
}

// FormTypes is the versioned type schema for form publishing. Questions and
// settings travel as canonical JSON strings inside the typed message.
var FormTypes = []Field{
	{Name: "id", Type: "string"},
	{Name: "title", Type: "string"},
	{Name: "description", Type: "string"},
	{Name: "unixTime", Type: "uint256"},
	{Name: "questions", Type: "string"},
	{Name: "settings", Type: "string"},
	{Name: "owner", Type: "address"},
	{Name: "status", Type: "string"},
	{Name: "appId", Type: "string"},
}

// SubmissionTypes is the schema for optional identified submissions to
// ungated forms. Gated submissions carry proofs instead of signatures.
var SubmissionTypes = []Field{
	{Name: "formId", Type: "string"},
	{Name: "answers", Type: "string"},
	{Name: "unixTime", Type: "uint256"},
	{Name: "appId", Type: "string"},
}
