// Package permalog abstracts an append-only, tag-queryable transaction log
// with content-addressed transaction identifiers, and provides cursor
// pagination over it.
//
// Writes are fire-and-forget-durable: a record may not be visible to
// queries immediately after Append. Callers surface that lag as "not found
// yet", not as an error.
package permalog

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// ErrUnavailable marks transient transport failures. Safe to retry with
// backoff: nothing is appended until an action fully resolves, so no
// partial writes exist.
var ErrUnavailable = errors.New("log unavailable")

type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Record struct {
	ID   string `json:"id"`
	Data []byte `json:"data"`
	Tags []Tag  `json:"tags"`
}

// Edge pairs a record with the opaque continuation token that resumes a
// query immediately after it.
type Edge struct {
	Cursor string `json:"cursor"`
	Record Record `json:"record"`
}

// Query filters records by tags (all must match) and pages through matches
// in the log's native order, newest first. HasNextPage in the result is the
// log's own continuation signal, which stays correct under concurrent
// appends; it is never inferred from the result count.
type Query struct {
	Tags  []Tag  `json:"tags"`
	First int    `json:"first"`
	After string `json:"after,omitempty"`
}

type QueryResult struct {
	Edges       []Edge `json:"edges"`
	HasNextPage bool   `json:"hasNextPage"`
}

type Log interface {
	// Append durably stores a payload with its tags and returns the
	// content-addressed transaction ID.
	Append(ctx context.Context, data []byte, tags []Tag) (string, error)
	// Query returns a page of matching records with continuation cursors.
	Query(ctx context.Context, q Query) (QueryResult, error)
	// Get fetches one record by transaction ID. The boolean is false when
	// the record is absent or not yet indexed.
	Get(ctx context.Context, id string) (Record, bool, error)
}

// TxID derives the content-addressed transaction identifier for a payload
// and its tags: base64url of SHA-256 over both.
func TxID(data []byte, tags []Tag) string {
	h := sha256.New()
	h.Write(data)
	for _, t := range tags {
		h.Write([]byte{0})
		h.Write([]byte(t.Name))
		h.Write([]byte{0})
		h.Write([]byte(t.Value))
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
