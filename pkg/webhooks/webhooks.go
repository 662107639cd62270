// Package webhooks delivers HMAC-signed event notifications to subscriber
// endpoints and verifies them on the receiving side.
package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	SignatureHeader = "X-Signature"
	EventIDHeader   = "X-Event-Id"
	EventTypeHeader = "X-Event-Type"
	scheme          = "hmac-sha256/v1"
)

// Event types emitted by the gateway.
const (
	EventFormPublished      = "form.published"
	EventSubmissionAppended = "submission.appended"
)

// Sign computes the hex HMAC-SHA256 of the raw body under the shared secret.
func Sign(rawBody []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerificationResult reports the outcome of verifying an inbound delivery,
// with enough detail to diagnose a rejected one.
type VerificationResult struct {
	Valid   bool           `json:"valid"`
	Scheme  string         `json:"scheme"`
	Details map[string]any `json:"details"`
	EventID string         `json:"event_id,omitempty"`
	Type    string         `json:"event_type,omitempty"`
}

// Verify checks an inbound delivery against the shared secret. A missing or
// undecodable signature yields an invalid result, not an error; errors mean
// the verifier itself was misconfigured.
func Verify(headers http.Header, rawBody []byte, secret string) (VerificationResult, error) {
	if strings.TrimSpace(secret) == "" {
		return VerificationResult{}, fmt.Errorf("webhook secret is empty")
	}
	res := VerificationResult{
		Scheme: scheme,
		Details: map[string]any{
			"signature_header_present": false,
			"signature_hex_decodable":  false,
		},
		EventID: strings.TrimSpace(headers.Get(EventIDHeader)),
		Type:    strings.TrimSpace(headers.Get(EventTypeHeader)),
	}
	sigHex := strings.TrimSpace(headers.Get(SignatureHeader))
	if sigHex == "" {
		return res, nil
	}
	res.Details["signature_header_present"] = true
	provided, err := hex.DecodeString(sigHex)
	if err != nil {
		return res, nil
	}
	res.Details["signature_hex_decodable"] = true

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	res.Valid = hmac.Equal(mac.Sum(nil), provided)
	return res, nil
}

// Notifier posts signed event payloads to one subscriber endpoint. A nil
// Notifier is a no-op, so callers can wire it unconditionally.
type Notifier struct {
	URL        string
	Secret     string
	HTTPClient *http.Client
}

func NewNotifier(url, secret string) *Notifier {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	return &Notifier{
		URL:        url,
		Secret:     secret,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify delivers one event. Delivery is best effort: the caller decides
// whether a failure is fatal, the log record itself is already durable.
func (n *Notifier) Notify(ctx context.Context, eventType string, rawBody []byte) error {
	if n == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(rawBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(rawBody, n.Secret))
	req.Header.Set(EventIDHeader, "evt_"+uuid.NewString())
	req.Header.Set(EventTypeHeader, eventType)

	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	return nil
}
