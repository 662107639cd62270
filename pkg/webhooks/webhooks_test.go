package webhooks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	body := []byte(`{"formId":"0xabc"}`)
	secret := "shared-secret"

	h := http.Header{}
	h.Set(SignatureHeader, Sign(body, secret))
	h.Set(EventIDHeader, "evt_1")
	h.Set(EventTypeHeader, EventSubmissionAppended)

	res, err := Verify(h, body, secret)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.Valid {
		t.Fatalf("signed delivery did not verify: %+v", res)
	}
	if res.EventID != "evt_1" || res.Type != EventSubmissionAppended {
		t.Fatalf("unexpected envelope %+v", res)
	}
}

func TestVerifyRejects(t *testing.T) {
	body := []byte(`{"formId":"0xabc"}`)
	secret := "shared-secret"

	t.Run("tampered body", func(t *testing.T) {
		h := http.Header{}
		h.Set(SignatureHeader, Sign(body, secret))
		res, err := Verify(h, []byte(`{"formId":"0xdef"}`), secret)
		if err != nil || res.Valid {
			t.Fatalf("tampered body verified: %+v err=%v", res, err)
		}
	})
	t.Run("wrong secret", func(t *testing.T) {
		h := http.Header{}
		h.Set(SignatureHeader, Sign(body, "other"))
		res, err := Verify(h, body, secret)
		if err != nil || res.Valid {
			t.Fatalf("wrong secret verified: %+v err=%v", res, err)
		}
	})
	t.Run("missing signature", func(t *testing.T) {
		res, err := Verify(http.Header{}, body, secret)
		if err != nil || res.Valid {
			t.Fatalf("unsigned delivery verified: %+v err=%v", res, err)
		}
		if res.Details["signature_header_present"] != false {
			t.Fatalf("details should flag the missing header")
		}
	})
	t.Run("undecodable signature", func(t *testing.T) {
		h := http.Header{}
		h.Set(SignatureHeader, "zzzz")
		res, err := Verify(h, body, secret)
		if err != nil || res.Valid {
			t.Fatalf("garbage signature verified: %+v err=%v", res, err)
		}
	})
	t.Run("empty secret is a config error", func(t *testing.T) {
		if _, err := Verify(http.Header{}, body, "  "); err == nil {
			t.Fatalf("empty secret accepted")
		}
	})
}

func TestNotifierDeliversSignedEvent(t *testing.T) {
	body := []byte(`{"txId":"abc"}`)
	secret := "shared-secret"

	var got VerificationResult
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		res, err := Verify(r.Header, buf, secret)
		if err != nil {
			t.Errorf("Verify: %v", err)
		}
		got = res
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, secret)
	if err := n.Notify(context.Background(), EventSubmissionAppended, body); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if !got.Valid || got.Type != EventSubmissionAppended || got.EventID == "" {
		t.Fatalf("delivery did not verify: %+v", got)
	}
}

func TestNotifierNilAndFailure(t *testing.T) {
	if n := NewNotifier("", "secret"); n != nil {
		t.Fatalf("empty URL should disable the notifier")
	}
	var n *Notifier
	if err := n.Notify(context.Background(), EventSubmissionAppended, nil); err != nil {
		t.Fatalf("nil notifier must be a no-op, got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	if err := NewNotifier(srv.URL, "secret").Notify(context.Background(), EventSubmissionAppended, []byte("{}")); err == nil {
		t.Fatalf("expected delivery failure")
	}
}
