package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/DanTehrani/story-form-interface/pkg/form"
	"github.com/DanTehrani/story-form-interface/pkg/gate"
	"github.com/DanTehrani/story-form-interface/pkg/httpx"
	"github.com/DanTehrani/story-form-interface/pkg/permalog"
	"github.com/DanTehrani/story-form-interface/pkg/typedsig"
	"github.com/DanTehrani/story-form-interface/pkg/webhooks"
)

// formRecord is both the publish request shape and the byte payload
// appended to the log: the signed content plus its declared identity.
type formRecord struct {
	ID string `json:"id"`
	form.Content
	Signature string `json:"signature"`
}

func (g *Gateway) publishForm(w http.ResponseWriter, r *http.Request) {
	var req formRecord
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	if err := form.Validate(req.Content); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "ENCODING_ERROR", err.Error(), nil)
		return
	}
	// Listings filter on the gateway's app tag, so a record published under
	// another appId would be accepted yet unlistable. Reject it up front.
	if req.AppID != g.AppID {
		httpx.WriteError(w, http.StatusBadRequest, "APP_ID_MISMATCH",
			"form appId does not match this gateway", map[string]any{"expected": g.AppID})
		return
	}
	if err := gate.ValidateForPublish(req.Settings); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "GATE_MISCONFIGURED", err.Error(), nil)
		return
	}

	id, err := form.DeriveID(req.Content)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "ENCODING_ERROR", err.Error(), nil)
		return
	}
	if req.ID != id {
		httpx.WriteError(w, http.StatusBadRequest, "ID_MISMATCH",
			"declared form id does not match content", map[string]any{"derived": id})
		return
	}

	payload, err := typedsig.BuildFormPayload(g.Domain, id, req.Content)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "ENCODING_ERROR", err.Error(), nil)
		return
	}
	if err := typedsig.Verify(payload, req.Signature, req.Owner); err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "SIGNATURE_REJECTED", err.Error(), nil)
		return
	}

	data, err := json.Marshal(req)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "ENCODING_ERROR", err.Error(), nil)
		return
	}
	txID, err := g.Log.Append(r.Context(), data, []permalog.Tag{
		{Name: TagAppID, Value: req.AppID},
		{Name: TagType, Value: TypeForm},
		{Name: TagFormID, Value: id},
		{Name: TagOwner, Value: req.Owner},
	})
	if err != nil {
		writeLogError(w, err)
		return
	}
	if err := g.Cache.Put(r.Context(), TypeForm, id, req); err != nil {
		g.logger.Warn().Err(err).Str("form_id", id).Msg("pending cache put failed")
	}

	g.notify(webhooks.EventFormPublished, data)

	g.logger.Info().Str("form_id", id).Str("tx_id", txID).Str("owner", req.Owner).Msg("form published")
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"request_id": httpx.NewRequestID(),
		"form":       g.toForm(req, txID),
	})
}

func (g *Gateway) getForm(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	f, found, indexed, err := g.lookupForm(r.Context(), formID)
	if err != nil {
		writeLogError(w, err)
		return
	}
	if !found {
		// Eventual indexing means "not found yet", not a hard failure.
		httpx.WriteError(w, http.StatusNotFound, "FORM_NOT_FOUND",
			"form is not indexed; retry if it was just published", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"request_id": httpx.NewRequestID(),
		"form":       f,
		"indexed":    indexed,
	})
}

func (g *Gateway) listForms(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	tags := []permalog.Tag{
		{Name: TagAppID, Value: g.AppID},
		{Name: TagType, Value: TypeForm},
	}
	if owner != "" {
		normalized, err := form.NormalizeAddress(owner)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "BAD_OWNER", err.Error(), nil)
			return
		}
		tags = append(tags, permalog.Tag{Name: TagOwner, Value: normalized})
	}

	res, err := g.Log.Query(r.Context(), permalog.Query{
		Tags:  tags,
		First: pageSize(r),
		After: r.URL.Query().Get("after"),
	})
	if err != nil {
		writeLogError(w, err)
		return
	}

	forms := make([]form.Form, 0, len(res.Edges))
	cursors := make([]string, 0, len(res.Edges))
	for _, e := range res.Edges {
		var rec formRecord
		if err := json.Unmarshal(e.Record.Data, &rec); err != nil {
			g.logger.Warn().Str("tx_id", e.Record.ID).Msg("skipping undecodable form record")
			continue
		}
		forms = append(forms, g.toForm(rec, e.Record.ID))
		cursors = append(cursors, e.Cursor)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"request_id":  httpx.NewRequestID(),
		"forms":       forms,
		"cursors":     cursors,
		"hasNextPage": res.HasNextPage,
	})
}

// toForm verifies authenticity at read time: a record whose signature no
// longer checks out is surfaced with SignatureValid=false, not hidden.
func (g *Gateway) toForm(rec formRecord, txID string) form.Form {
	valid := false
	if payload, err := typedsig.BuildFormPayload(g.Domain, rec.ID, rec.Content); err == nil {
		valid = typedsig.Verify(payload, rec.Signature, rec.Owner) == nil
	}
	return form.Form{ID: rec.ID, Content: rec.Content, TxID: txID, SignatureValid: valid}
}

// lookupForm reads a form by ID from the log, falling back to the pending
// cache for records the log has not indexed yet.
func (g *Gateway) lookupForm(ctx context.Context, formID string) (form.Form, bool, bool, error) {
	res, err := g.Log.Query(ctx, permalog.Query{
		Tags: []permalog.Tag{
			{Name: TagType, Value: TypeForm},
			{Name: TagFormID, Value: formID},
		},
		First: 1,
	})
	if err != nil {
		return form.Form{}, false, false, err
	}
	if len(res.Edges) > 0 {
		var rec formRecord
		if err := json.Unmarshal(res.Edges[0].Record.Data, &rec); err != nil {
			return form.Form{}, false, false, err
		}
		return g.toForm(rec, res.Edges[0].Record.ID), true, true, nil
	}

	var rec formRecord
	cached, err := g.Cache.Get(ctx, TypeForm, formID, &rec)
	if err != nil {
		g.logger.Warn().Err(err).Str("form_id", formID).Msg("pending cache get failed")
	}
	if !cached {
		return form.Form{}, false, false, nil
	}
	return g.toForm(rec, ""), true, false, nil
}

func pageSize(r *http.Request) int {
	first, err := strconv.Atoi(r.URL.Query().Get("first"))
	if err != nil || first < 1 {
		return 10
	}
	return first
}

func writeLogError(w http.ResponseWriter, err error) {
	if errors.Is(err, permalog.ErrUnavailable) {
		// Transient: no partial writes exist, safe for the caller to retry.
		httpx.WriteError(w, http.StatusServiceUnavailable, "LOG_UNAVAILABLE", err.Error(), nil)
		return
	}
	if errors.Is(err, permalog.ErrBadCursor) {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_CURSOR", err.Error(), nil)
		return
	}
	httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
}
