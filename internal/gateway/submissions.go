package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DanTehrani/story-form-interface/pkg/form"
	"github.com/DanTehrani/story-form-interface/pkg/gate"
	"github.com/DanTehrani/story-form-interface/pkg/httpx"
	"github.com/DanTehrani/story-form-interface/pkg/permalog"
	"github.com/DanTehrani/story-form-interface/pkg/submission"
	"github.com/DanTehrani/story-form-interface/pkg/typedsig"
	"github.com/DanTehrani/story-form-interface/pkg/webhooks"
	"github.com/DanTehrani/story-form-interface/pkg/zkproof"
)

// submitRequest is the submission envelope. Gated submissions carry proofs
// and stay anonymous. Respondent and Signature are only meaningful on
// ungated or allow-listed forms: the allow-list check authenticates the
// claimed address through the signature, never trusts it bare.
type submitRequest struct {
	FormID           string             `json:"formId"`
	Answers          []string           `json:"answers"`
	UnixTime         int64              `json:"unixTime"`
	AppID            string             `json:"appId"`
	MembershipProof  *zkproof.FullProof `json:"membershipProof,omitempty"`
	AttestationProof *zkproof.FullProof `json:"attestationProof,omitempty"`
	Respondent       string             `json:"respondent,omitempty"`
	Signature        string             `json:"signature,omitempty"`
}

func (g *Gateway) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}

	// Publish must have completed before any submission referencing the
	// form is accepted; the log record is the precondition.
	f, found, _, err := g.lookupForm(r.Context(), req.FormID)
	if err != nil {
		writeLogError(w, err)
		return
	}
	if !found {
		httpx.WriteError(w, http.StatusNotFound, "FORM_NOT_FOUND",
			"form is not indexed; retry if it was just published", nil)
		return
	}
	if f.Status != form.StatusActive {
		httpx.WriteError(w, http.StatusConflict, "FORM_INACTIVE", "form no longer accepts submissions", nil)
		return
	}
	if err := submission.ValidateAnswers(f.Questions, req.Answers); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_ANSWERS", err.Error(), nil)
		return
	}
	// The timestamp domain holds for every submission, not only the gated
	// ones whose content hash would catch it later.
	if req.UnixTime < 0 {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_ANSWERS",
			"unixTime must be non-negative", nil)
		return
	}

	sub := submission.Submission{
		FormID:           req.FormID,
		Answers:          req.Answers,
		UnixTime:         req.UnixTime,
		AppID:            req.AppID,
		MembershipProof:  req.MembershipProof,
		AttestationProof: req.AttestationProof,
	}

	requirement := gate.Classify(f.Settings)
	switch requirement {
	case gate.None:
		sub.ProofStatus = zkproof.StatusNonexistent
		if req.Signature != "" {
			if err := g.verifyRespondent(req); err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "SIGNATURE_REJECTED", err.Error(), nil)
				return
			}
		}

	case gate.AllowListOnly:
		sub.ProofStatus = zkproof.StatusNonexistent
		if !gate.AllowListed(f.Settings.Gate, req.Respondent) {
			httpx.WriteError(w, http.StatusForbidden, "NOT_ALLOW_LISTED",
				"respondent is not on the form's allow-list", nil)
			return
		}
		if err := g.verifyRespondent(req); err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "SIGNATURE_REJECTED", err.Error(), nil)
			return
		}

	default:
		outcome, err := g.verifyProofs(r.Context(), requirement, f, &sub)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "ENCODING_ERROR", err.Error(), nil)
			return
		}
		if outcome.Pending {
			// Proofs unresolved: nothing is appended, the caller re-polls.
			httpx.WriteError(w, http.StatusGatewayTimeout, "PROOF_PENDING",
				"proof verification did not resolve in time", outcome.Details)
			return
		}
		if outcome.Status != zkproof.StatusVerified {
			httpx.WriteError(w, http.StatusUnprocessableEntity, "PROOF_INVALID",
				"submission proofs failed verification", outcome.Details)
			return
		}
		sub.ProofStatus = zkproof.StatusVerified
	}

	data, err := json.Marshal(sub)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "ENCODING_ERROR", err.Error(), nil)
		return
	}
	txID, err := g.Log.Append(r.Context(), data, []permalog.Tag{
		{Name: TagAppID, Value: req.AppID},
		{Name: TagType, Value: TypeSubmission},
		{Name: TagFormID, Value: req.FormID},
	})
	if err != nil {
		writeLogError(w, err)
		return
	}
	sub.TxID = txID
	g.notify(webhooks.EventSubmissionAppended, data)

	g.logger.Info().Str("form_id", req.FormID).Str("tx_id", txID).
		Stringer("proof_status", sub.ProofStatus).Msg("submission appended")
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"request_id": httpx.NewRequestID(),
		"submission": sub,
	})
}

func (g *Gateway) listSubmissions(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	res, err := g.Log.Query(r.Context(), permalog.Query{
		Tags: []permalog.Tag{
			{Name: TagType, Value: TypeSubmission},
			{Name: TagFormID, Value: formID},
		},
		First: pageSize(r),
		After: r.URL.Query().Get("after"),
	})
	if err != nil {
		writeLogError(w, err)
		return
	}

	subs := make([]submission.Submission, 0, len(res.Edges))
	cursors := make([]string, 0, len(res.Edges))
	for _, e := range res.Edges {
		var sub submission.Submission
		if err := json.Unmarshal(e.Record.Data, &sub); err != nil {
			g.logger.Warn().Str("tx_id", e.Record.ID).Msg("skipping undecodable submission record")
			continue
		}
		sub.TxID = e.Record.ID
		subs = append(subs, sub)
		cursors = append(cursors, e.Cursor)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"request_id":  httpx.NewRequestID(),
		"submissions": subs,
		"cursors":     cursors,
		"hasNextPage": res.HasNextPage,
	})
}

// reverify recomputes a submission's proof status on demand. The
// recomputation is pure: the same inputs re-derive the same terminal state,
// and terminal states never transition away.
func (g *Gateway) reverify(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "txID")
	rec, found, err := g.Log.Get(r.Context(), txID)
	if err != nil {
		writeLogError(w, err)
		return
	}
	if !found {
		httpx.WriteError(w, http.StatusNotFound, "SUBMISSION_NOT_FOUND", "no such transaction", nil)
		return
	}
	var sub submission.Submission
	if err := json.Unmarshal(rec.Data, &sub); err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "ENCODING_ERROR", err.Error(), nil)
		return
	}

	f, found, _, err := g.lookupForm(r.Context(), sub.FormID)
	if err != nil {
		writeLogError(w, err)
		return
	}
	if !found {
		httpx.WriteError(w, http.StatusNotFound, "FORM_NOT_FOUND", "submission references an unknown form", nil)
		return
	}

	outcome, err := g.verifyProofs(r.Context(), gate.Classify(f.Settings), f, &sub)
	if err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "ENCODING_ERROR", err.Error(), nil)
		return
	}
	status := zkproof.Next(sub.ProofStatus, outcome.Status)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"request_id": httpx.NewRequestID(),
		"txId":       txID,
		"status":     status,
		"pending":    outcome.Pending,
		"details":    outcome.Details,
	})
}

func (g *Gateway) verifyProofs(ctx context.Context, requirement gate.Requirement, f form.Form, sub *submission.Submission) (zkproof.Outcome, error) {
	subHash, err := submission.ContentHash(*sub)
	if err != nil {
		return zkproof.Outcome{}, err
	}
	root := ""
	if f.Settings.Gate != nil {
		root = f.Settings.Gate.MerkleRoot
	}
	ctx, cancel := context.WithTimeout(ctx, g.VerifyTimeout)
	defer cancel()
	return zkproof.Verify(ctx, zkproof.Request{
		Requirement:    requirement,
		MerkleRoot:     root,
		SubmissionHash: subHash,
		Membership:     sub.MembershipProof,
		Attestation:    sub.AttestationProof,
	}), nil
}

func (g *Gateway) verifyRespondent(req submitRequest) error {
	payload, err := typedsig.BuildSubmissionPayload(g.Domain, req.FormID, req.Answers, req.UnixTime, req.AppID)
	if err != nil {
		return err
	}
	return typedsig.Verify(payload, req.Signature, req.Respondent)
}
