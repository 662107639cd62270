// Package gateway exposes the publishing and submission pipeline over HTTP:
// publish a form, submit answers, re-verify proofs and list records through
// cursor pagination.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/DanTehrani/story-form-interface/internal/pendingcache"
	"github.com/DanTehrani/story-form-interface/pkg/form"
	"github.com/DanTehrani/story-form-interface/pkg/httpx"
	"github.com/DanTehrani/story-form-interface/pkg/logger"
	"github.com/DanTehrani/story-form-interface/pkg/permalog"
	"github.com/DanTehrani/story-form-interface/pkg/typedsig"
	"github.com/DanTehrani/story-form-interface/pkg/webhooks"
)

// Tag vocabulary for appended records, shared with the SDK's pagers.
const (
	TagAppID  = form.TagAppID
	TagType   = form.TagType
	TagFormID = form.TagFormID
	TagOwner  = form.TagOwner

	TypeForm       = form.RecordTypeForm
	TypeSubmission = form.RecordTypeSubmission
)

type Gateway struct {
	Log           permalog.Log
	Cache         *pendingcache.Cache
	Domain        typedsig.Domain
	AppID         string
	VerifyTimeout time.Duration

	// Notifier is optional; nil disables event delivery.
	Notifier *webhooks.Notifier

	logger zerolog.Logger
}

func New(log permalog.Log, cache *pendingcache.Cache, domain typedsig.Domain, appID string, verifyTimeout time.Duration) *Gateway {
	if verifyTimeout <= 0 {
		verifyTimeout = 10 * time.Second
	}
	return &Gateway{
		Log:           log,
		Cache:         cache,
		Domain:        domain,
		AppID:         appID,
		VerifyTimeout: verifyTimeout,
		logger:        logger.Component("gateway"),
	}
}

func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Post("/forms", g.publishForm)
	r.Get("/forms", g.listForms)
	r.Get("/forms/{formID}", g.getForm)
	r.Get("/forms/{formID}/submissions", g.listSubmissions)
	r.Post("/submissions", g.submit)
	r.Post("/submissions/{txID}/verify", g.reverify)
	r.Post("/log/query", g.queryLog)
	return r
}

// notify delivers an event off the request path. The appended record is
// already durable; a failed delivery is logged, not surfaced to the caller.
func (g *Gateway) notify(eventType string, payload []byte) {
	if g.Notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := g.Notifier.Notify(ctx, eventType, payload); err != nil {
			g.logger.Warn().Err(err).Str("event", eventType).Msg("webhook delivery failed")
		}
	}()
}

// queryLog is the single query shape pagination sessions run against; SDK
// pagers drive it with continuation cursors.
func (g *Gateway) queryLog(w http.ResponseWriter, r *http.Request) {
	var q permalog.Query
	if err := httpx.ReadJSON(w, r, &q); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	res, err := g.Log.Query(r.Context(), q)
	if err != nil {
		writeLogError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
