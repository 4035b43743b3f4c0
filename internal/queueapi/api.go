// Package queueapi exposes the ranked queue and triage actions over HTTP.
package queueapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/sift/internal/enrich"
	"github.com/linnemanlabs/sift/internal/queue"
	"github.com/linnemanlabs/sift/internal/source"
	"github.com/linnemanlabs/sift/internal/triage"
)

// ownerHeader optionally overrides the owner for multi-user stores.
const ownerHeader = "X-Sift-User"

// QueueService builds the ranked queue.
type QueueService interface {
	Build(ctx context.Context, owner string) ([]queue.PriorityItem, error)
}

// TriageService defines the triage operations the API needs.
type TriageService interface {
	Get(ctx context.Context, owner string, key triage.ItemKey) (*triage.WorkItem, []triage.EntityLink, []triage.ItemExtract, error)
	Snooze(ctx context.Context, owner string, key triage.ItemKey, until time.Time) (*triage.WorkItem, error)
	NoAction(ctx context.Context, owner string, key triage.ItemKey) (*triage.WorkItem, error)
	MarkTrusted(ctx context.Context, owner string, key triage.ItemKey) (*triage.WorkItem, error)
	LinkEntity(ctx context.Context, owner string, key triage.ItemKey, targetType, targetID string, reason triage.LinkReason, confidence *float64) error
	CreateTaskFromSuggestion(ctx context.Context, owner string, key triage.ItemKey, task *source.Task) (*source.Task, error)
	SaveAsNote(ctx context.Context, owner string, key triage.ItemKey, content string) error
	ResolveCommitment(ctx context.Context, owner, commitmentID, action string) error
}

// Enricher accepts new observations.
type Enricher interface {
	Submit(ctx context.Context, owner string, req *enrich.Request) (*triage.WorkItem, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger       log.Logger
	queue        QueueService
	triage       TriageService
	enricher     Enricher
	defaultOwner string
}

// New creates a new API handler. enricher may be nil; the observe endpoint
// then answers 503.
func New(logger log.Logger, qs QueueService, ts TriageService, enricher Enricher, defaultOwner string) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if qs == nil {
		panic(xerrors.New("queue service is required"))
	}
	if ts == nil {
		panic(xerrors.New("triage service is required"))
	}
	if defaultOwner == "" {
		defaultOwner = "default"
	}
	return &API{
		logger:       logger,
		queue:        qs,
		triage:       ts,
		enricher:     enricher,
		defaultOwner: defaultOwner,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/queue", a.handleGetQueue)

		r.Route("/items/{sourceType}/{sourceID}", func(r chi.Router) {
			r.Get("/", a.handleGetItem)
			r.Post("/snooze", a.handleSnooze)
			r.Post("/no-action", a.handleNoAction)
			r.Post("/trust", a.handleTrust)
			r.Post("/links", a.handleLink)
			r.Post("/tasks", a.handleCreateTask)
			r.Post("/notes", a.handleSaveNote)
		})

		r.Post("/commitments/{sourceID}/{action}", a.handleCommitmentAction)
		r.Post("/observe/{sourceType}/{sourceID}", a.handleObserve)
	})
}

// owner resolves the acting principal for a request.
func (a *API) owner(r *http.Request) string {
	if o := r.Header.Get(ownerHeader); o != "" {
		return o
	}
	return a.defaultOwner
}

// itemKey parses the identity path segments. A bad source type is a 400.
func itemKey(r *http.Request) (triage.ItemKey, error) {
	t, err := source.ParseType(chi.URLParam(r, "sourceType"))
	if err != nil {
		return triage.ItemKey{}, err
	}
	return triage.ItemKey{SourceType: t, SourceID: chi.URLParam(r, "sourceID")}, nil
}

func (a *API) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error(ctx, err, "failed to encode response")
	}
}

// writeActionError maps the triage error taxonomy onto HTTP statuses: guard
// violations are 409 with the specific missing conditions, not-found on a
// direct action is 404, everything else is a logged 500.
func (a *API) writeActionError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var rejected *triage.TrustRejectedError
	switch {
	case errors.As(err, &rejected):
		a.writeJSON(r.Context(), w, http.StatusConflict, map[string]string{"error": rejected.Error()})
	case errors.Is(err, triage.ErrNotFound):
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	default:
		a.logger.Error(r.Context(), err, msg)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}
