package queueapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/sift/internal/enrich"
	"github.com/linnemanlabs/sift/internal/triage"
)

// commitmentActions maps URL action segments onto triage sub-actions.
var commitmentActions = map[string]string{
	"complete":   triage.ActionComplete,
	"delegate":   triage.ActionDelegate,
	"waiting-on": triage.ActionWaitingOn,
	"break":      triage.ActionBreak,
	"cancel":     triage.ActionCancel,
}

func (a *API) handleCommitmentAction(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "sourceID")
	action, ok := commitmentActions[chi.URLParam(r, "action")]
	if !ok {
		http.Error(w, `{"error":"unknown commitment action"}`, http.StatusBadRequest)
		return
	}

	if err := a.triage.ResolveCommitment(r.Context(), a.owner(r), sourceID, action); err != nil {
		a.writeActionError(w, r, err, "failed to resolve commitment")
		return
	}
	a.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": action})
}

func (a *API) handleObserve(w http.ResponseWriter, r *http.Request) {
	if a.enricher == nil {
		http.Error(w, `{"error":"enrichment not configured"}`, http.StatusServiceUnavailable)
		return
	}

	key, err := itemKey(r)
	if err != nil {
		http.Error(w, `{"error":"unknown source type"}`, http.StatusBadRequest)
		return
	}

	var req struct {
		Title         string   `json:"title"`
		Body          string   `json:"body"`
		ContextLabels []string `json:"context_labels"`
		HasCompany    bool     `json:"has_company"`
		Stale         bool     `json:"stale"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	item, err := a.enricher.Submit(r.Context(), a.owner(r), &enrich.Request{
		SourceType:    string(key.SourceType),
		SourceID:      key.SourceID,
		Title:         req.Title,
		Body:          req.Body,
		ContextLabels: req.ContextLabels,
		HasCompany:    req.HasCompany,
		Stale:         req.Stale,
	})
	if err != nil {
		a.writeActionError(w, r, err, "failed to submit observation")
		return
	}
	a.writeJSON(r.Context(), w, http.StatusAccepted, item)
}
