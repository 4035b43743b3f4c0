package queueapi

import (
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/sift/internal/queue"
	"github.com/linnemanlabs/sift/internal/source"
	"github.com/linnemanlabs/sift/internal/triage"
)

func (a *API) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	owner := a.owner(r)

	items, err := a.queue.Build(r.Context(), owner)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to build queue", "owner", owner)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []queue.PriorityItem{} // keep the JSON body an array, never null
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.Int("sift.queue.size", len(items)))

	a.writeJSON(r.Context(), w, http.StatusOK, map[string]any{"items": items})
}

// itemDetail is the "why is this still here" payload.
type itemDetail struct {
	Item     *triage.WorkItem     `json:"item"`
	Links    []triage.EntityLink  `json:"links"`
	Extracts []triage.ItemExtract `json:"extracts"`
}

func (a *API) handleGetItem(w http.ResponseWriter, r *http.Request) {
	key, err := itemKey(r)
	if err != nil {
		http.Error(w, `{"error":"unknown source type"}`, http.StatusBadRequest)
		return
	}

	item, links, extracts, err := a.triage.Get(r.Context(), a.owner(r), key)
	if err != nil {
		a.writeActionError(w, r, err, "failed to get work item")
		return
	}
	if links == nil {
		links = []triage.EntityLink{}
	}
	if extracts == nil {
		extracts = []triage.ItemExtract{}
	}

	a.writeJSON(r.Context(), w, http.StatusOK, itemDetail{Item: item, Links: links, Extracts: extracts})
}

func (a *API) handleSnooze(w http.ResponseWriter, r *http.Request) {
	key, err := itemKey(r)
	if err != nil {
		http.Error(w, `{"error":"unknown source type"}`, http.StatusBadRequest)
		return
	}

	var req struct {
		Until time.Time `json:"until"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Until.IsZero() {
		http.Error(w, `{"error":"until is required"}`, http.StatusBadRequest)
		return
	}

	item, err := a.triage.Snooze(r.Context(), a.owner(r), key, req.Until)
	if err != nil {
		a.writeActionError(w, r, err, "failed to snooze work item")
		return
	}
	a.writeJSON(r.Context(), w, http.StatusOK, item)
}

func (a *API) handleNoAction(w http.ResponseWriter, r *http.Request) {
	key, err := itemKey(r)
	if err != nil {
		http.Error(w, `{"error":"unknown source type"}`, http.StatusBadRequest)
		return
	}

	item, err := a.triage.NoAction(r.Context(), a.owner(r), key)
	if err != nil {
		a.writeActionError(w, r, err, "failed to ignore work item")
		return
	}
	a.writeJSON(r.Context(), w, http.StatusOK, item)
}

func (a *API) handleTrust(w http.ResponseWriter, r *http.Request) {
	key, err := itemKey(r)
	if err != nil {
		http.Error(w, `{"error":"unknown source type"}`, http.StatusBadRequest)
		return
	}

	item, err := a.triage.MarkTrusted(r.Context(), a.owner(r), key)
	if err != nil {
		a.writeActionError(w, r, err, "failed to trust work item")
		return
	}
	a.writeJSON(r.Context(), w, http.StatusOK, item)
}

func (a *API) handleLink(w http.ResponseWriter, r *http.Request) {
	key, err := itemKey(r)
	if err != nil {
		http.Error(w, `{"error":"unknown source type"}`, http.StatusBadRequest)
		return
	}

	var req struct {
		TargetType string `json:"target_type"`
		TargetID   string `json:"target_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TargetType == "" || req.TargetID == "" {
		http.Error(w, `{"error":"target_type and target_id are required"}`, http.StatusBadRequest)
		return
	}

	if err := a.triage.LinkEntity(r.Context(), a.owner(r), key, req.TargetType, req.TargetID, triage.LinkManual, nil); err != nil {
		a.writeActionError(w, r, err, "failed to link entity")
		return
	}
	a.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "linked"})
}

func (a *API) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	key, err := itemKey(r)
	if err != nil {
		http.Error(w, `{"error":"unknown source type"}`, http.StatusBadRequest)
		return
	}

	var req struct {
		Title        string     `json:"title"`
		Notes        string     `json:"notes"`
		Priority     string     `json:"priority"`
		ScheduledFor *time.Time `json:"scheduled_for"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		http.Error(w, `{"error":"title is required"}`, http.StatusBadRequest)
		return
	}

	task := &source.Task{
		Title:        req.Title,
		Notes:        req.Notes,
		Priority:     req.Priority,
		ScheduledFor: req.ScheduledFor,
	}
	created, err := a.triage.CreateTaskFromSuggestion(r.Context(), a.owner(r), key, task)
	if err != nil {
		a.writeActionError(w, r, err, "failed to create task")
		return
	}
	a.writeJSON(r.Context(), w, http.StatusCreated, created)
}

func (a *API) handleSaveNote(w http.ResponseWriter, r *http.Request) {
	key, err := itemKey(r)
	if err != nil {
		http.Error(w, `{"error":"unknown source type"}`, http.StatusBadRequest)
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		http.Error(w, `{"error":"content is required"}`, http.StatusBadRequest)
		return
	}

	if err := a.triage.SaveAsNote(r.Context(), a.owner(r), key, req.Content); err != nil {
		a.writeActionError(w, r, err, "failed to save note")
		return
	}
	a.writeJSON(r.Context(), w, http.StatusCreated, map[string]string{"status": "saved"})
}
