package triage

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/sift/internal/source"
)

// Commitment sub-actions. All of them set the commitment's own status;
// all but ActionWaitingOn also drive the owning work item to trusted, since
// resolving the commitment is itself a qualifying judgment.
const (
	ActionComplete  = "complete"
	ActionDelegate  = "delegate"
	ActionWaitingOn = "waiting_on"
	ActionBreak     = "break"
	ActionCancel    = "cancel"
)

// commitmentStatusFor maps a sub-action to the commitment's own status field.
func commitmentStatusFor(action string) (string, error) {
	switch action {
	case ActionComplete:
		return source.CommitmentCompleted, nil
	case ActionDelegate:
		return source.CommitmentDelegated, nil
	case ActionWaitingOn:
		return source.CommitmentWaitingOn, nil
	case ActionBreak:
		return source.CommitmentBroken, nil
	case ActionCancel:
		return source.CommitmentCancelled, nil
	}
	return "", fmt.Errorf("unknown commitment action %q", action)
}

// Service is the business boundary for triage operations. All mutations go
// through it; storage failures propagate unchanged (no retries at this
// layer — only the upsert-keyed link writes would be safe to retry blindly).
type Service struct {
	store   Store
	dir     source.Directory
	logger  log.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewService creates a new triage service.
func NewService(store Store, dir source.Directory, logger log.Logger, metrics *Metrics) *Service {
	return &Service{
		store:   store,
		dir:     dir,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Get returns a work item with its links and extracts — everything the UI
// needs to render "why is this still here" and "what would clear it".
func (s *Service) Get(ctx context.Context, owner string, key ItemKey) (*WorkItem, []EntityLink, []ItemExtract, error) {
	item, ok, err := s.store.GetWorkItem(ctx, owner, key)
	if err != nil {
		return nil, nil, nil, err
	}
	if !ok {
		return nil, nil, nil, ErrNotFound
	}
	item = s.normalize(ctx, item)

	links, err := s.store.ListEntityLinks(ctx, owner, key)
	if err != nil {
		return nil, nil, nil, err
	}
	extracts, err := s.store.ListItemExtracts(ctx, owner, key)
	if err != nil {
		return nil, nil, nil, err
	}
	return item, links, extracts, nil
}

// List returns all work items for an owner, with expired snoozes normalized.
func (s *Service) List(ctx context.Context, owner string) ([]WorkItem, error) {
	items, err := s.store.ListWorkItems(ctx, owner)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i] = *s.normalize(ctx, &items[i])
	}
	return items, nil
}

// Ensure creates a pending work item for the key if none exists and returns
// the durable record either way.
func (s *Service) Ensure(ctx context.Context, owner string, key ItemKey, reasonCodes []string) (*WorkItem, error) {
	if existing, ok, err := s.store.GetWorkItem(ctx, owner, key); err != nil {
		return nil, err
	} else if ok {
		return s.normalize(ctx, existing), nil
	}

	now := s.now()
	item := &WorkItem{
		ID:            key.ItemID(),
		SourceType:    key.SourceType,
		SourceID:      key.SourceID,
		CreatedBy:     owner,
		Status:        StatusPending,
		ReasonCodes:   slices.Clone(reasonCodes),
		LastTouchedAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if item.ReasonCodes == nil {
		item.ReasonCodes = []string{}
	}
	if err := s.store.PutWorkItem(ctx, item); err != nil {
		return nil, err
	}
	s.metrics.IncCreated()
	return item, nil
}

// Snooze moves an item to snoozed until the given time. Allowed from any
// state.
func (s *Service) Snooze(ctx context.Context, owner string, key ItemKey, until time.Time) (*WorkItem, error) {
	item, err := s.mustGet(ctx, owner, key)
	if err != nil {
		s.metrics.IncAction("snooze", "error")
		return nil, err
	}
	now := s.now()
	item.Status = StatusSnoozed
	item.SnoozeUntil = &until
	s.touch(item, now)
	if err := s.store.PutWorkItem(ctx, item); err != nil {
		s.metrics.IncAction("snooze", "error")
		return nil, err
	}
	s.metrics.IncAction("snooze", "ok")
	return item, nil
}

// NoAction marks an item ignored: the explicit declaration of irrelevance.
// Allowed from any state, and itself satisfies the trust invariant.
func (s *Service) NoAction(ctx context.Context, owner string, key ItemKey) (*WorkItem, error) {
	item, err := s.mustGet(ctx, owner, key)
	if err != nil {
		s.metrics.IncAction("no_action", "error")
		return nil, err
	}
	now := s.now()
	item.Status = StatusIgnored
	item.ReviewedAt = &now
	s.touch(item, now)
	if err := s.store.PutWorkItem(ctx, item); err != nil {
		s.metrics.IncAction("no_action", "error")
		return nil, err
	}
	s.metrics.IncAction("no_action", "ok")
	return item, nil
}

// MarkTrusted transitions an item to trusted, guarded by the clearable
// invariant. A *TrustRejectedError tells the caller exactly which conditions
// are unmet.
func (s *Service) MarkTrusted(ctx context.Context, owner string, key ItemKey) (*WorkItem, error) {
	item, err := s.store.MarkTrusted(ctx, owner, key, s.now(), false)
	if err != nil {
		if _, rejected := err.(*TrustRejectedError); rejected {
			s.metrics.IncTrustRejected()
			s.metrics.IncAction("trust", "rejected")
		} else {
			s.metrics.IncAction("trust", "error")
		}
		return nil, err
	}
	s.metrics.IncAction("trust", "ok")
	return item, nil
}

// LinkEntity creates or refreshes an entity link and clears the
// unlinked_company reason code. It does not change the item's status.
func (s *Service) LinkEntity(ctx context.Context, owner string, key ItemKey, targetType, targetID string, reason LinkReason, confidence *float64) error {
	item, err := s.mustGet(ctx, owner, key)
	if err != nil {
		s.metrics.IncAction("link", "error")
		return err
	}

	now := s.now()
	link := &EntityLink{
		SourceType: key.SourceType,
		SourceID:   key.SourceID,
		TargetType: targetType,
		TargetID:   targetID,
		CreatedBy:  owner,
		LinkReason: reason,
		Confidence: confidence,
		CreatedAt:  now,
	}
	if err := s.store.UpsertEntityLink(ctx, link); err != nil {
		s.metrics.IncAction("link", "error")
		return err
	}

	item.ReasonCodes = removeReason(item.ReasonCodes, ReasonUnlinkedCompany)
	s.touch(item, now)
	if err := s.store.PutWorkItem(ctx, item); err != nil {
		s.metrics.IncAction("link", "error")
		return err
	}
	s.metrics.IncAction("link", "ok")
	return nil
}

// CreateTaskFromSuggestion creates a task row, links the work item to it with
// reason task_created, and clears the no_next_action reason code.
func (s *Service) CreateTaskFromSuggestion(ctx context.Context, owner string, key ItemKey, task *source.Task) (*source.Task, error) {
	item, err := s.mustGet(ctx, owner, key)
	if err != nil {
		s.metrics.IncAction("create_task", "error")
		return nil, err
	}

	now := s.now()
	if task.ID == "" {
		task.ID = ulid.Make().String()
	}
	task.CreatedAt = now
	if err := s.dir.CreateTask(ctx, owner, task); err != nil {
		s.metrics.IncAction("create_task", "error")
		return nil, err
	}

	link := &EntityLink{
		SourceType: key.SourceType,
		SourceID:   key.SourceID,
		TargetType: string(source.TypeTask),
		TargetID:   task.ID,
		CreatedBy:  owner,
		LinkReason: LinkTaskCreated,
		CreatedAt:  now,
	}
	if err := s.store.UpsertEntityLink(ctx, link); err != nil {
		s.metrics.IncAction("create_task", "error")
		return nil, err
	}

	item.ReasonCodes = removeReason(item.ReasonCodes, ReasonNoNextAction)
	s.touch(item, now)
	if err := s.store.PutWorkItem(ctx, item); err != nil {
		s.metrics.IncAction("create_task", "error")
		return nil, err
	}
	s.metrics.IncAction("create_task", "ok")
	return task, nil
}

// SaveAsNote creates a note tied to the item's context. Touches
// lastTouchedAt only; no status change.
func (s *Service) SaveAsNote(ctx context.Context, owner string, key ItemKey, content string) error {
	item, err := s.mustGet(ctx, owner, key)
	if err != nil {
		s.metrics.IncAction("save_note", "error")
		return err
	}

	now := s.now()
	note := &source.Note{
		ID:         ulid.Make().String(),
		Content:    content,
		SourceType: key.SourceType,
		SourceID:   key.SourceID,
		CreatedAt:  now,
	}
	if err := s.dir.CreateNote(ctx, owner, note); err != nil {
		s.metrics.IncAction("save_note", "error")
		return err
	}

	item.LastTouchedAt = now
	item.UpdatedAt = now
	if err := s.store.PutWorkItem(ctx, item); err != nil {
		s.metrics.IncAction("save_note", "error")
		return err
	}
	s.metrics.IncAction("save_note", "ok")
	return nil
}

// ResolveCommitment applies a commitment sub-action: it sets the
// commitment's own status and, except for waiting_on, drives the owning work
// item to trusted (the resolution is the judgment).
func (s *Service) ResolveCommitment(ctx context.Context, owner, commitmentID, action string) error {
	status, err := commitmentStatusFor(action)
	if err != nil {
		return err
	}

	c, ok, err := s.dir.GetCommitment(ctx, owner, commitmentID)
	if err != nil {
		s.metrics.IncAction(action, "error")
		return err
	}
	if !ok {
		s.metrics.IncAction(action, "error")
		return fmt.Errorf("commitment %s: %w", commitmentID, ErrNotFound)
	}

	now := s.now()
	if err := s.dir.SetCommitmentStatus(ctx, owner, c.ID, status, now); err != nil {
		s.metrics.IncAction(action, "error")
		return err
	}

	key := ItemKey{SourceType: source.TypeCommitment, SourceID: c.ID}
	if _, err := s.Ensure(ctx, owner, key, nil); err != nil {
		s.metrics.IncAction(action, "error")
		return err
	}

	if action == ActionWaitingOn {
		item, err := s.mustGet(ctx, owner, key)
		if err != nil {
			s.metrics.IncAction(action, "error")
			return err
		}
		item.LastTouchedAt = now
		item.UpdatedAt = now
		if err := s.store.PutWorkItem(ctx, item); err != nil {
			s.metrics.IncAction(action, "error")
			return err
		}
		s.metrics.IncAction(action, "ok")
		return nil
	}

	if _, err := s.store.MarkTrusted(ctx, owner, key, now, true); err != nil {
		s.metrics.IncAction(action, "error")
		return err
	}
	s.metrics.IncAction(action, "ok")
	return nil
}

// normalize applies the lazy snooze transition: a snoozed item whose
// SnoozeUntil has passed reads back as needs_review. The transition is
// persisted best-effort; a write failure is logged and the normalized view
// returned anyway so one storage hiccup never re-hides an expired item.
func (s *Service) normalize(ctx context.Context, item *WorkItem) *WorkItem {
	if item.Status != StatusSnoozed || item.SnoozeUntil == nil || item.SnoozeUntil.After(s.now()) {
		return item
	}
	item.Status = StatusNeedsReview
	item.SnoozeUntil = nil
	item.UpdatedAt = s.now()
	if err := s.store.PutWorkItem(ctx, item); err != nil {
		s.logger.Error(ctx, err, "failed to persist snooze expiry", "item", item.ID)
	}
	s.metrics.IncSnoozeExpired()
	return item
}

func (s *Service) mustGet(ctx context.Context, owner string, key ItemKey) (*WorkItem, error) {
	item, ok, err := s.store.GetWorkItem(ctx, owner, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", key.ItemID(), ErrNotFound)
	}
	return s.normalize(ctx, item), nil
}

func (s *Service) touch(item *WorkItem, now time.Time) {
	item.LastTouchedAt = now
	item.UpdatedAt = now
}

func removeReason(codes []string, code string) []string {
	out := codes[:0]
	for _, c := range codes {
		if c != code {
			out = append(out, c)
		}
	}
	return out
}
