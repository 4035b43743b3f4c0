package triage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/linnemanlabs/sift/internal/source"
)

// Status tracks where a work item is in its triage lifecycle.
type Status string

const (
	// StatusPending means newly observed, not yet enriched.
	StatusPending Status = "pending"

	// StatusNeedsReview means enrichment is complete and the item awaits
	// human judgment.
	StatusNeedsReview Status = "needs_review"

	// StatusSnoozed defers the item until SnoozeUntil; it reads back as
	// needs_review once that passes.
	StatusSnoozed Status = "snoozed"

	// StatusTrusted means judgment was applied and the item may leave the
	// queue. Guarded by the clearable invariant.
	StatusTrusted Status = "trusted"

	// StatusIgnored means the user explicitly declared the item irrelevant.
	StatusIgnored Status = "ignored"
)

// Machine-assigned reason codes, cleared individually as their triggering
// condition is resolved.
const (
	ReasonUnlinkedCompany = "unlinked_company"
	ReasonNoNextAction    = "no_next_action"
	ReasonStale           = "stale"
)

// LinkReason records how an entity link came to exist.
type LinkReason string

const (
	LinkManual      LinkReason = "manual"
	LinkAIMatch     LinkReason = "ai_match"
	LinkTaskCreated LinkReason = "task_created"
)

// ItemKey identifies one source record. (SourceType, SourceID) is unique per
// owner.
type ItemKey struct {
	SourceType source.Type `json:"source_type"`
	SourceID   string      `json:"source_id"`
}

// ItemID returns the deterministic identifier shared with the scored view.
func (k ItemKey) ItemID() string {
	return source.ItemID(k.SourceType, k.SourceID)
}

// WorkItem is the durable triage record for one source record. It is never
// hard-deleted: it is the audit trail of triage decisions.
type WorkItem struct {
	ID            string      `json:"id"`
	SourceType    source.Type `json:"source_type"`
	SourceID      string      `json:"source_id"`
	CreatedBy     string      `json:"created_by"`
	Status        Status      `json:"status"`
	ReasonCodes   []string    `json:"reason_codes"`
	SnoozeUntil   *time.Time  `json:"snooze_until,omitempty"`
	TrustedAt     *time.Time  `json:"trusted_at,omitempty"`
	ReviewedAt    *time.Time  `json:"reviewed_at,omitempty"`
	LastTouchedAt time.Time   `json:"last_touched_at"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Key returns the item's identity tuple.
func (w *WorkItem) Key() ItemKey {
	return ItemKey{SourceType: w.SourceType, SourceID: w.SourceID}
}

// EntityLink associates a work item with a target entity. The full tuple is
// the uniqueness key: creating the same link twice is an upsert, never a
// duplicate — the trust guard depends on that dedup contract.
type EntityLink struct {
	SourceType source.Type `json:"source_type"`
	SourceID   string      `json:"source_id"`
	TargetType string      `json:"target_type"`
	TargetID   string      `json:"target_id"`
	CreatedBy  string      `json:"created_by"`
	LinkReason LinkReason  `json:"link_reason"`
	Confidence *float64    `json:"confidence,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// ItemExtract holds structured enrichment content for a work item. This
// layer only checks existence; the content is opaque.
type ItemExtract struct {
	CreatedBy   string          `json:"created_by"`
	SourceType  source.Type     `json:"source_type"`
	SourceID    string          `json:"source_id"`
	ExtractType string          `json:"extract_type"`
	Content     json.RawMessage `json:"content"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ErrNotFound is returned by direct triage actions against a work item that
// does not exist. Queue builds skip missing items silently; direct actions
// do not.
var ErrNotFound = errors.New("work item not found")

// TrustRejectedError reports a markTrusted call that failed the clearable
// invariant: no entity link exists, no extract exists, and the item is not
// already ignored. Deterministic and user-correctable.
type TrustRejectedError struct {
	Key ItemKey
}

func (e *TrustRejectedError) Error() string {
	return fmt.Sprintf(
		"work item %s cannot be trusted: no entity link exists, no extract exists, and the item is not ignored",
		e.Key.ItemID())
}
