package queue

import (
	"time"

	"github.com/linnemanlabs/sift/internal/source"
)

// PrioritySignal explains one dimension's contribution to an item's score.
// The list is ordered: urgency, importance, then any debug signals.
type PrioritySignal struct {
	Source      string  `json:"source"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
}

// PriorityItem is the normalized, scored view of one source record. It is
// derived, never persisted: recomputing from the same record, config, and
// clock yields an identical item.
type PriorityItem struct {
	ID         string      `json:"id"` // "{sourceType}-{sourceId}"
	SourceType source.Type `json:"source_type"`
	SourceID   string      `json:"source_id"`

	// Presentation fields, carried through for the UI, never scored.
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle,omitempty"`
	Description   string   `json:"description,omitempty"`
	ContextLabels []string `json:"context_labels"`
	IconType      string   `json:"icon_type,omitempty"`

	// Dimension scores, each in [0,1].
	UrgencyScore    float64  `json:"urgency_score"`
	ImportanceScore float64  `json:"importance_score"`
	RecencyScore    float64  `json:"recency_score"`
	CommitmentScore float64  `json:"commitment_score"`
	EffortScore     *float64 `json:"effort_score,omitempty"`

	// PriorityScore is the weighted aggregate and the sole sort key.
	PriorityScore float64 `json:"priority_score"`

	DueAt         *time.Time `json:"due_at,omitempty"`
	EventStartAt  *time.Time `json:"event_start_at,omitempty"`
	SnoozedUntil  *time.Time `json:"snoozed_until,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	LastTouchedAt *time.Time `json:"last_touched_at,omitempty"`

	// Derived state flags. None is independently authoritative.
	IsOverdue     bool `json:"is_overdue"`
	IsDueToday    bool `json:"is_due_today"`
	IsDueSoon     bool `json:"is_due_soon"`
	IsCompleted   bool `json:"is_completed"`
	IsSnoozed     bool `json:"is_snoozed"`
	IsTopPriority bool `json:"is_top_priority"`

	Company source.CompanyRef `json:"company,omitzero"`
	Project source.ProjectRef `json:"project,omitzero"`

	// Reasoning is one human-readable sentence explaining the score.
	Reasoning string           `json:"reasoning"`
	Signals   []PrioritySignal `json:"signals"`
}
