// Package source defines the raw records Sift ingests and the Directory
// capability that supplies them. Records are plain data: all scoring and
// triage semantics live in the queue and triage packages.
package source

import (
	"context"
	"fmt"
	"time"
)

// Type identifies which kind of record an item was derived from. It is a
// closed set: adapters and stores switch over it exhaustively, and ParseType
// rejects anything outside it at the boundary.
type Type string

const (
	TypeTask             Type = "task"
	TypeInbox            Type = "inbox"
	TypeCalendarEvent    Type = "calendar_event"
	TypeCommitment       Type = "commitment"
	TypePortfolioCompany Type = "portfolio_company"
	TypePipelineCompany  Type = "pipeline_company"
	TypeReadingItem      Type = "reading_item"
	TypeNonnegotiable    Type = "nonnegotiable"
	TypeProject          Type = "project"
)

// ParseType validates a source type received from the outside (API paths,
// stored rows).
func ParseType(s string) (Type, error) {
	t := Type(s)
	switch t {
	case TypeTask, TypeInbox, TypeCalendarEvent, TypeCommitment,
		TypePortfolioCompany, TypePipelineCompany, TypeReadingItem,
		TypeNonnegotiable, TypeProject:
		return t, nil
	}
	return "", fmt.Errorf("unknown source type %q", s)
}

// ItemID is the deterministic identifier shared by the scored view and the
// triage record of one source row. Stable across recomputation.
func ItemID(t Type, sourceID string) string {
	return string(t) + "-" + sourceID
}

// Task priority labels. Absence maps to a defined default in scoring, never
// to an error.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Commitment directions.
const (
	DirectionOwedByMe = "owed_by_me"
	DirectionOwedToMe = "owed_to_me"
)

// Commitment urgency words.
const (
	UrgencyASAP         = "asap"
	UrgencyToday        = "today"
	UrgencyWhenPossible = "when_possible"
)

// Commitment statuses. Open commitments appear in the queue; every other
// status is terminal for queue purposes.
const (
	CommitmentOpen      = "open"
	CommitmentCompleted = "completed"
	CommitmentDelegated = "delegated"
	CommitmentWaitingOn = "waiting_on"
	CommitmentBroken    = "broken"
	CommitmentCancelled = "cancelled"
)

// CompanyRef is the weak navigation pointer carried through to the UI.
type CompanyRef struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	LogoURL string `json:"logo_url,omitempty"`
}

// ProjectRef is the weak navigation pointer carried through to the UI.
type ProjectRef struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
}

// Task is a raw task row.
type Task struct {
	ID            string
	Title         string
	Notes         string
	Priority      string // high|medium|low, empty when unlabeled
	ScheduledFor  *time.Time
	Completed     bool
	Company       CompanyRef
	Project       ProjectRef
	CreatedAt     time.Time
	LastTouchedAt *time.Time
}

// InboxMessage is a raw inbound message row.
type InboxMessage struct {
	ID         string
	Subject    string
	Preview    string
	Sender     string
	ReceivedAt time.Time
	Read       bool
	Company    CompanyRef
	CreatedAt  time.Time
}

// CalendarEvent is a raw calendar event row.
type CalendarEvent struct {
	ID        string
	Title     string
	Location  string
	StartAt   time.Time
	EndAt     time.Time
	Company   CompanyRef
	CreatedAt time.Time
}

// Commitment is an obligation owed by or to the user.
type Commitment struct {
	ID              string
	Title           string
	Direction       string // owed_by_me|owed_to_me
	Urgency         string // asap|today|when_possible, empty when unstated
	Counterparty    string
	CounterpartyVIP bool
	DueAt           *time.Time // owed_by_me deadline
	ExpectedBy      *time.Time // owed_to_me expectation
	Status          string
	Company         CompanyRef
	CreatedAt       time.Time
	LastTouchedAt   *time.Time
}

// Company is a portfolio or pipeline company row. Kind is TypePortfolioCompany
// or TypePipelineCompany.
type Company struct {
	ID            string
	Name          string
	LogoURL       string
	Kind          Type
	Priority      bool
	CreatedAt     time.Time
	LastTouchedAt *time.Time
}

// Note is a user note tied to the context of a source item.
type Note struct {
	ID         string
	Content    string
	SourceType Type
	SourceID   string
	CreatedAt  time.Time
}

// Directory is the read/write capability over raw source records. The queue
// reads through it; the only writes the triage layer performs are task
// creation, note creation, and commitment status changes.
type Directory interface {
	Tasks(ctx context.Context, owner string) ([]Task, error)
	InboxMessages(ctx context.Context, owner string) ([]InboxMessage, error)
	CalendarEvents(ctx context.Context, owner string, from, to time.Time) ([]CalendarEvent, error)
	Commitments(ctx context.Context, owner string) ([]Commitment, error)
	Companies(ctx context.Context, owner string) ([]Company, error)

	GetCommitment(ctx context.Context, owner, id string) (*Commitment, bool, error)
	SetCommitmentStatus(ctx context.Context, owner, id, status string, now time.Time) error

	CreateTask(ctx context.Context, owner string, t *Task) error
	CreateNote(ctx context.Context, owner string, n *Note) error
}
