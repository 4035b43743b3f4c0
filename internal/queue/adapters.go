package queue

import (
	"fmt"
	"time"

	"github.com/linnemanlabs/sift/internal/source"
)

// Source adapters: one per source type, each a pure mapping from a raw record
// to a scored PriorityItem. Adapters never drop a record — missing fields map
// to the calculators' documented defaults.

// topPriorityThreshold is the aggregate score at which the UI shows the
// top-priority badge.
const topPriorityThreshold = 0.85

// aggregate computes the weighted sum of all dimension scores, clamped to
// [0,1]. Dimensions with weight zero contribute nothing but are still
// surfaced through signals.
func aggregate(w Weights, urgency, importance, recency, commitment, effort float64) float64 {
	return clamp01(w.Urgency*urgency +
		w.Importance*importance +
		w.Recency*recency +
		w.Commitment*commitment +
		w.Effort*effort)
}

// generateSignals emits the explanation breakdown in fixed order: urgency,
// importance, then a recency_debug signal whenever a recency score was
// computed, annotated so tooling can tell "computed but not weighted" from
// "weighted".
func generateSignals(w Weights, urgency, importance, recency float64) []PrioritySignal {
	signals := []PrioritySignal{
		{
			Source:      "urgency",
			Weight:      w.Urgency,
			Description: fmt.Sprintf("urgency %.2f at weight %.2f", urgency, w.Urgency),
		},
		{
			Source:      "importance",
			Weight:      w.Importance,
			Description: fmt.Sprintf("importance %.2f at weight %.2f", importance, w.Importance),
		},
	}
	if w.Recency == 0 {
		signals = append(signals, PrioritySignal{
			Source:      "recency_debug",
			Weight:      0,
			Description: fmt.Sprintf("recency %.2f computed, not weighted", recency),
		})
	} else {
		signals = append(signals, PrioritySignal{
			Source:      "recency_debug",
			Weight:      w.Recency,
			Description: fmt.Sprintf("recency %.2f at weight %.2f", recency, w.Recency),
		})
	}
	return signals
}

// dueFlags derives the overdue/today/soon booleans from a deadline.
func dueFlags(now time.Time, due *time.Time) (overdue, today, soon bool) {
	if due == nil || due.IsZero() {
		return false, false, false
	}
	days := calendarDaysBetween(now, *due)
	return days < 0, days == 0, days > 0 && days <= 3
}

// describeDeadline renders the human fragment for a deadline, relative to now.
func describeDeadline(now time.Time, due *time.Time) string {
	if due == nil || due.IsZero() {
		return "no date"
	}
	days := calendarDaysBetween(now, *due)
	switch {
	case days < -1:
		return fmt.Sprintf("overdue by %d days", -days)
	case days == -1:
		return "overdue by 1 day"
	case days == 0:
		return "due today"
	case days == 1:
		return "due tomorrow"
	default:
		return fmt.Sprintf("due in %d days", days)
	}
}

// finish fills the aggregate score, top-priority flag, and signals on an item
// whose dimensions are already set.
func finish(item *PriorityItem, cfg Config) {
	effort := 0.0
	if item.EffortScore != nil {
		effort = *item.EffortScore
	}
	item.PriorityScore = aggregate(cfg.Weights,
		item.UrgencyScore, item.ImportanceScore, item.RecencyScore, item.CommitmentScore, effort)
	item.IsTopPriority = item.PriorityScore >= topPriorityThreshold
	item.Signals = generateSignals(cfg.Weights, item.UrgencyScore, item.ImportanceScore, item.RecencyScore)
}

// MapTask normalizes a task row.
func MapTask(t source.Task, cfg Config, now time.Time) PriorityItem {
	overdue, today, soon := dueFlags(now, t.ScheduledFor)

	labels := make([]string, 0, 2)
	if t.Priority != "" {
		labels = append(labels, t.Priority+" priority")
	}
	if t.Project.Name != "" {
		labels = append(labels, t.Project.Name)
	}

	reasoning := "Task " + describeDeadline(now, t.ScheduledFor)
	if t.Priority != "" {
		reasoning += ", " + t.Priority + " priority"
	}

	item := PriorityItem{
		ID:              source.ItemID(source.TypeTask, t.ID),
		SourceType:      source.TypeTask,
		SourceID:        t.ID,
		Title:           t.Title,
		Description:     t.Notes,
		ContextLabels:   labels,
		IconType:        "task",
		UrgencyScore:    taskUrgency(now, t.ScheduledFor),
		ImportanceScore: taskImportance(t.Priority),
		RecencyScore:    recencyScore(now, t.LastTouchedAt),
		DueAt:           t.ScheduledFor,
		CreatedAt:       timePtr(t.CreatedAt),
		LastTouchedAt:   t.LastTouchedAt,
		IsOverdue:       overdue,
		IsDueToday:      today,
		IsDueSoon:       soon,
		IsCompleted:     t.Completed,
		Company:         t.Company,
		Project:         t.Project,
		Reasoning:       reasoning,
	}
	finish(&item, cfg)
	return item
}

// MapInboxMessage normalizes an inbound message row.
func MapInboxMessage(m source.InboxMessage, cfg Config, now time.Time) PriorityItem {
	state := "unread"
	if m.Read {
		state = "read"
	}

	reasoning := fmt.Sprintf("Message from %s received %s, %s",
		m.Sender, describeAge(now, m.ReceivedAt), state)

	item := PriorityItem{
		ID:              source.ItemID(source.TypeInbox, m.ID),
		SourceType:      source.TypeInbox,
		SourceID:        m.ID,
		Title:           m.Subject,
		Subtitle:        m.Sender,
		Description:     m.Preview,
		ContextLabels:   []string{state},
		IconType:        "inbox",
		UrgencyScore:    inboxUrgency(now, m.ReceivedAt, time.Duration(cfg.InboxUrgentWindowHours)*time.Hour),
		ImportanceScore: inboxImportance(m.Read),
		RecencyScore:    recencyScore(now, timePtr(m.ReceivedAt)),
		CreatedAt:       timePtr(m.CreatedAt),
		LastTouchedAt:   timePtr(m.ReceivedAt),
		Company:         m.Company,
		Reasoning:       reasoning,
	}
	finish(&item, cfg)
	return item
}

// MapCalendarEvent normalizes a calendar event row. Callers filter out events
// that have already started.
func MapCalendarEvent(e source.CalendarEvent, cfg Config, now time.Time) PriorityItem {
	labels := make([]string, 0, 1)
	if e.Location != "" {
		labels = append(labels, e.Location)
	}

	item := PriorityItem{
		ID:              source.ItemID(source.TypeCalendarEvent, e.ID),
		SourceType:      source.TypeCalendarEvent,
		SourceID:        e.ID,
		Title:           e.Title,
		Subtitle:        e.Location,
		ContextLabels:   labels,
		IconType:        "calendar",
		UrgencyScore:    calendarUrgency(now, e.StartAt),
		ImportanceScore: calendarImportance,
		RecencyScore:    recencyScore(now, timePtr(e.CreatedAt)),
		EventStartAt:    timePtr(e.StartAt),
		CreatedAt:       timePtr(e.CreatedAt),
		Reasoning:       "Event starts " + describeUntil(now, e.StartAt),
		Company:         e.Company,
	}
	finish(&item, cfg)
	return item
}

// MapCommitment normalizes a commitment row. The commitment dimension carries
// the factored urgency ("commitment pressure"); it is weight-zero in both
// shipped configs and surfaced through signals only.
func MapCommitment(c source.Commitment, cfg Config, now time.Time) PriorityItem {
	deadline := commitmentDeadline(c)
	overdue, today, soon := dueFlags(now, deadline)

	direction := "owed by me"
	if c.Direction == source.DirectionOwedToMe {
		direction = "owed to me"
	}

	labels := []string{direction}
	if c.Urgency != "" {
		labels = append(labels, c.Urgency)
	}

	urgency := commitmentUrgency(now, c)

	item := PriorityItem{
		ID:              source.ItemID(source.TypeCommitment, c.ID),
		SourceType:      source.TypeCommitment,
		SourceID:        c.ID,
		Title:           c.Title,
		Subtitle:        c.Counterparty,
		ContextLabels:   labels,
		IconType:        "commitment",
		UrgencyScore:    urgency,
		ImportanceScore: commitmentImportance(c),
		RecencyScore:    recencyScore(now, c.LastTouchedAt),
		CommitmentScore: urgency,
		DueAt:           deadline,
		CreatedAt:       timePtr(c.CreatedAt),
		LastTouchedAt:   c.LastTouchedAt,
		IsOverdue:       overdue,
		IsDueToday:      today,
		IsDueSoon:       soon,
		Company:         c.Company,
		Reasoning: fmt.Sprintf("Commitment %s to %s, %s",
			direction, c.Counterparty, describeDeadline(now, deadline)),
	}
	finish(&item, cfg)
	return item
}

// MapCompany normalizes a portfolio/pipeline company row, scored on staleness
// against the configured threshold.
func MapCompany(c source.Company, cfg Config, now time.Time) PriorityItem {
	kind := c.Kind
	if kind != source.TypePortfolioCompany && kind != source.TypePipelineCompany {
		kind = source.TypePortfolioCompany
	}

	reasoning := "No touch recorded"
	if c.LastTouchedAt != nil && !c.LastTouchedAt.IsZero() {
		reasoning = fmt.Sprintf("Last touched %d days ago", calendarDaysBetween(*c.LastTouchedAt, now))
	}

	item := PriorityItem{
		ID:              source.ItemID(kind, c.ID),
		SourceType:      kind,
		SourceID:        c.ID,
		Title:           c.Name,
		ContextLabels:   []string{"stale check"},
		IconType:        "company",
		UrgencyScore:    companyUrgency(now, c.LastTouchedAt, cfg.CompanyStaleThresholdDays),
		ImportanceScore: companyImportance(c.Priority),
		RecencyScore:    recencyScore(now, c.LastTouchedAt),
		CreatedAt:       timePtr(c.CreatedAt),
		LastTouchedAt:   c.LastTouchedAt,
		Company:         source.CompanyRef{ID: c.ID, Name: c.Name, LogoURL: c.LogoURL},
		Reasoning:       reasoning,
	}
	finish(&item, cfg)
	return item
}

func describeAge(now, t time.Time) string {
	if t.IsZero() {
		return "at an unknown time"
	}
	age := now.Sub(t)
	switch {
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}

func describeUntil(now, t time.Time) string {
	until := t.Sub(now)
	switch {
	case until < time.Hour:
		return fmt.Sprintf("in %d minutes", int(until.Minutes()))
	case until < 48*time.Hour:
		return fmt.Sprintf("in %d hours", int(until.Hours()))
	default:
		return fmt.Sprintf("in %d days", int(until.Hours()/24))
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
