package queue

import (
	"math"
	"time"

	"github.com/linnemanlabs/sift/internal/source"
)

// Dimension calculators. Each is a pure function of the raw fields, the
// configuration, and an explicit "now" — the bucket boundaries below are the
// behavior contract and directly determine sort order.

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// calendarDaysBetween returns whole calendar days from a to b, negative when
// b is on an earlier day. Both timestamps are bucketed to midnight in a's
// location, so "today"/"tomorrow" follow the caller's clock.
func calendarDaysBetween(a, b time.Time) int {
	loc := a.Location()
	b = b.In(loc)
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, loc)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, loc)
	return int(bd.Sub(ad).Hours() / 24)
}

// taskUrgency buckets by days until the scheduled date. Undated tasks score
// low but not zero so they don't vanish from the queue.
func taskUrgency(now time.Time, scheduledFor *time.Time) float64 {
	if scheduledFor == nil || scheduledFor.IsZero() {
		return 0.2
	}
	days := calendarDaysBetween(now, *scheduledFor)
	switch {
	case days < 0:
		return math.Min(1.0, 0.9+0.02*float64(-days))
	case days == 0:
		return 0.9
	case days == 1:
		return 0.7
	case days <= 3:
		return 0.5
	case days <= 7:
		return 0.3
	default:
		return 0.1
	}
}

// taskImportance maps the explicit priority label. Unlabeled tasks default to
// medium-ish rather than lowest so they aren't starved.
func taskImportance(priority string) float64 {
	switch priority {
	case source.PriorityHigh:
		return 1.0
	case source.PriorityMedium:
		return 0.6
	case source.PriorityLow:
		return 0.3
	default:
		return 0.5
	}
}

// inboxUrgency buckets by hours since the message arrived. A zero receivedAt
// (malformed row) falls back to the oldest bucket rather than erroring.
func inboxUrgency(now, receivedAt time.Time, urgentWindow time.Duration) float64 {
	if receivedAt.IsZero() {
		return 0.2
	}
	age := now.Sub(receivedAt)
	switch {
	case age < urgentWindow:
		return 1.0
	case age < 24*time.Hour:
		return 0.8
	case age < 48*time.Hour:
		return 0.6
	case age < 72*time.Hour:
		return 0.4
	default:
		return 0.2
	}
}

// inboxImportance keeps a floor for read messages: the source itself implies
// relevance.
func inboxImportance(read bool) float64 {
	if read {
		return 0.7
	}
	return 0.9
}

// calendarImportance is a fixed constant in this configuration version; there
// are no per-event heuristics yet.
const calendarImportance = 0.8

// calendarUrgency buckets by hours until the event starts. Already-started
// events score zero; the queue builder filters them out.
func calendarUrgency(now, startAt time.Time) float64 {
	until := startAt.Sub(now)
	switch {
	case until <= 0:
		return 0.0
	case until < time.Hour:
		return 1.0
	case until < 2*time.Hour:
		return 0.95
	case until < 4*time.Hour:
		return 0.8
	case until < 24*time.Hour:
		return 0.6
	case until < 48*time.Hour:
		return 0.4
	default:
		return 0.2
	}
}

// commitmentDeadline picks the timestamp the urgency buckets run against:
// the deadline for obligations owed by me, the expectation for ones owed to me.
func commitmentDeadline(c source.Commitment) *time.Time {
	if c.Direction == source.DirectionOwedToMe {
		return c.ExpectedBy
	}
	return c.DueAt
}

// commitmentUrgency reuses the task buckets against the commitment deadline,
// then scales by the stated urgency word, clamped to 1.0.
func commitmentUrgency(now time.Time, c source.Commitment) float64 {
	base := taskUrgency(now, commitmentDeadline(c))
	factor := 1.0
	switch c.Urgency {
	case source.UrgencyASAP, source.UrgencyToday:
		factor = 1.2
	case source.UrgencyWhenPossible:
		factor = 0.8
	}
	return math.Min(1.0, base*factor)
}

// commitmentImportance starts from the direction, bumps for VIP
// counterparties, and shifts by the stated urgency word.
func commitmentImportance(c source.Commitment) float64 {
	var base float64
	switch c.Direction {
	case source.DirectionOwedByMe:
		base = 0.7
	case source.DirectionOwedToMe:
		base = 0.5
	default:
		base = 0.6
	}
	if c.CounterpartyVIP {
		base += 0.15
	}
	switch c.Urgency {
	case source.UrgencyASAP, source.UrgencyToday:
		base += 0.1
	case source.UrgencyWhenPossible:
		base -= 0.05
	}
	return clamp01(base)
}

// recencyScore buckets by days since the item was last touched. Weight-zero
// in the shipped configs; computed anyway for the signals contract. Items
// never touched read as fully stale.
func recencyScore(now time.Time, lastTouchedAt *time.Time) float64 {
	if lastTouchedAt == nil || lastTouchedAt.IsZero() {
		return 0.1
	}
	days := calendarDaysBetween(*lastTouchedAt, now)
	switch {
	case days <= 0:
		return 1.0
	case days == 1:
		return 0.8
	case days <= 3:
		return 0.6
	case days <= 7:
		return 0.3
	default:
		return 0.1
	}
}

// companyUrgency scores staleness relative to the configured threshold. A
// company with no touch history at all reads as maximally stale.
func companyUrgency(now time.Time, lastTouchedAt *time.Time, thresholdDays int) float64 {
	if lastTouchedAt == nil || lastTouchedAt.IsZero() {
		return 0.9
	}
	days := calendarDaysBetween(*lastTouchedAt, now)
	switch {
	case days >= 2*thresholdDays:
		return 0.9
	case days >= thresholdDays:
		return 0.7
	case days >= thresholdDays/2:
		return 0.4
	default:
		return 0.1
	}
}

// companyImportance is flat with a bump for explicitly prioritized companies.
func companyImportance(priority bool) float64 {
	if priority {
		return 0.8
	}
	return 0.6
}
