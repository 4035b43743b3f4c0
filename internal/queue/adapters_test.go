package queue

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/sift/internal/source"
)

func TestMapTask_DueTodayHighPriority(t *testing.T) {
	t.Parallel()

	task := source.Task{
		ID:           "t-1",
		Title:        "Close the round",
		Priority:     source.PriorityHigh,
		ScheduledFor: days(0),
		CreatedAt:    testNow.AddDate(0, 0, -2),
	}

	item := MapTask(task, ConfigV1(), testNow)

	// 0.6*0.9 + 0.4*1.0
	if !almostEqual(item.PriorityScore, 0.94) {
		t.Errorf("PriorityScore = %v, want 0.94", item.PriorityScore)
	}
	if item.ID != "task-t-1" {
		t.Errorf("ID = %q, want %q", item.ID, "task-t-1")
	}
	if !item.IsDueToday {
		t.Error("expected IsDueToday")
	}
	if !item.IsTopPriority {
		t.Error("expected IsTopPriority at 0.94")
	}
	if !strings.Contains(item.Reasoning, "due today") {
		t.Errorf("Reasoning = %q, want mention of due today", item.Reasoning)
	}
}

func TestMapInboxMessage_RecentUnread(t *testing.T) {
	t.Parallel()

	msg := source.InboxMessage{
		ID:         "m-1",
		Subject:    "Intro: Acme <> you",
		Sender:     "jordan@example.com",
		ReceivedAt: testNow.Add(-2 * time.Hour),
	}

	item := MapInboxMessage(msg, ConfigV1(), testNow)

	// 0.6*1.0 + 0.4*0.9
	if !almostEqual(item.PriorityScore, 0.96) {
		t.Errorf("PriorityScore = %v, want 0.96", item.PriorityScore)
	}
	if item.Subtitle != "jordan@example.com" {
		t.Errorf("Subtitle = %q, want sender", item.Subtitle)
	}
	if !reflect.DeepEqual(item.ContextLabels, []string{"unread"}) {
		t.Errorf("ContextLabels = %v, want [unread]", item.ContextLabels)
	}
}

func TestMapCalendarEvent_StartingSoon(t *testing.T) {
	t.Parallel()

	event := source.CalendarEvent{
		ID:      "e-1",
		Title:   "Board prep",
		StartAt: testNow.Add(90 * time.Minute),
	}

	item := MapCalendarEvent(event, ConfigV1(), testNow)

	// 0.6*0.95 + 0.4*0.8
	if !almostEqual(item.PriorityScore, 0.89) {
		t.Errorf("PriorityScore = %v, want 0.89", item.PriorityScore)
	}
	if item.EventStartAt == nil || !item.EventStartAt.Equal(event.StartAt) {
		t.Errorf("EventStartAt = %v, want %v", item.EventStartAt, event.StartAt)
	}
	if !item.IsTopPriority {
		t.Error("expected IsTopPriority at 0.89")
	}
}

func TestMapCommitment_OwedToMeRelaxed(t *testing.T) {
	t.Parallel()

	c := source.Commitment{
		ID:           "c-1",
		Title:        "Send the deck",
		Direction:    source.DirectionOwedToMe,
		Urgency:      source.UrgencyWhenPossible,
		Counterparty: "Sam",
		ExpectedBy:   days(5),
	}

	item := MapCommitment(c, ConfigV1(), testNow)

	// urgency 0.3*0.8 = 0.24, importance 0.5-0.05 = 0.45:
	// 0.6*0.24 + 0.4*0.45
	if !almostEqual(item.PriorityScore, 0.324) {
		t.Errorf("PriorityScore = %v, want 0.324", item.PriorityScore)
	}
	if item.IsTopPriority {
		t.Error("did not expect IsTopPriority at 0.324")
	}
	if !almostEqual(item.CommitmentScore, 0.24) {
		t.Errorf("CommitmentScore = %v, want 0.24", item.CommitmentScore)
	}
	if item.DueAt == nil || !item.DueAt.Equal(*c.ExpectedBy) {
		t.Errorf("DueAt = %v, want expected-by date", item.DueAt)
	}
}

func TestMapCompany_DefaultsKind(t *testing.T) {
	t.Parallel()

	c := source.Company{ID: "co-1", Name: "Acme"}

	item := MapCompany(c, ConfigV1(), testNow)

	if item.SourceType != source.TypePortfolioCompany {
		t.Errorf("SourceType = %q, want portfolio_company", item.SourceType)
	}
	// Never touched: urgency 0.9, importance 0.6.
	if !almostEqual(item.PriorityScore, 0.78) {
		t.Errorf("PriorityScore = %v, want 0.78", item.PriorityScore)
	}
	if item.Reasoning != "No touch recorded" {
		t.Errorf("Reasoning = %q", item.Reasoning)
	}
}

func TestMapTask_Deterministic(t *testing.T) {
	t.Parallel()

	task := source.Task{
		ID:            "t-7",
		Title:         "Review pitch",
		Priority:      source.PriorityMedium,
		ScheduledFor:  days(2),
		CreatedAt:     testNow.AddDate(0, 0, -1),
		LastTouchedAt: days(-1),
	}

	a := MapTask(task, ConfigV2(), testNow)
	b := MapTask(task, ConfigV2(), testNow)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("repeated mapping differs:\n a = %+v\n b = %+v", a, b)
	}
}

func TestGenerateSignals_Order(t *testing.T) {
	t.Parallel()

	item := MapTask(source.Task{ID: "t-1", ScheduledFor: days(0)}, ConfigV1(), testNow)

	if len(item.Signals) != 3 {
		t.Fatalf("len(Signals) = %d, want 3", len(item.Signals))
	}
	wantOrder := []string{"urgency", "importance", "recency_debug"}
	for i, want := range wantOrder {
		if item.Signals[i].Source != want {
			t.Errorf("Signals[%d].Source = %q, want %q", i, item.Signals[i].Source, want)
		}
	}
}

func TestGenerateSignals_UnweightedRecencyAnnotated(t *testing.T) {
	t.Parallel()

	v1 := MapTask(source.Task{ID: "t-1"}, ConfigV1(), testNow)
	debug := v1.Signals[2]
	if debug.Weight != 0 {
		t.Errorf("v1 recency weight = %v, want 0", debug.Weight)
	}
	if !strings.Contains(debug.Description, "computed, not weighted") {
		t.Errorf("v1 recency description = %q, want computed-not-weighted note", debug.Description)
	}

	v2 := MapTask(source.Task{ID: "t-1"}, ConfigV2(), testNow)
	debug = v2.Signals[2]
	if !almostEqual(debug.Weight, 0.1) {
		t.Errorf("v2 recency weight = %v, want 0.1", debug.Weight)
	}
	if !strings.Contains(debug.Description, "at weight") {
		t.Errorf("v2 recency description = %q, want weighted form", debug.Description)
	}
}

func TestDescribeDeadline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		due  *time.Time
		want string
	}{
		{"nil", nil, "no date"},
		{"overdue plural", days(-3), "overdue by 3 days"},
		{"overdue singular", days(-1), "overdue by 1 day"},
		{"today", days(0), "due today"},
		{"tomorrow", days(1), "due tomorrow"},
		{"future", days(5), "due in 5 days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := describeDeadline(testNow, tt.due); got != tt.want {
				t.Errorf("describeDeadline = %q, want %q", got, tt.want)
			}
		})
	}
}
