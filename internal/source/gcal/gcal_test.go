package gcal

import (
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"
)

func TestMapEvent(t *testing.T) {
	t.Parallel()

	item := &calendar.Event{
		Id:       "evt-1",
		Summary:  "Board prep",
		Location: "Zoom",
		Created:  "2026-03-01T10:00:00Z",
		Start:    &calendar.EventDateTime{DateTime: "2026-03-10T16:30:00Z"},
		End:      &calendar.EventDateTime{DateTime: "2026-03-10T17:00:00Z"},
	}

	e, ok, err := MapEvent(item)
	if err != nil {
		t.Fatalf("MapEvent: %v", err)
	}
	if !ok {
		t.Fatal("expected event to map")
	}
	if e.ID != "evt-1" || e.Title != "Board prep" || e.Location != "Zoom" {
		t.Errorf("event = %+v", e)
	}
	wantStart := time.Date(2026, 3, 10, 16, 30, 0, 0, time.UTC)
	if !e.StartAt.Equal(wantStart) {
		t.Errorf("StartAt = %v, want %v", e.StartAt, wantStart)
	}
	if !e.EndAt.Equal(wantStart.Add(30 * time.Minute)) {
		t.Errorf("EndAt = %v", e.EndAt)
	}
	if !e.CreatedAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("CreatedAt = %v", e.CreatedAt)
	}
}

func TestMapEvent_SkipsAllDay(t *testing.T) {
	t.Parallel()

	// All-day events carry a date, not a datetime.
	item := &calendar.Event{
		Id:    "evt-allday",
		Start: &calendar.EventDateTime{Date: "2026-03-10"},
		End:   &calendar.EventDateTime{Date: "2026-03-11"},
	}

	_, ok, err := MapEvent(item)
	if err != nil {
		t.Fatalf("MapEvent: %v", err)
	}
	if ok {
		t.Error("all-day event should be skipped")
	}
}

func TestMapEvent_SkipsMissingTimes(t *testing.T) {
	t.Parallel()

	_, ok, err := MapEvent(&calendar.Event{Id: "evt-bare"})
	if err != nil {
		t.Fatalf("MapEvent: %v", err)
	}
	if ok {
		t.Error("event without start/end should be skipped")
	}
}

func TestMapEvent_BadDatetime(t *testing.T) {
	t.Parallel()

	item := &calendar.Event{
		Id:    "evt-bad",
		Start: &calendar.EventDateTime{DateTime: "tuesday-ish"},
		End:   &calendar.EventDateTime{DateTime: "2026-03-10T17:00:00Z"},
	}

	if _, _, err := MapEvent(item); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestMapEvent_IgnoresBadCreated(t *testing.T) {
	t.Parallel()

	item := &calendar.Event{
		Id:      "evt-2",
		Created: "not-a-timestamp",
		Start:   &calendar.EventDateTime{DateTime: "2026-03-10T16:30:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2026-03-10T17:00:00Z"},
	}

	e, ok, err := MapEvent(item)
	if err != nil || !ok {
		t.Fatalf("MapEvent: ok=%v err=%v", ok, err)
	}
	if !e.CreatedAt.IsZero() {
		t.Errorf("CreatedAt = %v, want zero for unparseable created", e.CreatedAt)
	}
}
