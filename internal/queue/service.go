package queue

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/source"
	"github.com/linnemanlabs/sift/internal/triage"
)

// TriageLister exposes the durable work-item state the queue filters on.
// Satisfied by *triage.Service, which also normalizes expired snoozes on read.
type TriageLister interface {
	List(ctx context.Context, owner string) ([]triage.WorkItem, error)
}

// Service assembles the ranked queue for an owner. Scoring is pure; the only
// effects are directory reads and the triage-state lookup.
type Service struct {
	dir     source.Directory
	triage  TriageLister
	cfg     Config
	logger  log.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewService creates a queue service bound to one config.
func NewService(dir source.Directory, lister TriageLister, cfg Config, logger log.Logger, metrics *Metrics) *Service {
	return &Service{
		dir:     dir,
		triage:  lister,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Config returns the active priority config.
func (s *Service) Config() Config {
	return s.cfg
}

// Build reads every source, scores each record, filters by triage state, and
// returns the ranked queue. Records the queue no longer needs are skipped, not
// errors: a trusted or ignored work item hides its source row, and a snoozed
// one stays hidden until its snooze expires.
func (s *Service) Build(ctx context.Context, owner string) ([]PriorityItem, error) {
	start := s.now()

	queue, err := s.build(ctx, owner, start)
	if err != nil {
		s.metrics.IncBuild("error")
		return nil, err
	}

	s.metrics.IncBuild("ok")
	s.metrics.ObserveBuild(time.Since(start), len(queue))
	s.logger.Info(ctx, "queue built",
		"owner", owner,
		"size", len(queue),
		"duration", time.Since(start).Seconds(),
	)
	return queue, nil
}

func (s *Service) build(ctx context.Context, owner string, now time.Time) ([]PriorityItem, error) {
	states, err := s.workItemsByID(ctx, owner)
	if err != nil {
		return nil, err
	}

	var scored []PriorityItem
	keep := func(item PriorityItem) {
		if !s.visible(&item, states, now) {
			return
		}
		s.metrics.IncScored(string(item.SourceType))
		scored = append(scored, item)
	}

	tasks, err := s.dir.Tasks(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		keep(MapTask(t, s.cfg, now))
	}

	messages, err := s.dir.InboxMessages(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		keep(MapInboxMessage(m, s.cfg, now))
	}

	window := time.Duration(s.cfg.CalendarUpcomingWindowHours) * time.Hour
	events, err := s.dir.CalendarEvents(ctx, owner, now, now.Add(window))
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		if !e.StartAt.After(now) {
			continue
		}
		keep(MapCalendarEvent(e, s.cfg, now))
	}

	commitments, err := s.dir.Commitments(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, c := range commitments {
		if c.Status != "" && c.Status != source.CommitmentOpen {
			continue
		}
		keep(MapCommitment(c, s.cfg, now))
	}

	companies, err := s.dir.Companies(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, c := range companies {
		keep(MapCompany(c, s.cfg, now))
	}

	return Rank(scored, s.cfg), nil
}

// visible applies the triage-state filter and carries snooze data onto the
// item. Trusted and ignored rows never surface; snoozed rows stay hidden
// while their snooze is in the future.
func (s *Service) visible(item *PriorityItem, states map[string]triage.WorkItem, now time.Time) bool {
	w, ok := states[item.ID]
	if !ok {
		return true
	}
	switch w.Status {
	case triage.StatusTrusted, triage.StatusIgnored:
		return false
	case triage.StatusSnoozed:
		item.IsSnoozed = true
		item.SnoozedUntil = w.SnoozeUntil
		if w.SnoozeUntil != nil && w.SnoozeUntil.After(now) {
			return false
		}
	}
	return true
}

func (s *Service) workItemsByID(ctx context.Context, owner string) (map[string]triage.WorkItem, error) {
	if s.triage == nil {
		return nil, nil
	}
	items, err := s.triage.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]triage.WorkItem, len(items))
	for _, w := range items {
		byID[w.ID] = w
	}
	return byID, nil
}
