// Package memsource provides an in-memory implementation of source.Directory.
package memsource

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/linnemanlabs/sift/internal/source"
)

// Directory holds source records in memory. Suitable for dev/testing.
type Directory struct {
	mu          sync.RWMutex
	tasks       map[string][]source.Task
	inbox       map[string][]source.InboxMessage
	events      map[string][]source.CalendarEvent
	commitments map[string][]source.Commitment
	companies   map[string][]source.Company
	notes       map[string][]source.Note
}

// New initializes an empty in-memory Directory.
func New() *Directory {
	return &Directory{
		tasks:       make(map[string][]source.Task),
		inbox:       make(map[string][]source.InboxMessage),
		events:      make(map[string][]source.CalendarEvent),
		commitments: make(map[string][]source.Commitment),
		companies:   make(map[string][]source.Company),
		notes:       make(map[string][]source.Note),
	}
}

// Seed helpers used by tests and the dev server.

// AddTasks appends tasks for an owner.
func (d *Directory) AddTasks(owner string, ts ...source.Task) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks[owner] = append(d.tasks[owner], ts...)
}

// AddInboxMessages appends inbox messages for an owner.
func (d *Directory) AddInboxMessages(owner string, ms ...source.InboxMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inbox[owner] = append(d.inbox[owner], ms...)
}

// AddCalendarEvents appends calendar events for an owner.
func (d *Directory) AddCalendarEvents(owner string, es ...source.CalendarEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events[owner] = append(d.events[owner], es...)
}

// AddCommitments appends commitments for an owner.
func (d *Directory) AddCommitments(owner string, cs ...source.Commitment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commitments[owner] = append(d.commitments[owner], cs...)
}

// AddCompanies appends companies for an owner.
func (d *Directory) AddCompanies(owner string, cs ...source.Company) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.companies[owner] = append(d.companies[owner], cs...)
}

// Tasks returns all tasks for an owner.
func (d *Directory) Tasks(_ context.Context, owner string) ([]source.Task, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.tasks[owner]), nil
}

// InboxMessages returns all inbox messages for an owner.
func (d *Directory) InboxMessages(_ context.Context, owner string) ([]source.InboxMessage, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.inbox[owner]), nil
}

// CalendarEvents returns events starting inside [from, to).
func (d *Directory) CalendarEvents(_ context.Context, owner string, from, to time.Time) ([]source.CalendarEvent, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []source.CalendarEvent
	for _, e := range d.events[owner] {
		if e.StartAt.Before(from) || !e.StartAt.Before(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Commitments returns all commitments for an owner.
func (d *Directory) Commitments(_ context.Context, owner string) ([]source.Commitment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.commitments[owner]), nil
}

// Companies returns all companies for an owner.
func (d *Directory) Companies(_ context.Context, owner string) ([]source.Company, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.companies[owner]), nil
}

// GetCommitment looks up a single commitment by ID.
func (d *Directory) GetCommitment(_ context.Context, owner, id string) (*source.Commitment, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.commitments[owner] {
		if c.ID == id {
			cp := c
			return &cp, true, nil
		}
	}
	return nil, false, nil
}

// SetCommitmentStatus updates a commitment's status in place.
func (d *Directory) SetCommitmentStatus(_ context.Context, owner, id, status string, now time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cs := d.commitments[owner]
	for i := range cs {
		if cs[i].ID == id {
			cs[i].Status = status
			t := now
			cs[i].LastTouchedAt = &t
			return nil
		}
	}
	return fmt.Errorf("commitment %s not found", id)
}

// CreateTask stores a new task.
func (d *Directory) CreateTask(_ context.Context, owner string, t *source.Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks[owner] = append(d.tasks[owner], *t)
	return nil
}

// CreateNote stores a new note.
func (d *Directory) CreateNote(_ context.Context, owner string, n *source.Note) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notes[owner] = append(d.notes[owner], *n)
	return nil
}

// Notes returns all notes for an owner. Used by tests.
func (d *Directory) Notes(owner string) []source.Note {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.notes[owner])
}
