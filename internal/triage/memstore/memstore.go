// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/linnemanlabs/sift/internal/triage"
)

// Store holds triage records in memory. Suitable for dev/testing. All
// operations, including the MarkTrusted guard check, run under one mutex, so
// the read-check-write is trivially atomic.
type Store struct {
	mu       sync.RWMutex
	items    map[string]*triage.WorkItem     // owner/itemID -> work item
	links    map[string][]triage.EntityLink  // owner/itemID -> links
	extracts map[string][]triage.ItemExtract // owner/itemID -> extracts
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		items:    make(map[string]*triage.WorkItem),
		links:    make(map[string][]triage.EntityLink),
		extracts: make(map[string][]triage.ItemExtract),
	}
}

func recordKey(owner string, key triage.ItemKey) string {
	return owner + "/" + key.ItemID()
}

// GetWorkItem retrieves a work item. Returns a copy.
func (s *Store) GetWorkItem(_ context.Context, owner string, key triage.ItemKey) (*triage.WorkItem, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[recordKey(owner, key)]
	if !ok {
		return nil, false, nil
	}
	return copyItem(item), true, nil
}

// ListWorkItems returns all work items for an owner.
func (s *Store) ListWorkItems(_ context.Context, owner string) ([]triage.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []triage.WorkItem
	for _, item := range s.items {
		if item.CreatedBy == owner {
			out = append(out, *copyItem(item))
		}
	}
	slices.SortFunc(out, func(a, b triage.WorkItem) int {
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		default:
			return 0
		}
	})
	return out, nil
}

// PutWorkItem stores a copy of the work item, upserting on identity.
func (s *Store) PutWorkItem(_ context.Context, item *triage.WorkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[recordKey(item.CreatedBy, item.Key())] = copyItem(item)
	return nil
}

// MarkTrusted evaluates the clearable invariant and flips the status to
// trusted in one critical section.
func (s *Store) MarkTrusted(_ context.Context, owner string, key triage.ItemKey, now time.Time, resolved bool) (*triage.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rk := recordKey(owner, key)
	item, ok := s.items[rk]
	if !ok {
		return nil, triage.ErrNotFound
	}

	if !resolved {
		qualified := item.Status == triage.StatusIgnored ||
			len(s.links[rk]) > 0 ||
			len(s.extracts[rk]) > 0
		if !qualified {
			return nil, &triage.TrustRejectedError{Key: key}
		}
	}

	item.Status = triage.StatusTrusted
	item.TrustedAt = &now
	if item.ReviewedAt == nil {
		item.ReviewedAt = &now
	}
	item.LastTouchedAt = now
	item.UpdatedAt = now
	return copyItem(item), nil
}

// UpsertEntityLink creates or replaces a link on its full tuple.
func (s *Store) UpsertEntityLink(_ context.Context, link *triage.EntityLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rk := recordKey(link.CreatedBy, triage.ItemKey{SourceType: link.SourceType, SourceID: link.SourceID})
	existing := s.links[rk]
	for i := range existing {
		if existing[i].TargetType == link.TargetType && existing[i].TargetID == link.TargetID {
			created := existing[i].CreatedAt
			existing[i] = *link
			existing[i].CreatedAt = created
			return nil
		}
	}
	s.links[rk] = append(existing, *link)
	return nil
}

// ListEntityLinks returns all links for a work item.
func (s *Store) ListEntityLinks(_ context.Context, owner string, key triage.ItemKey) ([]triage.EntityLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.links[recordKey(owner, key)]), nil
}

// PutItemExtract upserts an extract on (owner, key, extractType).
func (s *Store) PutItemExtract(_ context.Context, extract *triage.ItemExtract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rk := recordKey(extract.CreatedBy, triage.ItemKey{SourceType: extract.SourceType, SourceID: extract.SourceID})
	existing := s.extracts[rk]
	for i := range existing {
		if existing[i].ExtractType == extract.ExtractType {
			existing[i] = *extract
			return nil
		}
	}
	s.extracts[rk] = append(existing, *extract)
	return nil
}

// ListItemExtracts returns all extracts for a work item.
func (s *Store) ListItemExtracts(_ context.Context, owner string, key triage.ItemKey) ([]triage.ItemExtract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.extracts[recordKey(owner, key)]), nil
}

func copyItem(item *triage.WorkItem) *triage.WorkItem {
	cp := *item
	cp.ReasonCodes = slices.Clone(item.ReasonCodes)
	if item.SnoozeUntil != nil {
		t := *item.SnoozeUntil
		cp.SnoozeUntil = &t
	}
	if item.TrustedAt != nil {
		t := *item.TrustedAt
		cp.TrustedAt = &t
	}
	if item.ReviewedAt != nil {
		t := *item.ReviewedAt
		cp.ReviewedAt = &t
	}
	return &cp
}
