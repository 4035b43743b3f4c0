package triage

import (
	"context"
	"time"
)

// Store is the persistence boundary for triage records. Implementations must
// enforce the uniqueness constraints on work items, links, and extracts —
// the idempotent upsert semantics depend on them — and must apply MarkTrusted
// as a single atomic read-check-write: the guard check and the status write
// see one consistent snapshot, so two racing MarkTrusted calls cannot flip a
// status without a guard check having passed on the final write.
type Store interface {
	GetWorkItem(ctx context.Context, createdBy string, key ItemKey) (*WorkItem, bool, error)
	ListWorkItems(ctx context.Context, createdBy string) ([]WorkItem, error)

	// PutWorkItem inserts or updates on (createdBy, sourceType, sourceID).
	PutWorkItem(ctx context.Context, item *WorkItem) error

	// MarkTrusted atomically evaluates the clearable invariant and sets the
	// status to trusted. It returns *TrustRejectedError when no entity link
	// exists, no extract exists, and the item is not ignored; ErrNotFound
	// when the work item does not exist. resolved=true records that the
	// caller already holds a qualifying judgment (a resolved commitment) and
	// bypasses the guard while keeping the write atomic.
	MarkTrusted(ctx context.Context, createdBy string, key ItemKey, now time.Time, resolved bool) (*WorkItem, error)

	// UpsertEntityLink creates or refreshes a link; the full tuple is the key.
	UpsertEntityLink(ctx context.Context, link *EntityLink) error
	ListEntityLinks(ctx context.Context, createdBy string, key ItemKey) ([]EntityLink, error)

	// PutItemExtract upserts on (createdBy, sourceType, sourceID, extractType).
	PutItemExtract(ctx context.Context, extract *ItemExtract) error
	ListItemExtracts(ctx context.Context, createdBy string, key ItemKey) ([]ItemExtract, error)
}
