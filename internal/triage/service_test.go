package triage

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/source"
)

// mockStore implements Store for testing, with the same guard semantics the
// real stores carry.
type mockStore struct {
	mu       sync.Mutex
	items    map[string]*WorkItem
	links    map[string][]EntityLink
	extracts map[string][]ItemExtract
	putErr   error
}

func newMockStore() *mockStore {
	return &mockStore{
		items:    make(map[string]*WorkItem),
		links:    make(map[string][]EntityLink),
		extracts: make(map[string][]ItemExtract),
	}
}

func storeKey(owner string, key ItemKey) string {
	return owner + "/" + key.ItemID()
}

func (m *mockStore) GetWorkItem(_ context.Context, owner string, key ItemKey) (*WorkItem, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[storeKey(owner, key)]
	if !ok {
		return nil, false, nil
	}
	cp := *item
	cp.ReasonCodes = slices.Clone(item.ReasonCodes)
	return &cp, true, nil
}

func (m *mockStore) ListWorkItems(_ context.Context, owner string) ([]WorkItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []WorkItem
	for _, item := range m.items {
		if item.CreatedBy == owner {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (m *mockStore) PutWorkItem(_ context.Context, item *WorkItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	cp := *item
	cp.ReasonCodes = slices.Clone(item.ReasonCodes)
	m.items[storeKey(item.CreatedBy, item.Key())] = &cp
	return nil
}

func (m *mockStore) MarkTrusted(_ context.Context, owner string, key ItemKey, now time.Time, resolved bool) (*WorkItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sk := storeKey(owner, key)
	item, ok := m.items[sk]
	if !ok {
		return nil, ErrNotFound
	}
	if !resolved {
		qualified := item.Status == StatusIgnored ||
			len(m.links[sk]) > 0 ||
			len(m.extracts[sk]) > 0
		if !qualified {
			return nil, &TrustRejectedError{Key: key}
		}
	}
	item.Status = StatusTrusted
	item.TrustedAt = &now
	if item.ReviewedAt == nil {
		item.ReviewedAt = &now
	}
	item.LastTouchedAt = now
	item.UpdatedAt = now
	cp := *item
	return &cp, nil
}

func (m *mockStore) UpsertEntityLink(_ context.Context, link *EntityLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sk := storeKey(link.CreatedBy, ItemKey{SourceType: link.SourceType, SourceID: link.SourceID})
	for i, existing := range m.links[sk] {
		if existing.TargetType == link.TargetType && existing.TargetID == link.TargetID {
			created := existing.CreatedAt
			m.links[sk][i] = *link
			m.links[sk][i].CreatedAt = created
			return nil
		}
	}
	m.links[sk] = append(m.links[sk], *link)
	return nil
}

func (m *mockStore) ListEntityLinks(_ context.Context, owner string, key ItemKey) ([]EntityLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.links[storeKey(owner, key)]), nil
}

func (m *mockStore) PutItemExtract(_ context.Context, extract *ItemExtract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sk := storeKey(extract.CreatedBy, ItemKey{SourceType: extract.SourceType, SourceID: extract.SourceID})
	m.extracts[sk] = append(m.extracts[sk], *extract)
	return nil
}

func (m *mockStore) ListItemExtracts(_ context.Context, owner string, key ItemKey) ([]ItemExtract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.extracts[storeKey(owner, key)]), nil
}

// mockDirectory implements source.Directory with just enough behavior for the
// triage write paths.
type mockDirectory struct {
	mu          sync.Mutex
	commitments map[string]*source.Commitment
	tasks       []source.Task
	notes       []source.Note
	createErr   error
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{commitments: make(map[string]*source.Commitment)}
}

func (m *mockDirectory) Tasks(_ context.Context, _ string) ([]source.Task, error) { return nil, nil }
func (m *mockDirectory) InboxMessages(_ context.Context, _ string) ([]source.InboxMessage, error) {
	return nil, nil
}
func (m *mockDirectory) CalendarEvents(_ context.Context, _ string, _, _ time.Time) ([]source.CalendarEvent, error) {
	return nil, nil
}
func (m *mockDirectory) Commitments(_ context.Context, _ string) ([]source.Commitment, error) {
	return nil, nil
}
func (m *mockDirectory) Companies(_ context.Context, _ string) ([]source.Company, error) {
	return nil, nil
}

func (m *mockDirectory) GetCommitment(_ context.Context, _, id string) (*source.Commitment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.commitments[id]
	if !ok {
		return nil, false, nil
	}
	cp := *c
	return &cp, true, nil
}

func (m *mockDirectory) SetCommitmentStatus(_ context.Context, _, id, status string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.commitments[id]
	if !ok {
		return errors.New("commitment not found")
	}
	c.Status = status
	c.LastTouchedAt = &now
	return nil
}

func (m *mockDirectory) CreateTask(_ context.Context, _ string, t *source.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.tasks = append(m.tasks, *t)
	return nil
}

func (m *mockDirectory) CreateNote(_ context.Context, _ string, n *source.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, *n)
	return nil
}

var serviceNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func newTestService(store Store, dir source.Directory) *Service {
	svc := NewService(store, dir, log.Nop(), nil)
	svc.now = func() time.Time { return serviceNow }
	return svc
}

var taskKey = ItemKey{SourceType: source.TypeTask, SourceID: "t-1"}

func TestEnsure_CreatesPending(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore(), newMockDirectory())

	item, err := svc.Ensure(context.Background(), "alex", taskKey, []string{ReasonUnlinkedCompany})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if item.Status != StatusPending {
		t.Errorf("Status = %q, want pending", item.Status)
	}
	if item.ID != "task-t-1" {
		t.Errorf("ID = %q, want %q", item.ID, "task-t-1")
	}
	if !slices.Equal(item.ReasonCodes, []string{ReasonUnlinkedCompany}) {
		t.Errorf("ReasonCodes = %v", item.ReasonCodes)
	}
}

func TestEnsure_Idempotent(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore(), newMockDirectory())

	first, err := svc.Ensure(context.Background(), "alex", taskKey, nil)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	second, err := svc.Ensure(context.Background(), "alex", taskKey, []string{ReasonStale})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if second.CreatedAt != first.CreatedAt {
		t.Error("second Ensure should return the existing record")
	}
	if len(second.ReasonCodes) != 0 {
		t.Errorf("ReasonCodes = %v, want the original empty set kept", second.ReasonCodes)
	}
}

func TestSnooze_SetsState(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore(), newMockDirectory())
	if _, err := svc.Ensure(context.Background(), "alex", taskKey, nil); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	until := serviceNow.Add(24 * time.Hour)
	item, err := svc.Snooze(context.Background(), "alex", taskKey, until)
	if err != nil {
		t.Fatalf("Snooze: %v", err)
	}
	if item.Status != StatusSnoozed {
		t.Errorf("Status = %q, want snoozed", item.Status)
	}
	if item.SnoozeUntil == nil || !item.SnoozeUntil.Equal(until) {
		t.Errorf("SnoozeUntil = %v, want %v", item.SnoozeUntil, until)
	}
}

func TestSnooze_LazyExpiryOnRead(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	svc := newTestService(store, newMockDirectory())
	if _, err := svc.Ensure(context.Background(), "alex", taskKey, nil); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if _, err := svc.Snooze(context.Background(), "alex", taskKey, serviceNow.Add(time.Hour)); err != nil {
		t.Fatalf("Snooze: %v", err)
	}

	// Move the clock past the snooze.
	svc.now = func() time.Time { return serviceNow.Add(2 * time.Hour) }

	item, _, _, err := svc.Get(context.Background(), "alex", taskKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if item.Status != StatusNeedsReview {
		t.Errorf("Status = %q, want needs_review after expiry", item.Status)
	}
	if item.SnoozeUntil != nil {
		t.Errorf("SnoozeUntil = %v, want nil", item.SnoozeUntil)
	}

	// The transition is persisted, not just a read-time view.
	stored, ok, err := store.GetWorkItem(context.Background(), "alex", taskKey)
	if err != nil || !ok {
		t.Fatalf("GetWorkItem: ok=%v err=%v", ok, err)
	}
	if stored.Status != StatusNeedsReview {
		t.Errorf("stored Status = %q, want needs_review", stored.Status)
	}
}

func TestList_NormalizesExpiredSnoozes(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore(), newMockDirectory())
	if _, err := svc.Ensure(context.Background(), "alex", taskKey, nil); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if _, err := svc.Snooze(context.Background(), "alex", taskKey, serviceNow.Add(-time.Minute)); err != nil {
		t.Fatalf("Snooze: %v", err)
	}

	items, err := svc.List(context.Background(), "alex")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len = %d, want 1", len(items))
	}
	if items[0].Status != StatusNeedsReview {
		t.Errorf("Status = %q, want needs_review", items[0].Status)
	}
}

func TestMarkTrusted_RejectedWithoutEvidence(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore(), newMockDirectory())
	if _, err := svc.Ensure(context.Background(), "alex", taskKey, nil); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	_, err := svc.MarkTrusted(context.Background(), "alex", taskKey)
	var rejected *TrustRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("err = %v, want *TrustRejectedError", err)
	}
	if rejected.Key != taskKey {
		t.Errorf("Key = %+v, want %+v", rejected.Key, taskKey)
	}

	item, _, _, err := svc.Get(context.Background(), "alex", taskKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if item.Status != StatusPending {
		t.Errorf("Status = %q, rejection must not change state", item.Status)
	}
}

func TestMarkTrusted_AfterLink(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore(), newMockDirectory())
	if _, err := svc.Ensure(context.Background(), "alex", taskKey, nil); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := svc.LinkEntity(context.Background(), "alex", taskKey, "portfolio_company", "co-1", LinkManual, nil); err != nil {
		t.Fatalf("LinkEntity: %v", err)
	}

	item, err := svc.MarkTrusted(context.Background(), "alex", taskKey)
	if err != nil {
		t.Fatalf("MarkTrusted: %v", err)
	}
	if item.Status != StatusTrusted {
		t.Errorf("Status = %q, want trusted", item.Status)
	}
	if item.TrustedAt == nil || item.ReviewedAt == nil {
		t.Errorf("TrustedAt = %v, ReviewedAt = %v, want both set", item.TrustedAt, item.ReviewedAt)
	}
}

func TestMarkTrusted_AfterExtract(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	svc := newTestService(store, newMockDirectory())
	if _, err := svc.Ensure(context.Background(), "alex", taskKey, nil); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	err := store.PutItemExtract(context.Background(), &ItemExtract{
		CreatedBy:   "alex",
		SourceType:  taskKey.SourceType,
		SourceID:    taskKey.SourceID,
		ExtractType: "summary",
		Content:     []byte(`{"summary":"ok"}`),
	})
	if err != nil {
		t.Fatalf("PutItemExtract: %v", err)
	}

	if _, err := svc.MarkTrusted(context.Background(), "alex", taskKey); err != nil {
		t.Fatalf("MarkTrusted: %v", err)
	}
}

func TestMarkTrusted_IgnoredQualifies(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore(), newMockDirectory())
	if _, err := svc.Ensure(context.Background(), "alex", taskKey, nil); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if _, err := svc.NoAction(context.Background(), "alex", taskKey); err != nil {
		t.Fatalf("NoAction: %v", err)
	}

	if _, err := svc.MarkTrusted(context.Background(), "alex", taskKey); err != nil {
		t.Fatalf("MarkTrusted after NoAction: %v", err)
	}
}

func TestMarkTrusted_NotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore(), newMockDirectory())

	_, err := svc.MarkTrusted(context.Background(), "alex", taskKey)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLinkEntity_ClearsUnlinkedCompany(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore(), newMockDirectory())
	if _, err := svc.Ensure(context.Background(), "alex", taskKey, []string{ReasonUnlinkedCompany, ReasonStale}); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	if err := svc.LinkEntity(context.Background(), "alex", taskKey, "portfolio_company", "co-1", LinkManual, nil); err != nil {
		t.Fatalf("LinkEntity: %v", err)
	}

	item, links, _, err := svc.Get(context.Background(), "alex", taskKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !slices.Equal(item.ReasonCodes, []string{ReasonStale}) {
		t.Errorf("ReasonCodes = %v, want only stale left", item.ReasonCodes)
	}
	if len(links) != 1 || links[0].LinkReason != LinkManual {
		t.Errorf("links = %+v, want one manual link", links)
	}
}

func TestCreateTaskFromSuggestion(t *testing.T) {
	t.Parallel()

	dir := newMockDirectory()
	svc := newTestService(newMockStore(), dir)
	key := ItemKey{SourceType: source.TypeInbox, SourceID: "m-1"}
	if _, err := svc.Ensure(context.Background(), "alex", key, []string{ReasonNoNextAction}); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	created, err := svc.CreateTaskFromSuggestion(context.Background(), "alex", key, &source.Task{Title: "Follow up"})
	if err != nil {
		t.Fatalf("CreateTaskFromSuggestion: %v", err)
	}
	if created.ID == "" {
		t.Error("expected a generated task ID")
	}
	if len(dir.tasks) != 1 || dir.tasks[0].Title != "Follow up" {
		t.Fatalf("tasks = %+v, want the created task", dir.tasks)
	}

	item, links, _, err := svc.Get(context.Background(), "alex", key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(item.ReasonCodes) != 0 {
		t.Errorf("ReasonCodes = %v, want no_next_action cleared", item.ReasonCodes)
	}
	if len(links) != 1 || links[0].LinkReason != LinkTaskCreated || links[0].TargetID != created.ID {
		t.Errorf("links = %+v, want one task_created link to %q", links, created.ID)
	}
}

func TestCreateTaskFromSuggestion_DirectoryError(t *testing.T) {
	t.Parallel()

	dir := newMockDirectory()
	dir.createErr = errors.New("directory down")
	svc := newTestService(newMockStore(), dir)
	if _, err := svc.Ensure(context.Background(), "alex", taskKey, nil); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	if _, err := svc.CreateTaskFromSuggestion(context.Background(), "alex", taskKey, &source.Task{Title: "x"}); err == nil {
		t.Fatal("expected error from directory")
	}
}

func TestSaveAsNote(t *testing.T) {
	t.Parallel()

	dir := newMockDirectory()
	svc := newTestService(newMockStore(), dir)
	if _, err := svc.Ensure(context.Background(), "alex", taskKey, nil); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	if err := svc.SaveAsNote(context.Background(), "alex", taskKey, "met at the summit"); err != nil {
		t.Fatalf("SaveAsNote: %v", err)
	}
	if len(dir.notes) != 1 {
		t.Fatalf("notes = %+v, want one", dir.notes)
	}
	note := dir.notes[0]
	if note.Content != "met at the summit" || note.SourceType != source.TypeTask || note.SourceID != "t-1" {
		t.Errorf("note = %+v", note)
	}

	item, _, _, err := svc.Get(context.Background(), "alex", taskKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if item.Status != StatusPending {
		t.Errorf("Status = %q, notes must not change status", item.Status)
	}
}

func TestResolveCommitment_CompleteTrusts(t *testing.T) {
	t.Parallel()

	dir := newMockDirectory()
	dir.commitments["c-1"] = &source.Commitment{ID: "c-1", Status: source.CommitmentOpen}
	svc := newTestService(newMockStore(), dir)

	if err := svc.ResolveCommitment(context.Background(), "alex", "c-1", ActionComplete); err != nil {
		t.Fatalf("ResolveCommitment: %v", err)
	}

	if got := dir.commitments["c-1"].Status; got != source.CommitmentCompleted {
		t.Errorf("commitment status = %q, want completed", got)
	}

	key := ItemKey{SourceType: source.TypeCommitment, SourceID: "c-1"}
	item, _, _, err := svc.Get(context.Background(), "alex", key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if item.Status != StatusTrusted {
		t.Errorf("work item status = %q, want trusted without links or extracts", item.Status)
	}
}

func TestResolveCommitment_WaitingOnDoesNotTrust(t *testing.T) {
	t.Parallel()

	dir := newMockDirectory()
	dir.commitments["c-2"] = &source.Commitment{ID: "c-2", Status: source.CommitmentOpen}
	svc := newTestService(newMockStore(), dir)

	if err := svc.ResolveCommitment(context.Background(), "alex", "c-2", ActionWaitingOn); err != nil {
		t.Fatalf("ResolveCommitment: %v", err)
	}

	if got := dir.commitments["c-2"].Status; got != source.CommitmentWaitingOn {
		t.Errorf("commitment status = %q, want waiting_on", got)
	}

	key := ItemKey{SourceType: source.TypeCommitment, SourceID: "c-2"}
	item, _, _, err := svc.Get(context.Background(), "alex", key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if item.Status != StatusPending {
		t.Errorf("work item status = %q, waiting_on must not trust", item.Status)
	}
	if !item.LastTouchedAt.Equal(serviceNow) {
		t.Errorf("LastTouchedAt = %v, want touched", item.LastTouchedAt)
	}
}

func TestResolveCommitment_UnknownAction(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore(), newMockDirectory())

	if err := svc.ResolveCommitment(context.Background(), "alex", "c-1", "postpone"); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestResolveCommitment_NotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore(), newMockDirectory())

	err := svc.ResolveCommitment(context.Background(), "alex", "missing", ActionComplete)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore(), newMockDirectory())

	_, _, _, err := svc.Get(context.Background(), "alex", taskKey)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
