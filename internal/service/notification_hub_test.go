package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
)

// memNotificationRepo is an in-memory NotificationRepository with per-call
// error injection and an optional gate for delaying ListVisible.
type memNotificationRepo struct {
	mu    sync.Mutex
	items []*domain.Notification

	failCreate  error
	failUpdate  error
	failDelete  error
	failMarkAll error

	onDelete func()

	gateProperty string
	gateEntered  chan struct{}
	gate         chan struct{}
}

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{}
}

func (r *memNotificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	cp := *n
	r.items = append([]*domain.Notification{&cp}, r.items...)
	return nil
}

func (r *memNotificationRepo) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.ID == id {
			cp := *item
			return &cp, nil
		}
	}
	return nil, &domain.NotFoundError{Entity: "notification", ID: id}
}

func (r *memNotificationRepo) Update(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return r.failUpdate
	}
	for i, item := range r.items {
		if item.ID == n.ID {
			cp := *n
			r.items[i] = &cp
			return nil
		}
	}
	return &domain.NotFoundError{Entity: "notification", ID: n.ID}
}

func (r *memNotificationRepo) Delete(_ context.Context, id string) error {
	if r.onDelete != nil {
		r.onDelete()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDelete != nil {
		return r.failDelete
	}
	for i, item := range r.items {
		if item.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *memNotificationRepo) ListVisible(_ context.Context, userID, propertyID string) ([]*domain.Notification, error) {
	r.mu.Lock()
	gated := r.gate != nil && propertyID == r.gateProperty
	entered, gate := r.gateEntered, r.gate
	r.mu.Unlock()
	if gated {
		if entered != nil {
			close(entered)
			r.mu.Lock()
			r.gateEntered = nil
			r.mu.Unlock()
		}
		<-gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Notification
	for _, item := range r.items {
		if visibleTo(item, userID, propertyID) {
			cp := *item
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memNotificationRepo) MarkAllRead(_ context.Context, userID, propertyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failMarkAll != nil {
		return r.failMarkAll
	}
	for _, item := range r.items {
		if visibleTo(item, userID, propertyID) {
			item.Status = domain.NotificationRead
		}
	}
	return nil
}

func visibleTo(n *domain.Notification, userID, propertyID string) bool {
	if n.TargetUserID == "" && n.TargetPropertyID == "" {
		return true
	}
	if n.TargetUserID != "" && n.TargetUserID == userID {
		return true
	}
	return n.TargetPropertyID != "" && n.TargetPropertyID == propertyID
}

// memFeed is an in-process ChangeFeed that records subscription lifecycle
// ordering.
type memFeed struct {
	mu  sync.Mutex
	log []string
}

type memFeedSub struct {
	feed       *memFeed
	propertyID string
	events     chan domain.FeedEvent
	closed     bool
}

func newMemFeed() *memFeed {
	return &memFeed{}
}

func (f *memFeed) Subscribe(_ context.Context, propertyID string) (domain.FeedSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, "subscribe:"+propertyID)
	return &memFeedSub{feed: f, propertyID: propertyID, events: make(chan domain.FeedEvent, 8)}, nil
}

func (f *memFeed) Publish(_ context.Context, ev domain.FeedEvent) error {
	return nil
}

func (f *memFeed) deliver(sub domain.FeedSubscription, ev domain.FeedEvent) {
	s := sub.(*memFeedSub)
	f.mu.Lock()
	closed := s.closed
	f.mu.Unlock()
	if !closed {
		s.events <- ev
	}
}

func (f *memFeed) order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.log))
	copy(out, f.log)
	return out
}

func (s *memFeedSub) Events() <-chan domain.FeedEvent {
	return s.events
}

func (s *memFeedSub) Close() error {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.feed.log = append(s.feed.log, "close:"+s.propertyID)
	close(s.events)
	return nil
}

func seedFeedNotifications(repo *memNotificationRepo) {
	repo.items = []*domain.Notification{
		{ID: "n1", Title: "Welcome", Status: domain.NotificationUnread},
		{ID: "n2", Title: "Rent due", Status: domain.NotificationUnread, TargetPropertyID: "p1"},
		{ID: "n3", Title: "Other property", Status: domain.NotificationUnread, TargetPropertyID: "p2"},
		{ID: "n4", Title: "For you", Status: domain.NotificationRead, TargetUserID: "u1"},
	}
}

func waitSnapshot(t *testing.T, hub *NotificationHub, want int) []*domain.Notification {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := hub.Snapshot()
		if len(snap) == want {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshot never reached %d items, have %d", want, len(snap))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSignInLoadsVisibleSet(t *testing.T) {
	repo := newMemNotificationRepo()
	seedFeedNotifications(repo)
	hub := NewNotificationHub(context.Background(), repo, newMemFeed(), nil)

	hub.SignIn("u1", "p1")

	snap := hub.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected global + p1 + user entries, got %d", len(snap))
	}
	for _, n := range snap {
		if n.ID == "n3" {
			t.Error("notification for another property leaked into the view")
		}
	}
	if hub.UnreadCount() != 2 {
		t.Errorf("expected 2 unread, got %d", hub.UnreadCount())
	}
}

func TestFeedEventReloadsFullView(t *testing.T) {
	repo := newMemNotificationRepo()
	seedFeedNotifications(repo)
	feed := newMemFeed()
	hub := NewNotificationHub(context.Background(), repo, feed, nil)

	hub.SignIn("u1", "p1")
	sub := currentSub(hub)

	repo.mu.Lock()
	repo.items = append(repo.items, &domain.Notification{ID: "n5", Title: "New", Status: domain.NotificationUnread, TargetPropertyID: "p1"})
	repo.mu.Unlock()

	feed.deliver(sub, domain.FeedEvent{Type: "insert", Entity: "notification", RecordID: "n5", PropertyID: "p1"})

	waitSnapshot(t, hub, 4)
}

func TestSwitchPropertyClosesOldSubscriptionFirst(t *testing.T) {
	repo := newMemNotificationRepo()
	seedFeedNotifications(repo)
	feed := newMemFeed()
	hub := NewNotificationHub(context.Background(), repo, feed, nil)

	hub.SignIn("u1", "p1")
	hub.SwitchProperty("p2")

	want := []string{"subscribe:p1", "close:p1", "subscribe:p2"}
	got := feed.order()
	if len(got) != len(want) {
		t.Fatalf("unexpected feed lifecycle: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected feed lifecycle: got %v want %v", got, want)
		}
	}

	snap := hub.Snapshot()
	for _, n := range snap {
		if n.TargetPropertyID == "p1" {
			t.Error("old property's notification survived the switch")
		}
	}
}

func TestStaleReloadIsDiscardedAfterSwitch(t *testing.T) {
	repo := newMemNotificationRepo()
	seedFeedNotifications(repo)
	feed := newMemFeed()
	hub := NewNotificationHub(context.Background(), repo, feed, nil)

	hub.SignIn("u1", "p1")
	sub := currentSub(hub)

	// Make the next p1 reload hang until released.
	entered := make(chan struct{})
	gate := make(chan struct{})
	repo.mu.Lock()
	repo.gateProperty = "p1"
	repo.gateEntered = entered
	repo.gate = gate
	repo.mu.Unlock()

	feed.deliver(sub, domain.FeedEvent{Type: "update", Entity: "notification", RecordID: "n2", PropertyID: "p1"})
	<-entered

	// Switch scope while that reload is in flight.
	repo.mu.Lock()
	repo.gateProperty = ""
	repo.mu.Unlock()
	hub.SwitchProperty("p2")
	after := hub.Snapshot()

	// Release the stale reload; it must not replace the p2 view.
	close(gate)
	time.Sleep(50 * time.Millisecond)

	snap := hub.Snapshot()
	if len(snap) != len(after) {
		t.Fatalf("stale reload changed the view: %d -> %d items", len(after), len(snap))
	}
	for _, n := range snap {
		if n.TargetPropertyID == "p1" {
			t.Error("stale reload leaked old scope into the view")
		}
	}
}

func TestSignOutEmptiesView(t *testing.T) {
	repo := newMemNotificationRepo()
	seedFeedNotifications(repo)
	feed := newMemFeed()
	hub := NewNotificationHub(context.Background(), repo, feed, nil)

	hub.SignIn("u1", "p1")
	hub.SignOut()

	if len(hub.Snapshot()) != 0 {
		t.Error("view not emptied on sign-out")
	}
	got := feed.order()
	if got[len(got)-1] != "close:p1" {
		t.Errorf("subscription not closed on sign-out: %v", got)
	}
}

func TestCreateRollsBackOnWriteFailure(t *testing.T) {
	repo := newMemNotificationRepo()
	hub := NewNotificationHub(context.Background(), repo, newMemFeed(), nil)
	hub.SignIn("u1", "p1")

	repo.failCreate = errors.New("boom")
	_, err := hub.Create(context.Background(), "Broken", "msg", domain.NotificationSystem, "", "p1")
	if err == nil {
		t.Fatal("expected create to fail")
	}
	if len(hub.Snapshot()) != 0 {
		t.Error("optimistic insert not rolled back")
	}
}

func TestMarkAsReadRollsBackOnWriteFailure(t *testing.T) {
	repo := newMemNotificationRepo()
	seedFeedNotifications(repo)
	hub := NewNotificationHub(context.Background(), repo, newMemFeed(), nil)
	hub.SignIn("u1", "p1")

	repo.failUpdate = errors.New("boom")
	if err := hub.MarkAsRead(context.Background(), "n1"); err == nil {
		t.Fatal("expected mark-as-read to fail")
	}
	for _, n := range hub.Snapshot() {
		if n.ID == "n1" && n.Status != domain.NotificationUnread {
			t.Error("optimistic read flag not rolled back")
		}
	}
}

func TestSnapshotIsIsolatedFromLaterMutations(t *testing.T) {
	repo := newMemNotificationRepo()
	seedFeedNotifications(repo)
	hub := NewNotificationHub(context.Background(), repo, newMemFeed(), nil)
	hub.SignIn("u1", "p1")

	held := hub.Snapshot()
	if err := hub.MarkAsRead(context.Background(), "n1"); err != nil {
		t.Fatalf("MarkAsRead failed: %v", err)
	}

	// The stream handler marshals snapshots on its own goroutine, so a held
	// snapshot must never observe a mutation applied after it was taken.
	for _, n := range held {
		if n.ID == "n1" && n.Status != domain.NotificationUnread {
			t.Error("held snapshot entry mutated by a later MarkAsRead")
		}
	}

	held[0].Status = domain.NotificationRead
	held[0].Title = "scribbled"
	fresh := hub.Snapshot()
	if fresh[0].Title == "scribbled" {
		t.Error("writing through a snapshot entry reached the hub's view")
	}
}

func TestMarkAllAsReadFlipsEveryVisibleEntry(t *testing.T) {
	repo := newMemNotificationRepo()
	seedFeedNotifications(repo)
	hub := NewNotificationHub(context.Background(), repo, newMemFeed(), nil)
	hub.SignIn("u1", "p1")

	if err := hub.MarkAllAsRead(context.Background()); err != nil {
		t.Fatalf("MarkAllAsRead failed: %v", err)
	}
	for _, n := range hub.Snapshot() {
		if n.Status != domain.NotificationRead {
			t.Errorf("%s still unread after mark-all", n.ID)
		}
	}
	if got := hub.UnreadCount(); got != 0 {
		t.Errorf("expected 0 unread after mark-all, got %d", got)
	}
}

func TestMarkAllAsReadRevertsOnlyWhatItFlipped(t *testing.T) {
	repo := newMemNotificationRepo()
	seedFeedNotifications(repo)
	hub := NewNotificationHub(context.Background(), repo, newMemFeed(), nil)
	hub.SignIn("u1", "p1")

	repo.failMarkAll = errors.New("boom")
	if err := hub.MarkAllAsRead(context.Background()); err == nil {
		t.Fatal("expected mark-all-as-read to fail")
	}
	for _, n := range hub.Snapshot() {
		switch n.ID {
		case "n1", "n2":
			if n.Status != domain.NotificationUnread {
				t.Errorf("%s not reverted to unread", n.ID)
			}
		case "n4":
			if n.Status != domain.NotificationRead {
				t.Error("n4 was read before the call and must stay read")
			}
		}
	}
}

func TestDeleteReinsertsOnWriteFailure(t *testing.T) {
	repo := newMemNotificationRepo()
	seedFeedNotifications(repo)
	hub := NewNotificationHub(context.Background(), repo, newMemFeed(), nil)
	hub.SignIn("u1", "p1")
	before := hub.Snapshot()

	repo.failDelete = errors.New("boom")
	if err := hub.Delete(context.Background(), "n2"); err == nil {
		t.Fatal("expected delete to fail")
	}
	after := hub.Snapshot()
	if len(after) != len(before) {
		t.Fatalf("deleted entry not reinserted: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Fatalf("reinsert lost ordering: %v vs %v", before[i].ID, after[i].ID)
		}
	}
}

func TestDeleteRollbackSkipsEntryRestoredByReload(t *testing.T) {
	repo := newMemNotificationRepo()
	seedFeedNotifications(repo)
	hub := NewNotificationHub(context.Background(), repo, newMemFeed(), nil)
	hub.SignIn("u1", "p1")
	before := hub.Snapshot()

	// A same-epoch reload lands between the optimistic removal and the failed
	// remote delete; the rollback must not reinsert what the reload already
	// restored.
	repo.failDelete = errors.New("boom")
	repo.onDelete = func() {
		hub.mu.Lock()
		epoch := hub.epoch
		hub.mu.Unlock()
		hub.reload(epoch)
	}

	if err := hub.Delete(context.Background(), "n2"); err == nil {
		t.Fatal("expected delete to fail")
	}

	after := hub.Snapshot()
	if len(after) != len(before) {
		t.Fatalf("expected %d entries after rollback, got %d", len(before), len(after))
	}
	seen := 0
	for _, n := range after {
		if n.ID == "n2" {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("expected exactly one n2 after rollback, got %d", seen)
	}
}

func TestAttachSessionDrivesHub(t *testing.T) {
	repo := newMemNotificationRepo()
	seedFeedNotifications(repo)
	feed := newMemFeed()
	hub := NewNotificationHub(context.Background(), repo, feed, nil)

	sc := NewSessionContext()
	hub.AttachSession(sc)

	sc.SignIn("u1", "p1")
	if len(hub.Snapshot()) != 3 {
		t.Fatalf("sign-in did not load the view, got %d items", len(hub.Snapshot()))
	}

	sc.SwitchProperty("p2")
	for _, n := range hub.Snapshot() {
		if n.TargetPropertyID == "p1" {
			t.Error("scope change did not re-scope the view")
		}
	}

	sc.SignOut()
	if len(hub.Snapshot()) != 0 {
		t.Error("sign-out did not empty the view")
	}
}

// currentSub digs out the hub's live subscription so tests can push events
// into it.
func currentSub(hub *NotificationHub) domain.FeedSubscription {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return hub.sub
}
