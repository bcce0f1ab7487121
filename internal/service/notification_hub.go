package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
	"github.com/aryan0dhankhar/roomdesk/internal/observability/metrics"
)

// NotificationHub keeps an in-memory view of the notifications visible to one
// console session and holds exactly one live change-feed subscription for the
// session's active property (or none when signed out).
//
// Every session transition bumps an epoch counter; loads started under an
// older epoch are discarded when they complete, so a slow reload can never
// overwrite the view of a newer scope. On any feed event the hub reloads the
// full visible set rather than patching incrementally.
type NotificationHub struct {
	repo   domain.NotificationRepository
	feed   domain.ChangeFeed
	logger *slog.Logger
	ctx    context.Context

	mu         sync.Mutex
	epoch      uint64
	userID     string
	propertyID string
	sub        domain.FeedSubscription
	items      []*domain.Notification

	changed chan struct{}
}

// NewNotificationHub creates a hub in the signed-out state. ctx bounds the
// lifetime of feed subscriptions and background reloads.
func NewNotificationHub(ctx context.Context, repo domain.NotificationRepository, feed domain.ChangeFeed, logger *slog.Logger) *NotificationHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHub{
		repo:    repo,
		feed:    feed,
		logger:  logger,
		ctx:     ctx,
		changed: make(chan struct{}, 1),
	}
}

// AttachSession wires the hub to a session context so sign-in, sign-out and
// property switches drive the hub automatically.
func (h *NotificationHub) AttachSession(sc *SessionContext) {
	sc.OnChange(func(ev SessionEvent) {
		switch ev.Kind {
		case SessionSignedIn:
			h.SignIn(ev.UserID, ev.PropertyID)
		case SessionScopeChanged:
			h.SwitchProperty(ev.PropertyID)
		case SessionSignedOut:
			h.SignOut()
		}
	})
}

// Changed signals that the visible set may have moved; at most one signal is
// buffered, so consumers read it and call Snapshot.
func (h *NotificationHub) Changed() <-chan struct{} {
	return h.changed
}

func (h *NotificationHub) signalChanged() {
	select {
	case h.changed <- struct{}{}:
	default:
	}
}

// SignIn moves the hub to the authenticated state for the given scope: any
// previous subscription is torn down first, then a new one is opened and the
// visible set loaded.
func (h *NotificationHub) SignIn(userID, propertyID string) {
	h.transition(userID, propertyID)
}

// SwitchProperty re-scopes the hub to another property. The old subscription
// is always closed before the new one opens, so events for the old scope can
// never land after the switch.
func (h *NotificationHub) SwitchProperty(propertyID string) {
	h.mu.Lock()
	userID := h.userID
	h.mu.Unlock()
	if userID == "" {
		return
	}
	h.transition(userID, propertyID)
}

// SignOut tears down the subscription and empties the view.
func (h *NotificationHub) SignOut() {
	h.mu.Lock()
	h.epoch++
	h.teardownLocked()
	h.userID = ""
	h.propertyID = ""
	h.items = nil
	h.mu.Unlock()
	h.signalChanged()
}

func (h *NotificationHub) transition(userID, propertyID string) {
	h.mu.Lock()
	h.epoch++
	epoch := h.epoch
	h.teardownLocked()
	h.userID = userID
	h.propertyID = propertyID

	if h.feed != nil {
		sub, err := h.feed.Subscribe(h.ctx, propertyID)
		if err != nil {
			h.logger.Warn("feed subscribe failed, view will not update live",
				slog.String("property_id", propertyID),
				slog.String("error", err.Error()),
			)
		} else {
			h.sub = sub
			metrics.IncFeedSubscriptions()
			go h.pump(sub, epoch)
		}
	}
	h.mu.Unlock()

	h.reload(epoch)
}

// teardownLocked closes the current subscription. Callers hold h.mu.
func (h *NotificationHub) teardownLocked() {
	if h.sub == nil {
		return
	}
	if err := h.sub.Close(); err != nil {
		h.logger.Warn("failed to close feed subscription", slog.String("error", err.Error()))
	}
	h.sub = nil
	metrics.DecFeedSubscriptions()
}

// pump reloads the visible set on every feed event until the subscription's
// events channel closes.
func (h *NotificationHub) pump(sub domain.FeedSubscription, epoch uint64) {
	for range sub.Events() {
		h.reload(epoch)
	}
}

// reload fetches the visible set for the scope that was current at epoch.
// The result is discarded if the hub has since moved on.
func (h *NotificationHub) reload(epoch uint64) {
	h.mu.Lock()
	if h.epoch != epoch || h.userID == "" {
		h.mu.Unlock()
		metrics.ObserveFeedReload("stale")
		return
	}
	userID, propertyID := h.userID, h.propertyID
	h.mu.Unlock()

	items, err := h.repo.ListVisible(h.ctx, userID, propertyID)
	if err != nil {
		metrics.ObserveFeedReload("error")
		h.logger.Warn("notification reload failed",
			slog.String("property_id", propertyID),
			slog.String("error", err.Error()),
		)
		return
	}

	h.mu.Lock()
	if h.epoch != epoch {
		h.mu.Unlock()
		metrics.ObserveFeedReload("stale")
		return
	}
	h.items = items
	h.mu.Unlock()
	metrics.ObserveFeedReload("success")
	h.signalChanged()
}

// Snapshot returns a copy of the current visible set, newest first. Entries
// are copied by value: mutations flip status on the hub's own structs, so a
// caller marshalling a snapshot on another goroutine must not share them.
func (h *NotificationHub) Snapshot() []*domain.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*domain.Notification, len(h.items))
	for i, item := range h.items {
		cp := *item
		out[i] = &cp
	}
	return out
}

// UnreadCount returns the number of unread notifications in view.
func (h *NotificationHub) UnreadCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, item := range h.items {
		if item.Status == domain.NotificationUnread {
			n++
		}
	}
	return n
}

// Create publishes a notification. The view is updated optimistically and
// rolled back if the write fails.
func (h *NotificationHub) Create(ctx context.Context, title, message string, typ domain.NotificationType, targetUserID, targetPropertyID string) (*domain.Notification, error) {
	if title == "" {
		return nil, &domain.ValidationError{Field: "title", Message: "is required"}
	}
	n := &domain.Notification{
		ID:               uuid.NewString(),
		Title:            title,
		Message:          message,
		Type:             typ,
		Status:           domain.NotificationUnread,
		TargetUserID:     targetUserID,
		TargetPropertyID: targetPropertyID,
	}

	h.mu.Lock()
	epoch := h.epoch
	visible := h.visibleLocked(n)
	if visible {
		h.items = append([]*domain.Notification{n}, h.items...)
	}
	h.mu.Unlock()
	if visible {
		h.signalChanged()
	}

	if err := h.repo.Create(ctx, n); err != nil {
		if visible {
			h.rollback(epoch, "create", func() {
				h.items = removeByID(h.items, n.ID)
			})
		}
		return nil, err
	}
	return n, nil
}

// MarkAsRead flips one notification to read, optimistically.
func (h *NotificationHub) MarkAsRead(ctx context.Context, id string) error {
	h.mu.Lock()
	epoch := h.epoch
	item := findByID(h.items, id)
	if item == nil {
		h.mu.Unlock()
		return &domain.NotFoundError{Entity: "notification", ID: id}
	}
	if item.Status == domain.NotificationRead {
		h.mu.Unlock()
		return nil
	}
	item.Status = domain.NotificationRead
	updated := *item
	h.mu.Unlock()
	h.signalChanged()

	if err := h.repo.Update(ctx, &updated); err != nil {
		h.rollback(epoch, "mark_read", func() {
			if cur := findByID(h.items, id); cur != nil {
				cur.Status = domain.NotificationUnread
			}
		})
		return err
	}
	return nil
}

// MarkAllAsRead flips every unread notification in view to read with one
// remote call. On failure only the entries flipped here are reverted.
func (h *NotificationHub) MarkAllAsRead(ctx context.Context) error {
	h.mu.Lock()
	epoch := h.epoch
	userID, propertyID := h.userID, h.propertyID
	if userID == "" {
		h.mu.Unlock()
		return &domain.AuthError{Message: "not signed in"}
	}
	var flipped []string
	for _, item := range h.items {
		if item.Status == domain.NotificationUnread {
			item.Status = domain.NotificationRead
			flipped = append(flipped, item.ID)
		}
	}
	h.mu.Unlock()
	if len(flipped) == 0 {
		return nil
	}
	h.signalChanged()

	if err := h.repo.MarkAllRead(ctx, userID, propertyID); err != nil {
		h.rollback(epoch, "mark_all_read", func() {
			for _, id := range flipped {
				if cur := findByID(h.items, id); cur != nil {
					cur.Status = domain.NotificationUnread
				}
			}
		})
		return err
	}
	return nil
}

// Delete removes a notification, optimistically.
func (h *NotificationHub) Delete(ctx context.Context, id string) error {
	h.mu.Lock()
	epoch := h.epoch
	item := findByID(h.items, id)
	var idx int
	if item != nil {
		for i, it := range h.items {
			if it.ID == id {
				idx = i
				break
			}
		}
		h.items = removeByID(h.items, id)
	}
	h.mu.Unlock()
	if item != nil {
		h.signalChanged()
	}

	if err := h.repo.Delete(ctx, id); err != nil {
		if item != nil {
			h.rollback(epoch, "delete", func() {
				// A same-epoch reload may already have restored the item.
				if findByID(h.items, id) != nil {
					return
				}
				if idx > len(h.items) {
					idx = len(h.items)
				}
				rest := append([]*domain.Notification{item}, h.items[idx:]...)
				h.items = append(h.items[:idx:idx], rest...)
			})
		}
		return err
	}
	return nil
}

// rollback reverts an optimistic change, unless the scope has moved on since
// the change was applied (the reload for the new scope already replaced it).
func (h *NotificationHub) rollback(epoch uint64, operation string, revert func()) {
	h.mu.Lock()
	if h.epoch == epoch {
		revert()
	}
	h.mu.Unlock()
	metrics.ObserveOptimisticRollback(operation)
	h.signalChanged()
}

// visibleLocked reports whether a notification belongs in this session's
// view. Callers hold h.mu.
func (h *NotificationHub) visibleLocked(n *domain.Notification) bool {
	if h.userID == "" {
		return false
	}
	if n.TargetUserID == "" && n.TargetPropertyID == "" {
		return true
	}
	if n.TargetUserID != "" && n.TargetUserID == h.userID {
		return true
	}
	return n.TargetPropertyID != "" && n.TargetPropertyID == h.propertyID
}

func findByID(items []*domain.Notification, id string) *domain.Notification {
	for _, item := range items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func removeByID(items []*domain.Notification, id string) []*domain.Notification {
	out := items[:0]
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}
