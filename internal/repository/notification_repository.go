package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
)

// PostgresNotificationRepository implements domain.NotificationRepository
// using PostgreSQL. Committed writes are announced on the change feed so
// subscribed viewers reload.
type PostgresNotificationRepository struct {
	db     *sql.DB
	feed   domain.ChangeFeed
	logger *slog.Logger
}

// NewPostgresNotificationRepository creates a new notification repository.
// feed may be nil in tests; publishing is then skipped.
func NewPostgresNotificationRepository(db *sql.DB, feed domain.ChangeFeed, logger *slog.Logger) *PostgresNotificationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresNotificationRepository{db: db, feed: feed, logger: logger}
}

const notificationColumns = `id, title, message, type, status, target_user_id, target_property_id, created_at`

func scanNotification(row interface{ Scan(...any) error }) (*domain.Notification, error) {
	n := &domain.Notification{}
	var targetUser, targetProperty sql.NullString
	err := row.Scan(
		&n.ID, &n.Title, &n.Message, &n.Type, &n.Status,
		&targetUser, &targetProperty, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.TargetUserID = targetUser.String
	n.TargetPropertyID = targetProperty.String
	return n, nil
}

// publish announces a committed mutation; failures are logged, not surfaced,
// since the row is already durable.
func (r *PostgresNotificationRepository) publish(ctx context.Context, eventType string, n *domain.Notification) {
	if r.feed == nil {
		return
	}
	ev := domain.FeedEvent{
		Type:       eventType,
		Entity:     "notification",
		RecordID:   n.ID,
		PropertyID: n.TargetPropertyID,
	}
	if err := r.feed.Publish(ctx, ev); err != nil {
		r.logger.Warn("failed to publish feed event",
			slog.String("notification_id", n.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Create inserts a new notification and announces it.
func (r *PostgresNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, title, message, type, status, target_user_id, target_property_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		n.ID, n.Title, n.Message, n.Type, n.Status,
		nullable(n.TargetUserID), nullable(n.TargetPropertyID),
	).Scan(&n.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create notification",
			slog.String("notification_id", n.ID),
			slog.String("error", err.Error()),
		)
		return &domain.RemoteError{Op: "create notification", Err: err}
	}
	r.publish(ctx, "insert", n)
	return nil
}

// GetByID retrieves a notification by ID.
func (r *PostgresNotificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Entity: "notification", ID: id}
		}
		return nil, &domain.RemoteError{Op: "get notification", Err: err}
	}
	return n, nil
}

// Update writes the read status and announces the change.
func (r *PostgresNotificationRepository) Update(ctx context.Context, n *domain.Notification) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET status = $1 WHERE id = $2`, n.Status, n.ID)
	if err != nil {
		return &domain.RemoteError{Op: "update notification", Err: err}
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return &domain.RemoteError{Op: "update notification", Err: err}
	}
	if rows == 0 {
		return &domain.NotFoundError{Entity: "notification", ID: n.ID}
	}
	r.publish(ctx, "update", n)
	return nil
}

// Delete removes a notification and announces the deletion.
func (r *PostgresNotificationRepository) Delete(ctx context.Context, id string) error {
	n, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return &domain.RemoteError{Op: "delete notification", Err: err}
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return &domain.RemoteError{Op: "delete notification", Err: err}
	}
	if rows == 0 {
		return &domain.NotFoundError{Entity: "notification", ID: id}
	}
	r.publish(ctx, "delete", n)
	return nil
}

// ListVisible returns notifications the viewer can see: global entries,
// entries targeted at the user, and entries scoped to the property. Newest
// first.
func (r *PostgresNotificationRepository) ListVisible(ctx context.Context, userID, propertyID string) ([]*domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE (target_user_id IS NULL AND target_property_id IS NULL)
		   OR target_user_id = $1
		   OR target_property_id = $2
		ORDER BY created_at DESC, id
	`
	rows, err := r.db.QueryContext(ctx, query, userID, propertyID)
	if err != nil {
		return nil, &domain.RemoteError{Op: "list notifications", Err: err}
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, &domain.RemoteError{Op: "scan notification", Err: err}
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.RemoteError{Op: "list notifications", Err: err}
	}
	return out, nil
}

// MarkAllRead flips every visible unread notification to read in one statement.
func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, userID, propertyID string) error {
	query := `
		UPDATE notifications
		SET status = $1
		WHERE status = $2
		  AND ((target_user_id IS NULL AND target_property_id IS NULL)
		       OR target_user_id = $3
		       OR target_property_id = $4)
	`
	_, err := r.db.ExecContext(ctx, query, domain.NotificationRead, domain.NotificationUnread, userID, propertyID)
	if err != nil {
		return &domain.RemoteError{Op: "mark all read", Err: err}
	}
	if r.feed != nil {
		ev := domain.FeedEvent{Type: "update", Entity: "notification", PropertyID: propertyID}
		if err := r.feed.Publish(ctx, ev); err != nil {
			r.logger.Warn("failed to publish feed event", slog.String("error", err.Error()))
		}
	}
	return nil
}
