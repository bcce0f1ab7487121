package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
)

// PostgresRoomRepository implements domain.RoomRepository using PostgreSQL.
type PostgresRoomRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRoomRepository creates a new room repository.
func NewPostgresRoomRepository(db *sql.DB, logger *slog.Logger) *PostgresRoomRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRoomRepository{db: db, logger: logger}
}

const roomColumns = `id, property_id, name, floor, status, tenant_id, rate, notes, created_at, updated_at`

func scanRoom(row interface{ Scan(...any) error }) (*domain.Room, error) {
	r := &domain.Room{}
	var tenantID sql.NullString
	err := row.Scan(
		&r.ID, &r.PropertyID, &r.Name, &r.Floor, &r.Status, &tenantID,
		&r.Rate, &r.Notes, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.TenantID = tenantID.String
	return r, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts a new room.
func (r *PostgresRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	query := `
		INSERT INTO rooms (id, property_id, name, floor, status, tenant_id, rate, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		room.ID, room.PropertyID, room.Name, room.Floor, room.Status,
		nullable(room.TenantID), room.Rate, room.Notes,
	).Scan(&room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create room",
			slog.String("room_id", room.ID),
			slog.String("error", err.Error()),
		)
		return &domain.RemoteError{Op: "create room", Err: err}
	}
	return nil
}

// GetByID retrieves a room by ID.
func (r *PostgresRoomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`
	room, err := scanRoom(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Entity: "room", ID: id}
		}
		return nil, &domain.RemoteError{Op: "get room", Err: err}
	}
	return room, nil
}

// Update writes every mutable room field.
func (r *PostgresRoomRepository) Update(ctx context.Context, room *domain.Room) error {
	query := `
		UPDATE rooms
		SET name = $1, floor = $2, status = $3, tenant_id = $4, rate = $5, notes = $6, updated_at = now()
		WHERE id = $7
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		room.Name, room.Floor, room.Status, nullable(room.TenantID),
		room.Rate, room.Notes, room.ID,
	).Scan(&room.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.NotFoundError{Entity: "room", ID: room.ID}
		}
		r.logger.Error("failed to update room",
			slog.String("room_id", room.ID),
			slog.String("error", err.Error()),
		)
		return &domain.RemoteError{Op: "update room", Err: err}
	}
	return nil
}

// Delete removes a room. The occupancy service checks vacancy first; this is
// plain row deletion.
func (r *PostgresRoomRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return &domain.RemoteError{Op: "delete room", Err: err}
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return &domain.RemoteError{Op: "delete room", Err: err}
	}
	if rows == 0 {
		return &domain.NotFoundError{Entity: "room", ID: id}
	}
	return nil
}

// ListByProperty returns all rooms in a property ordered by floor then name.
func (r *PostgresRoomRepository) ListByProperty(ctx context.Context, propertyID string) ([]*domain.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE property_id = $1 ORDER BY floor, name, id`
	rows, err := r.db.QueryContext(ctx, query, propertyID)
	if err != nil {
		return nil, &domain.RemoteError{Op: "list rooms", Err: err}
	}
	defer rows.Close()

	var out []*domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, &domain.RemoteError{Op: "scan room", Err: err}
		}
		out = append(out, room)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.RemoteError{Op: "list rooms", Err: err}
	}
	return out, nil
}
