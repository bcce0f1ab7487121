package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
)

// PostgresTenantRepository implements domain.TenantRepository using PostgreSQL.
type PostgresTenantRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTenantRepository creates a new tenant repository.
func NewPostgresTenantRepository(db *sql.DB, logger *slog.Logger) *PostgresTenantRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTenantRepository{db: db, logger: logger}
}

const tenantColumns = `id, property_id, name, phone, email, room_id, status, payment_status, move_in_date, created_at, updated_at`

func scanTenant(row interface{ Scan(...any) error }) (*domain.Tenant, error) {
	t := &domain.Tenant{}
	var roomID sql.NullString
	var moveIn sql.NullTime
	err := row.Scan(
		&t.ID, &t.PropertyID, &t.Name, &t.Phone, &t.Email, &roomID,
		&t.Status, &t.PaymentStatus, &moveIn, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.RoomID = roomID.String
	t.MoveInDate = moveIn.Time
	return t, nil
}

// Create inserts a new tenant.
func (r *PostgresTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		INSERT INTO tenants (id, property_id, name, phone, email, room_id, status, payment_status, move_in_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	moveIn := sql.NullTime{Time: tenant.MoveInDate, Valid: !tenant.MoveInDate.IsZero()}
	err := r.db.QueryRowContext(ctx, query,
		tenant.ID, tenant.PropertyID, tenant.Name, tenant.Phone, tenant.Email,
		nullable(tenant.RoomID), tenant.Status, tenant.PaymentStatus, moveIn,
	).Scan(&tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create tenant",
			slog.String("tenant_id", tenant.ID),
			slog.String("error", err.Error()),
		)
		return &domain.RemoteError{Op: "create tenant", Err: err}
	}
	return nil
}

// GetByID retrieves a tenant by ID.
func (r *PostgresTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	tenant, err := scanTenant(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Entity: "tenant", ID: id}
		}
		return nil, &domain.RemoteError{Op: "get tenant", Err: err}
	}
	return tenant, nil
}

// Update writes every mutable tenant field.
func (r *PostgresTenantRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		UPDATE tenants
		SET name = $1, phone = $2, email = $3, room_id = $4, status = $5,
		    payment_status = $6, move_in_date = $7, updated_at = now()
		WHERE id = $8
		RETURNING updated_at
	`
	moveIn := sql.NullTime{Time: tenant.MoveInDate, Valid: !tenant.MoveInDate.IsZero()}
	err := r.db.QueryRowContext(ctx, query,
		tenant.Name, tenant.Phone, tenant.Email, nullable(tenant.RoomID),
		tenant.Status, tenant.PaymentStatus, moveIn, tenant.ID,
	).Scan(&tenant.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.NotFoundError{Entity: "tenant", ID: tenant.ID}
		}
		r.logger.Error("failed to update tenant",
			slog.String("tenant_id", tenant.ID),
			slog.String("error", err.Error()),
		)
		return &domain.RemoteError{Op: "update tenant", Err: err}
	}
	return nil
}

// Delete removes a tenant record.
func (r *PostgresTenantRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return &domain.RemoteError{Op: "delete tenant", Err: err}
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return &domain.RemoteError{Op: "delete tenant", Err: err}
	}
	if rows == 0 {
		return &domain.NotFoundError{Entity: "tenant", ID: id}
	}
	return nil
}

// ListByProperty returns all tenants in a property ordered by name.
func (r *PostgresTenantRepository) ListByProperty(ctx context.Context, propertyID string) ([]*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE property_id = $1 ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, query, propertyID)
	if err != nil {
		return nil, &domain.RemoteError{Op: "list tenants", Err: err}
	}
	defer rows.Close()

	var out []*domain.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, &domain.RemoteError{Op: "scan tenant", Err: err}
		}
		out = append(out, tenant)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.RemoteError{Op: "list tenants", Err: err}
	}
	return out, nil
}

// CountByRoom returns how many tenants reference the given room.
func (r *PostgresTenantRepository) CountByRoom(ctx context.Context, roomID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM tenants WHERE room_id = $1`, roomID).Scan(&count)
	if err != nil {
		return 0, &domain.RemoteError{Op: "count tenants by room", Err: err}
	}
	return count, nil
}
