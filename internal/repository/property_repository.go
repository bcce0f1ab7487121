package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
)

// PostgresPropertyRepository implements domain.PropertyRepository using PostgreSQL.
type PostgresPropertyRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresPropertyRepository creates a new property repository.
func NewPostgresPropertyRepository(db *sql.DB, logger *slog.Logger) *PostgresPropertyRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPropertyRepository{db: db, logger: logger}
}

const propertyColumns = `id, name, address, owner_user_id, created_at, updated_at`

func scanProperty(row interface{ Scan(...any) error }) (*domain.Property, error) {
	p := &domain.Property{}
	err := row.Scan(&p.ID, &p.Name, &p.Address, &p.OwnerUserID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new property.
func (r *PostgresPropertyRepository) Create(ctx context.Context, p *domain.Property) error {
	query := `
		INSERT INTO properties (id, name, address, owner_user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, p.ID, p.Name, p.Address, p.OwnerUserID).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create property",
			slog.String("property_id", p.ID),
			slog.String("error", err.Error()),
		)
		return &domain.RemoteError{Op: "create property", Err: err}
	}
	return nil
}

// GetByID retrieves a property by ID.
func (r *PostgresPropertyRepository) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`
	p, err := scanProperty(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Entity: "property", ID: id}
		}
		return nil, &domain.RemoteError{Op: "get property", Err: err}
	}
	return p, nil
}

// Update writes the descriptive property fields.
func (r *PostgresPropertyRepository) Update(ctx context.Context, p *domain.Property) error {
	query := `
		UPDATE properties
		SET name = $1, address = $2, updated_at = now()
		WHERE id = $3
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query, p.Name, p.Address, p.ID).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.NotFoundError{Entity: "property", ID: p.ID}
		}
		return &domain.RemoteError{Op: "update property", Err: err}
	}
	return nil
}

// Delete removes a property.
func (r *PostgresPropertyRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return &domain.RemoteError{Op: "delete property", Err: err}
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return &domain.RemoteError{Op: "delete property", Err: err}
	}
	if rows == 0 {
		return &domain.NotFoundError{Entity: "property", ID: id}
	}
	return nil
}

// List returns all properties ordered by name.
func (r *PostgresPropertyRepository) List(ctx context.Context) ([]*domain.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.RemoteError{Op: "list properties", Err: err}
	}
	defer rows.Close()

	var out []*domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, &domain.RemoteError{Op: "scan property", Err: err}
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.RemoteError{Op: "list properties", Err: err}
	}
	return out, nil
}
