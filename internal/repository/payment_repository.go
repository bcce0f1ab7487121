package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
)

// PostgresPaymentRepository implements domain.PaymentRepository using PostgreSQL.
type PostgresPaymentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresPaymentRepository creates a new payment repository.
func NewPostgresPaymentRepository(db *sql.DB, logger *slog.Logger) *PostgresPaymentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPaymentRepository{db: db, logger: logger}
}

const paymentColumns = `id, property_id, tenant_id, room_id, amount, due_date, paid_date, status, method, notes, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*domain.Payment, error) {
	p := &domain.Payment{}
	var paidDate sql.NullTime
	err := row.Scan(
		&p.ID, &p.PropertyID, &p.TenantID, &p.RoomID, &p.Amount, &p.DueDate,
		&paidDate, &p.Status, &p.Method, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paidDate.Valid {
		t := paidDate.Time
		p.PaidDate = &t
	}
	return p, nil
}

// Create inserts a new payment record.
func (r *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, property_id, tenant_id, room_id, amount, due_date, paid_date, status, method, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	var paidDate sql.NullTime
	if payment.PaidDate != nil {
		paidDate = sql.NullTime{Time: *payment.PaidDate, Valid: true}
	}
	err := r.db.QueryRowContext(ctx, query,
		payment.ID, payment.PropertyID, payment.TenantID, payment.RoomID,
		payment.Amount, payment.DueDate, paidDate, payment.Status,
		payment.Method, payment.Notes,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create payment",
			slog.String("payment_id", payment.ID),
			slog.String("error", err.Error()),
		)
		return &domain.RemoteError{Op: "create payment", Err: err}
	}
	return nil
}

// GetByID retrieves a payment by ID.
func (r *PostgresPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	payment, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Entity: "payment", ID: id}
		}
		return nil, &domain.RemoteError{Op: "get payment", Err: err}
	}
	return payment, nil
}

// Update writes every mutable payment field.
func (r *PostgresPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET amount = $1, due_date = $2, paid_date = $3, status = $4, method = $5, notes = $6, updated_at = now()
		WHERE id = $7
		RETURNING updated_at
	`
	var paidDate sql.NullTime
	if payment.PaidDate != nil {
		paidDate = sql.NullTime{Time: *payment.PaidDate, Valid: true}
	}
	err := r.db.QueryRowContext(ctx, query,
		payment.Amount, payment.DueDate, paidDate, payment.Status,
		payment.Method, payment.Notes, payment.ID,
	).Scan(&payment.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.NotFoundError{Entity: "payment", ID: payment.ID}
		}
		r.logger.Error("failed to update payment",
			slog.String("payment_id", payment.ID),
			slog.String("error", err.Error()),
		)
		return &domain.RemoteError{Op: "update payment", Err: err}
	}
	return nil
}

// ListByProperty returns payments in a property restricted by the filter,
// ordered by due date.
func (r *PostgresPaymentRepository) ListByProperty(ctx context.Context, propertyID string, filter domain.PaymentFilter) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE property_id = $1`
	args := []any{propertyID}

	query, args = appendPaymentFilter(query, args, filter)
	query += ` ORDER BY due_date, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.RemoteError{Op: "list payments", Err: err}
	}
	defer rows.Close()

	var out []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, &domain.RemoteError{Op: "scan payment", Err: err}
		}
		out = append(out, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.RemoteError{Op: "list payments", Err: err}
	}
	return out, nil
}

// SumByStatus returns amount totals grouped by status over the filtered set.
// Due date bounds come from the filter; the Status field is ignored here.
func (r *PostgresPaymentRepository) SumByStatus(ctx context.Context, propertyID string, filter domain.PaymentFilter) (domain.PaymentTotals, error) {
	query := `SELECT status, COALESCE(sum(amount), 0) FROM payments WHERE property_id = $1`
	args := []any{propertyID}

	filter.Status = ""
	query, args = appendPaymentFilter(query, args, filter)
	query += ` GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.PaymentTotals{}, &domain.RemoteError{Op: "sum payments", Err: err}
	}
	defer rows.Close()

	var totals domain.PaymentTotals
	for rows.Next() {
		var status domain.PaymentStatus
		var sum int64
		if err := rows.Scan(&status, &sum); err != nil {
			return domain.PaymentTotals{}, &domain.RemoteError{Op: "scan payment totals", Err: err}
		}
		switch status {
		case domain.PaymentPaid:
			totals.TotalPaid = sum
		case domain.PaymentPending:
			totals.TotalPending = sum
		case domain.PaymentOverdue:
			totals.TotalOverdue = sum
		}
	}
	if err := rows.Err(); err != nil {
		return domain.PaymentTotals{}, &domain.RemoteError{Op: "sum payments", Err: err}
	}
	return totals, nil
}

// ListDuePending returns pending payments whose due date is before the cutoff,
// across all properties. Used by the overdue worker.
func (r *PostgresPaymentRepository) ListDuePending(ctx context.Context, before time.Time) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE status = $1 AND due_date < $2 ORDER BY due_date, id`
	rows, err := r.db.QueryContext(ctx, query, domain.PaymentPending, before)
	if err != nil {
		return nil, &domain.RemoteError{Op: "list due payments", Err: err}
	}
	defer rows.Close()

	var out []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, &domain.RemoteError{Op: "scan payment", Err: err}
		}
		out = append(out, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.RemoteError{Op: "list due payments", Err: err}
	}
	return out, nil
}

// appendPaymentFilter adds due-date and status predicates using positional args.
func appendPaymentFilter(query string, args []any, filter domain.PaymentFilter) (string, []any) {
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += ` AND due_date >= $` + strconv.Itoa(len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += ` AND due_date <= $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	return query, args
}
