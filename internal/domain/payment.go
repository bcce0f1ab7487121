package domain

import (
	"context"
	"time"
)

// PaymentStatus is the lifecycle state of a payment. Transitions are
// one-directional: pending->overdue, pending->paid, overdue->paid.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentOverdue PaymentStatus = "overdue"
	PaymentPaid    PaymentStatus = "paid"
)

// Payment represents a rent payment record. TenantID and RoomID are read-only
// references into the occupancy entities.
type Payment struct {
	ID         string
	PropertyID string
	TenantID   string
	RoomID     string
	Amount     int64 // minor currency units
	DueDate    time.Time
	PaidDate   *time.Time
	Status     PaymentStatus
	Method     string
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PaymentFilter restricts a payment listing. Zero-value time bounds mean
// unbounded; empty Status means all statuses.
type PaymentFilter struct {
	From   time.Time
	To     time.Time
	Status PaymentStatus
}

// PaymentTotals holds amounts grouped by status over a filtered set.
// TotalPaid + TotalPending + TotalOverdue equals the sum of all amounts
// in the set.
type PaymentTotals struct {
	TotalPaid    int64 `json:"totalPaid"`
	TotalPending int64 `json:"totalPending"`
	TotalOverdue int64 `json:"totalOverdue"`
}

// Sum returns the combined total across all statuses.
func (t PaymentTotals) Sum() int64 {
	return t.TotalPaid + t.TotalPending + t.TotalOverdue
}

// PaymentRepository defines data access for payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	Update(ctx context.Context, payment *Payment) error
	ListByProperty(ctx context.Context, propertyID string, filter PaymentFilter) ([]*Payment, error)
	SumByStatus(ctx context.Context, propertyID string, filter PaymentFilter) (PaymentTotals, error)
	ListDuePending(ctx context.Context, before time.Time) ([]*Payment, error)
}
