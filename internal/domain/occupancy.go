package domain

import (
	"context"
	"time"
)

// RoomStatus is the lifecycle state of a room.
type RoomStatus string

const (
	RoomVacant      RoomStatus = "vacant"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
)

// Room represents a rentable room within a property. TenantID is set exactly
// when Status is occupied; the matching Tenant carries the reverse reference.
type Room struct {
	ID         string
	PropertyID string
	Name       string
	Floor      int
	Status     RoomStatus
	TenantID   string // empty unless occupied
	Rate       int64  // monthly rate in minor currency units
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TenantStatus is the lifecycle state of a tenant record.
type TenantStatus string

const (
	TenantActive   TenantStatus = "active"
	TenantInactive TenantStatus = "inactive"
)

// TenantPaymentStatus is the derived payment standing of a tenant.
type TenantPaymentStatus string

const (
	TenantPaid    TenantPaymentStatus = "paid"
	TenantPending TenantPaymentStatus = "pending"
	TenantOverdue TenantPaymentStatus = "overdue"
)

// Tenant represents a person renting (or able to rent) a room. RoomID is set
// exactly when the tenant is assigned; the matching Room carries the reverse
// reference. Consistency between the two sides is enforced at the paired-write
// boundary in the occupancy service, not by the store.
type Tenant struct {
	ID            string
	PropertyID    string
	Name          string
	Phone         string
	Email         string
	RoomID        string // empty unless assigned
	Status        TenantStatus
	PaymentStatus TenantPaymentStatus
	MoveInDate    time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RoomRepository defines data access for rooms.
type RoomRepository interface {
	Create(ctx context.Context, room *Room) error
	GetByID(ctx context.Context, id string) (*Room, error)
	Update(ctx context.Context, room *Room) error
	Delete(ctx context.Context, id string) error
	ListByProperty(ctx context.Context, propertyID string) ([]*Room, error)
}

// TenantRepository defines data access for tenants.
type TenantRepository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
	Delete(ctx context.Context, id string) error
	ListByProperty(ctx context.Context, propertyID string) ([]*Tenant, error)
	CountByRoom(ctx context.Context, roomID string) (int, error)
}
