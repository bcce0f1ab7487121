package domain

import (
	"context"
	"time"
)

// Role determines what a user may do across the console.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"
)

// User represents a console account.
type User struct {
	ID                string
	Email             string
	Username          string
	PasswordHash      string // bcrypt, never returned in API responses
	Role              Role
	DefaultPropertyID string
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// UserRepository defines data access for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*User, error)
}

// Property is the scope boundary: rooms, tenants, payments, and scoped
// notifications all belong to exactly one property.
type Property struct {
	ID          string
	Name        string
	Address     string
	OwnerUserID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PropertyRepository defines data access for properties.
type PropertyRepository interface {
	Create(ctx context.Context, p *Property) error
	GetByID(ctx context.Context, id string) (*Property, error)
	Update(ctx context.Context, p *Property) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Property, error)
}
