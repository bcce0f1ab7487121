package domain

import (
	"errors"
	"fmt"
)

// ConflictKind identifies which business invariant an operation ran into.
type ConflictKind string

const (
	ConflictAlreadyOccupied ConflictKind = "already_occupied"
	ConflictAlreadyAssigned ConflictKind = "already_assigned"
	ConflictNotOccupied     ConflictKind = "not_occupied"
	ConflictHasTenants      ConflictKind = "has_tenants"
	ConflictNotVacant       ConflictKind = "not_vacant"
	ConflictAlreadyPaid     ConflictKind = "already_paid"
)

// ConflictError signals that an operation would violate a business invariant.
// Count carries the number of blocking references for has_tenants conflicts.
type ConflictError struct {
	Kind  ConflictKind
	Count int
}

func (e *ConflictError) Error() string {
	if e.Kind == ConflictHasTenants {
		return fmt.Sprintf("conflict: %s (%d blocking)", e.Kind, e.Count)
	}
	return fmt.Sprintf("conflict: %s", e.Kind)
}

// NewConflict creates a ConflictError for the given kind.
func NewConflict(kind ConflictKind) *ConflictError {
	return &ConflictError{Kind: kind}
}

// IsConflict reports whether err is a ConflictError of the given kind.
func IsConflict(err error, kind ConflictKind) bool {
	var ce *ConflictError
	return errors.As(err, &ce) && ce.Kind == kind
}

// ValidationError signals a missing or malformed field, caught before any
// remote call is issued.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFoundError signals that a referenced entity id does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// AuthError signals a missing or invalid session.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return "auth: " + e.Message
}

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// RemoteError wraps a backend failure (network, server-side rejection) so
// callers can distinguish it from business conflicts.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsRemote reports whether err is a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
