package security

import (
	"fmt"
	"log/slog"
)

// ResourceType identifies the kind of resource being accessed
type ResourceType string

const (
	ResourceRoom         ResourceType = "room"
	ResourceTenant       ResourceType = "tenant"
	ResourcePayment      ResourceType = "payment"
	ResourceNotification ResourceType = "notification"
	ResourceProperty     ResourceType = "property"
	ResourceUser         ResourceType = "user"
)

// Action identifies what operation is being performed
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// ResourcePermission checks fine-grained permissions on a specific resource
type ResourcePermission struct {
	ResourceType ResourceType
	ResourceID   string
	OwnerID      string // User ID that owns the enclosing property
	Action       Action
}

// AuthorizationServiceV2 extends AuthorizationService with resource-level checks
type AuthorizationServiceV2 struct {
	logger *slog.Logger
}

// NewAuthorizationServiceV2 creates a new resource-aware authorization service
func NewAuthorizationServiceV2(logger *slog.Logger) *AuthorizationServiceV2 {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationServiceV2{logger: logger}
}

// ValidateResourceAccess checks if a user may touch a specific resource.
// Admins bypass ownership; managers and viewers must own the enclosing
// property.
func (a *AuthorizationServiceV2) ValidateResourceAccess(
	userID string,
	role Role,
	perm ResourcePermission,
) error {
	if role == RoleAdmin {
		return nil
	}

	if perm.OwnerID != "" && perm.OwnerID != userID {
		a.logger.Warn("resource access denied",
			slog.String("user_id", userID),
			slog.String("resource_id", perm.ResourceID),
			slog.String("resource_type", string(perm.ResourceType)),
			slog.String("owner_id", perm.OwnerID),
		)
		return fmt.Errorf("access denied: you do not own this %s", perm.ResourceType)
	}

	if role == RoleViewer && perm.Action != ActionRead {
		return fmt.Errorf("access denied: viewers cannot %s a %s", perm.Action, perm.ResourceType)
	}

	return nil
}
