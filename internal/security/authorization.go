package security

import (
	"fmt"
	"log/slog"
)

// Role represents a user role
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"
)

// Permission represents an action permission
type Permission string

const (
	PermManageRooms         Permission = "manage_rooms"
	PermReadRooms           Permission = "read_rooms"
	PermManageTenants       Permission = "manage_tenants"
	PermReadTenants         Permission = "read_tenants"
	PermRecordPayments      Permission = "record_payments"
	PermReadPayments        Permission = "read_payments"
	PermManageNotifications Permission = "manage_notifications"
	PermReadNotifications   Permission = "read_notifications"
	PermManageUsers         Permission = "manage_users"
	PermManageProperties    Permission = "manage_properties"
	PermViewAuditLog        Permission = "view_audit_log"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermManageRooms,
		PermReadRooms,
		PermManageTenants,
		PermReadTenants,
		PermRecordPayments,
		PermReadPayments,
		PermManageNotifications,
		PermReadNotifications,
		PermManageUsers,
		PermManageProperties,
		PermViewAuditLog,
	},
	RoleManager: {
		PermManageRooms,
		PermReadRooms,
		PermManageTenants,
		PermReadTenants,
		PermRecordPayments,
		PermReadPayments,
		PermManageNotifications,
		PermReadNotifications,
	},
	RoleViewer: {
		PermReadRooms,
		PermReadTenants,
		PermReadPayments,
		PermReadNotifications,
	},
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}
	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidatePermission validates that a role has a specific permission
func (as *AuthorizationService) ValidatePermission(role Role, permission Permission) error {
	if !as.HasPermission(role, permission) {
		as.logger.Warn("permission denied",
			slog.String("role", string(role)),
			slog.String("permission", string(permission)),
		)
		return fmt.Errorf("permission denied: %s role cannot %s", role, permission)
	}
	return nil
}

// GetRolePermissions returns all permissions for a role
func (as *AuthorizationService) GetRolePermissions(role Role) []Permission {
	return RolePermissions[role]
}

// ValidatePropertyAccess checks if a user's property scope matches the
// property being accessed
func (as *AuthorizationService) ValidatePropertyAccess(userPropertyID, requestedPropertyID string) error {
	if userPropertyID != requestedPropertyID {
		as.logger.Warn("property access denied",
			slog.String("user_property", userPropertyID),
			slog.String("requested_property", requestedPropertyID),
		)
		return fmt.Errorf("access denied: invalid property")
	}
	return nil
}
