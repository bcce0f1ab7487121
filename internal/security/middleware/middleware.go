package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aryan0dhankhar/roomdesk/internal/security"
	"github.com/aryan0dhankhar/roomdesk/internal/security/audit"
	"github.com/aryan0dhankhar/roomdesk/internal/security/auth"
	"github.com/aryan0dhankhar/roomdesk/internal/security/ratelimit"
)

type PropertyContextKey struct{}
type ClaimsContextKey struct{}

// TokenVerifier validates a raw token and checks revocation.
type TokenVerifier interface {
	Verify(ctx context.Context, tokenString string) (*auth.Claims, error)
}

func isPublicPath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics" ||
		path == "/api/auth/login" || path == "/api/auth/register" ||
		strings.HasPrefix(path, "/ws/feed")
}

func JWTMiddleware(verifier TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Preflights carry no Authorization header; CORS answers them.
			if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(r.Context(), tokenString)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)

			// The active property defaults to the token's scope but can be
			// overridden per request, so one session can switch properties
			// without reissuing the token.
			propertyID := claims.PropertyID
			if override := r.Header.Get("X-Property-ID"); override != "" {
				propertyID = override
			}
			ctx = context.WithValue(ctx, PropertyContextKey{}, propertyID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requiredPermission maps a request to the permission it needs. Requests with
// no mapping (auth endpoints, property reads) pass through on authentication
// alone.
func requiredPermission(method, path string) (security.Permission, bool) {
	read := method == http.MethodGet
	switch {
	case strings.HasPrefix(path, "/api/rooms"):
		if read {
			return security.PermReadRooms, true
		}
		return security.PermManageRooms, true
	case strings.HasPrefix(path, "/api/tenants"):
		if read {
			return security.PermReadTenants, true
		}
		return security.PermManageTenants, true
	case strings.HasPrefix(path, "/api/payments"):
		if read {
			return security.PermReadPayments, true
		}
		return security.PermRecordPayments, true
	case strings.HasPrefix(path, "/api/notifications"):
		if read {
			return security.PermReadNotifications, true
		}
		return security.PermManageNotifications, true
	case strings.HasPrefix(path, "/api/properties") && !read:
		return security.PermManageProperties, true
	case strings.HasPrefix(path, "/api/users"):
		return security.PermManageUsers, true
	}
	return "", false
}

// AuthorizationMiddleware enforces role permissions. Runs after JWTMiddleware
// so claims are already in the context.
func AuthorizationMiddleware(authz *security.AuthorizationService, auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				next.ServeHTTP(w, r)
				return
			}
			perm, needed := requiredPermission(r.Method, r.URL.Path)
			if !needed {
				next.ServeHTTP(w, r)
				return
			}
			if err := authz.ValidatePermission(security.Role(claims.Role), perm); err != nil {
				auditLog.LogDenied(r.Context(), GetPropertyFromContext(r.Context()), claims.UserID, err.Error())
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			key := ""
			if c := r.Context().Value(ClaimsContextKey{}); c != nil {
				key = c.(*auth.Claims).UserID
			}

			if !limiter.Allow(key) {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			propertyID := GetPropertyFromContext(r.Context())
			userID := ""
			if claims := GetClaimsFromContext(r.Context()); claims != nil {
				userID = claims.UserID
			}

			switch {
			case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/assign"):
				auditLog.LogAction(r.Context(), propertyID, userID, "assign", "room", r.PathValue("id"), "initiated", "")
			case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/vacate"):
				auditLog.LogAction(r.Context(), propertyID, userID, "vacate", "room", r.PathValue("id"), "initiated", "")
			case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/record"):
				auditLog.LogAction(r.Context(), propertyID, userID, "record_payment", "payment", r.PathValue("id"), "initiated", "")
			case r.Method == http.MethodDelete:
				auditLog.LogAction(r.Context(), propertyID, userID, "delete", resourceFromPath(r.URL.Path), r.PathValue("id"), "initiated", "")
			}

			next.ServeHTTP(w, r)
		})
	}
}

func resourceFromPath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/rooms"):
		return "room"
	case strings.HasPrefix(path, "/api/tenants"):
		return "tenant"
	case strings.HasPrefix(path, "/api/payments"):
		return "payment"
	case strings.HasPrefix(path, "/api/notifications"):
		return "notification"
	default:
		return "api"
	}
}

func GetPropertyFromContext(ctx context.Context) string {
	if p := ctx.Value(PropertyContextKey{}); p != nil {
		return p.(string)
	}
	return ""
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c := ctx.Value(ClaimsContextKey{}); c != nil {
		return c.(*auth.Claims)
	}
	return nil
}
