package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
	"github.com/aryan0dhankhar/roomdesk/internal/security/auth"
)

// TokenRevoker tracks revoked token ids until their natural expiry.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthService handles account registration, sign-in and token lifecycle.
type AuthService struct {
	users    domain.UserRepository
	tokens   *auth.TokenManager
	revoker  TokenRevoker
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service. revoker may be nil;
// sign-out is then a client-side-only operation.
func NewAuthService(
	users domain.UserRepository,
	tokens *auth.TokenManager,
	revoker TokenRevoker,
	tokenTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		revoker:  revoker,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// RegisterResult represents registration response
type RegisterResult struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginResult represents login response
type LoginResult struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	PropertyID string `json:"property_id,omitempty"`
	Token      string `json:"token"`
	ExpiresIn  int    `json:"expires_in"` // seconds
	TokenType  string `json:"token_type"`
}

// Register creates a new user account. New accounts default to the viewer
// role until an admin promotes them.
func (s *AuthService) Register(ctx context.Context, email, username, password, defaultPropertyID string) (*RegisterResult, error) {
	if email == "" {
		return nil, &domain.ValidationError{Field: "email", Message: "is required"}
	}
	if username == "" {
		return nil, &domain.ValidationError{Field: "username", Message: "is required"}
	}
	if len(password) < 8 {
		return nil, &domain.ValidationError{Field: "password", Message: "must be at least 8 characters"}
	}

	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, &domain.ValidationError{Field: "email", Message: "already registered"}
	}
	if existing, err := s.users.GetByUsername(ctx, username); err == nil && existing != nil {
		return nil, &domain.ValidationError{Field: "username", Message: "already taken"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, &domain.RemoteError{Op: "register user", Err: err}
	}

	user := &domain.User{
		ID:                uuid.NewString(),
		Email:             email,
		Username:          username,
		PasswordHash:      string(hash),
		Role:              domain.RoleViewer,
		DefaultPropertyID: defaultPropertyID,
		IsActive:          true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, err
	}

	return &RegisterResult{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     string(user.Role),
	}, nil
}

// Login authenticates a user and returns a signed access token scoped to the
// user's default property.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, &domain.ValidationError{Field: "email", Message: "email and password are required"}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Info("login attempt with non-existent email", slog.String("email", email))
		return nil, &domain.AuthError{Message: "invalid credentials"}
	}
	if !user.IsActive {
		s.logger.Info("login attempt on deactivated account", slog.String("user_id", user.ID))
		return nil, &domain.AuthError{Message: "invalid credentials"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("email", email))
		return nil, &domain.AuthError{Message: "invalid credentials"}
	}

	token, _, err := s.tokens.GenerateToken(user.ID, user.Email, string(user.Role), user.DefaultPropertyID, s.tokenTTL)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, &domain.RemoteError{Op: "sign token", Err: err}
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return &LoginResult{
		UserID:     user.ID,
		Email:      user.Email,
		Role:       string(user.Role),
		PropertyID: user.DefaultPropertyID,
		Token:      token,
		ExpiresIn:  int(s.tokenTTL.Seconds()),
		TokenType:  "Bearer",
	}, nil
}

// Logout revokes the presented token for the remainder of its lifetime.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.revoker == nil || claims == nil || claims.ID == "" {
		return nil
	}
	until := time.Now().Add(s.tokenTTL)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	if err := s.revoker.Revoke(ctx, claims.ID, until); err != nil {
		return err
	}
	s.logger.Info("user logged out", slog.String("user_id", claims.UserID))
	return nil
}

// Verify validates a token's signature and checks it has not been revoked.
func (s *AuthService) Verify(ctx context.Context, tokenString string) (*auth.Claims, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, &domain.AuthError{Message: "invalid token"}
	}
	if s.revoker != nil && claims.ID != "" {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, &domain.AuthError{Message: "token revoked"}
		}
	}
	return claims, nil
}

// ChangePassword changes a user's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return &domain.ValidationError{Field: "newPassword", Message: "must be at least 8 characters"}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return &domain.AuthError{Message: "current password is incorrect"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.String("error", err.Error()))
		return &domain.RemoteError{Op: "change password", Err: err}
	}
	user.PasswordHash = string(hash)
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error("failed to update user password", slog.String("error", err.Error()))
		return err
	}

	s.logger.Info("user changed password", slog.String("user_id", userID))
	return nil
}
