package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
	"github.com/aryan0dhankhar/roomdesk/internal/security/auth"
)

// memUserRepo is an in-memory UserRepository.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*domain.User{}}
}

func (r *memUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "user", ID: id}
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, &domain.NotFoundError{Entity: "user", ID: email}
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, &domain.NotFoundError{Entity: "user", ID: username}
}

func (r *memUserRepo) Update(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return &domain.NotFoundError{Entity: "user", ID: u.ID}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

// memRevoker is an in-memory TokenRevoker.
type memRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newMemRevoker() *memRevoker {
	return &memRevoker{revoked: map[string]time.Time{}}
}

func (r *memRevoker) Revoke(_ context.Context, tokenID string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[tokenID] = until
	return nil
}

func (r *memRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[tokenID]
	return ok, nil
}

func newAuthService(t *testing.T) (*AuthService, *memUserRepo, *memRevoker) {
	t.Helper()
	users := newMemUserRepo()
	revoker := newMemRevoker()
	tokens := auth.NewTokenManager("test-secret", "roomdesk-test")
	return NewAuthService(users, tokens, revoker, time.Hour, nil), users, revoker
}

func TestRegisterCreatesViewerAccount(t *testing.T) {
	svc, users, _ := newAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "alice@example.com", "alice", "longenough", "p1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if res.Role != string(domain.RoleViewer) {
		t.Errorf("new accounts must default to viewer, got %s", res.Role)
	}
	stored, err := users.GetByID(ctx, res.UserID)
	if err != nil {
		t.Fatalf("user not persisted: %v", err)
	}
	if stored.PasswordHash == "longenough" {
		t.Error("password stored in the clear")
	}
	if !stored.IsActive {
		t.Error("new account should be active")
	}
}

func TestRegisterRejectsDuplicatesAndShortPasswords(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "alice", "longenough", ""); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	if _, err := svc.Register(ctx, "alice@example.com", "alice2", "longenough", ""); !domain.IsValidation(err) {
		t.Errorf("expected validation error for duplicate email, got %v", err)
	}
	if _, err := svc.Register(ctx, "alice2@example.com", "alice", "longenough", ""); !domain.IsValidation(err) {
		t.Errorf("expected validation error for duplicate username, got %v", err)
	}
	if _, err := svc.Register(ctx, "bob@example.com", "bob", "short", ""); !domain.IsValidation(err) {
		t.Errorf("expected validation error for short password, got %v", err)
	}
}

func TestLoginReturnsScopedToken(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "alice", "longenough", "p1"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	res, err := svc.Login(ctx, "alice@example.com", "longenough")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.Token == "" || res.TokenType != "Bearer" {
		t.Errorf("unexpected token result: %+v", res)
	}
	if res.PropertyID != "p1" {
		t.Errorf("token not scoped to default property: %s", res.PropertyID)
	}

	claims, err := svc.Verify(ctx, res.Token)
	if err != nil {
		t.Fatalf("fresh token failed verification: %v", err)
	}
	if claims.PropertyID != "p1" {
		t.Errorf("claims missing property scope: %+v", claims)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, users, _ := newAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "alice@example.com", "alice", "longenough", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.Login(ctx, "alice@example.com", "wrong-password"); !domain.IsAuth(err) {
		t.Errorf("expected auth error for wrong password, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "longenough"); !domain.IsAuth(err) {
		t.Errorf("expected auth error for unknown email, got %v", err)
	}

	// Deactivated accounts look exactly like bad credentials.
	stored, _ := users.GetByID(ctx, res.UserID)
	stored.IsActive = false
	if err := users.Update(ctx, stored); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if _, err := svc.Login(ctx, "alice@example.com", "longenough"); !domain.IsAuth(err) {
		t.Errorf("expected auth error for inactive account, got %v", err)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "alice", "longenough", ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	res, err := svc.Login(ctx, "alice@example.com", "longenough")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	claims, err := svc.Verify(ctx, res.Token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if err := svc.Logout(ctx, claims); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := svc.Verify(ctx, res.Token); !domain.IsAuth(err) {
		t.Errorf("revoked token still verifies: %v", err)
	}
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "alice@example.com", "alice", "longenough", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.ChangePassword(ctx, res.UserID, "wrong", "evenlongerone"); !domain.IsAuth(err) {
		t.Errorf("expected auth error for wrong current password, got %v", err)
	}
	if err := svc.ChangePassword(ctx, res.UserID, "longenough", "short"); !domain.IsValidation(err) {
		t.Errorf("expected validation error for short new password, got %v", err)
	}

	if err := svc.ChangePassword(ctx, res.UserID, "longenough", "evenlongerone"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, err := svc.Login(ctx, "alice@example.com", "longenough"); err == nil {
		t.Error("old password still accepted")
	}
	if _, err := svc.Login(ctx, "alice@example.com", "evenlongerone"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc, _, _ := newAuthService(t)
	if _, err := svc.Verify(context.Background(), "not-a-token"); !domain.IsAuth(err) {
		t.Errorf("expected auth error for malformed token, got %v", err)
	}
}
