package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
	"github.com/aryan0dhankhar/roomdesk/internal/infrastructure/redis"
)

// SessionStore tracks revoked session tokens in Redis. Entries expire with
// the token itself, so the set stays bounded.
type SessionStore struct {
	redis  *redis.Client
	logger *slog.Logger
}

// NewSessionStore creates a session store over the given Redis client.
func NewSessionStore(redisClient *redis.Client, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{redis: redisClient, logger: logger}
}

func revokedKey(tokenID string) string {
	return "session:revoked:" + tokenID
}

// Revoke marks a token id as revoked until it would have expired anyway.
func (s *SessionStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := s.redis.Set(ctx, revokedKey(tokenID), "1", ttl); err != nil {
		return &domain.RemoteError{Op: "revoke session", Err: err}
	}
	s.logger.Debug("session revoked", slog.String("token_id", tokenID))
	return nil
}

// IsRevoked reports whether a token id has been revoked.
func (s *SessionStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	revoked, err := s.redis.Exists(ctx, revokedKey(tokenID))
	if err != nil {
		return false, &domain.RemoteError{Op: "check session", Err: err}
	}
	return revoked, nil
}
