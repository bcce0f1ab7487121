package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
	"github.com/aryan0dhankhar/roomdesk/internal/reliability/circuitbreaker"
)

const globalFeedChannel = "feed:global"

func propertyFeedChannel(propertyID string) string {
	return "feed:property:" + propertyID
}

// ChangeFeed implements domain.ChangeFeed over Redis pub/sub. Events scoped to
// a property go on that property's channel; events with no property id go on
// the global channel. Publishing is guarded by a circuit breaker so a dead
// Redis fails fast instead of stalling every write path.
type ChangeFeed struct {
	client  *Client
	logger  *slog.Logger
	breaker *circuitbreaker.CircuitBreaker
}

// NewChangeFeed creates a change feed over the given client.
func NewChangeFeed(client *Client, logger *slog.Logger) *ChangeFeed {
	if logger == nil {
		logger = slog.Default()
	}
	breaker := circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("feed circuit state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return &ChangeFeed{
		client:  client,
		logger:  logger,
		breaker: breaker,
	}
}

// Publish sends a committed mutation to subscribers.
func (f *ChangeFeed) Publish(ctx context.Context, ev domain.FeedEvent) error {
	if !f.breaker.AllowRequest() {
		return &domain.RemoteError{Op: "feed publish", Err: fmt.Errorf("feed unavailable")}
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal feed event: %w", err)
	}

	channel := globalFeedChannel
	if ev.PropertyID != "" {
		channel = propertyFeedChannel(ev.PropertyID)
	}

	if err := f.client.Publish(ctx, channel, string(payload)); err != nil {
		f.breaker.RecordFailure()
		return &domain.RemoteError{Op: "feed publish", Err: err}
	}
	f.breaker.RecordSuccess()
	return nil
}

// Subscribe opens one live subscription covering the property channel and the
// global channel. The caller owns the returned handle and must Close it before
// opening another.
func (f *ChangeFeed) Subscribe(ctx context.Context, propertyID string) (domain.FeedSubscription, error) {
	pubsub := f.client.Subscribe(ctx, propertyFeedChannel(propertyID), globalFeedChannel)

	// Force the subscribe round-trip so a dead Redis surfaces here, not on
	// the first missed event.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, &domain.RemoteError{Op: "feed subscribe", Err: err}
	}

	sub := &feedSubscription{
		pubsub: pubsub,
		events: make(chan domain.FeedEvent, 16),
		done:   make(chan struct{}),
	}
	go sub.pump(f.logger)
	return sub, nil
}

type feedSubscription struct {
	pubsub *redis.PubSub
	events chan domain.FeedEvent
	done   chan struct{}
}

func (s *feedSubscription) pump(logger *slog.Logger) {
	defer close(s.events)
	for msg := range s.pubsub.Channel() {
		var ev domain.FeedEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			logger.Warn("dropping malformed feed event", slog.String("error", err.Error()))
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

func (s *feedSubscription) Events() <-chan domain.FeedEvent {
	return s.events
}

// Close tears the subscription down. Safe to call once; the events channel is
// closed once the underlying pub/sub drains.
func (s *feedSubscription) Close() error {
	close(s.done)
	return s.pubsub.Close()
}
