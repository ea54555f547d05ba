// Package pubsub is the push channel carrying worker progress events back to
// the orchestrator, keyed by round job id.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/soundlytics/artistpulse/pkg/models"
)

// Channel publishes and subscribes to progress events by job id. A
// subscription is per round, created at dispatch and closed when the round
// completes; listeners never share subscriptions across rounds.
type Channel interface {
	Publish(ctx context.Context, jobID uuid.UUID, event models.ProgressEvent) error
	Subscribe(ctx context.Context, jobID uuid.UUID) (Subscription, error)
}

// Subscription is one round's event stream. Events is closed after Close.
type Subscription interface {
	Events() <-chan models.ProgressEvent
	Close() error
}

// Topic returns the channel name for a round.
func Topic(jobID uuid.UUID) string {
	return fmt.Sprintf("progress:%s", jobID)
}

// RedisChannel implements Channel on Redis Pub/Sub using go-redis/v9.
type RedisChannel struct {
	client *redis.Client
}

// NewRedisChannel creates a RedisChannel from a Redis URL.
func NewRedisChannel(redisURL string) (*RedisChannel, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisChannel{client: redis.NewClient(opts)}, nil
}

func (c *RedisChannel) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisChannel) Close() error {
	return c.client.Close()
}

func (c *RedisChannel) Publish(ctx context.Context, jobID uuid.UUID, event models.ProgressEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}
	if err := c.client.Publish(ctx, Topic(jobID), payload).Err(); err != nil {
		return fmt.Errorf("publish progress event: %w", err)
	}
	return nil
}

func (c *RedisChannel) Subscribe(ctx context.Context, jobID uuid.UUID) (Subscription, error) {
	sub := c.client.Subscribe(ctx, Topic(jobID))
	// Force the subscription to be established before any worker publishes.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", Topic(jobID), err)
	}

	events := make(chan models.ProgressEvent, 16)
	quit := make(chan struct{})
	go func() {
		defer close(events)
		for msg := range sub.Channel() {
			var event models.ProgressEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.Warn("dropping malformed progress event",
					"topic", msg.Channel, "error", err)
				continue
			}
			// quit unblocks the send once the consumer is gone, so a late
			// message cannot strand this goroutine.
			select {
			case events <- event:
			case <-quit:
				return
			}
		}
	}()

	return &redisSubscription{sub: sub, events: events, quit: quit}, nil
}

type redisSubscription struct {
	sub    *redis.PubSub
	events chan models.ProgressEvent
	quit   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) Events() <-chan models.ProgressEvent {
	return s.events
}

func (s *redisSubscription) Close() error {
	s.once.Do(func() { close(s.quit) })
	return s.sub.Close()
}
