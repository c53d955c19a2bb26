package eventpublisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/iho/bankledger/internal/domain"
)

// DefaultChannelPrefix prefixes the event type to form the Redis channel.
const DefaultChannelPrefix = "bankledger.events."

// Message is the wire form of a published event.
type Message struct {
	ID            string         `json:"id"`
	EventType     string         `json:"event_type"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   string         `json:"aggregate_id"`
	Payload       map[string]any `json:"payload"`
	CreatedAt     time.Time      `json:"created_at"`
}

// RedisPublisher publishes events on Redis pub/sub channels, one per event type.
// Calls go through a circuit breaker so an unavailable Redis fails fast.
type RedisPublisher struct {
	client  redis.Cmdable
	breaker *gobreaker.CircuitBreaker
	prefix  string
}

// NewRedisPublisher creates a new RedisPublisher.
func NewRedisPublisher(client redis.Cmdable) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		breaker: newCircuitBreaker("outbox-redis"),
		prefix:  DefaultChannelPrefix,
	}
}

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     10 * time.Second, // open -> half-open after 10s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}

// Channel returns the channel an event type is published on.
func (p *RedisPublisher) Channel(eventType string) string {
	return p.prefix + eventType
}

// Publish sends the event to its channel.
func (p *RedisPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	body, err := json.Marshal(Message{
		ID:            event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		CreatedAt:     event.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.client.Publish(ctx, p.Channel(event.EventType), body).Err()
	})
	if err != nil {
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}

	return nil
}
