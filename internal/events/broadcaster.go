package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/saga-engine/pkg/turn"
)

// Event is the payload published for every notification
type Event struct {
	Type        string         `json:"type"`
	WorldID     string         `json:"world_id,omitempty"`
	CharacterID string         `json:"character_id,omitempty"`
	Message     string         `json:"message,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Channel returns the pub/sub channel for a world
func Channel(worldID string) string {
	return fmt.Sprintf("game-events:%s", worldID)
}

// Broadcaster publishes notifications to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var _ turn.Notifier = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Notify publishes n to its world channel. Failures are logged, never returned:
// a missed event must not fail a turn.
func (b *Broadcaster) Notify(ctx context.Context, n turn.Notification) {
	if n.WorldID == "" {
		return
	}
	_ = b.Publish(ctx, Event{
		Type:        n.Kind,
		WorldID:     n.WorldID,
		CharacterID: n.CharacterID,
		Message:     n.Message,
		Data:        n.Data,
		Timestamp:   time.Now().UTC(),
	})
}

// Publish sends one event to the world channel
func (b *Broadcaster) Publish(ctx context.Context, event Event) error {
	channel := Channel(event.WorldID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"character_id", event.CharacterID,
	)
	return nil
}

// Subscribe opens a subscription to a world channel. The caller closes it.
func (b *Broadcaster) Subscribe(ctx context.Context, worldID string) *redis.PubSub {
	return b.redisClient.Subscribe(ctx, Channel(worldID))
}
