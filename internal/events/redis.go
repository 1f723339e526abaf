package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d-ashesss/nulland/internal/note"
)

// channel is the pub-sub channel note mutation events are published to.
const channel = "user_actions"

// publishTimeout detaches event delivery from the request deadline.
const publishTimeout = 5 * time.Second

// RedisSink publishes note mutation events to a Redis pub-sub channel.
// Publish failures are logged and dropped; there is no delivery guarantee.
type RedisSink struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisSink connects to Redis and verifies the connection.
// The returned sink must be closed to release the connection.
func NewRedisSink(ctx context.Context, redisURL string, logger *slog.Logger) (*RedisSink, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisSink{client: client, logger: logger}, nil
}

// Notify publishes the event. Errors never propagate to the caller.
// The request context's values are kept but its deadline is not: a mutation
// response should not wait on, nor be cancelled together with, the publish.
func (s *RedisSink) Notify(ctx context.Context, action Action, n *note.Note) {
	payload, err := json.Marshal(newEnvelope(action, n))
	if err != nil {
		s.logger.Error("marshaling note event", "error", err, "action", string(action))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.client.Publish(ctx, channel, payload).Err(); err != nil {
		s.logger.Error("publishing note event", "error", err, "action", string(action), "note_id", n.ID)
	}
}

// Close releases the Redis connection.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
