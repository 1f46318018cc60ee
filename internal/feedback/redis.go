package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisForwarder pushes corrections onto a Redis list that a training
// worker drains.
type RedisForwarder struct {
	client *redis.Client
	queue  string
}

// NewRedisForwarder connects to Redis and verifies the connection.
func NewRedisForwarder(addr, queue string) (*RedisForwarder, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if queue == "" {
		return nil, fmt.Errorf("queue name is required")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisForwarder{client: client, queue: queue}, nil
}

// Forward pushes the correction as JSON.
func (f *RedisForwarder) Forward(ctx context.Context, c Correction) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal correction: %w", err)
	}
	if err := f.client.LPush(ctx, f.queue, data).Err(); err != nil {
		return fmt.Errorf("push correction: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (f *RedisForwarder) Close() error {
	return f.client.Close()
}
