package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisHub is a Broadcaster over Redis pub/sub, so subscriptions on one
// instance see writes made through another instance sharing the database.
type RedisHub struct {
	client *redis.Client
	prefix string
}

// NewRedisHub connects to redisURL and verifies the connection.
func NewRedisHub(ctx context.Context, redisURL, prefix string) (*RedisHub, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisHubFromClient(client, prefix), nil
}

// NewRedisHubFromClient wraps an existing client.
func NewRedisHubFromClient(client *redis.Client, prefix string) *RedisHub {
	if prefix == "" {
		prefix = "smartbite:changes:"
	}
	return &RedisHub{client: client, prefix: prefix}
}

// Publish announces a change under path.
func (h *RedisHub) Publish(ctx context.Context, path string) error {
	if err := h.client.Publish(ctx, h.prefix+path, "changed").Err(); err != nil {
		return fmt.Errorf("failed to publish change for %s: %w", path, err)
	}
	return nil
}

// Listen subscribes to changes under path.
func (h *RedisHub) Listen(ctx context.Context, path string) (<-chan struct{}, func(), error) {
	pubsub := h.client.Subscribe(ctx, h.prefix+path)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", path, err)
	}

	out := make(chan struct{}, 1)
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		for range pubsub.Channel() {
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			pubsub.Close()
			<-exited
			close(out)
		})
	}
	return out, stop, nil
}

// Close closes the Redis client.
func (h *RedisHub) Close() error {
	return h.client.Close()
}
