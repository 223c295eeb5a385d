package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

// NewRedis connects a Redis client and verifies the connection.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	return client, nil
}

// RedisRevealCache records successful anonymous-token reveals with a TTL, so
// an actor who already proved access is not asked for the password again
// within the window.
type RedisRevealCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRevealCache constructs the cache with the given entry lifetime.
func NewRedisRevealCache(client *redis.Client, ttl time.Duration) *RedisRevealCache {
	return &RedisRevealCache{client: client, ttl: ttl}
}

func revealKey(ticketID, actorID string) string {
	return fmt.Sprintf("reveal:%s:%s", ticketID, actorID)
}

// MarkRevealed stores a reveal grant for the actor on the ticket.
func (c *RedisRevealCache) MarkRevealed(ctx context.Context, ticketID, actorID string) error {
	return c.client.Set(ctx, revealKey(ticketID, actorID), "1", c.ttl).Err()
}

// Revealed reports whether the actor still holds a reveal grant for the ticket.
func (c *RedisRevealCache) Revealed(ctx context.Context, ticketID, actorID string) (bool, error) {
	n, err := c.client.Exists(ctx, revealKey(ticketID, actorID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
