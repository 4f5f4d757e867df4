package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL bounds how long a resolution stays cached. Mutations through
// the API invalidate the key before the TTL runs out.
const TTL = 24 * time.Hour

type Config struct {
	Addr     string
	Password string
	DB       int
}

// Entry is the cached resolution of a short code. The link id is kept
// so cache hits can still record visits.
type Entry struct {
	LinkID uint   `json:"link_id"`
	URL    string `json:"url"`
}

// Key returns the cache key for a short code.
func Key(code string) string {
	return "link:" + code
}

// NewClient creates a Redis client, or returns nil when no address is
// configured. Callers treat a nil client as cache-off.
func NewClient(cfg *Config) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 20,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return client, nil
}
