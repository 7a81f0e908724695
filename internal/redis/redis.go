// Package redis holds the shared redemption lock and the report cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/manifest-festivals/manifest/internal/config"

	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another caller holds the redemption lock for a code.
var ErrLocked = errors.New("redemption already in progress")

const (
	redeemLockPrefix = "redeem_lock:"
	reportCacheKey   = "report:business"
)

type Client struct {
	rdb *redis.Client
}

func NewClient(cfg *config.Config) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return &Client{rdb: rdb}
}

// Wrap builds a Client over an existing connection, e.g. a mock.
func Wrap(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// LockRedemption serializes redemption attempts for one code across replicas.
func (c *Client) LockRedemption(ctx context.Context, code string, ttl time.Duration) error {
	ok, err := c.rdb.SetNX(ctx, redeemLockPrefix+code, "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to lock redemption: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

func (c *Client) UnlockRedemption(ctx context.Context, code string) error {
	return c.rdb.Del(ctx, redeemLockPrefix+code).Err()
}

// CachedReport returns the cached report payload; found is false on a miss.
func (c *Client) CachedReport(ctx context.Context) (payload []byte, found bool, err error) {
	payload, err = c.rdb.Get(ctx, reportCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read report cache: %w", err)
	}
	return payload, true, nil
}

func (c *Client) CacheReport(ctx context.Context, payload []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, reportCacheKey, payload, ttl).Err()
}

// InvalidateReport drops the cached report. Ticket, review and festival
// writes call it.
func (c *Client) InvalidateReport(ctx context.Context) error {
	return c.rdb.Del(ctx, reportCacheKey).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
