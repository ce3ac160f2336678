package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/IvoireMarket/shop-api/internal/config"
)

// Keys invalidated by the write paths that touch them.
const (
	KeyProducts = "shop:products"
	KeySettings = "shop:settings"
)

const defaultTTL = 5 * time.Minute

var ErrMiss = errors.New("cache miss")

// Cache is a thin cache-aside layer over redis. A nil *Cache is valid and
// behaves as a permanent miss, so callers never branch on "is caching on".
type Cache struct {
	client *redis.Client
}

// New returns nil when REDIS_ADDR is empty.
func New(cfg *config.Config) *Cache {
	if cfg.RedisAddr == "" {
		return nil
	}
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}),
	}
}

func (c *Cache) GetJSON(ctx context.Context, key string, dest any) error {
	if c == nil {
		return ErrMiss
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return ErrMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *Cache) SetJSON(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, raw, defaultTTL)
}

func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil {
		return
	}
	c.client.Del(ctx, keys...)
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
