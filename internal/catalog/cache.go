package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cartline/cartline/internal/domain/product"
	"github.com/redis/go-redis/v9"
)

const listKey = "catalog:products"

// Cache keeps the public product listing in redis for a short TTL. It is
// strictly best-effort: any redis failure falls through to the database.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context) ([]product.ListItem, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}

	raw, err := c.rdb.Get(ctx, listKey).Bytes()

	if err != nil {
		if err != redis.Nil {
			slog.Default().WarnContext(ctx, "catalog cache read failed", "err", err)
		}
		return nil, false
	}

	var items []product.ListItem

	err = json.Unmarshal(raw, &items)

	if err != nil {
		// stale or corrupt entry, drop it
		_ = c.rdb.Del(ctx, listKey).Err()
		return nil, false
	}

	return items, true
}

func (c *Cache) Set(ctx context.Context, items []product.ListItem) {
	if c == nil || c.rdb == nil {
		return
	}

	raw, err := json.Marshal(items)

	if err != nil {
		return
	}

	err = c.rdb.Set(ctx, listKey, raw, c.ttl).Err()

	if err != nil {
		slog.Default().WarnContext(ctx, "catalog cache write failed", "err", err)
	}
}

// Invalidate drops the cached listing; called after a product is added.
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}

	err := c.rdb.Del(ctx, listKey).Err()

	if err != nil {
		slog.Default().WarnContext(ctx, "catalog cache invalidation failed", "err", err)
	}
}
