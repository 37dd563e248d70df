package downstream

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/baechuer/recsys-storefront/internal/domain"
	"github.com/baechuer/recsys-storefront/internal/logger"
	"github.com/redis/go-redis/v9"
)

// ProductGetter fetches a single product's metadata.
type ProductGetter interface {
	GetProduct(ctx context.Context, productID int) (*domain.Product, error)
}

// NewRedis connects and pings; callers treat an error as "run without cache".
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// ProductCache is a read-through cache of product snapshots. Products are immutable
// on the client, so entries are only ever expired, never updated. Not-found and
// failed fetches are not cached.
type ProductCache struct {
	next   ProductGetter
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewProductCache(next ProductGetter, rdb *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		prefix: "storefront:product:",
	}
}

func (c *ProductCache) key(productID int) string {
	return c.prefix + strconv.Itoa(productID)
}

func (c *ProductCache) GetProduct(ctx context.Context, productID int) (*domain.Product, error) {
	raw, err := c.rdb.Get(ctx, c.key(productID)).Bytes()
	switch {
	case err == nil:
		var p domain.Product
		if jerr := json.Unmarshal(raw, &p); jerr == nil {
			return &p, nil
		}
		logger.Ctx(ctx).Warn().Int("product_id", productID).Msg("product_cache_corrupt_entry")
	case !errors.Is(err, redis.Nil):
		logger.Ctx(ctx).Warn().Err(err).Msg("product_cache_read_failed")
	}

	p, err := c.next.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if b, jerr := json.Marshal(p); jerr == nil {
		if serr := c.rdb.Set(ctx, c.key(productID), b, c.ttl).Err(); serr != nil {
			logger.Ctx(ctx).Warn().Err(serr).Msg("product_cache_write_failed")
		}
	}
	return p, nil
}
