package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/product"
)

// DefaultCacheTTL is the base lifetime of cached catalog entries.
const DefaultCacheTTL = 10 * time.Minute

var _ product.Repository = (*CachedProductRepository)(nil)

// CachedProductRepository is a read-through Redis cache in front of a
// product.Repository. Concurrent misses for the same key share one backend
// load. Redis failures degrade to the backend.
type CachedProductRepository struct {
	next    product.Repository
	client  redis.UniversalClient
	baseTTL time.Duration
	group   singleflight.Group
}

// NewCachedProductRepository wraps next with a Redis cache.
func NewCachedProductRepository(next product.Repository, client redis.UniversalClient, ttl time.Duration) *CachedProductRepository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedProductRepository{
		next:    next,
		client:  client,
		baseTTL: ttl,
	}
}

// List returns the cached listing for category.
func (r *CachedProductRepository) List(ctx context.Context, category string) ([]product.Product, error) {
	key := "catalog:list:" + category
	var out []product.Product
	err := r.readThrough(ctx, key, &out, func() (any, error) {
		return r.next.List(ctx, category)
	})
	return out, err
}

// GetByID returns the cached product. Misses in the backend are not cached.
func (r *CachedProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	var out product.Product
	err := r.readThrough(ctx, productKey(id), &out, func() (any, error) {
		return r.next.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByIDs goes straight to the backend. It prices orders, so it must not
// observe a stale catalog.
func (r *CachedProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	return r.next.GetByIDs(ctx, ids)
}

// Invalidate drops cached entries for the given products and every listing.
func (r *CachedProductRepository) Invalidate(ctx context.Context, ids ...int64) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}
	iter := r.client.Scan(ctx, 0, "catalog:list:*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning catalog keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, slices.Compact(keys)...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *CachedProductRepository) readThrough(ctx context.Context, key string, dst any, load func() (any, error)) error {
	lg := zctx.From(ctx)

	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(data, dst); err == nil {
			return nil
		}
		lg.Warn("Drop corrupt cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		lg.Warn("Redis get failed", zap.String("key", key), zap.Error(err))
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		v, err := load()
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", key, err)
		}
		if err := r.client.Set(ctx, key, data, r.ttl()).Err(); err != nil {
			lg.Warn("Redis set failed", zap.String("key", key), zap.Error(err))
		}
		return data, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.([]byte), dst)
}

// ttl spreads expiry over [baseTTL, 1.5×baseTTL) so entries written together
// do not expire together.
func (r *CachedProductRepository) ttl() time.Duration {
	return r.baseTTL + rand.N(r.baseTTL/2+1)
}

func productKey(id int64) string {
	return "catalog:product:" + strconv.FormatInt(id, 10)
}
