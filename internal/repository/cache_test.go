package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/product"
)

type countingRepo struct {
	products map[int64]product.Product
	calls    atomic.Int64
	delay    time.Duration
}

func (c *countingRepo) List(_ context.Context, category string) ([]product.Product, error) {
	c.calls.Add(1)
	time.Sleep(c.delay)
	var out []product.Product
	for _, p := range c.products {
		if category == "" || p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *countingRepo) GetByID(_ context.Context, id int64) (*product.Product, error) {
	c.calls.Add(1)
	time.Sleep(c.delay)
	p, ok := c.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (c *countingRepo) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	c.calls.Add(1)
	var out []product.Product
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func setupCache(t *testing.T) (*CachedProductRepository, *countingRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	serves := 12
	backend := &countingRepo{products: map[int64]product.Product{
		1: {ID: 1, Name: "Pastel de Chocolate", Price: decimal.RequireFromString("280"), Category: "pasteles", Servings: &serves},
		2: {ID: 2, Name: "Conchas", Price: decimal.RequireFromString("25.50"), Category: "pan-dulce"},
	}}
	return NewCachedProductRepository(backend, client, time.Minute), backend, mr
}

func TestCachedProductRepository_GetByID(t *testing.T) {
	repo, backend, mr := setupCache(t)
	ctx := context.Background()

	first, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Pastel de Chocolate", first.Name)
	assert.True(t, mr.Exists(productKey(1)))

	second, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, first.Price.Equal(second.Price))
	require.NotNil(t, second.Servings)
	assert.Equal(t, 12, *second.Servings)
	assert.Equal(t, int64(1), backend.calls.Load())

	ttl := mr.TTL(productKey(1))
	assert.GreaterOrEqual(t, ttl, time.Minute)
	assert.Less(t, ttl, 90*time.Second+time.Second)
}

func TestCachedProductRepository_NotFoundNotCached(t *testing.T) {
	repo, backend, mr := setupCache(t)

	for range 2 {
		_, err := repo.GetByID(context.Background(), 99)
		require.ErrorIs(t, err, product.ErrNotFound)
	}
	assert.False(t, mr.Exists(productKey(99)))
	assert.Equal(t, int64(2), backend.calls.Load())
}

func TestCachedProductRepository_List(t *testing.T) {
	repo, backend, _ := setupCache(t)
	ctx := context.Background()

	got, err := repo.List(ctx, "pan-dulce")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Conchas", got[0].Name)

	_, err = repo.List(ctx, "pan-dulce")
	require.NoError(t, err)
	assert.Equal(t, int64(1), backend.calls.Load())

	_, err = repo.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), backend.calls.Load())
}

func TestCachedProductRepository_GetByIDsBypassesCache(t *testing.T) {
	repo, backend, _ := setupCache(t)

	for range 3 {
		_, err := repo.GetByIDs(context.Background(), []int64{1, 2})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), backend.calls.Load())
}

func TestCachedProductRepository_Singleflight(t *testing.T) {
	repo, backend, _ := setupCache(t)
	backend.delay = 50 * time.Millisecond

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.GetByID(context.Background(), 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), backend.calls.Load())
}

func TestCachedProductRepository_CorruptEntry(t *testing.T) {
	repo, backend, mr := setupCache(t)
	require.NoError(t, mr.Set(productKey(1), "{not json"))

	p, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, int64(1), backend.calls.Load())
}

func TestCachedProductRepository_RedisDown(t *testing.T) {
	repo, backend, mr := setupCache(t)
	mr.Close()

	p, err := repo.GetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Conchas", p.Name)
	assert.Equal(t, int64(1), backend.calls.Load())
}

func TestCachedProductRepository_Invalidate(t *testing.T) {
	repo, _, mr := setupCache(t)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	_, err = repo.List(ctx, "")
	require.NoError(t, err)

	require.NoError(t, repo.Invalidate(ctx, 1))
	assert.False(t, mr.Exists(productKey(1)))
	assert.False(t, mr.Exists("catalog:list:"))
}
