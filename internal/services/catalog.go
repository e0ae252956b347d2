package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"storefront-bff/internal/cache"
	"storefront-bff/internal/models"
)

// Cache is the slice of the Redis client the catalog needs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

var categories = []string{"all", string(models.CategorySneakers), string(models.CategoryGlow), string(models.CategoryLamps)}

// CachedCatalog serves product reads from the cache and collapses
// concurrent misses for the same key into one upstream call.
type CachedCatalog struct {
	svc   *ServiceClient
	cache Cache
	ttl   time.Duration
	sfg   singleflight.Group

	// generation moves on every Invalidate; a load that spans one must not
	// leave its result in the cache.
	generation atomic.Uint64
}

func NewCachedCatalog(svc *ServiceClient, c Cache, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{svc: svc, cache: c, ttl: ttl}
}

func (c *CachedCatalog) GetProducts(ctx context.Context, category string) ([]models.Product, error) {
	if category == "" {
		category = "all"
	}
	return cached(ctx, c, "catalog:products:"+category, func(ctx context.Context) ([]models.Product, error) {
		return c.svc.GetProducts(ctx, category)
	})
}

func (c *CachedCatalog) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return cached(ctx, c, "catalog:product:"+id, func(ctx context.Context) (*models.Product, error) {
		return c.svc.GetProduct(ctx, id)
	})
}

func (c *CachedCatalog) SearchProducts(ctx context.Context, q string) ([]models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []models.Product{}, nil
	}
	return cached(ctx, c, "catalog:search:"+strings.ToLower(q), func(ctx context.Context) ([]models.Product, error) {
		return c.svc.SearchProducts(ctx, q)
	})
}

// Invalidate drops listings and, when given, the cached detail for ids.
// Search results age out with the TTL.
func (c *CachedCatalog) Invalidate(ctx context.Context, ids ...string) {
	c.generation.Add(1)
	keys := make([]string, 0, len(categories)+len(ids))
	for _, cat := range categories {
		keys = append(keys, "catalog:products:"+cat)
	}
	for _, id := range ids {
		keys = append(keys, "catalog:product:"+id)
	}
	if err := c.cache.Delete(ctx, keys...); err != nil {
		slog.Warn("Catalog invalidate error", "error", err)
	}
}

// cached shares one load per key between concurrent callers. The load runs
// detached from any single caller's cancellation; each caller still stops
// waiting when its own ctx is done.
func cached[T any](ctx context.Context, c *CachedCatalog, key string, load func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	ch := c.sfg.DoChan(key, func() (interface{}, error) {
		loadCtx := context.WithoutCancel(ctx)
		var out T

		data, err := c.cache.Get(loadCtx, key)
		if err == nil {
			if jsonErr := json.Unmarshal(data, &out); jsonErr == nil {
				slog.Debug("Cache HIT", "key", key)
				return out, nil
			}
			slog.Warn("Discarding unreadable cache entry", "key", key)
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			slog.Warn("Cache get error", "key", key, "error", err)
		}

		gen := c.generation.Load()
		out, err = load(loadCtx)
		if err != nil {
			return out, err
		}

		data, err = json.Marshal(out)
		if err != nil {
			return out, fmt.Errorf("marshal %s: %w", key, err)
		}
		if string(data) == "null" || c.generation.Load() != gen {
			return out, nil
		}

		if err := c.cache.Set(loadCtx, key, data, c.ttl); err != nil {
			slog.Warn("Cache set error", "key", key, "error", err)
			return out, nil
		}
		// an Invalidate that raced the write above has already run its delete
		if c.generation.Load() != gen {
			if err := c.cache.Delete(loadCtx, key); err != nil {
				slog.Warn("Cache delete error", "key", key, "error", err)
			}
		}
		return out, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
