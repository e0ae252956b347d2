package services

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-bff/internal/cache"
)

func newTestCatalog(t *testing.T, handler http.HandlerFunc) (*CachedCatalog, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := cache.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { rc.Close() })

	client, _ := newTestClient(t, handler)
	return NewCachedCatalog(client, rc, time.Minute), mr
}

func TestCachedCatalog_HitAfterMiss(t *testing.T) {
	var calls atomic.Int32
	catalog, mr := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[{"id":"1","name":"Aurora","category":"glow","price":12.5}]`))
	})
	ctx := context.Background()

	first, err := catalog.GetProducts(ctx, "glow")
	require.NoError(t, err)
	require.Len(t, first, 1)

	assert.True(t, mr.Exists("catalog:products:glow"))
	assert.Equal(t, time.Minute, mr.TTL("catalog:products:glow"))

	second, err := catalog.GetProducts(ctx, "glow")
	require.NoError(t, err)
	assert.Equal(t, first[0].Name, second[0].Name)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCachedCatalog_ConcurrentMissesShareOneCall(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	catalog, _ := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write([]byte(`[]`))
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := catalog.GetProducts(context.Background(), "")
			assert.NoError(t, err)
		}()
	}
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestCachedCatalog_CancelledCallerDoesNotFailOthers(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	catalog, _ := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write([]byte(`[{"id":"1","name":"Aurora","category":"glow","price":12.5}]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := catalog.GetProducts(ctx, "glow")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		products int
		err      error
	}
	second := make(chan result, 1)
	go func() {
		products, err := catalog.GetProducts(context.Background(), "glow")
		second <- result{len(products), err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, 1, got.products)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCachedCatalog_InvalidateDuringLoadSkipsWrite(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	catalog, mr := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write([]byte(`[{"id":"1","name":"Old name","category":"glow","price":12.5}]`))
	})

	done := make(chan error, 1)
	go func() {
		_, err := catalog.GetProducts(context.Background(), "all")
		done <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	catalog.Invalidate(context.Background(), "1")
	close(release)
	require.NoError(t, <-done)

	assert.False(t, mr.Exists("catalog:products:all"))
}

func TestCachedCatalog_Invalidate(t *testing.T) {
	catalog, mr := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	mr.Set("catalog:products:all", "[]")
	mr.Set("catalog:products:lamps", "[]")
	mr.Set("catalog:product:p1", `{"id":"p1"}`)
	mr.Set("catalog:product:p2", `{"id":"p2"}`)

	catalog.Invalidate(context.Background(), "p1")

	assert.False(t, mr.Exists("catalog:products:all"))
	assert.False(t, mr.Exists("catalog:products:lamps"))
	assert.False(t, mr.Exists("catalog:product:p1"))
	assert.True(t, mr.Exists("catalog:product:p2"))
}

func TestCachedCatalog_MissingProductNotCached(t *testing.T) {
	var calls atomic.Int32
	catalog, mr := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		product, err := catalog.GetProduct(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, product)
	}
	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, mr.Exists("catalog:product:ghost"))
}

func TestCachedCatalog_RedisDownFallsThrough(t *testing.T) {
	var calls atomic.Int32
	catalog, mr := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"id":"p1","name":"Lamp","category":"lamps","price":40}`))
	})
	mr.SetError("ERR injected failure")

	product, err := catalog.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Lamp", product.Name)
	assert.Equal(t, int32(1), calls.Load())
}
