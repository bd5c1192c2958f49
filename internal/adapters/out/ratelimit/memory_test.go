package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopLogger() zerowrap.Logger {
	return zerowrap.New(zerowrap.Config{Level: "disabled"})
}

func testLogger() zerowrap.Logger {
	return nopLogger()
}

func TestMemoryStore_Allow(t *testing.T) {
	tests := []struct {
		name    string
		rps     float64
		burst   int
		calls   int
		allowed int
	}{
		{name: "within burst", rps: 10, burst: 10, calls: 10, allowed: 10},
		{name: "exceeds burst of one", rps: 1, burst: 1, calls: 2, allowed: 1},
		{name: "exceeds burst of five", rps: 1, burst: 5, calls: 8, allowed: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore(tt.rps, tt.burst, testLogger())
			ctx := context.Background()

			got := 0
			for i := 0; i < tt.calls; i++ {
				if store.Allow(ctx, "ip:10.0.0.1") {
					got++
				}
			}
			assert.Equal(t, tt.allowed, got)
		})
	}
}

func TestMemoryStore_Allow_Replenishes(t *testing.T) {
	store := NewMemoryStore(10, 5, testLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.True(t, store.Allow(ctx, "test"), "burst request %d should be allowed", i+1)
	}
	require.False(t, store.Allow(ctx, "test"))

	time.Sleep(200 * time.Millisecond)

	assert.True(t, store.Allow(ctx, "test"), "request after waiting should be allowed")
}

func TestMemoryStore_Allow_IndependentKeys(t *testing.T) {
	store := NewMemoryStore(1, 1, testLogger())
	ctx := context.Background()

	assert.True(t, store.Allow(ctx, "ip:192.168.1.1"))
	assert.False(t, store.Allow(ctx, "ip:192.168.1.1"))
	assert.True(t, store.Allow(ctx, "ip:192.168.1.2"))
	assert.True(t, store.Allow(ctx, "global"))
	assert.False(t, store.Allow(ctx, "global"))
}

func TestMemoryStore_AllowN(t *testing.T) {
	store := NewMemoryStore(10, 10, testLogger())
	ctx := context.Background()

	assert.True(t, store.AllowN(ctx, "test", 5))
	assert.True(t, store.AllowN(ctx, "test", 5))
	assert.False(t, store.AllowN(ctx, "test", 1))

	small := NewMemoryStore(10, 5, testLogger())
	assert.False(t, small.AllowN(ctx, "test", 10), "more than burst is never allowed")
	assert.True(t, small.AllowN(ctx, "test", 3))
}

func TestMemoryStore_Allow_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore(1000, 100, testLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan bool, 200)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				results <- store.Allow(ctx, "concurrent")
			}
		}()
	}

	wg.Wait()
	close(results)

	allowed := 0
	for result := range results {
		if result {
			allowed++
		}
	}

	require.GreaterOrEqual(t, allowed, 100, "at least burst number of requests should be allowed")
	require.LessOrEqual(t, allowed, 200)
}
