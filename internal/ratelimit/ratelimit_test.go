package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		Enabled:       true,
		DefaultLimit:  5,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"10.0.0.1": true},
		Blacklist:     map[string]bool{"10.0.0.2": true},
		EndpointConfigs: []EndpointConfig{
			{Path: "/listings", Method: "GET", Limit: 2, Window: time.Hour, Burst: 2},
		},
	}
}

func TestLimiter_Allow(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 5; i++ {
		allowed, info := l.Allow("client", "/other", "GET")
		assert.True(t, allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 5, info.Limit)
	}

	allowed, info := l.Allow("client", "/other", "GET")
	assert.False(t, allowed)
	assert.Greater(t, info.RetryAfter, time.Duration(0))
	assert.Equal(t, 0, info.Remaining)
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	allowed, _ := l.Allow("client", "/listings", "GET")
	assert.True(t, allowed)
	allowed, _ = l.Allow("client", "/listings", "GET")
	assert.True(t, allowed)
	allowed, _ = l.Allow("client", "/listings", "GET")
	assert.False(t, allowed)

	// Different client has its own bucket
	allowed, _ = l.Allow("other", "/listings", "GET")
	assert.True(t, allowed)
}

func TestLimiter_WhitelistAndBlacklist(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 20; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/listings", "GET")
		require.True(t, allowed)
	}
	allowed, _ := l.Allow("10.0.0.2", "/health", "GET")
	assert.False(t, allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	l := NewLimiter(&Config{Enabled: false})
	defer l.Stop()

	for i := 0; i < 100; i++ {
		allowed, _ := l.Allow("client", "/listings", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_HealthUnlimited(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 50; i++ {
		allowed, _ := l.Allow("client", "/health", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("client", "/listings", "GET"); ok {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, allowedCount)
}

func TestLimiter_CleanupBuckets(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 3; i++ {
		l.Allow(fmt.Sprintf("client-%d", i), "/other", "GET")
	}
	l.cleanupBuckets(time.Now().Add(time.Minute))

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.buckets)
}

func TestNewLimiter_NilConfig(t *testing.T) {
	l := NewLimiter(nil)
	defer l.Stop()
	allowed, _ := l.Allow("client", "/listings", "GET")
	assert.True(t, allowed)
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	c := MatchEndpoint("/listings/B0ABCDEFGH/overlay", "PATCH", configs)
	require.NotNil(t, c)
	assert.Equal(t, "/listings/", c.Path)

	c = MatchEndpoint("/cache", "DELETE", configs)
	require.NotNil(t, c)
	assert.Equal(t, 5, c.Limit)

	assert.Nil(t, MatchEndpoint("/unknown", "GET", configs))
	assert.Equal(t, 0, MatchEndpoint("/health", "GET", configs).Limit)
}

func TestKeyedLimiter(t *testing.T) {
	k := NewKeyed(1, 1)
	assert.True(t, k.Allow("a.example"))
	assert.False(t, k.Allow("a.example"))
	assert.True(t, k.Allow("b.example"), "keys are independent")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, k.Wait(ctx, "a.example"))
}

func TestKeyedLimiter_Unlimited(t *testing.T) {
	k := NewKeyed(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, k.Allow("host"))
	}
	require.NoError(t, k.Wait(context.Background(), "host"))
}
