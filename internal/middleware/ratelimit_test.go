package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func newTestLimiter(t *testing.T, r rate.Limit, b int) *IPRateLimiter {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewIPRateLimiter(ctx, r, b, zap.NewNop())
}

func TestNewIPRateLimiter(t *testing.T) {
	limiter := newTestLimiter(t, 10, 20)

	require.NotNil(t, limiter)
	assert.Equal(t, rate.Limit(10), limiter.rate)
	assert.Equal(t, 20, limiter.burst)
	assert.Equal(t, 0, limiter.Len())
}

func TestIPRateLimiter_GetLimiter(t *testing.T) {
	limiter := newTestLimiter(t, 10, 20)

	l1 := limiter.GetLimiter("192.168.1.1")
	require.NotNil(t, l1)

	// Same IP gets the same instance
	assert.Same(t, l1, limiter.GetLimiter("192.168.1.1"))

	// Different IP gets its own
	assert.NotSame(t, l1, limiter.GetLimiter("192.168.1.2"))
	assert.Equal(t, 2, limiter.Len())
}

func TestIPRateLimiter_Allow(t *testing.T) {
	limiter := newTestLimiter(t, 1, 2) // 1 per second, burst of 2

	ip := "192.168.1.1"

	assert.True(t, limiter.Allow(ip), "first request is within burst")
	assert.True(t, limiter.Allow(ip), "second request is within burst")
	assert.False(t, limiter.Allow(ip), "burst exhausted")

	// Other IPs are unaffected
	assert.True(t, limiter.Allow("10.0.0.1"))
}

func TestIPRateLimiter_EvictIdle(t *testing.T) {
	limiter := newTestLimiter(t, 1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.GetLimiter("old")
	now = now.Add(limiter.idleTTL + time.Second)
	limiter.GetLimiter("fresh")

	assert.Equal(t, 1, limiter.evictIdle())
	assert.Equal(t, 1, limiter.Len())

	limiter.mu.Lock()
	_, ok := limiter.visitors["fresh"]
	limiter.mu.Unlock()
	assert.True(t, ok)
}

func TestIPRateLimiter_Concurrent(t *testing.T) {
	limiter := newTestLimiter(t, 1000, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limiter.Allow("192.168.1.1")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, limiter.Len())
}

func TestGetIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		expected   string
	}{
		{"X-Forwarded-For", "203.0.113.1", "", "127.0.0.1:1234", "203.0.113.1"},
		{"X-Forwarded-For chain", "203.0.113.1, 10.0.0.2", "", "127.0.0.1:1234", "203.0.113.1"},
		{"X-Real-IP", "", "203.0.113.2", "127.0.0.1:1234", "203.0.113.2"},
		{"RemoteAddr", "", "", "192.168.1.100:5678", "192.168.1.100"},
		{"RemoteAddr without port", "", "", "192.168.1.100", "192.168.1.100"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}
			assert.Equal(t, tc.expected, getIP(req))
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := newTestLimiter(t, 1, 1)

	handler := RateLimitMiddleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitFunc(t *testing.T) {
	limiter := newTestLimiter(t, 1, 1)
	called := 0
	handler := RateLimitFunc(limiter, func(w http.ResponseWriter, r *http.Request) {
		called++
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ws/", nil)
		req.Header.Set("X-Forwarded-For", "198.51.100.7")
		handler(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 1, called)
}
