package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// client describes where a request appears to come from.
type client struct {
	remote string
	xff    string
	apiKey string
}

func (c client) request() *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	if c.remote != "" {
		req.RemoteAddr = c.remote
	}
	if c.xff != "" {
		req.Header.Set("X-Forwarded-For", c.xff)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	return req
}

func TestRateLimit(t *testing.T) {
	var (
		shopA = client{remote: "10.0.0.1:1234"}
		shopB = client{remote: "10.0.0.2:1234"}
	)
	byKey := func(r *http.Request) string { return r.Header.Get("X-Api-Key") }

	tests := []struct {
		name    string
		max     int
		keyFunc func(*http.Request) string
		clients []client
		want    []int
	}{
		{
			name:    "UnderLimit",
			max:     3,
			clients: []client{shopA, shopA, shopA},
			want:    []int{200, 200, 200},
		},
		{
			name:    "OverLimit",
			max:     2,
			clients: []client{shopA, shopA, shopA},
			want:    []int{200, 200, 429},
		},
		{
			name:    "IndependentClients",
			max:     1,
			clients: []client{shopA, shopB, {remote: "10.0.0.1:5678"}},
			want:    []int{200, 200, 429},
		},
		{
			name: "ForwardedFor",
			max:  1,
			clients: []client{
				{remote: "192.168.1.1:4444", xff: "203.0.113.50, 70.41.3.18"},
				{remote: "192.168.1.2:5555", xff: "203.0.113.50"},
			},
			want: []int{200, 429},
		},
		{
			name:    "CustomKey",
			max:     1,
			keyFunc: byKey,
			clients: []client{{apiKey: "kiosk-1"}, {apiKey: "kiosk-1"}, {apiKey: "kiosk-2"}},
			want:    []int{200, 429, 200},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RateLimit(RateLimitConfig{Max: tt.max, Window: time.Minute, KeyFunc: tt.keyFunc})(okHandler())
			for i, c := range tt.clients {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, c.request())
				assert.Equal(t, tt.want[i], w.Code, "request %d", i+1)
			}
		})
	}
}

func TestRateLimit_Headers(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute})(okHandler())
	c := client{remote: "10.1.1.1:80"}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, c.request())
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.Empty(t, w.Header().Get("Retry-After"))

	h.ServeHTTP(httptest.NewRecorder(), c.request())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, c.request())
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"code":429,"message":"rate limit exceeded"}`, w.Body.String())
}

func TestRateLimiter_Refill(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 2, Window: 2 * time.Second})
	now := time.Now()

	for range 2 {
		_, _, ok := rl.allow("k", now)
		require.True(t, ok)
	}

	_, wait, ok := rl.allow("k", now)
	require.False(t, ok)
	assert.InDelta(t, time.Second.Seconds(), wait.Seconds(), 0.05)

	// One token is back after Window/Max.
	_, _, ok = rl.allow("k", now.Add(time.Second))
	assert.True(t, ok)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Now()
	rl.allow("old", now.Add(-2*time.Minute))
	rl.allow("fresh", now)

	rl.cleanup(now)

	assert.NotContains(t, rl.buckets, "old")
	assert.Contains(t, rl.buckets, "fresh")
}
