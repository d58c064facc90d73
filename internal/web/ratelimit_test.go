package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRateLimiterBurstThenDeny(t *testing.T) {
	rl := newRateLimiter(60, 3)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow("10.0.0.1"), "request %d within burst", i+1)
	}
	assert.False(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"), "clients have separate buckets")

	now = now.Add(time.Second)
	assert.True(t, rl.allow("10.0.0.1"), "one token refills per second at 60/min")
	assert.False(t, rl.allow("10.0.0.1"))
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := newRateLimiter(60, 1)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.allow("10.0.0.1")
	now = now.Add(visitorTTL / 2)
	rl.allow("10.0.0.2")
	now = now.Add(visitorTTL/2 + time.Second)

	assert.Equal(t, 1, rl.cleanup())
	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "10.0.0.2")
}

func TestRateLimiterRetryAfter(t *testing.T) {
	assert.Equal(t, 60, newRateLimiter(1, 1).retryAfter())
	assert.Equal(t, 6, newRateLimiter(10, 1).retryAfter())
	assert.Equal(t, 1, newRateLimiter(300, 1).retryAfter())
}

func TestRateLimiterMiddlewareKeysOnHost(t *testing.T) {
	rl := newRateLimiter(1, 1)
	var rejected int
	h := rl.middleware(func(w http.ResponseWriter, r *http.Request) {
		rejected++
		w.WriteHeader(http.StatusTooManyRequests)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, addr := range []string{"192.0.2.1:1000", "192.0.2.1:2000"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 1, rejected, "a new source port is the same client")
}

func TestStartMaintenanceStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testConfig()
	cfg.Rate.Enabled = true
	cfg.Rate.RequestsPerMinute = 60
	cfg.Rate.UploadLimit = 1
	c := newTestClient(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.srv.StartMaintenance(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "maintenance loop did not stop")
	}
}
