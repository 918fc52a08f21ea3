package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/monitoring"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newLimiter(cfg Config, metrics *monitoring.Metrics) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(cfg, metrics)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter_Burst(t *testing.T) {
	rl, clock := newLimiter(Config{PerMinute: 60, Burst: 3}, nil)

	for i := 0; i < 3; i++ {
		res := rl.AllowIP("10.0.0.1")
		assert.True(t, res.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 60, res.Limit)
		assert.Equal(t, 2-i, res.Remaining)
	}

	blocked := rl.AllowIP("10.0.0.1")
	assert.False(t, blocked.Allowed)
	assert.InDelta(t, time.Second.Seconds(), blocked.RetryAfter.Seconds(), 0.01)

	assert.True(t, rl.AllowIP("10.0.0.2").Allowed, "clients are independent")

	clock.advance(time.Second)
	assert.True(t, rl.AllowIP("10.0.0.1").Allowed, "one token refills per second")
}

func TestRateLimiter_DefaultBurst(t *testing.T) {
	tests := []struct {
		perMinute int
		burst     int
	}{
		{perMinute: 60, burst: 30},
		{perMinute: 6, burst: 5},
		{perMinute: 0, burst: 30},
	}

	for _, tt := range tests {
		rl := NewRateLimiter(Config{PerMinute: tt.perMinute}, nil)
		assert.Equal(t, tt.burst, rl.GetStats()["burst"])
	}
}

func TestRateLimiter_Endpoint(t *testing.T) {
	rl, _ := newLimiter(Config{PerMinute: 600, Burst: 1}, nil)

	assert.True(t, rl.AllowEndpoint("upload", "10.0.0.1", 10).Allowed)
	assert.False(t, rl.AllowEndpoint("upload", "10.0.0.1", 10).Allowed)
	assert.True(t, rl.AllowIP("10.0.0.1").Allowed, "endpoint buckets do not drain the IP bucket")
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl, clock := newLimiter(Config{PerMinute: 60, IdleTTL: time.Minute}, nil)

	rl.AllowIP("a")
	clock.advance(30 * time.Second)
	rl.AllowIP("b")
	clock.advance(45 * time.Second)

	assert.Equal(t, 1, rl.Cleanup())
	assert.Equal(t, 1, rl.GetStats()["limiters"])
}

func TestIPRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := monitoring.NewMetrics()
	rl, _ := newLimiter(Config{PerMinute: 60, Burst: 2}, metrics)

	router := gin.New()
	router.Use(apperrors.ErrorHandler(), rl.IPRateLimitMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "192.0.2.7:5555"
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do().Code)
	second := do()
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	blocked := do()
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "1", blocked.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(blocked.Body.Bytes(), &body))
	assert.Equal(t, string(apperrors.CategoryRateLimit), body["category"])
	assert.Equal(t, int64(1), metrics.RateLimitBlocks)
}
