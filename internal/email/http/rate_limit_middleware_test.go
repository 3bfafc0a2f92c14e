package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateLimitedRouter(t *testing.T, rps float64, burst int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	router := gin.New()
	router.Use(WebhookRateLimitMiddleware(ctx, rps, burst, testLogger()))
	router.POST("/v1/events/results", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func sendFrom(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/events/results", nil)
	req.RemoteAddr = remoteAddr
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookRateLimitMiddleware_AllowsWithinBurst(t *testing.T) {
	router := newRateLimitedRouter(t, 10, 5)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, sendFrom(router, "192.0.2.1:1234").Code)
	}
}

func TestWebhookRateLimitMiddleware_BlocksBeyondBurst(t *testing.T) {
	router := newRateLimitedRouter(t, 0.5, 1)

	assert.Equal(t, http.StatusOK, sendFrom(router, "192.0.2.1:1234").Code)

	w := sendFrom(router, "192.0.2.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")

	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retryAfter, 1)
}

func TestWebhookRateLimitMiddleware_LimitsPerClientIP(t *testing.T) {
	router := newRateLimitedRouter(t, 0.5, 1)

	assert.Equal(t, http.StatusOK, sendFrom(router, "192.0.2.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(router, "192.0.2.1:1234").Code)
	assert.Equal(t, http.StatusOK, sendFrom(router, "192.0.2.2:1234").Code)
}

func TestIPLimiterStore_EvictIdle(t *testing.T) {
	store := &ipLimiterStore{rps: 1, burst: 1}
	store.get("192.0.2.1")
	store.get("192.0.2.2")

	stale, _ := store.limiters.Load("192.0.2.1")
	entry := stale.(*ipLimiterEntry)
	entry.mu.Lock()
	entry.lastAccess = time.Now().Add(-2 * time.Hour)
	entry.mu.Unlock()

	store.evictIdle(time.Now().Add(-time.Hour))

	_, ok := store.limiters.Load("192.0.2.1")
	assert.False(t, ok)
	_, ok = store.limiters.Load("192.0.2.2")
	assert.True(t, ok)
}
