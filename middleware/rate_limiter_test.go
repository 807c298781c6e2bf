package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitMiddlewareThrottles(t *testing.T) {
	handler := RateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var limited bool
	for i := 0; i < visitorBurst+5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/search", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	assert.True(t, limited, "burst above the bucket size must hit 429")
}

func TestEvictIdleVisitors(t *testing.T) {
	getLimiter("198.51.100.9")

	evictIdleVisitors(time.Now().Add(visitorTTL + time.Minute))

	mu.Lock()
	_, ok := visitors["198.51.100.9"]
	mu.Unlock()
	assert.False(t, ok)
}
