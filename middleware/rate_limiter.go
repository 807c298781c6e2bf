package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Per-IP limits. A mobile client syncing a backlog of progress entries bursts
// well above its steady rate, so the bucket is deep relative to the refill.
const (
	visitorRate  rate.Limit = 5
	visitorBurst            = 30
	visitorTTL              = 3 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	visitors = make(map[string]*visitor)
	mu       sync.Mutex
)

// RateLimitMiddleware throttles requests per client IP, preferring the
// X-Forwarded-For address when the service runs behind a proxy.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.Header.Get("X-Forwarded-For")
		if ip == "" {
			ip, _, _ = net.SplitHostPort(r.RemoteAddr)
		}

		if !getLimiter(ip).Allow() {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func getLimiter(ip string) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	v, ok := visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(visitorRate, visitorBurst)}
		visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// StartVisitorCleanup evicts limiter entries idle longer than visitorTTL
// until ctx is cancelled.
func StartVisitorCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				evictIdleVisitors(time.Now())
			}
		}
	}()
}

func evictIdleVisitors(now time.Time) {
	mu.Lock()
	defer mu.Unlock()
	for ip, v := range visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(visitors, ip)
		}
	}
}
