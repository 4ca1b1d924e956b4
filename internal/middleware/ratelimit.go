package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimit caps mutating requests per authenticated user (falling back to
// the remote address before auth). Limiters are evicted lazily after an hour
// of inactivity.
func RateLimit(perSecond rate.Limit, burst int) func(http.Handler) http.Handler {
	type entry struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}
	var mu sync.Mutex
	entries := map[string]*entry{}

	get := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		now := time.Now()
		if len(entries) > 1024 {
			for k, e := range entries {
				if now.Sub(e.lastSeen) > time.Hour {
					delete(entries, k)
				}
			}
		}
		e, ok := entries[key]
		if !ok {
			e = &entry{limiter: rate.NewLimiter(perSecond, burst)}
			entries[key] = e
		}
		e.lastSeen = now
		return e.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := UserIDFromContext(r.Context())
			if !ok {
				key = r.RemoteAddr
			}
			if !get(key).Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
