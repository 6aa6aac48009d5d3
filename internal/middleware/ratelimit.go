package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// sweepThreshold bounds how many windows are kept before expired ones are
// dropped.
const sweepThreshold = 1024

type window struct {
	count int
	until time.Time
}

// Limiter counts requests per key in fixed windows.
type Limiter struct {
	limit int
	per   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

func NewLimiter(limit int, per time.Duration) *Limiter {
	return &Limiter{limit: limit, per: per, now: time.Now, windows: make(map[string]*window)}
}

// Allow records one request for key. When the window is exhausted it returns
// false and the time left until the window resets.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.until) {
		w = &window{until: now.Add(l.per)}
		l.windows[key] = w
		l.sweep(now)
	}
	if w.count >= l.limit {
		return false, w.until.Sub(now)
	}
	w.count++
	return true, 0
}

// sweep is called with l.mu held.
func (l *Limiter) sweep(now time.Time) {
	if len(l.windows) < sweepThreshold {
		return
	}
	for key, w := range l.windows {
		if !now.Before(w.until) {
			delete(l.windows, key)
		}
	}
}

// RateLimit allows limit requests per window. Authenticated requests are
// counted per caller address so one client cannot drain another's quota from
// a shared address; anonymous requests are counted per client IP.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	return NewLimiter(limit, per).Middleware
}

func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + ClientIP(r)
		if caller, ok := CallerFromContext(r.Context()); ok {
			key = "caller:" + caller.String()
		}
		ok, retry := l.Allow(key)
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
