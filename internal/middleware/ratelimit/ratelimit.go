// Package ratelimit caps requests per client in fixed one-minute windows.
package ratelimit

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window   = time.Minute
	staleAge = 10 * time.Minute
)

type Config struct {
	RequestsPerMinute int
}

func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60}
}

// Limiter tracks one window per client key. Stale clients are dropped by
// CleanExpired, which makes the limiter a cache.Cleaner.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
	limit   int
	now     func() time.Time

	rejected int64
}

type clientInfo struct {
	windowStart time.Time
	lastSeen    time.Time
	requests    int
}

func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config = DefaultConfig()
	}
	return &Limiter{
		clients: make(map[string]*clientInfo),
		limit:   config.RequestsPerMinute,
		now:     time.Now,
	}
}

// Allow counts a request for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[key]
	if !ok || now.Sub(c.windowStart) >= window {
		l.clients[key] = &clientInfo{windowStart: now, lastSeen: now, requests: 1}
		return true
	}
	c.lastSeen = now
	c.requests++
	if c.requests > l.limit {
		atomic.AddInt64(&l.rejected, 1)
		return false
	}
	return true
}

// CleanExpired forgets clients idle for ten minutes.
func (l *Limiter) CleanExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-staleAge)
	n := 0
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			n++
		}
	}
	return n
}

func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Rejected is the number of requests refused since start.
func (l *Limiter) Rejected() int64 {
	return atomic.LoadInt64(&l.rejected)
}

// Middleware rejects over-limit requests with 429. onLimit, when set,
// writes the response instead.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(extractIP(r)) {
				w.Header().Set("Retry-After", "60")
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
