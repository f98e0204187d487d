package middleware

import (
	"net/http"
	"sync"
	"time"

	"keiteki/pkg/logger"
)

// The kiosk tags requests with the selected resident so one resident
// hammering the touch screen cannot starve the rest of the building.

type ResidentExtractor func(r *http.Request) string

type ResidentRateLimiter struct {
	mu        sync.RWMutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	extractor ResidentExtractor
	log       *logger.Logger
	stopCh    chan struct{}
}

func NewResidentRateLimiter(limit int, window time.Duration, extractor ResidentExtractor, log *logger.Logger) *ResidentRateLimiter {
	limiter := &ResidentRateLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		window:    window,
		extractor: extractor,
		log:       log,
		stopCh:    make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *ResidentRateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for key, timestamps := range rl.requests {
				if len(timestamps) == 0 || time.Since(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *ResidentRateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *ResidentRateLimiter) Allow(residentKey string) bool {
	if residentKey == "" {
		return true
	}

	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	valid := make([]time.Time, 0, len(rl.requests[residentKey]))
	for _, ts := range rl.requests[residentKey] {
		if now.Sub(ts) < rl.window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[residentKey] = valid
		return false
	}

	rl.requests[residentKey] = append(valid, now)
	return true
}

func ResidentRateLimit(limiter *ResidentRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			residentKey := limiter.extractor(r)

			if residentKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(residentKey) {
				limiter.log.Warn("Rate limit exceeded",
					"request_id", requestIDFrom(r),
					"resident_key", residentKey,
					"path", r.URL.Path,
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"Rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func DefaultResidentExtractor(r *http.Request) string {
	return r.Header.Get("X-Resident-Key")
}
