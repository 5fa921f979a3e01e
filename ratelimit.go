package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRateLimitCeiling caps verification requests per caller per window.
const DefaultRateLimitCeiling = 30

// DefaultRateLimitWindow is the window the ceiling applies to.
const DefaultRateLimitWindow = time.Minute

// RateLimiter bounds verification requests per caller. Limiter state is
// process wide; each caller key gets its own token bucket sized to the
// configured window and ceiling.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*callerLimiter
	ceiling   int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type callerLimiter struct {
	limiter *rate.Limiter
	seenAt  time.Time
}

// NewRateLimiter builds a limiter. Zero values fall back to the defaults.
func NewRateLimiter(ceiling int, window time.Duration) *RateLimiter {
	if ceiling <= 0 {
		ceiling = DefaultRateLimitCeiling
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	return &RateLimiter{
		limiters: map[string]*callerLimiter{},
		ceiling:  ceiling,
		window:   window,
		now:      time.Now,
	}
}

// Allow reports whether the caller identified by key may make another
// verification request right now.
func (l *RateLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweepLocked(now)

	entry, ok := l.limiters[key]
	if !ok {
		entry = &callerLimiter{
			limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(l.ceiling)), l.ceiling),
		}
		l.limiters[key] = entry
	}
	entry.seenAt = now

	return entry.limiter.AllowN(now, 1)
}

// sweepLocked drops buckets idle for several windows so the map stays bounded
// by active callers.
func (l *RateLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now

	idleCutoff := now.Add(-3 * l.window)
	for key, entry := range l.limiters {
		if entry.seenAt.Before(idleCutoff) {
			delete(l.limiters, key)
		}
	}
}
