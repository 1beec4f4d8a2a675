package library

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxIdleLimiters bounds how many per-key limiters are kept before full
// buckets are swept.
const maxIdleLimiters = 1024

func defaultAuthLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(1*time.Minute), 5) // 5 requests per minute
}

// keyedLimiter hands out one token bucket per account email.
type keyedLimiter struct {
	mu       sync.Mutex
	newLimit func() *rate.Limiter
	limiters map[string]*rate.Limiter
}

func newKeyedLimiter(newLimit func() *rate.Limiter) *keyedLimiter {
	return &keyedLimiter{
		newLimit: newLimit,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow spends one token from the bucket for key.
func (k *keyedLimiter) Allow(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))

	k.mu.Lock()
	defer k.mu.Unlock()

	l, ok := k.limiters[key]
	if !ok {
		if len(k.limiters) >= maxIdleLimiters {
			k.sweep()
		}
		l = k.newLimit()
		k.limiters[key] = l
	}
	return l.Allow()
}

// sweep drops buckets that have refilled, since they behave like new ones.
func (k *keyedLimiter) sweep() {
	for key, l := range k.limiters {
		if l.Tokens() >= float64(l.Burst()) {
			delete(k.limiters, key)
		}
	}
}
