// Package ratelimit hands out token bucket limiters per key.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Keyed keeps one limiter per key. Once the map grows past the cleanup
// threshold, keys idle for longer than the max idle age are pruned inline.
type Keyed[K comparable] struct {
	mu               sync.Mutex
	entries          map[K]*entry
	r                rate.Limit
	b                int
	cleanupThreshold int
	maxIdleAge       time.Duration
	now              func() time.Time
}

func NewKeyed[K comparable](r rate.Limit, b, cleanupThreshold int, maxIdleAge time.Duration) *Keyed[K] {
	return &Keyed[K]{
		entries:          make(map[K]*entry),
		r:                r,
		b:                b,
		cleanupThreshold: cleanupThreshold,
		maxIdleAge:       maxIdleAge,
		now:              time.Now,
	}
}

// Get returns the key's limiter, creating it on first use.
func (k *Keyed[K]) Get(key K) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	if len(k.entries) > k.cleanupThreshold {
		cutoff := now.Add(-k.maxIdleAge)
		for id, e := range k.entries {
			if e.lastSeen.Before(cutoff) {
				delete(k.entries, id)
			}
		}
	}

	e, exists := k.entries[key]
	if !exists {
		e = &entry{limiter: rate.NewLimiter(k.r, k.b)}
		k.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// Len reports how many keys are tracked.
func (k *Keyed[K]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
