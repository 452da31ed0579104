// Package kvstate holds the ephemeral concurrency bookkeeping: TTL
// advisory locks, cooldown stamps, and short-lived response caches.
// Losing a race here returns busy/stale to the caller; nothing durable
// lives in this package, so wiping it only widens a race window. The
// Store interface keeps the backing swappable for multi-instance
// deployments.
package kvstate

import (
	"context"
	"sync"
	"time"
)

type Store interface {
	// TryAcquire takes the advisory lock unless a live holder exists.
	// A crashed holder self-heals once the TTL elapses.
	TryAcquire(key string, ttl time.Duration) bool
	Release(key string)

	// SetCooldown stamps the key; CooldownRemaining reports how long
	// until it clears, zero when expired or absent.
	SetCooldown(key string, d time.Duration)
	CooldownRemaining(key string) time.Duration

	// Put stores a value; GetIfFresh returns it only while younger
	// than maxAge.
	Put(key string, value any)
	GetIfFresh(key string, maxAge time.Duration) (any, bool)

	// IncrWindow bumps the fixed-window counter for the key and
	// returns the count in the current window plus when it resets.
	IncrWindow(key string, window time.Duration) (int, time.Time)
}

type entry struct {
	value     any
	expiresAt time.Time
	storedAt  time.Time
}

type windowCounter struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

// MemoryStore is the single-instance implementation over sync.Map.
type MemoryStore struct {
	locks     sync.Map
	cooldowns sync.Map
	values    sync.Map
	counters  sync.Map
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) TryAcquire(key string, ttl time.Duration) bool {
	now := time.Now()
	e := entry{expiresAt: now.Add(ttl)}

	prev, loaded := s.locks.LoadOrStore(key, e)
	if !loaded {
		return true
	}
	if now.Before(prev.(entry).expiresAt) {
		return false
	}
	// Expired holder: exactly one racing caller may steal the slot.
	return s.locks.CompareAndSwap(key, prev, e)
}

func (s *MemoryStore) Release(key string) {
	s.locks.Delete(key)
}

func (s *MemoryStore) SetCooldown(key string, d time.Duration) {
	s.cooldowns.Store(key, time.Now().Add(d))
}

func (s *MemoryStore) CooldownRemaining(key string) time.Duration {
	if until, exists := s.cooldowns.Load(key); exists {
		if remaining := time.Until(until.(time.Time)); remaining > 0 {
			return remaining
		}
	}
	return 0
}

func (s *MemoryStore) Put(key string, value any) {
	s.values.Store(key, entry{value: value, storedAt: time.Now()})
}

func (s *MemoryStore) GetIfFresh(key string, maxAge time.Duration) (any, bool) {
	if v, exists := s.values.Load(key); exists {
		e := v.(entry)
		if time.Since(e.storedAt) <= maxAge {
			return e.value, true
		}
	}
	return nil, false
}

func (s *MemoryStore) IncrWindow(key string, window time.Duration) (int, time.Time) {
	v, _ := s.counters.LoadOrStore(key, &windowCounter{})
	c := v.(*windowCounter)

	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if !now.Before(c.resetAt) {
		c.count = 0
		c.resetAt = now.Truncate(window).Add(window)
	}
	c.count++
	return c.count, c.resetAt
}

func (s *MemoryStore) cleanupExpired() {
	now := time.Now()

	s.locks.Range(func(key, value interface{}) bool {
		if now.After(value.(entry).expiresAt) {
			s.locks.Delete(key)
		}
		return true
	})

	s.cooldowns.Range(func(key, value interface{}) bool {
		if now.After(value.(time.Time)) {
			s.cooldowns.Delete(key)
		}
		return true
	})

	// Response caches have per-read maxAge; drop anything nobody could
	// still consider fresh.
	s.values.Range(func(key, value interface{}) bool {
		if now.Sub(value.(entry).storedAt) > time.Hour {
			s.values.Delete(key)
		}
		return true
	})

	s.counters.Range(func(key, value interface{}) bool {
		c := value.(*windowCounter)
		c.mu.Lock()
		stale := now.After(c.resetAt)
		c.mu.Unlock()
		if stale {
			s.counters.Delete(key)
		}
		return true
	})
}

func (s *MemoryStore) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired()
			}
		}
	}()
}
