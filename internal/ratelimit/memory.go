package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	janitorInterval = 5 * time.Minute
	entryIdleTTL    = time.Hour
)

type memoryEntry struct {
	attempts    int
	windowStart time.Time
	lastSeen    time.Time
}

// MemoryStore is an in-process Store backed by a mutex-guarded map.
// Suitable for single-instance deployments.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
	}
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || now.Sub(e.windowStart) >= window {
		e = &memoryEntry{windowStart: now}
		s.entries[key] = e
	}
	e.attempts++
	e.lastSeen = now

	return e.attempts, e.windowStart, nil
}

// Janitor evicts entries that have been idle for over an hour. It runs
// until the context is cancelled and is meant to be started once from main.
func (s *MemoryStore) Janitor(ctx context.Context) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.evictIdle(now)
		}
	}
}

func (s *MemoryStore) evictIdle(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if now.Sub(e.lastSeen) >= entryIdleTTL {
			delete(s.entries, key)
		}
	}
}
