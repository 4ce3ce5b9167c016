package cache

import (
	"context"
	"sync"
	"time"

	"github.com/fiado/backend/internal/domain/shared"
)

type replayEntry struct {
	payload   []byte // nil while the request is in flight
	expiresAt time.Time
}

func (e replayEntry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// InMemoryReplayStore implements shared.ReplayStore with a map.
// State is not shared between processes.
type InMemoryReplayStore struct {
	mu        sync.Mutex
	entries   map[string]replayEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryReplayStore creates a store and starts its expiry sweeper
func NewInMemoryReplayStore() *InMemoryReplayStore {
	return newInMemoryReplayStore(5 * time.Minute)
}

func newInMemoryReplayStore(sweepEvery time.Duration) *InMemoryReplayStore {
	store := &InMemoryReplayStore{
		entries:  make(map[string]replayEntry),
		stopChan: make(chan struct{}),
	}
	store.wg.Add(1)
	go store.cleanupLoop(sweepEvery)
	return store
}

// Reserve claims key unless a live entry already holds it
func (s *InMemoryReplayStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if e, ok := s.entries[key]; ok && !e.expired(now) {
		return false, nil
	}
	s.entries[key] = replayEntry{expiresAt: now.Add(ttl)}
	return true, nil
}

// Complete stores the response payload for key
func (s *InMemoryReplayStore) Complete(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(payload))
	copy(stored, payload)
	s.entries[key] = replayEntry{payload: stored, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Lookup returns the stored payload for key
func (s *InMemoryReplayStore) Lookup(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.expired(time.Now()) {
		return nil, false, nil
	}
	return e.payload, true, nil
}

// Release drops key
func (s *InMemoryReplayStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Close stops the sweeper. Safe to call multiple times.
func (s *InMemoryReplayStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryReplayStore) cleanupLoop(every time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryReplayStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of entries, expired ones included until the next sweep
func (s *InMemoryReplayStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var _ shared.ReplayStore = (*InMemoryReplayStore)(nil)
