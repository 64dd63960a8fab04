package cache

import (
	"context"
	"sync"
	"time"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
)

// VerifierTTL is how long a pending OAuth flow stays valid.
const VerifierTTL = 10 * time.Minute

// MemoryVerifierStore keeps pending flows in process memory. All operations share a
// single critical section; expired entries are swept lazily on every Put and Take.
type MemoryVerifierStore struct {
	mu      sync.Mutex
	entries map[string]model.PendingVerifier
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryVerifierStore(ttl time.Duration) *MemoryVerifierStore {
	if ttl <= 0 {
		ttl = VerifierTTL
	}
	return &MemoryVerifierStore{
		entries: make(map[string]model.PendingVerifier),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (s *MemoryVerifierStore) WithClock(now func() time.Time) *MemoryVerifierStore {
	s.now = now
	return s
}

func (s *MemoryVerifierStore) Put(_ context.Context, state, ownerID string, provider model.ProviderID, codeVerifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now, s.ttl)
	if _, exists := s.entries[state]; exists {
		return model.ErrStateCollision
	}
	s.entries[state] = model.PendingVerifier{
		State:        state,
		OwnerID:      ownerID,
		ProviderID:   provider,
		CodeVerifier: codeVerifier,
		CreatedAt:    now,
	}
	return nil
}

func (s *MemoryVerifierStore) Take(_ context.Context, state string) (*model.PendingVerifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now(), s.ttl)
	v, ok := s.entries[state]
	if !ok {
		return nil, model.ErrVerifierNotFound
	}
	delete(s.entries, state)
	return &v, nil
}

func (s *MemoryVerifierStore) SweepExpired(_ context.Context, now time.Time, maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now, maxAge), nil
}

func (s *MemoryVerifierStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryVerifierStore) sweepLocked(now time.Time, maxAge time.Duration) int {
	cutoff := now.Add(-maxAge)
	removed := 0
	for state, v := range s.entries {
		if !v.CreatedAt.After(cutoff) {
			delete(s.entries, state)
			removed++
		}
	}
	return removed
}

var _ repository.IVerifierStore = (*MemoryVerifierStore)(nil)
