package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"social-scheduler/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryVerifierStore_PutTake(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryVerifierStore(VerifierTTL)

	require.NoError(t, store.Put(ctx, "s1", "owner-1", model.ProviderTwitter, "verifier-1"))

	v, err := store.Take(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", v.OwnerID)
	assert.Equal(t, "verifier-1", v.CodeVerifier)
	assert.Equal(t, model.ProviderTwitter, v.ProviderID)

	_, err = store.Take(ctx, "s1")
	assert.ErrorIs(t, err, model.ErrVerifierNotFound)

	_, err = store.Take(ctx, "never-issued")
	assert.ErrorIs(t, err, model.ErrVerifierNotFound)
}

func TestMemoryVerifierStore_Collision(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryVerifierStore(VerifierTTL)
	require.NoError(t, store.Put(ctx, "dup", "owner-1", model.ProviderTwitter, "a"))
	assert.ErrorIs(t, store.Put(ctx, "dup", "owner-2", model.ProviderTwitter, "b"), model.ErrStateCollision)

	v, err := store.Take(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", v.OwnerID)
}

func TestMemoryVerifierStore_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryVerifierStore(VerifierTTL).WithClock(clock.Now)

	require.NoError(t, store.Put(ctx, "old", "owner", model.ProviderLinkedIn, ""))
	clock.Advance(6 * time.Minute)
	require.NoError(t, store.Put(ctx, "young", "owner", model.ProviderLinkedIn, ""))
	clock.Advance(5 * time.Minute)

	removed, err := store.SweepExpired(ctx, clock.Now(), VerifierTTL)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())

	_, err = store.Take(ctx, "old")
	assert.ErrorIs(t, err, model.ErrVerifierNotFound)
	_, err = store.Take(ctx, "young")
	assert.NoError(t, err)
}

func TestMemoryVerifierStore_LazyExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryVerifierStore(VerifierTTL).WithClock(clock.Now)

	require.NoError(t, store.Put(ctx, "s", "owner", model.ProviderTwitter, "v"))
	clock.Advance(VerifierTTL + time.Second)

	_, err := store.Take(ctx, "s")
	assert.ErrorIs(t, err, model.ErrVerifierNotFound)

	// an expired state may be issued again
	assert.NoError(t, store.Put(ctx, "s", "owner", model.ProviderTwitter, "v2"))
}

func TestMemoryVerifierStore_ConcurrentTakeConsumesOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryVerifierStore(VerifierTTL)
	for i := 0; i < 20; i++ {
		require.NoError(t, store.Put(ctx, fmt.Sprintf("state-%d", i), "owner", model.ProviderTwitter, "v"))
	}

	var wins int64
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if _, err := store.Take(ctx, fmt.Sprintf("state-%d", i)); err == nil {
					atomic.AddInt64(&wins, 1)
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(20), wins)
	assert.Zero(t, store.Len())
}
