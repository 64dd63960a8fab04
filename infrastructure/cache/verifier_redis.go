package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

type hasher interface {
	Hash(input string) string
}

// RedisVerifierStore shares pending flows between instances. Keys are a digest of the
// state so raw states never sit in redis; expiry is enforced by the key TTL.
type RedisVerifierStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	hasher hasher
	now    func() time.Time
}

func NewRedisVerifierStore(client *redis.Client, prefix string, ttl time.Duration, h hasher) *RedisVerifierStore {
	if ttl <= 0 {
		ttl = VerifierTTL
	}
	return &RedisVerifierStore{client: client, prefix: prefix, ttl: ttl, hasher: h, now: time.Now}
}

func (s *RedisVerifierStore) key(state string) string {
	return s.prefix + s.hasher.Hash(state)
}

func (s *RedisVerifierStore) Put(ctx context.Context, state, ownerID string, provider model.ProviderID, codeVerifier string) error {
	payload, err := json.Marshal(model.PendingVerifier{
		State:        state,
		OwnerID:      ownerID,
		ProviderID:   provider,
		CodeVerifier: codeVerifier,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.key(state), payload, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("store verifier: %w", err)
	}
	if !ok {
		return model.ErrStateCollision
	}
	return nil
}

func (s *RedisVerifierStore) Take(ctx context.Context, state string) (*model.PendingVerifier, error) {
	raw, err := s.client.GetDel(ctx, s.key(state)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrVerifierNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("take verifier: %w", err)
	}
	var v model.PendingVerifier
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode verifier: %w", err)
	}
	if !v.CreatedAt.After(s.now().Add(-s.ttl)) {
		return nil, model.ErrVerifierNotFound
	}
	return &v, nil
}

// SweepExpired removes entries older than maxAge. Key TTLs already bound the lifetime,
// so this only matters when maxAge is shorter than the configured TTL.
func (s *RedisVerifierStore) SweepExpired(ctx context.Context, now time.Time, maxAge time.Duration) (int, error) {
	cutoff := now.Add(-maxAge)
	removed := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return removed, err
		}
		var v model.PendingVerifier
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			logger.GetLogger().WithField("key", key).Warn("dropping undecodable verifier entry")
		} else if v.CreatedAt.After(cutoff) {
			continue
		}
		n, err := s.client.Del(ctx, key).Result()
		if err != nil {
			return removed, err
		}
		removed += int(n)
	}
	return removed, iter.Err()
}

var _ repository.IVerifierStore = (*RedisVerifierStore)(nil)
