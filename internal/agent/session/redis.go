package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lepestok-ai/server/internal/agent/model"
	errx "github.com/lepestok-ai/server/internal/core/error"
	logx "github.com/lepestok-ai/server/pkg/logger"
)

// RedisStore persists each session as a single JSON document under
// session:<id>, with the key TTL doing the expiry work. The ExpiresAt field
// is still maintained so readers of the session value see the same contract
// as with the memory driver.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration

	now func() time.Time
}

// NewRedisStore builds a Redis-backed session store.
func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func (s *RedisStore) sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

func (s *RedisStore) load(ctx context.Context, id string) (*model.Session, error) {
	val, err := s.rdb.Get(ctx, s.sessionKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errx.ErrNotFound
		}
		logx.Error().Err(err).Str("session_id", id).Msg("failed to load session from redis")
		return nil, errx.WrapRedis(err)
	}

	var stored model.Session
	if err := json.Unmarshal([]byte(val), &stored); err != nil {
		logx.Error().Err(err).Str("session_id", id).Msg("failed to unmarshal session")
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	// Defense against a key whose TTL outlived the logical expiry.
	if stored.Expired(s.now()) {
		_ = s.rdb.Del(ctx, s.sessionKey(id)).Err()
		return nil, errx.ErrNotFound
	}
	return &stored, nil
}

func (s *RedisStore) save(ctx context.Context, stored *model.Session) error {
	b, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, s.sessionKey(stored.ID), b, s.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("session_id", stored.ID).Msg("failed to save session to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

// GetOrCreate implements Store.
func (s *RedisStore) GetOrCreate(ctx context.Context, id string) (*model.Session, error) {
	if id == "" {
		id = uuid.NewString()
	}

	stored, err := s.load(ctx, id)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, errx.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	created := &model.Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.save(ctx, created); err != nil {
		return nil, err
	}
	logx.Debug().Str("session_id", id).Msg("session created")
	return created, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (*model.Session, error) {
	return s.load(ctx, id)
}

// Update implements Store. Read-modify-write without a WATCH: concurrent
// turns for the same session resolve last-write-wins by contract.
func (s *RedisStore) Update(ctx context.Context, id string, mutate func(*model.Session)) (*model.Session, error) {
	stored, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	mutate(stored)
	now := s.now()
	stored.UpdatedAt = now
	stored.ExpiresAt = now.Add(s.ttl)
	if err := s.save(ctx, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.sessionKey(id)).Err(); err != nil {
		logx.Error().Err(err).Str("session_id", id).Msg("failed to delete session from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

// Stats implements Store. Redis expires keys natively, so Expired is
// always zero here.
func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, "session:*", 100).Result()
		if err != nil {
			return Stats{}, errx.WrapRedis(err)
		}
		stats.Live += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return stats, nil
}

// Close implements Store. The client lifecycle belongs to the caller that
// constructed it.
func (s *RedisStore) Close() error {
	return nil
}

var _ Store = (*RedisStore)(nil)
