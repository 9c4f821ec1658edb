package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRevocationStore keeps revoked token identifiers in Redis with a TTL
// equal to the token's remaining lifetime, so entries disappear on their
// own once the token could no longer be used anyway.
type RedisRevocationStore struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisRevocationStore builds a store using keys of the form
// "<prefix>:<jti>".  An empty prefix defaults to "revoked".
func NewRedisRevocationStore(rdb *redis.Client, prefix string) *RedisRevocationStore {
	if prefix == "" {
		prefix = "revoked"
	}
	return &RedisRevocationStore{rdb: rdb, prefix: prefix, now: time.Now}
}

func (s *RedisRevocationStore) key(jti string) string { return s.prefix + ":" + jti }

// Revoke records jti until expiresAt.  A token that has already expired
// needs no record; SET overwrites so repeated calls are harmless.
func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	// Redis EX granularity is one second; round up so the record never
	// expires before the token does.
	if rem := ttl % time.Second; rem != 0 {
		ttl += time.Second - rem
	}
	if err := s.rdb.Set(ctx, s.key(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti is present in the set.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis revocation lookup: %w", err)
	}
	return n > 0, nil
}
