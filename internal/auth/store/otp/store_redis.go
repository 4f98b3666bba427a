package otp

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	dErrors "masthead/pkg/domain-errors"
	"masthead/pkg/secrets"
)

// RedisStore keeps verification codes in Redis, letting key TTLs do
// the expiry work.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, email, codeHash string, ttl time.Duration) error {
	if err := s.client.Set(ctx, redisKey(email), codeHash, ttl).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not store verification code")
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, email, codeHash string) (bool, error) {
	key := redisKey(email)
	stored, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "could not read verification code")
	}
	if !secrets.ConstantTimeEqual(stored, codeHash) {
		return false, nil
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "could not consume verification code")
	}
	return true, nil
}

// Purge is a no-op for Redis, which expires keys on its own.
func (s *RedisStore) Purge(context.Context) (int, error) {
	return 0, nil
}

func redisKey(email string) string {
	return "otp:" + normalize(email)
}
