package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "amc"

// RedisStore keeps challenges as versioned binary records with a TTL.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, namespace string) *RedisStore {
	prefix := keyPrefix
	if namespace != "" {
		prefix = namespace + ":" + keyPrefix
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":" + id
}

func (s *RedisStore) Save(ctx context.Context, id string, c *Challenge, ttl time.Duration) error {
	encoded, err := encode(c)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(id), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string, now time.Time) (*Challenge, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	c, err := decode(data)
	if err != nil {
		return nil, err
	}
	if c.Expired(now) {
		_, _ = s.redis.Del(ctx, s.key(id)).Result()
		return nil, ErrExpired
	}
	return c, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return n > 0, nil
}

// RecordFailure bumps the attempt counter under WATCH and removes the
// challenge once maxAttempts is reached. It reports whether that happened.
func (s *RedisStore) RecordFailure(ctx context.Context, id string, maxAttempts int, now time.Time) (bool, error) {
	const maxRetries = 4
	key := s.key(id)

	for i := 0; i < maxRetries; i++ {
		var exceeded bool
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}
			c, err := decode(data)
			if err != nil {
				return err
			}

			ttl := time.Unix(c.ExpiresAt, 0).Sub(now)
			if c.Expired(now) || ttl <= 0 {
				if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				}); err != nil {
					return err
				}
				return ErrExpired
			}

			c.Attempts++
			if maxAttempts > 0 && int(c.Attempts) >= maxAttempts {
				exceeded = true
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			updated, err := encode(c)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return false, ErrNotFound
			}
			if errors.Is(err, ErrExpired) {
				return false, err
			}
			return false, fmt.Errorf("%w: %v", ErrBackend, err)
		}
		return exceeded, nil
	}

	return false, fmt.Errorf("%w: too much contention", ErrBackend)
}
