package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore/model"
	"github.com/MrEthical07/authcore/store"
	"github.com/redis/go-redis/v9"
)

// Users is a Redis-backed user repository.
type Users struct {
	redis redis.UniversalClient
	keys  keys
}

func NewUsers(client redis.UniversalClient, namespace string) *Users {
	return &Users{redis: client, keys: newKeys(namespace)}
}

// Put inserts or replaces u. The email index must not point at another
// account.
func (r *Users) Put(ctx context.Context, u model.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}

	owner, err := r.redis.Get(ctx, r.keys.email(u.Email)).Result()
	switch {
	case err == nil && owner != u.ID:
		return fmt.Errorf("%w: email %s", store.ErrExists, u.Email)
	case err != nil && !isNil(err):
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var staleEmailKey string
	prev, err := r.GetByID(ctx, u.ID)
	switch {
	case err == nil:
		if k := r.keys.email(prev.Email); k != r.keys.email(u.Email) {
			staleEmailKey = k
		}
	case !errors.Is(err, store.ErrNotFound):
		return err
	}

	_, err = r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.keys.user(u.ID), data, 0)
		pipe.Set(ctx, r.keys.email(u.Email), u.ID, 0)
		if staleEmailKey != "" {
			pipe.Del(ctx, staleEmailKey)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (r *Users) GetByID(ctx context.Context, id string) (*model.User, error) {
	data, err := r.redis.Get(ctx, r.keys.user(id)).Bytes()
	if err != nil {
		if isNil(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var u model.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", id, err)
	}
	return &u, nil
}

func (r *Users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	id, err := r.redis.Get(ctx, r.keys.email(email)).Result()
	if err != nil {
		if isNil(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return r.GetByID(ctx, id)
}

// Update applies fn's delta with optimistic concurrency. The user key is
// watched; a concurrent writer aborts the transaction and fn runs again on
// the fresh snapshot.
func (r *Users) Update(ctx context.Context, id string, fn store.UserMutator) (*model.User, error) {
	key := r.keys.user(id)

	for i := 0; i < maxWatchRetries; i++ {
		var (
			out   *model.User
			fnErr error
		)
		err := r.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}
			var current model.User
			if err := json.Unmarshal(data, &current); err != nil {
				return err
			}

			d, err := fn(current)
			if err != nil {
				fnErr = err
				return err
			}
			if d.Empty() {
				out = &current
				return nil
			}

			next := current.Apply(d)
			encoded, err := json.Marshal(next)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				return nil
			})
			if err == nil {
				out = &next
			}
			return err
		}, key)

		switch {
		case errors.Is(err, redis.TxFailedErr):
			continue
		case fnErr != nil:
			return nil, fnErr
		case isNil(err):
			return nil, store.ErrNotFound
		case err != nil:
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return out, nil
	}

	return nil, store.ErrConflict
}

// ConsumeBackupCode marks code used if it is still unused. Two callers
// racing on the same code cannot both observe true.
func (r *Users) ConsumeBackupCode(ctx context.Context, id, code string) (bool, error) {
	var consumed bool
	if _, err := r.Update(ctx, id, store.ConsumeBackupCode(code, &consumed)); err != nil {
		return false, err
	}
	return consumed, nil
}
