package challenge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, "test"), mr
}

func stores(t *testing.T) map[string]Store {
	rs, _ := newRedisStore(t)
	return map[string]Store{
		"redis":  rs,
		"memory": NewMemoryStore(),
	}
}

func sample(now time.Time) *Challenge {
	return &Challenge{
		UserID:    "u-1",
		TenantID:  "t-1",
		IPAddress: "10.0.0.1",
		UserAgent: "agent/1.0",
		RiskScore: 70,
		ExpiresAt: now.Add(5 * time.Minute).Unix(),
	}
}

func TestEncodeDecodePreservesFields(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	in := sample(now)
	in.Attempts = 2

	raw, err := encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *out != *in {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}

	raw[0] = 9
	if _, err := decode(raw); err == nil {
		t.Fatal("expected version error")
	}
}

func TestStoreLifecycle(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Save(ctx, "c1", sample(now), 5*time.Minute); err != nil {
				t.Fatalf("Save: %v", err)
			}

			got, err := s.Get(ctx, "c1", now)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.UserID != "u-1" || got.UserAgent != "agent/1.0" || got.RiskScore != 70 {
				t.Fatalf("unexpected challenge: %+v", got)
			}

			ok, err := s.Delete(ctx, "c1")
			if err != nil || !ok {
				t.Fatalf("first Delete = %v, %v", ok, err)
			}
			ok, err = s.Delete(ctx, "c1")
			if err != nil || ok {
				t.Fatalf("second Delete = %v, %v; want false", ok, err)
			}

			if _, err := s.Get(ctx, "c1", now); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStoreExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_ = s.Save(ctx, "c2", sample(now), 5*time.Minute)

			later := now.Add(6 * time.Minute)
			if _, err := s.Get(ctx, "c2", later); !errors.Is(err, ErrExpired) {
				t.Fatalf("expected ErrExpired, got %v", err)
			}
			if _, err := s.Get(ctx, "c2", now); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expired challenge should be removed, got %v", err)
			}
		})
	}
}

func TestRecordFailureExhaustsAttempts(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_ = s.Save(ctx, "c3", sample(now), 5*time.Minute)

			for i := 1; i < 3; i++ {
				exceeded, err := s.RecordFailure(ctx, "c3", 3, now)
				if err != nil {
					t.Fatalf("RecordFailure %d: %v", i, err)
				}
				if exceeded {
					t.Fatalf("attempt %d should not exceed", i)
				}
			}

			got, err := s.Get(ctx, "c3", now)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Attempts != 2 {
				t.Fatalf("expected 2 attempts, got %d", got.Attempts)
			}

			exceeded, err := s.RecordFailure(ctx, "c3", 3, now)
			if err != nil || !exceeded {
				t.Fatalf("third failure = %v, %v; want exceeded", exceeded, err)
			}
			if _, err := s.Get(ctx, "c3", now); !errors.Is(err, ErrNotFound) {
				t.Fatalf("exhausted challenge should be gone, got %v", err)
			}
			if _, err := s.RecordFailure(ctx, "c3", 3, now); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestRedisStoreBackendError(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.Close()

	err := s.Save(context.Background(), "x", sample(time.Now()), time.Minute)
	if !errors.Is(err, ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
}

func TestRedisStoreUsesTTL(t *testing.T) {
	s, mr := newRedisStore(t)
	now := time.Now()
	_ = s.Save(context.Background(), "ttl", sample(now), 5*time.Minute)

	mr.FastForward(6 * time.Minute)
	if _, err := s.Get(context.Background(), "ttl", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected key to expire in redis, got %v", err)
	}
}
