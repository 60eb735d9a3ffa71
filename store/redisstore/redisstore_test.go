package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/model"
	"github.com/MrEthical07/authcore/store"
	"github.com/MrEthical07/authcore/store/storetest"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestUsers(t *testing.T) {
	rdb, _ := newClient(t)
	storetest.Users(t, NewUsers(rdb, "test"))
}

func TestUsersConcurrentBackupCode(t *testing.T) {
	rdb, _ := newClient(t)
	storetest.ConcurrentBackupCode(t, NewUsers(rdb, "test"))
}

func TestSessions(t *testing.T) {
	rdb, _ := newClient(t)
	storetest.Sessions(t, NewSessions(rdb, "test", 0))
}

func TestUsersPutRejectsTakenEmail(t *testing.T) {
	rdb, _ := newClient(t)
	users := NewUsers(rdb, "test")
	ctx := context.Background()

	if err := users.Put(ctx, model.User{ID: "a", Email: "x@example.com"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := users.Put(ctx, model.User{ID: "b", Email: "X@example.com"}); !errors.Is(err, store.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestSessionTokenIsNotStoredAsKey(t *testing.T) {
	rdb, mr := newClient(t)
	sessions := NewSessions(rdb, "test", 0)
	now := time.Now().UTC()

	s := &model.Session{ID: "s", UserID: "u", Token: "bearer-value", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := sessions.Create(context.Background(), s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, k := range mr.Keys() {
		if k == "test:st:bearer-value" {
			t.Fatal("raw token used as key")
		}
	}
}

func TestSessionRetentionExpiresHash(t *testing.T) {
	rdb, mr := newClient(t)
	sessions := NewSessions(rdb, "test", time.Hour)
	ctx := context.Background()
	now := time.Now().UTC()

	s := &model.Session{ID: "s", UserID: "u", Token: "t", CreatedAt: now, ExpiresAt: now.Add(time.Minute)}
	if err := sessions.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := sessions.Get(ctx, "s"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected session hash to expire, got %v", err)
	}
	list, err := sessions.ListByUser(ctx, "u")
	if err != nil || len(list) != 0 {
		t.Fatalf("ListByUser = %v, %v", list, err)
	}
	if members, _ := rdb.SMembers(ctx, "test:us:u").Result(); len(members) != 0 {
		t.Fatalf("stale index entries not pruned: %v", members)
	}
}

func TestSessionExtensionKeepsTokenIndex(t *testing.T) {
	rdb, mr := newClient(t)
	sessions := NewSessions(rdb, "test", time.Hour)
	ctx := context.Background()
	now := time.Now().UTC()

	s := &model.Session{ID: "s", UserID: "u", Token: "t", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := sessions.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	extended := now.Add(48 * time.Hour)
	if _, err := sessions.Update(ctx, "s", model.SessionDelta{ExpiresAt: &extended}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	mr.FastForward(3 * time.Hour)
	if _, err := sessions.Get(ctx, "s"); err != nil {
		t.Fatalf("Get after extension: %v", err)
	}
	got, err := sessions.GetByToken(ctx, "t")
	if err != nil {
		t.Fatalf("GetByToken after extension: %v", err)
	}
	if got.ID != "s" {
		t.Fatalf("expected session s, got %q", got.ID)
	}
}

func TestSessionUpdateMissingWithRetention(t *testing.T) {
	rdb, _ := newClient(t)
	sessions := NewSessions(rdb, "test", time.Hour)
	extended := time.Now().Add(time.Hour)

	_, err := sessions.Update(context.Background(), "missing", model.SessionDelta{ExpiresAt: &extended})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUnavailable(t *testing.T) {
	rdb, mr := newClient(t)
	users := NewUsers(rdb, "test")
	mr.Close()

	if _, err := users.GetByID(context.Background(), "x"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
