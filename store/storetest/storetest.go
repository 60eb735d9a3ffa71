// Package storetest holds behaviour checks shared by every repository
// implementation.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/model"
	"github.com/MrEthical07/authcore/store"
)

// UserRepo is the surface exercised by [Users].
type UserRepo interface {
	Put(ctx context.Context, u model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, id string, fn store.UserMutator) (*model.User, error)
	ConsumeBackupCode(ctx context.Context, id, code string) (bool, error)
}

// SessionRepo is the surface exercised by [Sessions].
type SessionRepo interface {
	Create(ctx context.Context, s *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	GetByToken(ctx context.Context, token string) (*model.Session, error)
	ListByUser(ctx context.Context, userID string) ([]model.Session, error)
	Update(ctx context.Context, id string, d model.SessionDelta) (*model.Session, error)
	Delete(ctx context.Context, id string) error
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Users checks lookup, delta updates and backup-code consumption.
func Users(t *testing.T, repo UserRepo) {
	t.Helper()
	ctx := context.Background()

	u := model.User{
		ID:             "u-1",
		Email:          "Alice@Example.com",
		Role:           "member",
		Active:         true,
		MFAEnabled:     true,
		MFABackupCodes: []string{"AAAA1111", "BBBB2222"},
	}
	if err := repo.Put(ctx, u); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := repo.GetByEmail(ctx, "  alice@example.COM")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != "u-1" {
		t.Fatalf("unexpected user %q", got.ID)
	}
	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	three := 3
	until := base.Add(15 * time.Minute)
	updated, err := repo.Update(ctx, "u-1", func(cur model.User) (model.UserDelta, error) {
		if cur.FailedLoginCount != 0 {
			t.Fatalf("unexpected starting count %d", cur.FailedLoginCount)
		}
		return model.UserDelta{FailedLoginCount: &three, LockoutUntil: model.Some(until)}, nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.FailedLoginCount != 3 || updated.LockoutUntil == nil || !updated.LockoutUntil.Equal(until) {
		t.Fatalf("delta not applied: %+v", updated)
	}

	cleared, err := repo.Update(ctx, "u-1", func(model.User) (model.UserDelta, error) {
		return model.UserDelta{LockoutUntil: model.Null[time.Time]()}, nil
	})
	if err != nil {
		t.Fatalf("Update clear: %v", err)
	}
	if cleared.LockoutUntil != nil || cleared.FailedLoginCount != 3 {
		t.Fatalf("clear should only touch LockoutUntil: %+v", cleared)
	}

	boom := errors.New("boom")
	if _, err := repo.Update(ctx, "u-1", func(model.User) (model.UserDelta, error) {
		return model.UserDelta{}, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected mutator error, got %v", err)
	}
	if _, err := repo.Update(ctx, "missing", func(model.User) (model.UserDelta, error) {
		return model.UserDelta{}, nil
	}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	ok, err := repo.ConsumeBackupCode(ctx, "u-1", "aaaa-1111")
	if err != nil || !ok {
		t.Fatalf("first consume = %v, %v", ok, err)
	}
	ok, err = repo.ConsumeBackupCode(ctx, "u-1", "AAAA1111")
	if err != nil || ok {
		t.Fatalf("second consume = %v, %v; want false", ok, err)
	}
	ok, _ = repo.ConsumeBackupCode(ctx, "u-1", "ZZZZ9999")
	if ok {
		t.Fatal("unknown code must not be consumed")
	}

	renamed := *cleared
	renamed.Email = "alice.new@example.com"
	if err := repo.Put(ctx, renamed); err != nil {
		t.Fatalf("Put renamed: %v", err)
	}
	if _, err := repo.GetByEmail(ctx, "alice@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("old email still resolves: %v", err)
	}
	got, err = repo.GetByEmail(ctx, "alice.new@example.com")
	if err != nil || got.ID != "u-1" {
		t.Fatalf("GetByEmail renamed = %v, %v", got, err)
	}
}

// ConcurrentBackupCode races workers on one code; exactly one may win.
func ConcurrentBackupCode(t *testing.T, repo UserRepo) {
	t.Helper()
	ctx := context.Background()

	u := model.User{ID: "race", Email: "race@example.com", Active: true, MFAEnabled: true, MFABackupCodes: []string{"CODE0001"}}
	if err := repo.Put(ctx, u); err != nil {
		t.Fatalf("Put: %v", err)
	}

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.ConsumeBackupCode(ctx, "race", "CODE0001")
			if err != nil && !errors.Is(err, store.ErrConflict) {
				t.Errorf("consume: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one successful consume, got %d", wins)
	}
}

// Sessions checks creation, lookups, conditional updates and deletion.
func Sessions(t *testing.T, repo SessionRepo) {
	t.Helper()
	ctx := context.Background()

	older := model.Session{
		ID: "s-1", UserID: "u-1", Token: "tok-1",
		CreatedAt: base, ExpiresAt: base.Add(24 * time.Hour),
		IPAddress: "10.0.0.1", UserAgent: "ua",
	}
	newer := model.Session{
		ID: "s-2", UserID: "u-1", Token: "tok-2",
		CreatedAt: base.Add(time.Hour), ExpiresAt: base.Add(25 * time.Hour),
	}
	for _, s := range []model.Session{older, newer} {
		s := s
		if err := repo.Create(ctx, &s); err != nil {
			t.Fatalf("Create %s: %v", s.ID, err)
		}
	}
	dup := older
	dup.ID = "s-dup"
	if err := repo.Create(ctx, &dup); !errors.Is(err, store.ErrExists) {
		t.Fatalf("expected ErrExists on reused token, got %v", err)
	}

	byTok, err := repo.GetByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if byTok.ID != "s-1" || byTok.IPAddress != "10.0.0.1" || !byTok.ExpiresAt.Equal(older.ExpiresAt) {
		t.Fatalf("unexpected session: %+v", byTok)
	}

	list, err := repo.ListByUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 2 || list[0].ID != "s-2" {
		t.Fatalf("expected newest first, got %+v", list)
	}

	t1 := base.Add(10 * time.Minute)
	t0 := base.Add(5 * time.Minute)
	if _, err := repo.Update(ctx, "s-1", model.SessionDelta{LastAccessedAt: &t1}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	s, err := repo.Update(ctx, "s-1", model.SessionDelta{LastAccessedAt: &t0})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if s.LastAccessedAt == nil || !s.LastAccessedAt.Equal(t1) {
		t.Fatalf("access time moved backwards: %v", s.LastAccessedAt)
	}

	r1 := base.Add(20 * time.Minute)
	r2 := base.Add(30 * time.Minute)
	_, _ = repo.Update(ctx, "s-1", model.SessionDelta{RevokedAt: &r1})
	s, _ = repo.Update(ctx, "s-1", model.SessionDelta{RevokedAt: &r2})
	if s.RevokedAt == nil || !s.RevokedAt.Equal(r1) {
		t.Fatalf("first revocation must win: %v", s.RevokedAt)
	}

	ext := base.Add(48 * time.Hour)
	s, err = repo.Update(ctx, "s-2", model.SessionDelta{ExpiresAt: &ext})
	if err != nil || !s.ExpiresAt.Equal(ext) {
		t.Fatalf("extension = %+v, %v", s, err)
	}

	if _, err := repo.Update(ctx, "missing", model.SessionDelta{ExpiresAt: &ext}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := repo.Delete(ctx, "s-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByToken(ctx, "tok-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("token index should be gone, got %v", err)
	}
	if err := repo.Delete(ctx, "s-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
	list, _ = repo.ListByUser(ctx, "u-1")
	if len(list) != 1 || list[0].ID != "s-2" {
		t.Fatalf("unexpected remaining sessions: %+v", list)
	}
}
