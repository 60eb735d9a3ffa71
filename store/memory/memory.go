// Package memory provides process-local user and session repositories.
// Every read returns a copy so callers never share state with the store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/MrEthical07/authcore/model"
	"github.com/MrEthical07/authcore/store"
)

// Users is an in-memory user repository.
type Users struct {
	mu      sync.RWMutex
	byID    map[string]model.User
	byEmail map[string]string
}

func NewUsers() *Users {
	return &Users{
		byID:    make(map[string]model.User),
		byEmail: make(map[string]string),
	}
}

// Put inserts or replaces u.
func (r *Users) Put(_ context.Context, u model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byID[u.ID]; ok {
		delete(r.byEmail, emailKey(old.Email))
	}
	r.byID[u.ID] = *clone(u)
	r.byEmail[emailKey(u.Email)] = u.ID
	return nil
}

func (r *Users) GetByID(_ context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(u), nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[emailKey(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(r.byID[id]), nil
}

// Update runs fn against the stored snapshot and applies its delta while
// holding the write lock.
func (r *Users) Update(_ context.Context, id string, fn store.UserMutator) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	d, err := fn(*clone(u))
	if err != nil {
		return nil, err
	}
	if !d.Empty() {
		u = u.Apply(d)
		r.byID[id] = u
	}
	return clone(u), nil
}

func (r *Users) ConsumeBackupCode(ctx context.Context, id, code string) (bool, error) {
	var consumed bool
	if _, err := r.Update(ctx, id, store.ConsumeBackupCode(code, &consumed)); err != nil {
		return false, err
	}
	return consumed, nil
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func clone(u model.User) *model.User {
	c := u
	c.MFABackupCodes = append([]string(nil), u.MFABackupCodes...)
	c.MFABackupCodesUsed = append([]string(nil), u.MFABackupCodesUsed...)
	return &c
}

// Sessions is an in-memory session repository.
type Sessions struct {
	mu      sync.RWMutex
	byID    map[string]model.Session
	byToken map[string]string
	byUser  map[string]map[string]struct{}
}

func NewSessions() *Sessions {
	return &Sessions{
		byID:    make(map[string]model.Session),
		byToken: make(map[string]string),
		byUser:  make(map[string]map[string]struct{}),
	}
}

func (r *Sessions) Create(_ context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[s.ID]; ok {
		return store.ErrExists
	}
	if _, ok := r.byToken[s.Token]; ok {
		return store.ErrExists
	}
	r.byID[s.ID] = *s
	r.byToken[s.Token] = s.ID
	ids, ok := r.byUser[s.UserID]
	if !ok {
		ids = make(map[string]struct{})
		r.byUser[s.UserID] = ids
	}
	ids[s.ID] = struct{}{}
	return nil
}

func (r *Sessions) Get(_ context.Context, id string) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (r *Sessions) GetByToken(_ context.Context, token string) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byToken[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	s := r.byID[id]
	return &s, nil
}

// ListByUser returns the user's sessions, newest first.
func (r *Sessions) ListByUser(_ context.Context, userID string) ([]model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Session, 0, len(r.byUser[userID]))
	for id := range r.byUser[userID] {
		out = append(out, r.byID[id])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Sessions) Update(_ context.Context, id string, d model.SessionDelta) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	s = s.Apply(d)
	r.byID[id] = s
	return &s, nil
}

func (r *Sessions) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byToken, s.Token)
	if ids := r.byUser[s.UserID]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(r.byUser, s.UserID)
		}
	}
	return nil
}
