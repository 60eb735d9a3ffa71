package challenge

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. Expiry is checked against the
// caller's clock on read.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Challenge
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Challenge)}
}

func (s *MemoryStore) Save(_ context.Context, id string, c *Challenge, _ time.Duration) error {
	s.mu.Lock()
	s.records[id] = *c
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string, now time.Time) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if c.Expired(now) {
		delete(s.records, id)
		return nil, ErrExpired
	}
	return &c, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.records[id]
	delete(s.records, id)
	return ok, nil
}

func (s *MemoryStore) RecordFailure(_ context.Context, id string, maxAttempts int, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.records[id]
	if !ok {
		return false, ErrNotFound
	}
	if c.Expired(now) {
		delete(s.records, id)
		return false, ErrExpired
	}

	c.Attempts++
	if maxAttempts > 0 && int(c.Attempts) >= maxAttempts {
		delete(s.records, id)
		return true, nil
	}
	s.records[id] = c
	return false, nil
}
