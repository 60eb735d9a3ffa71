package authcore

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/MrEthical07/authcore/audit"
	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/challenge"
	"github.com/MrEthical07/authcore/internal/keylock"
	"github.com/MrEthical07/authcore/login"
	"github.com/MrEthical07/authcore/model"
	"github.com/MrEthical07/authcore/store"
	"go.uber.org/zap"
)

// Engine runs the decision core against real collaborators. It is safe
// for concurrent use. Work on one account is serialized so lockout
// counters, backup codes and audit order stay consistent.
type Engine struct {
	config Config
	policy login.Policy

	users      UserRepository
	sessions   SessionRepository
	challenges challenge.Store

	logger    *zap.Logger
	clock     Clock
	ids       IDGenerator
	tokens    TokenIssuer
	passwords PasswordVerifier
	decoyHash string
	totp      TOTPVerifier
	enroller  TOTPEnroller

	locks   *keylock.Locker
	audit   *internalaudit.Dispatcher
	metrics *Metrics
	closed  atomic.Bool
}

// Close drains pending audit entries. Calls after Close fail with
// [ErrEngineClosed].
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closed.Store(true)
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports audit entries lost to a full or cancelled queue.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() error {
	if e == nil || e.closed.Load() {
		return ErrEngineClosed
	}
	return nil
}

// lockUser serializes account work in this process. Stores still apply
// deltas atomically for deployments running several engines.
func (e *Engine) lockUser(userID string) func() {
	return e.locks.Lock("user:" + userID)
}

// loadUser maps a missing account to found == false and any other
// failure to ErrStoreUnavailable.
func (e *Engine) loadUser(ctx context.Context, userID string) (*model.User, error) {
	u, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, unavailable(ErrStoreUnavailable, err)
	}
	return u, nil
}

// emit assigns an ID and queues entry. Callers hold the account lock so
// entries for one account reach the sink in admission order.
func (e *Engine) emit(ctx context.Context, entry audit.Entry) {
	if e.audit == nil {
		return
	}
	if entry.ID == "" {
		entry = entry.WithID(e.ids.NewID())
	}
	e.audit.Emit(ctx, entry)
}
