package authcore

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/MrEthical07/authcore/audit"
	"github.com/MrEthical07/authcore/model"
	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/store"
	"go.uber.org/zap"
)

// ValidateSession resolves token to a live session and checks it against
// the request context in ctx. Stale access times are refreshed and
// sessions near expiry are extended. Those writes are best effort; a
// failed write is logged and the validated session is still returned.
func (e *Engine) ValidateSession(ctx context.Context, token string) (*model.Session, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}
	now := e.clock.Now()

	s, err := e.resolveSession(ctx, token)
	if err != nil {
		return nil, err
	}

	if v := session.CheckValidity(s, now); !v.Valid {
		e.metricInc(MetricSessionRejected)
		return nil, deny(v.Reason)
	}

	// A mismatch rejects the request but leaves the session alone; the
	// rightful holder keeps working.
	if c := session.ValidateContext(*s, requestFromContext(ctx), e.config.SessionSecurity); !c.Valid {
		e.metricInc(MetricSessionRejected)
		e.metricInc(MetricSessionContextMismatch)
		e.logger.Warn("session context mismatch",
			zap.String("session_id", s.ID),
			zap.String("user_id", s.UserID),
			zap.String("reason", string(c.Reason)))
		return nil, deny(c.Reason)
	}

	p := e.config.Session
	var d model.SessionDelta
	if session.ShouldRefreshAccessTime(*s, now, p) {
		d = session.PrepareAccessRefresh(*s, now)
	}
	if session.ShouldExtend(*s, now, p) {
		d.ExpiresAt = session.PrepareExtension(*s, now, p).ExpiresAt
		e.metricInc(MetricSessionExtended)
	}
	if d.Empty() {
		return s, nil
	}

	updated, err := e.sessions.Update(ctx, s.ID, d)
	if err != nil {
		e.logger.Warn("session touch failed",
			zap.String("session_id", s.ID),
			zap.String("user_id", s.UserID),
			zap.Error(err))
		applied := s.Apply(d)
		return &applied, nil
	}
	return updated, nil
}

func (e *Engine) resolveSession(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, deny(model.ReasonSessionNotFound)
	}

	var (
		s   *model.Session
		err error
	)
	if v, ok := e.tokens.(TokenVerifier); ok {
		sid, verr := v.Verify(token)
		if verr != nil {
			e.metricInc(MetricSessionRejected)
			return nil, deny(model.ReasonSessionNotFound)
		}
		s, err = e.sessions.Get(ctx, sid)
		if err == nil && subtle.ConstantTimeCompare([]byte(s.Token), []byte(token)) != 1 {
			s, err = nil, store.ErrNotFound
		}
	} else {
		s, err = e.sessions.GetByToken(ctx, token)
	}

	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.metricInc(MetricSessionRejected)
			return nil, deny(model.ReasonSessionNotFound)
		}
		return nil, unavailable(ErrStoreUnavailable, err)
	}
	return s, nil
}

// Logout revokes one session. Revoking an already revoked session is a
// no-op.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	now := e.clock.Now()

	s, err := e.getSession(ctx, sessionID)
	if err != nil {
		return err
	}

	unlock := e.lockUser(s.UserID)
	defer unlock()

	revoked, err := e.revoke(ctx, *s, now)
	if err != nil || !revoked {
		return err
	}
	e.emit(ctx, audit.Logout(e.sessionMeta(ctx, *s, now), s.ID))
	return nil
}

// LogoutAll revokes every live session of userID and returns how many
// were revoked.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	now := e.clock.Now()

	unlock := e.lockUser(userID)
	defer unlock()

	list, err := e.sessions.ListByUser(ctx, userID)
	if err != nil {
		return 0, unavailable(ErrStoreUnavailable, err)
	}

	n := 0
	for _, s := range list {
		revoked, err := e.revoke(ctx, s, now)
		if err != nil {
			return n, err
		}
		if !revoked {
			continue
		}
		n++
		e.emit(ctx, audit.SessionRevoked(e.sessionMeta(ctx, s, now), s.ID, model.ReasonNone))
	}
	return n, nil
}

// CleanupSessions deletes the sessions of userID that expired or were
// revoked more than the cleanup grace ago.
func (e *Engine) CleanupSessions(ctx context.Context, userID string) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	now := e.clock.Now()

	list, err := e.sessions.ListByUser(ctx, userID)
	if err != nil {
		return 0, unavailable(ErrStoreUnavailable, err)
	}

	n := 0
	for _, s := range list {
		if !session.ShouldCleanup(s, now, e.config.Session) {
			continue
		}
		if err := e.sessions.Delete(ctx, s.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return n, unavailable(ErrStoreUnavailable, err)
		}
		n++
		e.metricInc(MetricSessionCleanup)
	}
	if n > 0 {
		e.logger.Debug("sessions cleaned up", zap.String("user_id", userID), zap.Int("count", n))
	}
	return n, nil
}

// SessionHistory summarizes every stored session of userID.
func (e *Engine) SessionHistory(ctx context.Context, userID string) (session.History, error) {
	if err := e.ready(); err != nil {
		return session.History{}, err
	}
	list, err := e.sessions.ListByUser(ctx, userID)
	if err != nil {
		return session.History{}, unavailable(ErrStoreUnavailable, err)
	}
	return session.Summarize(list, e.clock.Now()), nil
}

func (e *Engine) getSession(ctx context.Context, id string) (*model.Session, error) {
	s, err := e.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, deny(model.ReasonSessionNotFound)
		}
		return nil, unavailable(ErrStoreUnavailable, err)
	}
	return s, nil
}

// revoke reports false when s was already revoked or has vanished.
func (e *Engine) revoke(ctx context.Context, s model.Session, now time.Time) (bool, error) {
	if s.Revoked() {
		return false, nil
	}
	updated, err := e.sessions.Update(ctx, s.ID, session.PrepareRevocation(s, now))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, unavailable(ErrStoreUnavailable, err)
	}
	// Another writer may have revoked first; its timestamp wins.
	if updated.RevokedAt == nil || updated.RevokedAt.UnixMicro() != now.UnixMicro() {
		return false, nil
	}
	e.metricInc(MetricSessionRevoked)
	return true, nil
}

func (e *Engine) sessionMeta(ctx context.Context, s model.Session, now time.Time) audit.Meta {
	rc := requestFromContext(ctx)
	if u, err := e.loadUser(ctx, s.UserID); err == nil && u != nil {
		return audit.SelfMeta(*u, rc, now)
	}
	return audit.Meta{
		Actor:   audit.Actor{ID: s.UserID},
		Target:  audit.Target{UserID: s.UserID},
		Request: rc,
		At:      now,
	}
}
