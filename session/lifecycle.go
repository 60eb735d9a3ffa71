package session

import (
	"time"

	"github.com/MrEthical07/authcore/model"
)

// Policy configures session lifetime and refresh cadence.
type Policy struct {
	Duration              time.Duration
	AccessUpdateThreshold time.Duration
	ExtendThreshold       time.Duration
	Extension             time.Duration
	CleanupGrace          time.Duration
}

// DefaultPolicy returns 24h sessions, 5m access-refresh cadence, extension
// by 24h once less than 2h remain, and a 7 day cleanup grace.
func DefaultPolicy() Policy {
	return Policy{
		Duration:              24 * time.Hour,
		AccessUpdateThreshold: 5 * time.Minute,
		ExtendThreshold:       2 * time.Hour,
		Extension:             24 * time.Hour,
		CleanupGrace:          7 * 24 * time.Hour,
	}
}

// CreateInput is the caller-supplied part of a new session.
type CreateInput struct {
	UserID    string
	TenantID  string
	IPAddress string
	UserAgent string
}

// Create builds a session. id and token must already be unique.
func Create(in CreateInput, now time.Time, id, token string, p Policy) model.Session {
	return model.Session{
		ID:        id,
		UserID:    in.UserID,
		TenantID:  in.TenantID,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(p.Duration),
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
	}
}

// Validity is the result of [CheckValidity].
type Validity struct {
	Valid  bool
	Reason model.Reason
	Detail string
}

// CheckValidity evaluates s at now. Revocation wins over expiry. A
// session is still valid at exactly ExpiresAt.
func CheckValidity(s *model.Session, now time.Time) Validity {
	switch {
	case s == nil:
		return Validity{Reason: model.ReasonSessionNotFound, Detail: "session does not exist"}
	case s.RevokedAt != nil:
		return Validity{Reason: model.ReasonSessionRevoked, Detail: "session revoked at " + s.RevokedAt.UTC().Format(time.RFC3339)}
	case now.After(s.ExpiresAt):
		return Validity{Reason: model.ReasonSessionExpired, Detail: "session expired at " + s.ExpiresAt.UTC().Format(time.RFC3339)}
	}
	return Validity{Valid: true}
}

// ShouldRefreshAccessTime reports whether LastAccessedAt is stale enough to
// be worth a write.
func ShouldRefreshAccessTime(s model.Session, now time.Time, p Policy) bool {
	if s.LastAccessedAt == nil {
		return true
	}
	return now.Sub(*s.LastAccessedAt) >= p.AccessUpdateThreshold
}

// PrepareAccessRefresh returns the delta that records an access at now. It
// is empty when now is not after the recorded access.
func PrepareAccessRefresh(s model.Session, now time.Time) model.SessionDelta {
	if s.LastAccessedAt != nil && !now.After(*s.LastAccessedAt) {
		return model.SessionDelta{}
	}
	return model.SessionDelta{LastAccessedAt: &now}
}

// ShouldExtend reports whether a live session is close enough to expiry to
// be extended.
func ShouldExtend(s model.Session, now time.Time, p Policy) bool {
	if !CheckValidity(&s, now).Valid {
		return false
	}
	return s.ExpiresAt.Sub(now) < p.ExtendThreshold
}

// Extend returns the new expiry for s. It never moves expiry backwards.
func Extend(s model.Session, now time.Time, p Policy) time.Time {
	next := now.Add(p.Extension)
	if next.Before(s.ExpiresAt) {
		return s.ExpiresAt
	}
	return next
}

// PrepareExtension wraps [Extend] as a delta.
func PrepareExtension(s model.Session, now time.Time, p Policy) model.SessionDelta {
	next := Extend(s, now, p)
	if next.Equal(s.ExpiresAt) {
		return model.SessionDelta{}
	}
	return model.SessionDelta{ExpiresAt: &next}
}

// PrepareRevocation returns the delta that revokes s at now. An already
// revoked session keeps its original revocation time.
func PrepareRevocation(s model.Session, now time.Time) model.SessionDelta {
	if s.RevokedAt != nil {
		return model.SessionDelta{}
	}
	return model.SessionDelta{RevokedAt: &now}
}

// ShouldCleanup reports whether s expired or was revoked more than
// CleanupGrace ago and may be physically deleted.
func ShouldCleanup(s model.Session, now time.Time, p Policy) bool {
	cutoff := now.Add(-p.CleanupGrace)
	if s.RevokedAt != nil && s.RevokedAt.Before(cutoff) {
		return true
	}
	return s.ExpiresAt.Before(cutoff)
}
