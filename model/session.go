package model

import "time"

// Session is a persisted login session.
type Session struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	TenantID       string     `json:"tenant_id"`
	Token          string     `json:"token"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	IPAddress      string     `json:"ip_address,omitempty"`
	UserAgent      string     `json:"user_agent,omitempty"`
}

// Revoked reports whether the session was explicitly terminated.
func (s Session) Revoked() bool {
	return s.RevokedAt != nil
}

// SessionDelta is a set of proposed session updates.
type SessionDelta struct {
	ExpiresAt      *time.Time
	LastAccessedAt *time.Time
	RevokedAt      *time.Time
}

// Empty reports whether the delta changes nothing.
func (d SessionDelta) Empty() bool {
	return d.ExpiresAt == nil && d.LastAccessedAt == nil && d.RevokedAt == nil
}

// Apply returns a copy of s with d applied. A revoked session keeps its
// first revocation time and its last access time never moves backwards.
func (s Session) Apply(d SessionDelta) Session {
	if d.ExpiresAt != nil {
		s.ExpiresAt = *d.ExpiresAt
	}
	if d.LastAccessedAt != nil {
		if s.LastAccessedAt == nil || d.LastAccessedAt.After(*s.LastAccessedAt) {
			v := *d.LastAccessedAt
			s.LastAccessedAt = &v
		}
	}
	if d.RevokedAt != nil && s.RevokedAt == nil {
		v := *d.RevokedAt
		s.RevokedAt = &v
	}
	return s
}

// RequestContext is the client context observed on a request.
type RequestContext struct {
	IP        string
	UserAgent string
}
