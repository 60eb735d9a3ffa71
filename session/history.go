package session

import (
	"time"

	"github.com/MrEthical07/authcore/model"
)

// History summarises a user's sessions at a point in time.
type History struct {
	Total              int        `json:"total"`
	Active             int        `json:"active"`
	Expired            int        `json:"expired"`
	Revoked            int        `json:"revoked"`
	DistinctIPs        int        `json:"distinct_ips"`
	DistinctUserAgents int        `json:"distinct_user_agents"`
	LastAccessedAt     *time.Time `json:"last_accessed_at,omitempty"`
	LastCreatedAt      *time.Time `json:"last_created_at,omitempty"`
}

// Summarize classifies sessions at now.
func Summarize(sessions []model.Session, now time.Time) History {
	h := History{Total: len(sessions)}
	ips := make(map[string]struct{})
	agents := make(map[string]struct{})

	for i := range sessions {
		s := &sessions[i]
		switch CheckValidity(s, now).Reason {
		case model.ReasonSessionRevoked:
			h.Revoked++
		case model.ReasonSessionExpired:
			h.Expired++
		default:
			h.Active++
		}
		if s.IPAddress != "" {
			ips[s.IPAddress] = struct{}{}
		}
		if s.UserAgent != "" {
			agents[s.UserAgent] = struct{}{}
		}
		h.LastAccessedAt = latest(h.LastAccessedAt, s.LastAccessedAt)
		created := s.CreatedAt
		h.LastCreatedAt = latest(h.LastCreatedAt, &created)
	}

	h.DistinctIPs = len(ips)
	h.DistinctUserAgents = len(agents)
	return h
}

func latest(cur, next *time.Time) *time.Time {
	if next == nil {
		return cur
	}
	if cur == nil || next.After(*cur) {
		v := *next
		return &v
	}
	return cur
}
