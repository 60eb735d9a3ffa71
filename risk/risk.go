// Package risk scores login attempts with an additive weighted heuristic.
package risk

import (
	"strings"
	"time"

	"github.com/MrEthical07/authcore/model"
)

// Factor names in the order they are evaluated.
const (
	FactorNewIP          = "new_ip"
	FactorNewUserAgent   = "new_user_agent"
	FactorAdminAccount   = "admin_account"
	FactorDormantAccount = "dormant_account"
)

// Policy holds factor weights and the MFA threshold.
type Policy struct {
	NewIPWeight    int
	NewUAWeight    int
	AdminWeight    int
	DormantWeight  int
	DormancyWindow time.Duration
	MFAThreshold   int
	AdminRoles     []string
}

// DefaultPolicy returns the reference weights: new IP 30, new user agent
// 20, admin 25, dormant for 30 days 40, MFA above 50.
func DefaultPolicy() Policy {
	return Policy{
		NewIPWeight:    30,
		NewUAWeight:    20,
		AdminWeight:    25,
		DormantWeight:  40,
		DormancyWindow: 30 * 24 * time.Hour,
		MFAThreshold:   50,
		AdminRoles:     []string{"admin", "superadmin"},
	}
}

// Factor is one triggered signal.
type Factor struct {
	Name   string `json:"factor"`
	Weight int    `json:"weight"`
}

// Analysis is the outcome of [Analyze]. Score is always the sum of the
// factor weights.
type Analysis struct {
	Score       int      `json:"risk_score"`
	Factors     []Factor `json:"risk_factors"`
	RequiresMFA bool     `json:"requires_mfa"`
}

// FactorNames returns the triggered factor names in evaluation order.
func (a Analysis) FactorNames() []string {
	names := make([]string, len(a.Factors))
	for i, f := range a.Factors {
		names[i] = f.Name
	}
	return names
}

// Analyze scores a login attempt against the user's recent sessions.
// An empty IP or user agent on the request never counts as new.
func Analyze(user model.User, rc model.RequestContext, recent []model.Session, p Policy, now time.Time) Analysis {
	var a Analysis

	if rc.IP != "" && !seen(recent, func(s model.Session) string { return s.IPAddress }, rc.IP) {
		a.add(FactorNewIP, p.NewIPWeight)
	}
	if rc.UserAgent != "" && !seen(recent, func(s model.Session) string { return s.UserAgent }, rc.UserAgent) {
		a.add(FactorNewUserAgent, p.NewUAWeight)
	}
	if isAdmin(user.Role, p.AdminRoles) {
		a.add(FactorAdminAccount, p.AdminWeight)
	}
	if user.LastLoginAt != nil && p.DormancyWindow > 0 && now.Sub(*user.LastLoginAt) > p.DormancyWindow {
		a.add(FactorDormantAccount, p.DormantWeight)
	}

	a.RequiresMFA = a.Score > p.MFAThreshold
	return a
}

func (a *Analysis) add(name string, weight int) {
	a.Factors = append(a.Factors, Factor{Name: name, Weight: weight})
	a.Score += weight
}

func seen(sessions []model.Session, field func(model.Session) string, value string) bool {
	for _, s := range sessions {
		if field(s) == value {
			return true
		}
	}
	return false
}

func isAdmin(role string, adminRoles []string) bool {
	for _, r := range adminRoles {
		if strings.EqualFold(role, r) {
			return true
		}
	}
	return false
}
