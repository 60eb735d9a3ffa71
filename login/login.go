// Package login composes lockout admission, risk analysis and the MFA
// requirement into a single login decision with the user delta to persist.
package login

import (
	"time"

	"github.com/MrEthical07/authcore/lockout"
	"github.com/MrEthical07/authcore/mfa"
	"github.com/MrEthical07/authcore/model"
	"github.com/MrEthical07/authcore/risk"
)

// Outcome is the coarse result of a decision.
type Outcome uint8

const (
	Denied Outcome = iota
	Allowed
	MFARequired
	MFAPending
)

func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allowed"
	case MFARequired:
		return "mfa_required"
	case MFAPending:
		return "mfa_pending"
	default:
		return "denied"
	}
}

// Policy bundles the policies a decision depends on.
type Policy struct {
	Lockout lockout.Policy
	Risk    risk.Policy
}

// DefaultPolicy returns the package defaults of each component.
func DefaultPolicy() Policy {
	return Policy{Lockout: lockout.DefaultPolicy(), Risk: risk.DefaultPolicy()}
}

// Input is everything the shell has gathered for one attempt.
type Input struct {
	User           *model.User
	PasswordValid  bool
	MFACode        string
	Request        model.RequestContext
	RecentSessions []model.Session
}

// Decision is the orchestrated result. Delta is what the shell persists
// before acting on Outcome.
type Decision struct {
	Outcome    Outcome
	Reason     model.Reason
	RetryAfter time.Duration

	Risk              *risk.Analysis
	Requirement       mfa.Requirement
	StepUpRecommended bool

	Delta       model.UserDelta
	FailedCount int
	Locked      bool
	ShouldAlert bool
}

// Decide evaluates one login attempt at now. Attempts rejected at
// admission leave the account untouched.
func Decide(in Input, p Policy, now time.Time) Decision {
	adm := lockout.Admit(in.User, now)
	if !adm.Allowed {
		return Decision{Outcome: Denied, Reason: adm.Reason, RetryAfter: adm.RetryAfter}
	}
	user := *in.User

	analysis := risk.Analyze(user, in.Request, in.RecentSessions, p.Risk, now)
	req := mfa.DetermineRequirement(user, in.PasswordValid, in.MFACode, analysis)

	d := Decision{Risk: &analysis, Requirement: req, StepUpRecommended: req.StepUpRecommended}

	switch {
	case !in.PasswordValid:
		applyFailure(&d, user, model.ReasonInvalidCredentials, p, now)
	case req.Allow == mfa.Yes:
		d.Outcome = Allowed
		d.Delta = lockout.OnSuccess(user, now)
	case req.Allow == mfa.Pending:
		d.Outcome = MFAPending
		d.Reason = req.Reason
	default:
		d.Outcome = MFARequired
		d.Reason = req.Reason
	}
	return d
}

// ResolveMFA settles a pending decision once the shell has checked the
// code. A rejected code counts as a failed login.
func ResolveMFA(user model.User, verified bool, p Policy, now time.Time) Decision {
	var d Decision
	d.Requirement.RequiresMFA = true
	if verified {
		d.Outcome = Allowed
		d.Requirement.Verified, d.Requirement.Allow = mfa.Yes, mfa.Yes
		d.Delta = lockout.OnSuccess(user, now)
		return d
	}
	applyFailure(&d, user, model.ReasonMFACodeInvalid, p, now)
	return d
}

func applyFailure(d *Decision, user model.User, reason model.Reason, p Policy, now time.Time) {
	f := lockout.OnFailure(user, p.Lockout, now)
	d.Outcome = Denied
	d.Reason = reason
	d.Delta = f.Delta
	d.FailedCount = f.NewFailedCount
	d.ShouldAlert = f.ShouldAlert
	if f.Locked() {
		d.Locked = true
		d.Reason = model.ReasonAccountLocked
		d.RetryAfter = f.LockoutUntil.Sub(now)
	}
}
