package lockout

import (
	"time"

	"github.com/MrEthical07/authcore/model"
)

// Policy configures lockout thresholds.
type Policy struct {
	MaxAttempts     int
	LockoutDuration time.Duration
	AlertThreshold  int
}

// DefaultPolicy returns 5 attempts, a 15 minute lock and alerting from
// the fifth failure.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     5,
		LockoutDuration: 15 * time.Minute,
		AlertThreshold:  5,
	}
}

// Admission is the result of [Admit].
type Admission struct {
	Allowed    bool
	Reason     model.Reason
	RetryAfter time.Duration
}

// Failure is the consequence of one failed attempt.
type Failure struct {
	NewFailedCount int
	LockoutUntil   *time.Time
	ShouldAlert    bool
	Delta          model.UserDelta
}

// Locked reports whether this failure locked the account.
func (f Failure) Locked() bool {
	return f.LockoutUntil != nil
}

// Admit decides whether a login attempt for user may proceed at now.
// A missing user is reported as invalid credentials.
func Admit(user *model.User, now time.Time) Admission {
	switch {
	case user == nil:
		return deny(model.ReasonInvalidCredentials)
	case user.Deleted():
		return deny(model.ReasonAccountDeleted)
	case !user.Active:
		return deny(model.ReasonAccountInactive)
	}

	if until := user.LockoutUntil; until != nil && now.Before(*until) {
		return Admission{
			Reason:     model.ReasonAccountLocked,
			RetryAfter: until.Sub(now),
		}
	}

	return Admission{Allowed: true}
}

func deny(reason model.Reason) Admission {
	return Admission{Reason: reason}
}

// OnFailure computes the state after one more failed attempt. An expired
// lock is not reset here; the count keeps growing until a success.
func OnFailure(user model.User, p Policy, now time.Time) Failure {
	count := user.FailedLoginCount + 1

	f := Failure{
		NewFailedCount: count,
		ShouldAlert:    p.AlertThreshold > 0 && count >= p.AlertThreshold,
	}
	f.Delta.FailedLoginCount = &count

	if p.MaxAttempts > 0 && count >= p.MaxAttempts {
		until := now.Add(p.LockoutDuration)
		f.LockoutUntil = &until
		f.Delta.LockoutUntil = model.Some(until)
	}

	return f
}

// OnSuccess clears lockout state and records the login.
func OnSuccess(user model.User, now time.Time) model.UserDelta {
	zero := 0
	logins := user.LoginCount + 1
	return model.UserDelta{
		FailedLoginCount: &zero,
		LockoutUntil:     model.Null[time.Time](),
		LastLoginAt:      model.Some(now),
		LoginCount:       &logins,
	}
}
