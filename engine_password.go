package authcore

import "github.com/MrEthical07/authcore/password"

// PasswordCheck is the combined policy and strength verdict for a
// candidate password.
type PasswordCheck struct {
	password.Result
	Strength password.StrengthReport `json:"strength"`
}

// CheckPassword evaluates pw against the configured policy. email, when
// set, enables the email local-part check.
func (e *Engine) CheckPassword(pw, email string) PasswordCheck {
	var uc *password.UserContext
	if email != "" {
		uc = &password.UserContext{Email: email}
	}
	res := password.MeetsPolicy(pw, e.config.Password, uc)
	if !res.Valid {
		e.metricInc(MetricPasswordPolicyRejected)
	}
	return PasswordCheck{Result: res, Strength: password.Strength(pw)}
}

// Err returns nil for a valid password and otherwise an error wrapping
// [ErrPasswordPolicy] naming the first violation.
func (c PasswordCheck) Err() error {
	if c.Valid || len(c.Violations) == 0 {
		return nil
	}
	return &PolicyError{Violations: c.Violations}
}
