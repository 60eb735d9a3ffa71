package mfa

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/model"
	"github.com/MrEthical07/authcore/risk"
)

// Check is the result of an eligibility test.
type Check struct {
	OK     bool
	Reason model.Reason
}

func ok() Check { return Check{OK: true} }

func fail(r model.Reason) Check { return Check{Reason: r} }

// CanEnable reports whether MFA may be turned on for user.
func CanEnable(user *model.User) Check {
	switch {
	case user == nil:
		return fail(model.ReasonNotFound)
	case user.Deleted():
		return fail(model.ReasonAccountDeleted)
	case !user.Active:
		return fail(model.ReasonAccountInactive)
	case user.MFAEnabled:
		return fail(model.ReasonMFAAlreadyEnabled)
	}
	return ok()
}

// CanDisable reports whether MFA may be turned off for user.
func CanDisable(user *model.User) Check {
	switch {
	case user == nil:
		return fail(model.ReasonNotFound)
	case !user.MFAEnabled:
		return fail(model.ReasonMFANotEnabled)
	}
	return ok()
}

// PrepareEnable returns the delta that enrolls user with secret and codes.
func PrepareEnable(user model.User, secret string, codes []string, now time.Time) model.UserDelta {
	enabled := true
	return model.UserDelta{
		MFAEnabled:         &enabled,
		MFASecret:          model.Some(secret),
		MFABackupCodes:     model.Some(normalizeAll(codes)),
		MFABackupCodesUsed: model.Some([]string{}),
		MFAEnabledAt:       model.Some(now),
	}
}

// PrepareDisable returns the delta that clears every MFA field.
func PrepareDisable(user model.User) model.UserDelta {
	disabled := false
	return model.UserDelta{
		MFAEnabled:         &disabled,
		MFASecret:          model.Null[string](),
		MFABackupCodes:     model.Null[[]string](),
		MFABackupCodesUsed: model.Null[[]string](),
		MFAEnabledAt:       model.Null[time.Time](),
	}
}

// PrepareRegenerate replaces the backup codes and forgets which were used.
func PrepareRegenerate(user model.User, codes []string) model.UserDelta {
	return model.UserDelta{
		MFABackupCodes:     model.Some(normalizeAll(codes)),
		MFABackupCodesUsed: model.Some([]string{}),
	}
}

// NormalizeCode canonicalises user input: spaces and dashes are dropped
// and letters upper-cased.
func NormalizeCode(code string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == ' ' || r == '\t':
			return -1
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		}
		return r
	}, code)
}

func normalizeAll(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if n := NormalizeCode(c); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// IsValidBackupCode reports whether code belongs to user and has not been
// used. Every stored code is compared so timing does not leak position.
func IsValidBackupCode(code string, user model.User) bool {
	code = NormalizeCode(code)
	if code == "" {
		return false
	}
	return contains(user.MFABackupCodes, code) && !contains(user.MFABackupCodesUsed, code)
}

func contains(set []string, code string) bool {
	found := 0
	for _, c := range set {
		found |= subtle.ConstantTimeCompare([]byte(c), []byte(code))
	}
	return found == 1
}

// MarkBackupCodeUsed returns the delta that records code as used. Marking
// an already used code, or one that is not in the set, yields an empty
// delta.
func MarkBackupCodeUsed(user model.User, code string) model.UserDelta {
	code = NormalizeCode(code)
	if !contains(user.MFABackupCodes, code) || contains(user.MFABackupCodesUsed, code) {
		return model.UserDelta{}
	}
	used := make([]string, 0, len(user.MFABackupCodesUsed)+1)
	used = append(used, user.MFABackupCodesUsed...)
	used = append(used, code)
	return model.UserDelta{MFABackupCodesUsed: model.Some(used)}
}

// RemainingBackupCodes counts unused codes.
func RemainingBackupCodes(user model.User) int {
	n := 0
	for _, c := range user.MFABackupCodes {
		if !contains(user.MFABackupCodesUsed, c) {
			n++
		}
	}
	return n
}

// ShouldRegenerate reports whether fewer than threshold codes remain.
func ShouldRegenerate(user model.User, threshold int) bool {
	return RemainingBackupCodes(user) < threshold
}

// Verdict is a tri-state outcome. Pending means the caller has to run the
// real verifier before deciding.
type Verdict uint8

const (
	No Verdict = iota
	Yes
	Pending
)

func (v Verdict) String() string {
	switch v {
	case Yes:
		return "yes"
	case Pending:
		return "pending"
	default:
		return "no"
	}
}

// Requirement is the result of [DetermineRequirement].
type Requirement struct {
	RequiresMFA       bool
	Verified          Verdict
	Allow             Verdict
	Reason            model.Reason
	StepUpRecommended bool
}

// DetermineRequirement combines the password outcome, MFA enrollment and
// the risk analysis into a login decision.
func DetermineRequirement(user model.User, passwordValid bool, code string, analysis risk.Analysis) Requirement {
	switch {
	case !passwordValid:
		return Requirement{Reason: model.ReasonInvalidCredentials}
	case !user.MFAEnabled:
		return Requirement{Allow: Yes, StepUpRecommended: analysis.RequiresMFA}
	case strings.TrimSpace(code) == "":
		return Requirement{RequiresMFA: true, Reason: model.ReasonMFARequired}
	default:
		return Requirement{
			RequiresMFA: true,
			Verified:    Pending,
			Allow:       Pending,
			Reason:      model.ReasonMFAPending,
		}
	}
}
