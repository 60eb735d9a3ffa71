package authcore

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/model"
	"github.com/MrEthical07/authcore/password"
)

var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrUserNotFound           = errors.New("user not found")
	ErrAccountInactive        = errors.New("account inactive")
	ErrAccountLocked          = errors.New("account locked")
	ErrMFARequired            = errors.New("mfa required")
	ErrMFACodeInvalid         = errors.New("invalid mfa code")
	ErrMFAAlreadyEnabled      = errors.New("mfa already enabled")
	ErrMFANotEnabled          = errors.New("mfa not enabled")
	ErrMFAChallengeInvalid    = errors.New("mfa challenge invalid or expired")
	ErrMFAAttemptsExceeded    = errors.New("mfa attempts exceeded")
	ErrSessionNotFound        = errors.New("session not found")
	ErrSessionRevoked         = errors.New("session revoked")
	ErrSessionExpired         = errors.New("session expired")
	ErrSessionContextMismatch = errors.New("session context mismatch")
	ErrPasswordPolicy         = errors.New("password policy violation")
	ErrAuditEntryInvalid      = errors.New("audit entry has no action")

	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrChallengeUnavailable = errors.New("mfa challenge store unavailable")
	ErrTokenUnavailable     = errors.New("token issuer unavailable")
	ErrHasherUnavailable    = errors.New("password verifier unavailable")
	ErrTOTPUnavailable      = errors.New("totp verifier unavailable")
	ErrEngineClosed         = errors.New("engine closed")
)

var reasonErrors = map[model.Reason]error{
	model.ReasonInvalidCredentials: ErrInvalidCredentials,
	model.ReasonAccountDeleted:     ErrInvalidCredentials,
	model.ReasonAccountInactive:    ErrAccountInactive,
	model.ReasonAccountLocked:      ErrAccountLocked,
	model.ReasonMFARequired:        ErrMFARequired,
	model.ReasonMFAPending:         ErrMFARequired,
	model.ReasonMFACodeInvalid:     ErrMFACodeInvalid,
	model.ReasonNotFound:           ErrUserNotFound,
	model.ReasonMFAAlreadyEnabled:  ErrMFAAlreadyEnabled,
	model.ReasonMFANotEnabled:      ErrMFANotEnabled,
	model.ReasonSessionNotFound:    ErrSessionNotFound,
	model.ReasonSessionRevoked:     ErrSessionRevoked,
	model.ReasonSessionExpired:     ErrSessionExpired,
	model.ReasonIPMismatch:         ErrSessionContextMismatch,
	model.ReasonUserAgentMismatch:  ErrSessionContextMismatch,
}

// DenialError is a business denial. It unwraps to the sentinel matching
// Reason, so callers can use errors.Is without inspecting the code.
type DenialError struct {
	Reason     model.Reason
	RetryAfter time.Duration
}

func (e *DenialError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.Reason, e.RetryAfter.Round(time.Second))
	}
	return string(e.Reason)
}

func (e *DenialError) Unwrap() error {
	if err, ok := reasonErrors[e.Reason]; ok {
		return err
	}
	return ErrInvalidCredentials
}

func deny(reason model.Reason) error {
	return &DenialError{Reason: reason}
}

// ReasonOf extracts the reason code from err, or ReasonNone.
func ReasonOf(err error) model.Reason {
	var de *DenialError
	if errors.As(err, &de) {
		return de.Reason
	}
	return model.ReasonNone
}

func unavailable(kind, err error) error {
	return fmt.Errorf("%w: %v", kind, err)
}

// PolicyError lists every password policy violation. It unwraps to
// [ErrPasswordPolicy].
type PolicyError struct {
	Violations []password.Violation
}

func (e *PolicyError) Error() string {
	if len(e.Violations) == 0 {
		return ErrPasswordPolicy.Error()
	}
	return fmt.Sprintf("%s: %s", ErrPasswordPolicy, e.Violations[0].Code)
}

func (e *PolicyError) Unwrap() error {
	return ErrPasswordPolicy
}
