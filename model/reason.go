package model

// Reason is a machine-readable decision code. Denials that could reveal
// whether an account exists share ReasonInvalidCredentials.
type Reason string

const (
	ReasonNone Reason = ""

	ReasonInvalidCredentials Reason = "invalid_credentials"
	ReasonAccountInactive    Reason = "account_inactive"
	ReasonAccountDeleted     Reason = "account_deleted"
	ReasonAccountLocked      Reason = "account_locked"
	ReasonMFARequired        Reason = "mfa_required"
	ReasonMFAPending         Reason = "mfa_verification_pending"
	ReasonMFACodeInvalid     Reason = "mfa_code_invalid"

	ReasonNotFound          Reason = "not_found"
	ReasonMFAAlreadyEnabled Reason = "mfa_already_enabled"
	ReasonMFANotEnabled     Reason = "mfa_not_enabled"
	ReasonSessionNotFound   Reason = "session_not_found"
	ReasonSessionRevoked    Reason = "session_revoked"
	ReasonSessionExpired    Reason = "session_expired"
	ReasonIPMismatch        Reason = "ip_mismatch"
	ReasonUserAgentMismatch Reason = "user_agent_mismatch"
)
