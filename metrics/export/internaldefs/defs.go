package internaldefs

import (
	"github.com/MrEthical07/authcore"
)

// Def maps one engine metric to its exported name.
type Def struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// AuditDropped is exported alongside the engine counters.
var AuditDropped = Def{Name: "authcore_audit_dropped_total", Help: "Audit entries dropped by the dispatcher."}

var CounterDefs = []Def{
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Completed logins."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Denied logins, any reason."},
	{ID: authcore.MetricLoginLocked, Name: "authcore_login_locked_total", Help: "Logins refused because the account was already locked."},
	{ID: authcore.MetricMFARequired, Name: "authcore_mfa_required_total", Help: "Logins paused for a second factor."},
	{ID: authcore.MetricMFASuccess, Name: "authcore_mfa_success_total", Help: "Accepted second factors."},
	{ID: authcore.MetricMFAFailure, Name: "authcore_mfa_failure_total", Help: "Rejected second factors."},
	{ID: authcore.MetricMFAAttemptsExceeded, Name: "authcore_mfa_attempts_exceeded_total", Help: "Pending MFA challenges discarded at the attempt cap."},
	{ID: authcore.MetricBackupCodeUsed, Name: "authcore_backup_code_used_total", Help: "Logins completed with a backup code."},
	{ID: authcore.MetricBackupCodeFailed, Name: "authcore_backup_code_failed_total", Help: "Backup codes lost to a concurrent login."},
	{ID: authcore.MetricBackupCodeRegenerated, Name: "authcore_backup_code_regenerated_total", Help: "Backup code regenerations."},
	{ID: authcore.MetricMFAEnabled, Name: "authcore_mfa_enabled_total", Help: "MFA enrollments."},
	{ID: authcore.MetricMFADisabled, Name: "authcore_mfa_disabled_total", Help: "MFA removals."},
	{ID: authcore.MetricSessionCreated, Name: "authcore_session_created_total", Help: "Created sessions."},
	{ID: authcore.MetricSessionExtended, Name: "authcore_session_extended_total", Help: "Sliding session extensions."},
	{ID: authcore.MetricSessionRevoked, Name: "authcore_session_revoked_total", Help: "Revoked sessions."},
	{ID: authcore.MetricSessionRejected, Name: "authcore_session_rejected_total", Help: "Session validations that failed."},
	{ID: authcore.MetricSessionContextMismatch, Name: "authcore_session_context_mismatch_total", Help: "Validations rejected for IP or user agent mismatch."},
	{ID: authcore.MetricSessionCleanup, Name: "authcore_session_cleanup_total", Help: "Sessions deleted after the cleanup grace."},
	{ID: authcore.MetricAccountLocked, Name: "authcore_account_locked_total", Help: "Accounts locked by repeated failures."},
	{ID: authcore.MetricLockoutAlert, Name: "authcore_lockout_alert_total", Help: "Failures at or above the alert threshold."},
	{ID: authcore.MetricRiskElevated, Name: "authcore_risk_elevated_total", Help: "Logins scored above the MFA threshold."},
	{ID: authcore.MetricStepUpRecommended, Name: "authcore_step_up_recommended_total", Help: "Risky logins allowed without MFA."},
	{ID: authcore.MetricPasswordPolicyRejected, Name: "authcore_password_policy_rejected_total", Help: "Passwords rejected by policy."},
}

var HistogramDefs = []Def{
	{ID: authcore.MetricValidateLatency, Name: "authcore_validate_latency_seconds", Help: "ValidateSession latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's
// latency buckets.
var HistogramBounds = [8]string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// HistogramBoundSuffix is HistogramBounds spelled for instrument names.
var HistogramBoundSuffix = [8]string{"0_005", "0_01", "0_025", "0_05", "0_1", "0_25", "0_5", "inf"}

// Cumulative turns per-bucket counts into the running totals both
// exposition formats expect. Missing buckets count as zero.
func Cumulative(raw []uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
