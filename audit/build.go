package audit

import (
	"fmt"
	"sort"
	"time"

	"github.com/MrEthical07/authcore/model"
	"github.com/MrEthical07/authcore/risk"
)

// Create records a new account. Every attribute is reported as a change
// from nil.
func Create(m Meta, attrs map[string]any) Entry {
	return newEntry(ActionCreate, m, Diff(nil, attrs), nil)
}

// Update records the fields that differ between before and after.
func Update(m Meta, before, after map[string]any) Entry {
	return newEntry(ActionUpdate, m, Diff(before, after), nil)
}

// Deactivate records an account being switched off.
func Deactivate(m Meta, reason string) Entry {
	md := map[string]any{}
	if reason != "" {
		md["reason"] = reason
	}
	return newEntry(ActionDeactivate, m, []Change{{Field: "active", Old: true, New: false}}, md)
}

// Activate records an account being switched on.
func Activate(m Meta) Entry {
	return newEntry(ActionActivate, m, []Change{{Field: "active", Old: false, New: true}}, nil)
}

// Delete records an account deletion.
func Delete(m Meta, soft bool) Entry {
	return newEntry(ActionDelete, m, nil, map[string]any{"soft_delete": soft})
}

// RoleChange records a role transition.
func RoleChange(m Meta, from, to string) Entry {
	return newEntry(ActionRoleChange, m, []Change{{Field: "role", Old: from, New: to}}, nil)
}

// BulkAction records one operation applied to many users. failures maps
// user IDs to error messages; any failure marks the entry failed.
func BulkAction(m Meta, operation string, targets []string, failures map[string]string) Entry {
	ids := append([]string(nil), targets...)
	sort.Strings(ids)

	md := map[string]any{
		"operation":    operation,
		"target_ids":   ids,
		"target_count": len(ids),
		"failed_count": len(failures),
	}
	if len(failures) > 0 {
		failed := make(map[string]any, len(failures))
		for id, msg := range failures {
			failed[id] = msg
		}
		md["failures"] = failed
	}

	e := newEntry(ActionBulkAction, m, nil, md)
	if len(failures) > 0 {
		return e.Failed(fmt.Sprintf("%d of %d targets failed", len(failures), len(ids)))
	}
	return e
}

// Login records a login attempt with the risk analysis that informed it.
// A non-empty reason marks the attempt failed.
func Login(m Meta, analysis *risk.Analysis, reason model.Reason, extra map[string]any) Entry {
	md := make(map[string]any, len(extra)+3)
	for k, v := range extra {
		md[k] = v
	}
	if analysis != nil {
		md["risk_score"] = analysis.Score
		md["risk_factors"] = analysis.FactorNames()
		md["requires_mfa"] = analysis.RequiresMFA
	}

	e := newEntry(ActionLogin, m, nil, md)
	if reason != model.ReasonNone {
		return e.Failed(string(reason))
	}
	return e
}

// Logout records the end of a session.
func Logout(m Meta, sessionID string) Entry {
	return newEntry(ActionLogout, m, nil, map[string]any{"session_id": sessionID})
}

// MFAEnabled records MFA enrollment.
func MFAEnabled(m Meta, backupCodes int) Entry {
	return newEntry(ActionMFAEnabled, m,
		[]Change{{Field: "mfa_enabled", Old: false, New: true}},
		map[string]any{"backup_code_count": backupCodes},
	)
}

// MFADisabled records MFA removal.
func MFADisabled(m Meta) Entry {
	return newEntry(ActionMFADisabled, m, []Change{{Field: "mfa_enabled", Old: true, New: false}}, nil)
}

// BackupCodeUsed records a consumed backup code. The code itself is never
// recorded.
func BackupCodeUsed(m Meta, remaining int) Entry {
	return newEntry(ActionBackupCodeUsed, m, nil, map[string]any{"remaining": remaining})
}

// BackupCodesRegenerated records a fresh set of backup codes.
func BackupCodesRegenerated(m Meta, count int) Entry {
	return newEntry(ActionBackupCodesRegenerated, m, nil, map[string]any{"backup_code_count": count})
}

// SessionRevoked records a revocation that was not a plain logout.
func SessionRevoked(m Meta, sessionID string, reason model.Reason) Entry {
	return newEntry(ActionSessionRevoked, m, nil, map[string]any{
		"session_id": sessionID,
		"reason":     string(reason),
	})
}

// AccountLocked records an automatic lockout.
func AccountLocked(m Meta, until time.Time, failedCount int) Entry {
	return newEntry(ActionAccountLocked, m,
		[]Change{{Field: "lockout_until", Old: nil, New: until.UTC().Format(time.RFC3339)}},
		map[string]any{"failed_login_count": failedCount},
	)
}

// PasswordRejected records a password that failed policy. Only violation
// codes are recorded.
func PasswordRejected(m Meta, codes []string) Entry {
	e := newEntry(ActionPasswordRejected, m, nil, map[string]any{"violations": codes})
	return e.Failed("password policy violation")
}
