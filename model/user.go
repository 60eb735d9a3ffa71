package model

import "time"

// User is the account snapshot owned by the user-management layer.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Active bool   `json:"active"`

	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	FailedLoginCount int        `json:"failed_login_count"`
	LockoutUntil     *time.Time `json:"lockout_until,omitempty"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	LoginCount       int        `json:"login_count"`

	MFAEnabled         bool       `json:"mfa_enabled"`
	MFASecret          string     `json:"mfa_secret,omitempty"`
	MFABackupCodes     []string   `json:"mfa_backup_codes,omitempty"`
	MFABackupCodesUsed []string   `json:"mfa_backup_codes_used,omitempty"`
	MFAEnabledAt       *time.Time `json:"mfa_enabled_at,omitempty"`

	PasswordHash      string    `json:"password_hash,omitempty"`
	PasswordCreatedAt time.Time `json:"password_created_at"`
}

// Deleted reports whether the account is soft-deleted.
func (u User) Deleted() bool {
	return u.DeletedAt != nil
}

// UserDelta is a set of proposed field updates. Nil fields are left
// untouched.
type UserDelta struct {
	FailedLoginCount *int
	LockoutUntil     Nullable[time.Time]
	LastLoginAt      Nullable[time.Time]
	LoginCount       *int

	MFAEnabled         *bool
	MFASecret          Nullable[string]
	MFABackupCodes     Nullable[[]string]
	MFABackupCodesUsed Nullable[[]string]
	MFAEnabledAt       Nullable[time.Time]
}

// Empty reports whether the delta changes nothing.
func (d UserDelta) Empty() bool {
	return d.FailedLoginCount == nil &&
		!d.LockoutUntil.Set &&
		!d.LastLoginAt.Set &&
		d.LoginCount == nil &&
		d.MFAEnabled == nil &&
		!d.MFASecret.Set &&
		!d.MFABackupCodes.Set &&
		!d.MFABackupCodesUsed.Set &&
		!d.MFAEnabledAt.Set
}

// Merge overlays other on top of d. Fields set in other win.
func (d UserDelta) Merge(other UserDelta) UserDelta {
	if other.FailedLoginCount != nil {
		d.FailedLoginCount = other.FailedLoginCount
	}
	if other.LockoutUntil.Set {
		d.LockoutUntil = other.LockoutUntil
	}
	if other.LastLoginAt.Set {
		d.LastLoginAt = other.LastLoginAt
	}
	if other.LoginCount != nil {
		d.LoginCount = other.LoginCount
	}
	if other.MFAEnabled != nil {
		d.MFAEnabled = other.MFAEnabled
	}
	if other.MFASecret.Set {
		d.MFASecret = other.MFASecret
	}
	if other.MFABackupCodes.Set {
		d.MFABackupCodes = other.MFABackupCodes
	}
	if other.MFABackupCodesUsed.Set {
		d.MFABackupCodesUsed = other.MFABackupCodesUsed
	}
	if other.MFAEnabledAt.Set {
		d.MFAEnabledAt = other.MFAEnabledAt
	}
	return d
}

// Apply returns a copy of u with d applied. Slices are copied so the
// result never aliases the delta.
func (u User) Apply(d UserDelta) User {
	if d.FailedLoginCount != nil {
		u.FailedLoginCount = *d.FailedLoginCount
	}
	if d.LockoutUntil.Set {
		u.LockoutUntil = d.LockoutUntil.Ptr()
	}
	if d.LastLoginAt.Set {
		u.LastLoginAt = d.LastLoginAt.Ptr()
	}
	if d.LoginCount != nil {
		u.LoginCount = *d.LoginCount
	}
	if d.MFAEnabled != nil {
		u.MFAEnabled = *d.MFAEnabled
	}
	if d.MFASecret.Set {
		u.MFASecret = d.MFASecret.Value
	}
	if d.MFABackupCodes.Set {
		u.MFABackupCodes = cloneStrings(d.MFABackupCodes.Value)
	}
	if d.MFABackupCodesUsed.Set {
		u.MFABackupCodesUsed = cloneStrings(d.MFABackupCodesUsed.Value)
	}
	if d.MFAEnabledAt.Set {
		u.MFAEnabledAt = d.MFAEnabledAt.Ptr()
	}
	return u
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
