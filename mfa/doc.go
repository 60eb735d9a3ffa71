// Package mfa holds the MFA enrollment and verification decisions together
// with the collaborators the engine plugs into them: a TOTP verifier and a
// backup-code generator.
//
// The decision functions never verify a TOTP code themselves. When a code
// is supplied, [DetermineRequirement] returns a pending verdict and the
// caller resolves it with a real verifier.
//
// Backup codes are single use by set membership: a used code stays in
// MFABackupCodes and is also recorded in MFABackupCodesUsed, so the history
// can be reconstructed from the user record.
package mfa
