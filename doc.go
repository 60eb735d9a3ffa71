// Package authcore hosts the authentication decision core behind a small
// imperative shell.
//
// The sub-packages lockout, risk, mfa, password, session, login and audit
// are pure: they read no clock, draw no randomness and return proposed
// deltas instead of mutating their inputs. [Engine] owns everything else.
// It loads snapshots through [UserRepository] and [SessionRepository],
// serializes work per account, verifies passwords and TOTP codes through
// injected collaborators, persists deltas and records audit entries in
// order.
//
// Construct an Engine with [New]:
//
//	engine, err := authcore.New().
//		WithRedis(rdb).
//		WithLogger(logger).
//		Build()
//
// Denials come back as *[DenialError] values that match the sentinel
// errors in this package with errors.Is. Infrastructure failures wrap
// [ErrStoreUnavailable] or one of the other *Unavailable sentinels.
package authcore
