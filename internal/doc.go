// Package internal holds helpers private to authcore.
//
// Sub-packages:
//
//   - audit: ordered asynchronous delivery of audit entries to a sink
//   - challenge: pending MFA challenges with TTL and attempt caps
//   - keylock: per-key mutual exclusion for account-scoped work
//   - random: token and identifier randomness
package internal
