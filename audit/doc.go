// Package audit builds immutable audit entries for security-relevant state
// changes.
//
// Each constructor takes a [Meta] describing who acted on whom, from where
// and when, and returns an [Entry]. Metadata always passes through
// [SanitizeMetadata] before it is attached, so credentials and tokens never
// reach an audit sink. Update entries carry a field-level [Diff] instead of
// full before/after snapshots.
//
// Persisting entries is the caller's job; see the sinks wired by the root
// package and the Postgres store under store/postgres.
package audit
