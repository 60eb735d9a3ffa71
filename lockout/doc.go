// Package lockout decides whether a login attempt is admissible and what a
// failed or successful attempt does to the account's lockout state.
//
// All functions are pure: time is passed in and updates are returned as
// [model.UserDelta] values for the caller to persist. Persisting them
// without lost updates under concurrent attempts is the caller's job.
package lockout
