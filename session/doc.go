// Package session decides session lifecycle transitions and re-validates a
// session's client context on each use.
//
// States are Active, Expired and Revoked. Expired and Revoked are terminal.
// Expiry is never written: [CheckValidity] derives it from ExpiresAt at
// read time. Revocation is the only terminal state recorded in storage.
//
// Every function takes now explicitly and returns a [model.SessionDelta]
// or a decision; storage is the caller's job.
package session
