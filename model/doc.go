// Package model holds the snapshots the decision packages read and the
// deltas they propose.
//
// Nothing in this package performs I/O. Snapshots are passed by value or
// pointer and never mutated by the core; stores apply deltas with
// [User.Apply] and [Session.Apply].
package model
