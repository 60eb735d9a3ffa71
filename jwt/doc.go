// Package jwt signs session handles as compact JWTs.
//
// A token names its session (sid), user (uid) and tenant (tid) and proves
// the engine issued it. It does not carry the session's expiry: sessions
// slide, so validity is always read from the session store. MaxAge caps how
// long a signed handle is accepted at all.
package jwt
