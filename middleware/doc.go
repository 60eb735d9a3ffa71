// Package middleware adapts authcore.Engine session validation to net/http.
//
// [Guard] reads the bearer token, attaches the caller's address and
// User-Agent to the request context, and calls Engine.ValidateSession.
// The validated session is available to handlers via [SessionFromContext].
//
// [ClientContext] only attaches the caller's address and User-Agent, for
// handlers that call Login or ConfirmMFA themselves.
//
// The package makes no authentication decisions of its own.
package middleware
