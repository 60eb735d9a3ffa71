package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/model"
)

// Validator is the part of authcore.Engine the guard needs.
type Validator interface {
	ValidateSession(ctx context.Context, token string) (*model.Session, error)
}

type sessionContextKey struct{}

// SessionFromContext returns the session stored by [Guard].
func SessionFromContext(ctx context.Context) (*model.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*model.Session)
	return s, ok && s != nil
}

// Guard rejects requests without a valid session token. Rejections answer
// 401; an unreachable store answers 503.
func Guard(v Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := requestContext(r)
			s, err := v.ValidateSession(ctx, token)
			if err != nil {
				status := Status(err)
				http.Error(w, http.StatusText(status), status)
				return
			}

			ctx = context.WithValue(ctx, sessionContextKey{}, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientContext attaches the caller's address and User-Agent to the
// request context.
func ClientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(requestContext(r)))
	})
}

// Status maps an engine error to an HTTP status code.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, authcore.ErrPasswordPolicy),
		errors.Is(err, authcore.ErrAuditEntryInvalid):
		return http.StatusBadRequest
	case errors.Is(err, authcore.ErrMFARequired):
		return http.StatusAccepted
	case errors.Is(err, authcore.ErrAccountLocked),
		errors.Is(err, authcore.ErrMFAAttemptsExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, authcore.ErrAccountInactive),
		errors.Is(err, authcore.ErrMFAAlreadyEnabled),
		errors.Is(err, authcore.ErrMFANotEnabled):
		return http.StatusForbidden
	case errors.Is(err, authcore.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, authcore.ErrStoreUnavailable),
		errors.Is(err, authcore.ErrChallengeUnavailable),
		errors.Is(err, authcore.ErrTokenUnavailable),
		errors.Is(err, authcore.ErrHasherUnavailable),
		errors.Is(err, authcore.ErrTOTPUnavailable),
		errors.Is(err, authcore.ErrEngineClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnauthorized
	}
}

func requestContext(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ctx := authcore.WithClientIP(r.Context(), host)
	return authcore.WithUserAgent(ctx, r.UserAgent())
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
