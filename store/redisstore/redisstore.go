// Package redisstore keeps users and sessions in Redis.
//
// Users are JSON documents updated under WATCH. Sessions are hashes whose
// conditional updates (monotonic access time, first revocation wins) run
// as Lua scripts so concurrent validations cannot regress them.
//
// Key layout, with ns the configured namespace:
//
//	ns:u:<id>            user JSON
//	ns:ue:<email>        email -> user id
//	ns:s:<id>            session hash
//	ns:st:<fingerprint>  token fingerprint -> session id
//	ns:us:<user id>      set of session ids
package redisstore

import (
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport and server errors.
var ErrRedisUnavailable = errors.New("redis unavailable")

const (
	defaultNamespace = "authcore"
	maxWatchRetries  = 8
)

type keys struct {
	ns string
}

func newKeys(namespace string) keys {
	if namespace == "" {
		namespace = defaultNamespace
	}
	return keys{ns: namespace}
}

func (k keys) user(id string) string { return k.ns + ":u:" + id }

func (k keys) email(email string) string {
	return k.ns + ":ue:" + strings.ToLower(strings.TrimSpace(email))
}

func (k keys) session(id string) string { return k.ns + ":s:" + id }

func (k keys) token(fingerprint string) string { return k.ns + ":st:" + fingerprint }

func (k keys) userSessions(userID string) string { return k.ns + ":us:" + userID }

func isNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
