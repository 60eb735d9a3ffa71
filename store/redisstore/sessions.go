package redisstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/MrEthical07/authcore/internal/random"
	"github.com/MrEthical07/authcore/model"
	"github.com/MrEthical07/authcore/store"
	"github.com/redis/go-redis/v9"
)

const (
	fieldUserID       = "user_id"
	fieldTenantID     = "tenant_id"
	fieldToken        = "token"
	fieldCreatedAt    = "created_at"
	fieldExpiresAt    = "expires_at"
	fieldLastAccessed = "last_accessed_at"
	fieldRevokedAt    = "revoked_at"
	fieldIP           = "ip"
	fieldUserAgent    = "user_agent"
)

// Times are stored as unix microseconds so Lua can compare them exactly.
const updateSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if ARGV[1] ~= "" then
  redis.call("HSET", KEYS[1], "expires_at", ARGV[1])
  if tonumber(ARGV[4]) > 0 then
    local deadline = math.floor(tonumber(ARGV[1]) / 1000) + tonumber(ARGV[4])
    redis.call("PEXPIREAT", KEYS[1], deadline)
    if KEYS[2] and redis.call("EXISTS", KEYS[2]) == 1 then
      redis.call("PEXPIREAT", KEYS[2], deadline)
    end
  end
end
if ARGV[2] ~= "" then
  local cur = redis.call("HGET", KEYS[1], "last_accessed_at")
  if not cur or cur == "" or tonumber(ARGV[2]) > tonumber(cur) then
    redis.call("HSET", KEYS[1], "last_accessed_at", ARGV[2])
  end
end
if ARGV[3] ~= "" then
  local cur = redis.call("HGET", KEYS[1], "revoked_at")
  if not cur or cur == "" then
    redis.call("HSET", KEYS[1], "revoked_at", ARGV[3])
  end
end
return redis.call("HGETALL", KEYS[1])
`

var updateSessionLua = redis.NewScript(updateSessionScript)

const deleteSessionScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
  redis.call("DEL", KEYS[3])
end
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Sessions is a Redis-backed session repository.
type Sessions struct {
	redis     redis.UniversalClient
	keys      keys
	retention time.Duration
}

// NewSessions returns a session repository. With retention > 0 each
// session hash expires that long after its ExpiresAt, so rows nobody
// cleans up still leave Redis eventually.
func NewSessions(client redis.UniversalClient, namespace string, retention time.Duration) *Sessions {
	return &Sessions{redis: client, keys: newKeys(namespace), retention: retention}
}

func (r *Sessions) Create(ctx context.Context, s *model.Session) error {
	tokenKey := r.keys.token(random.Fingerprint(s.Token))
	ok, err := r.redis.SetNX(ctx, tokenKey, s.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return store.ErrExists
	}

	sessionKey := r.keys.session(s.ID)
	_, err = r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionKey, encodeSession(s))
		if r.retention > 0 {
			pipe.PExpireAt(ctx, sessionKey, s.ExpiresAt.Add(r.retention))
			pipe.PExpireAt(ctx, tokenKey, s.ExpiresAt.Add(r.retention))
		}
		pipe.SAdd(ctx, r.keys.userSessions(s.UserID), s.ID)
		return nil
	})
	if err != nil {
		_ = r.redis.Del(ctx, tokenKey).Err()
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (r *Sessions) Get(ctx context.Context, id string) (*model.Session, error) {
	fields, err := r.redis.HGetAll(ctx, r.keys.session(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, store.ErrNotFound
	}
	return decodeSession(id, fields)
}

func (r *Sessions) GetByToken(ctx context.Context, token string) (*model.Session, error) {
	id, err := r.redis.Get(ctx, r.keys.token(random.Fingerprint(token))).Result()
	if err != nil {
		if isNil(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return r.Get(ctx, id)
}

// ListByUser returns the user's sessions, newest first. Index entries whose
// hash has expired are pruned on the way.
func (r *Sessions) ListByUser(ctx context.Context, userID string) ([]model.Session, error) {
	indexKey := r.keys.userSessions(userID)
	ids, err := r.redis.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := r.redis.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, r.keys.session(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	out := make([]model.Session, 0, len(ids))
	var stale []any
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			stale = append(stale, ids[i])
			continue
		}
		s, err := decodeSession(ids[i], fields)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if len(stale) > 0 {
		_ = r.redis.SRem(ctx, indexKey, stale...).Err()
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Update applies d in one script run. Access time only moves forward and
// a recorded revocation is never overwritten. An extension moves the token
// index deadline along with the hash.
func (r *Sessions) Update(ctx context.Context, id string, d model.SessionDelta) (*model.Session, error) {
	args := []any{micros(d.ExpiresAt), micros(d.LastAccessedAt), micros(d.RevokedAt), r.retention.Milliseconds()}

	keys := []string{r.keys.session(id)}
	if d.ExpiresAt != nil && r.retention > 0 {
		token, err := r.redis.HGet(ctx, keys[0], fieldToken).Result()
		if err != nil {
			if isNil(err) {
				return nil, store.ErrNotFound
			}
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		keys = append(keys, r.keys.token(random.Fingerprint(token)))
	}

	res, err := updateSessionLua.Run(ctx, r.redis, keys, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	flat, ok := res.([]any)
	if !ok {
		return nil, store.ErrNotFound
	}
	fields := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		k, _ := flat[i].(string)
		v, _ := flat[i+1].(string)
		fields[k] = v
	}
	return decodeSession(id, fields)
}

func (r *Sessions) Delete(ctx context.Context, id string) error {
	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	keys := []string{
		r.keys.session(id),
		r.keys.userSessions(s.UserID),
		r.keys.token(random.Fingerprint(s.Token)),
	}
	existed, err := deleteSessionLua.Run(ctx, r.redis, keys, id).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if existed == 0 {
		return store.ErrNotFound
	}
	return nil
}

func encodeSession(s *model.Session) map[string]any {
	return map[string]any{
		fieldUserID:       s.UserID,
		fieldTenantID:     s.TenantID,
		fieldToken:        s.Token,
		fieldCreatedAt:    micros(&s.CreatedAt),
		fieldExpiresAt:    micros(&s.ExpiresAt),
		fieldLastAccessed: micros(s.LastAccessedAt),
		fieldRevokedAt:    micros(s.RevokedAt),
		fieldIP:           s.IPAddress,
		fieldUserAgent:    s.UserAgent,
	}
}

func decodeSession(id string, f map[string]string) (*model.Session, error) {
	created, err := parseMicros(f[fieldCreatedAt])
	if err != nil || created == nil {
		return nil, fmt.Errorf("session %s: bad %s %q", id, fieldCreatedAt, f[fieldCreatedAt])
	}
	expires, err := parseMicros(f[fieldExpiresAt])
	if err != nil || expires == nil {
		return nil, fmt.Errorf("session %s: bad %s %q", id, fieldExpiresAt, f[fieldExpiresAt])
	}
	accessed, err := parseMicros(f[fieldLastAccessed])
	if err != nil {
		return nil, fmt.Errorf("session %s: bad %s: %w", id, fieldLastAccessed, err)
	}
	revoked, err := parseMicros(f[fieldRevokedAt])
	if err != nil {
		return nil, fmt.Errorf("session %s: bad %s: %w", id, fieldRevokedAt, err)
	}

	return &model.Session{
		ID:             id,
		UserID:         f[fieldUserID],
		TenantID:       f[fieldTenantID],
		Token:          f[fieldToken],
		CreatedAt:      *created,
		ExpiresAt:      *expires,
		LastAccessedAt: accessed,
		RevokedAt:      revoked,
		IPAddress:      f[fieldIP],
		UserAgent:      f[fieldUserAgent],
	}, nil
}

func micros(t *time.Time) string {
	if t == nil {
		return ""
	}
	return strconv.FormatInt(t.UnixMicro(), 10)
}

func parseMicros(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	t := time.UnixMicro(n).UTC()
	return &t, nil
}
