package authcore

import (
	"errors"
	"fmt"
	"io"

	"github.com/MrEthical07/authcore/audit"
	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/challenge"
	"github.com/MrEthical07/authcore/internal/keylock"
	"github.com/MrEthical07/authcore/internal/random"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/login"
	"github.com/MrEthical07/authcore/mfa"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/store/redisstore"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. It is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users     UserRepository
	sessions  SessionRepository
	auditSink AuditSink
	auditTees []internalaudit.Sink

	logger    *zap.Logger
	clock     Clock
	ids       IDGenerator
	tokens    TokenIssuer
	passwords PasswordVerifier
	totp      TOTPVerifier
	enroller  TOTPEnroller

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs users, sessions and pending MFA challenges with client
// unless a repository was set explicitly.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserRepository(r UserRepository) *Builder {
	b.users = r
	return b
}

func (b *Builder) WithSessionRepository(r SessionRepository) *Builder {
	b.sessions = r
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithAuditStore appends every audit entry to store after the primary
// sink has seen it. Append failures go to onError, which may be nil.
func (b *Builder) WithAuditStore(store AuditStore, onError func(audit.Entry, error)) *Builder {
	if store != nil {
		b.auditTees = append(b.auditTees, internalaudit.NewStoreSink(store, onError))
	}
	return b
}

// WithAuditWriter writes every audit entry to w as one JSON object per line.
func (b *Builder) WithAuditWriter(w io.Writer) *Builder {
	if w != nil {
		b.auditTees = append(b.auditTees, internalaudit.NewJSONWriterSink(w))
	}
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithClock(c Clock) *Builder {
	b.clock = c
	return b
}

func (b *Builder) WithIDGenerator(g IDGenerator) *Builder {
	b.ids = g
	return b
}

func (b *Builder) WithTokenIssuer(t TokenIssuer) *Builder {
	b.tokens = t
	return b
}

func (b *Builder) WithPasswordVerifier(v PasswordVerifier) *Builder {
	b.passwords = v
	return b
}

// WithTOTP replaces code verification. If v also implements
// [TOTPEnroller] it is used for enrollment too.
func (b *Builder) WithTOTP(v TOTPVerifier) *Builder {
	b.totp = v
	if en, ok := v.(TOTPEnroller); ok {
		b.enroller = en
	}
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, fills in defaults and starts the
// audit dispatcher.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	users, sessions := b.users, b.sessions
	if b.redis != nil {
		if users == nil {
			users = redisstore.NewUsers(b.redis, cfg.Redis.Namespace)
		}
		if sessions == nil {
			sessions = redisstore.NewSessions(b.redis, cfg.Redis.Namespace, cfg.Redis.SessionRetention)
		}
	}
	if users == nil {
		return nil, errors.New("user repository or redis client required")
	}
	if sessions == nil {
		return nil, errors.New("session repository or redis client required")
	}

	var challenges challenge.Store = challenge.NewMemoryStore()
	if b.redis != nil {
		challenges = challenge.NewRedisStore(b.redis, cfg.Redis.Namespace)
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clock := b.clock
	if clock == nil {
		clock = systemClock{}
	}
	ids := b.ids
	if ids == nil {
		ids = uuidGenerator{}
	}

	passwords := b.passwords
	if passwords == nil {
		hasher, err := password.NewArgon2(cfg.PasswordHash)
		if err != nil {
			return nil, err
		}
		passwords = hasher
	}
	decoy, err := decoyHash(passwords)
	if err != nil {
		return nil, err
	}

	totpVerifier, enroller := b.totp, b.enroller
	if totpVerifier == nil || enroller == nil {
		t, err := mfa.NewTOTP(cfg.MFA.TOTP)
		if err != nil {
			return nil, err
		}
		if totpVerifier == nil {
			totpVerifier = t
		}
		if enroller == nil {
			enroller = t
		}
	}

	tokens := b.tokens
	if tokens == nil {
		if cfg.JWT.Enabled {
			m, err := jwt.NewManager(jwt.Config{
				SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
				PrivateKey:    cfg.JWT.PrivateKey,
				PublicKey:     cfg.JWT.PublicKey,
				Issuer:        cfg.JWT.Issuer,
				Audience:      cfg.JWT.Audience,
				Leeway:        cfg.JWT.Leeway,
				MaxAge:        cfg.JWT.MaxAge,
				KeyID:         cfg.JWT.KeyID,
				Now:           clock.Now,
			})
			if err != nil {
				return nil, fmt.Errorf("jwt: %w", err)
			}
			tokens = m
		} else {
			tokens = opaqueTokens{size: cfg.TokenBytes}
		}
	}

	var sink internalaudit.Sink = internalaudit.NewZapSink(logger)
	if b.auditSink != nil {
		sink = b.auditSink
	}
	if len(b.auditTees) > 0 {
		sink = append(internalaudit.MultiSink{sink}, b.auditTees...)
	}

	b.built = true
	return &Engine{
		config:     cfg,
		policy:     login.Policy{Lockout: cfg.Lockout, Risk: cfg.Risk},
		users:      users,
		sessions:   sessions,
		challenges: challenges,
		logger:     logger.Named("authcore"),
		clock:      clock,
		ids:        ids,
		tokens:     tokens,
		passwords:  passwords,
		decoyHash:  decoy,
		totp:       totpVerifier,
		enroller:   enroller,
		locks:      keylock.New(),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, sink),
		metrics: NewMetrics(cfg.Metrics),
	}, nil
}

// decoyHash hashes a random password when the verifier can hash, so
// logins for unknown emails pay the same verification cost.
func decoyHash(v PasswordVerifier) (string, error) {
	h, ok := v.(interface {
		Hash(password string) (string, error)
	})
	if !ok {
		return "", nil
	}
	pw, err := random.Token(16)
	if err != nil {
		return "", err
	}
	return h.Hash(pw)
}
