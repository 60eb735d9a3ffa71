package authcore

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/lockout"
	"github.com/MrEthical07/authcore/mfa"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/risk"
	"github.com/MrEthical07/authcore/session"
)

// Config is the full engine configuration. Start from [DefaultConfig] and
// override what differs.
type Config struct {
	Lockout         lockout.Policy
	Risk            risk.Policy
	Session         session.Policy
	SessionSecurity session.SecurityPolicy
	Password        password.Policy
	PasswordHash    password.HashConfig
	MFA             MFAConfig
	JWT             JWTConfig
	Audit           AuditConfig
	Metrics         MetricsConfig
	Redis           RedisConfig

	// TokenBytes is the entropy of opaque session tokens. Ignored when
	// JWT is enabled.
	TokenBytes int
}

// MFAConfig controls enrollment and the pending-login challenge.
type MFAConfig struct {
	TOTP                mfa.TOTPConfig
	BackupCodeCount     int
	BackupCodeLength    int
	RegenerateThreshold int
	PendingTTL          time.Duration
	MaxPendingAttempts  int
}

// JWTConfig switches session tokens from opaque random strings to signed
// handles.
type JWTConfig struct {
	Enabled       bool
	SigningMethod string
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	MaxAge        time.Duration
	KeyID         string
}

// AuditConfig controls the audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// RedisConfig applies when the engine is built with WithRedis.
type RedisConfig struct {
	Namespace        string
	SessionRetention time.Duration
}

// DefaultConfig returns production defaults for every component.
func DefaultConfig() Config {
	return Config{
		Lockout:         lockout.DefaultPolicy(),
		Risk:            risk.DefaultPolicy(),
		Session:         session.DefaultPolicy(),
		SessionSecurity: session.SecurityPolicy{},
		Password:        password.DefaultPolicy(),
		PasswordHash:    password.DefaultHashConfig(),
		MFA: MFAConfig{
			TOTP:                mfa.DefaultTOTPConfig(),
			BackupCodeCount:     10,
			BackupCodeLength:    10,
			RegenerateThreshold: 3,
			PendingTTL:          5 * time.Minute,
			MaxPendingAttempts:  5,
		},
		JWT: JWTConfig{
			SigningMethod: "ed25519",
			Issuer:        "authcore",
			MaxAge:        30 * 24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Redis: RedisConfig{
			Namespace:        "authcore",
			SessionRetention: 7 * 24 * time.Hour,
		},
		TokenBytes: 32,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Risk.AdminRoles = append([]string(nil), cfg.Risk.AdminRoles...)
	out.Password.ForbiddenSubstrings = append([]string(nil), cfg.Password.ForbiddenSubstrings...)
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// Validate rejects configurations the engine cannot run safely with.
func (c *Config) Validate() error {
	// Lockout
	if c.Lockout.MaxAttempts < 0 || c.Lockout.AlertThreshold < 0 {
		return errors.New("Lockout thresholds must be >= 0")
	}
	if c.Lockout.MaxAttempts > 0 && c.Lockout.LockoutDuration <= 0 {
		return errors.New("Lockout LockoutDuration must be > 0 when MaxAttempts is set")
	}

	// Risk
	if c.Risk.NewIPWeight < 0 || c.Risk.NewUAWeight < 0 || c.Risk.AdminWeight < 0 || c.Risk.DormantWeight < 0 {
		return errors.New("Risk weights must be >= 0")
	}
	if c.Risk.DormancyWindow <= 0 {
		return errors.New("Risk DormancyWindow must be > 0")
	}

	// Session
	if c.Session.Duration <= 0 {
		return errors.New("Session Duration must be > 0")
	}
	if c.Session.AccessUpdateThreshold < 0 || c.Session.ExtendThreshold < 0 || c.Session.Extension < 0 {
		return errors.New("Session thresholds must be >= 0")
	}
	if c.Session.CleanupGrace < 0 {
		return errors.New("Session CleanupGrace must be >= 0")
	}

	// Password
	if c.Password.MinLength < 0 || c.Password.MaxLength < 0 {
		return errors.New("Password length bounds must be >= 0")
	}
	if c.Password.MaxLength > 0 && c.Password.MinLength > c.Password.MaxLength {
		return errors.New("Password MinLength must be <= MaxLength")
	}
	if err := c.PasswordHash.Validate(); err != nil {
		return err
	}

	// MFA
	if err := c.MFA.TOTP.Validate(); err != nil {
		return err
	}
	if c.MFA.BackupCodeCount < 1 || c.MFA.BackupCodeCount > 100 {
		return errors.New("MFA BackupCodeCount must be in 1..100")
	}
	if c.MFA.BackupCodeLength < 8 || c.MFA.BackupCodeLength > 32 {
		return errors.New("MFA BackupCodeLength must be in 8..32")
	}
	if c.MFA.RegenerateThreshold < 0 {
		return errors.New("MFA RegenerateThreshold must be >= 0")
	}
	if c.MFA.PendingTTL <= 0 {
		return errors.New("MFA PendingTTL must be > 0")
	}
	if c.MFA.MaxPendingAttempts < 1 {
		return errors.New("MFA MaxPendingAttempts must be >= 1")
	}

	// JWT
	if c.JWT.Enabled {
		switch c.JWT.SigningMethod {
		case "ed25519":
			if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
				return errors.New("ed25519 requires PrivateKey and PublicKey")
			}
		case "hs256":
			if len(c.JWT.PrivateKey) < 32 {
				return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
			}
		default:
			return fmt.Errorf("unsupported JWT signing method %q", c.JWT.SigningMethod)
		}
		if c.JWT.MaxAge < c.Session.Duration {
			return errors.New("JWT MaxAge must be >= Session Duration")
		}
	} else if c.TokenBytes < 16 {
		return errors.New("TokenBytes must be >= 16")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Redis
	if c.Redis.SessionRetention < 0 {
		return errors.New("Redis SessionRetention must be >= 0")
	}

	return nil
}
