// Package config loads an engine configuration from an optional file and
// AUTHCORE_* environment variables using Viper. Environment variables win
// over the file and the file wins over [authcore.DefaultConfig].
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when reading the environment, so
// LOCKOUT_MAX_ATTEMPTS is read from AUTHCORE_LOCKOUT_MAX_ATTEMPTS.
const EnvPrefix = "AUTHCORE"

// Settings is the loaded configuration: the engine config plus the
// connection strings a process needs to build it.
type Settings struct {
	Engine authcore.Config
	// RedisAddr is empty when the process should use in-memory stores.
	RedisAddr string
	// PostgresDSN enables the Postgres audit store when set.
	PostgresDSN string
}

type file struct {
	LockoutMaxAttempts    int           `mapstructure:"LOCKOUT_MAX_ATTEMPTS"`
	LockoutDuration       time.Duration `mapstructure:"LOCKOUT_DURATION"`
	LockoutAlertThreshold int           `mapstructure:"LOCKOUT_ALERT_THRESHOLD"`

	RiskNewIPWeight    int           `mapstructure:"RISK_NEW_IP_WEIGHT"`
	RiskNewUAWeight    int           `mapstructure:"RISK_NEW_UA_WEIGHT"`
	RiskAdminWeight    int           `mapstructure:"RISK_ADMIN_WEIGHT"`
	RiskDormantWeight  int           `mapstructure:"RISK_DORMANT_WEIGHT"`
	RiskDormancyWindow time.Duration `mapstructure:"RISK_DORMANCY_WINDOW"`
	RiskMFAThreshold   int           `mapstructure:"RISK_MFA_THRESHOLD"`
	// RiskAdminRoles is comma separated.
	RiskAdminRoles string `mapstructure:"RISK_ADMIN_ROLES"`

	SessionDuration              time.Duration `mapstructure:"SESSION_DURATION"`
	SessionAccessUpdateThreshold time.Duration `mapstructure:"SESSION_ACCESS_UPDATE_THRESHOLD"`
	SessionExtendThreshold       time.Duration `mapstructure:"SESSION_EXTEND_THRESHOLD"`
	SessionExtension             time.Duration `mapstructure:"SESSION_EXTENSION"`
	SessionCleanupGrace          time.Duration `mapstructure:"SESSION_CLEANUP_GRACE"`
	SessionStrictIP              bool          `mapstructure:"SESSION_STRICT_IP"`
	SessionStrictUserAgent       bool          `mapstructure:"SESSION_STRICT_USER_AGENT"`

	PasswordMinLength        int    `mapstructure:"PASSWORD_MIN_LENGTH"`
	PasswordMaxLength        int    `mapstructure:"PASSWORD_MAX_LENGTH"`
	PasswordRequireUppercase bool   `mapstructure:"PASSWORD_REQUIRE_UPPERCASE"`
	PasswordRequireLowercase bool   `mapstructure:"PASSWORD_REQUIRE_LOWERCASE"`
	PasswordRequireDigit     bool   `mapstructure:"PASSWORD_REQUIRE_DIGIT"`
	PasswordRequireSpecial   bool   `mapstructure:"PASSWORD_REQUIRE_SPECIAL"`
	PasswordRejectEmailLocal bool   `mapstructure:"PASSWORD_REJECT_EMAIL_LOCAL"`
	PasswordForbidden        string `mapstructure:"PASSWORD_FORBIDDEN_SUBSTRINGS"`

	HashMemory      uint32 `mapstructure:"PASSWORD_HASH_MEMORY_KIB"`
	HashTime        uint32 `mapstructure:"PASSWORD_HASH_TIME"`
	HashParallelism uint8  `mapstructure:"PASSWORD_HASH_PARALLELISM"`
	HashSaltLength  uint32 `mapstructure:"PASSWORD_HASH_SALT_LENGTH"`
	HashKeyLength   uint32 `mapstructure:"PASSWORD_HASH_KEY_LENGTH"`

	TOTPIssuer    string `mapstructure:"TOTP_ISSUER"`
	TOTPPeriod    uint   `mapstructure:"TOTP_PERIOD"`
	TOTPDigits    int    `mapstructure:"TOTP_DIGITS"`
	TOTPAlgorithm string `mapstructure:"TOTP_ALGORITHM"`
	TOTPSkew      uint   `mapstructure:"TOTP_SKEW"`

	MFABackupCodeCount     int           `mapstructure:"MFA_BACKUP_CODE_COUNT"`
	MFABackupCodeLength    int           `mapstructure:"MFA_BACKUP_CODE_LENGTH"`
	MFARegenerateThreshold int           `mapstructure:"MFA_REGENERATE_THRESHOLD"`
	MFAPendingTTL          time.Duration `mapstructure:"MFA_PENDING_TTL"`
	MFAMaxPendingAttempts  int           `mapstructure:"MFA_MAX_PENDING_ATTEMPTS"`

	JWTEnabled       bool          `mapstructure:"JWT_ENABLED"`
	JWTSigningMethod string        `mapstructure:"JWT_SIGNING_METHOD"`
	JWTPrivateKey    string        `mapstructure:"JWT_PRIVATE_KEY"`
	JWTPublicKey     string        `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer        string        `mapstructure:"JWT_ISSUER"`
	JWTAudience      string        `mapstructure:"JWT_AUDIENCE"`
	JWTLeeway        time.Duration `mapstructure:"JWT_LEEWAY"`
	JWTMaxAge        time.Duration `mapstructure:"JWT_MAX_AGE"`
	JWTKeyID         string        `mapstructure:"JWT_KEY_ID"`

	AuditEnabled    bool `mapstructure:"AUDIT_ENABLED"`
	AuditBufferSize int  `mapstructure:"AUDIT_BUFFER_SIZE"`
	AuditDropIfFull bool `mapstructure:"AUDIT_DROP_IF_FULL"`

	MetricsEnabled bool `mapstructure:"METRICS_ENABLED"`
	MetricsLatency bool `mapstructure:"METRICS_LATENCY_HISTOGRAMS"`

	RedisAddr             string        `mapstructure:"REDIS_ADDR"`
	RedisNamespace        string        `mapstructure:"REDIS_NAMESPACE"`
	RedisSessionRetention time.Duration `mapstructure:"REDIS_SESSION_RETENTION"`

	PostgresDSN string `mapstructure:"POSTGRES_DSN"`
	TokenBytes  int    `mapstructure:"TOKEN_BYTES"`
}

// Load reads path when it is non-empty (any format Viper understands, a
// .env file included), overlays AUTHCORE_* variables and validates the
// result. A missing path is an error; pass "" to use defaults and the
// environment only.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v, authcore.DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	var f file
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	s := &Settings{
		Engine:      f.engine(),
		RedisAddr:   strings.TrimSpace(f.RedisAddr),
		PostgresDSN: strings.TrimSpace(f.PostgresDSN),
	}
	if err := s.Engine.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return s, nil
}

func setDefaults(v *viper.Viper, d authcore.Config) {
	v.SetDefault("LOCKOUT_MAX_ATTEMPTS", d.Lockout.MaxAttempts)
	v.SetDefault("LOCKOUT_DURATION", d.Lockout.LockoutDuration)
	v.SetDefault("LOCKOUT_ALERT_THRESHOLD", d.Lockout.AlertThreshold)

	v.SetDefault("RISK_NEW_IP_WEIGHT", d.Risk.NewIPWeight)
	v.SetDefault("RISK_NEW_UA_WEIGHT", d.Risk.NewUAWeight)
	v.SetDefault("RISK_ADMIN_WEIGHT", d.Risk.AdminWeight)
	v.SetDefault("RISK_DORMANT_WEIGHT", d.Risk.DormantWeight)
	v.SetDefault("RISK_DORMANCY_WINDOW", d.Risk.DormancyWindow)
	v.SetDefault("RISK_MFA_THRESHOLD", d.Risk.MFAThreshold)
	v.SetDefault("RISK_ADMIN_ROLES", strings.Join(d.Risk.AdminRoles, ","))

	v.SetDefault("SESSION_DURATION", d.Session.Duration)
	v.SetDefault("SESSION_ACCESS_UPDATE_THRESHOLD", d.Session.AccessUpdateThreshold)
	v.SetDefault("SESSION_EXTEND_THRESHOLD", d.Session.ExtendThreshold)
	v.SetDefault("SESSION_EXTENSION", d.Session.Extension)
	v.SetDefault("SESSION_CLEANUP_GRACE", d.Session.CleanupGrace)
	v.SetDefault("SESSION_STRICT_IP", d.SessionSecurity.StrictIPValidation)
	v.SetDefault("SESSION_STRICT_USER_AGENT", d.SessionSecurity.StrictUserAgentValidation)

	v.SetDefault("PASSWORD_MIN_LENGTH", d.Password.MinLength)
	v.SetDefault("PASSWORD_MAX_LENGTH", d.Password.MaxLength)
	v.SetDefault("PASSWORD_REQUIRE_UPPERCASE", d.Password.RequireUppercase)
	v.SetDefault("PASSWORD_REQUIRE_LOWERCASE", d.Password.RequireLowercase)
	v.SetDefault("PASSWORD_REQUIRE_DIGIT", d.Password.RequireDigit)
	v.SetDefault("PASSWORD_REQUIRE_SPECIAL", d.Password.RequireSpecial)
	v.SetDefault("PASSWORD_REJECT_EMAIL_LOCAL", d.Password.RejectEmailLocal)
	v.SetDefault("PASSWORD_FORBIDDEN_SUBSTRINGS", strings.Join(d.Password.ForbiddenSubstrings, ","))

	v.SetDefault("PASSWORD_HASH_MEMORY_KIB", d.PasswordHash.Memory)
	v.SetDefault("PASSWORD_HASH_TIME", d.PasswordHash.Time)
	v.SetDefault("PASSWORD_HASH_PARALLELISM", d.PasswordHash.Parallelism)
	v.SetDefault("PASSWORD_HASH_SALT_LENGTH", d.PasswordHash.SaltLength)
	v.SetDefault("PASSWORD_HASH_KEY_LENGTH", d.PasswordHash.KeyLength)

	v.SetDefault("TOTP_ISSUER", d.MFA.TOTP.Issuer)
	v.SetDefault("TOTP_PERIOD", d.MFA.TOTP.Period)
	v.SetDefault("TOTP_DIGITS", d.MFA.TOTP.Digits)
	v.SetDefault("TOTP_ALGORITHM", d.MFA.TOTP.Algorithm)
	v.SetDefault("TOTP_SKEW", d.MFA.TOTP.Skew)

	v.SetDefault("MFA_BACKUP_CODE_COUNT", d.MFA.BackupCodeCount)
	v.SetDefault("MFA_BACKUP_CODE_LENGTH", d.MFA.BackupCodeLength)
	v.SetDefault("MFA_REGENERATE_THRESHOLD", d.MFA.RegenerateThreshold)
	v.SetDefault("MFA_PENDING_TTL", d.MFA.PendingTTL)
	v.SetDefault("MFA_MAX_PENDING_ATTEMPTS", d.MFA.MaxPendingAttempts)

	v.SetDefault("JWT_ENABLED", d.JWT.Enabled)
	v.SetDefault("JWT_SIGNING_METHOD", d.JWT.SigningMethod)
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", d.JWT.Issuer)
	v.SetDefault("JWT_AUDIENCE", d.JWT.Audience)
	v.SetDefault("JWT_LEEWAY", d.JWT.Leeway)
	v.SetDefault("JWT_MAX_AGE", d.JWT.MaxAge)
	v.SetDefault("JWT_KEY_ID", d.JWT.KeyID)

	v.SetDefault("AUDIT_ENABLED", d.Audit.Enabled)
	v.SetDefault("AUDIT_BUFFER_SIZE", d.Audit.BufferSize)
	v.SetDefault("AUDIT_DROP_IF_FULL", d.Audit.DropIfFull)

	v.SetDefault("METRICS_ENABLED", d.Metrics.Enabled)
	v.SetDefault("METRICS_LATENCY_HISTOGRAMS", d.Metrics.EnableLatencyHistograms)

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_NAMESPACE", d.Redis.Namespace)
	v.SetDefault("REDIS_SESSION_RETENTION", d.Redis.SessionRetention)

	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("TOKEN_BYTES", d.TokenBytes)
}

func (f file) engine() authcore.Config {
	c := authcore.DefaultConfig()

	c.Lockout.MaxAttempts = f.LockoutMaxAttempts
	c.Lockout.LockoutDuration = f.LockoutDuration
	c.Lockout.AlertThreshold = f.LockoutAlertThreshold

	c.Risk.NewIPWeight = f.RiskNewIPWeight
	c.Risk.NewUAWeight = f.RiskNewUAWeight
	c.Risk.AdminWeight = f.RiskAdminWeight
	c.Risk.DormantWeight = f.RiskDormantWeight
	c.Risk.DormancyWindow = f.RiskDormancyWindow
	c.Risk.MFAThreshold = f.RiskMFAThreshold
	c.Risk.AdminRoles = splitList(f.RiskAdminRoles)

	c.Session.Duration = f.SessionDuration
	c.Session.AccessUpdateThreshold = f.SessionAccessUpdateThreshold
	c.Session.ExtendThreshold = f.SessionExtendThreshold
	c.Session.Extension = f.SessionExtension
	c.Session.CleanupGrace = f.SessionCleanupGrace
	c.SessionSecurity.StrictIPValidation = f.SessionStrictIP
	c.SessionSecurity.StrictUserAgentValidation = f.SessionStrictUserAgent

	c.Password.MinLength = f.PasswordMinLength
	c.Password.MaxLength = f.PasswordMaxLength
	c.Password.RequireUppercase = f.PasswordRequireUppercase
	c.Password.RequireLowercase = f.PasswordRequireLowercase
	c.Password.RequireDigit = f.PasswordRequireDigit
	c.Password.RequireSpecial = f.PasswordRequireSpecial
	c.Password.RejectEmailLocal = f.PasswordRejectEmailLocal
	c.Password.ForbiddenSubstrings = splitList(f.PasswordForbidden)

	c.PasswordHash.Memory = f.HashMemory
	c.PasswordHash.Time = f.HashTime
	c.PasswordHash.Parallelism = f.HashParallelism
	c.PasswordHash.SaltLength = f.HashSaltLength
	c.PasswordHash.KeyLength = f.HashKeyLength

	c.MFA.TOTP.Issuer = f.TOTPIssuer
	c.MFA.TOTP.Period = f.TOTPPeriod
	c.MFA.TOTP.Digits = f.TOTPDigits
	c.MFA.TOTP.Algorithm = f.TOTPAlgorithm
	c.MFA.TOTP.Skew = f.TOTPSkew
	c.MFA.BackupCodeCount = f.MFABackupCodeCount
	c.MFA.BackupCodeLength = f.MFABackupCodeLength
	c.MFA.RegenerateThreshold = f.MFARegenerateThreshold
	c.MFA.PendingTTL = f.MFAPendingTTL
	c.MFA.MaxPendingAttempts = f.MFAMaxPendingAttempts

	c.JWT.Enabled = f.JWTEnabled
	c.JWT.SigningMethod = strings.ToLower(strings.TrimSpace(f.JWTSigningMethod))
	c.JWT.PrivateKey = keyBytes(f.JWTPrivateKey)
	c.JWT.PublicKey = keyBytes(f.JWTPublicKey)
	c.JWT.Issuer = f.JWTIssuer
	c.JWT.Audience = f.JWTAudience
	c.JWT.Leeway = f.JWTLeeway
	c.JWT.MaxAge = f.JWTMaxAge
	c.JWT.KeyID = f.JWTKeyID

	c.Audit.Enabled = f.AuditEnabled
	c.Audit.BufferSize = f.AuditBufferSize
	c.Audit.DropIfFull = f.AuditDropIfFull

	c.Metrics.Enabled = f.MetricsEnabled
	c.Metrics.EnableLatencyHistograms = f.MetricsLatency

	c.Redis.Namespace = f.RedisNamespace
	c.Redis.SessionRetention = f.RedisSessionRetention
	c.TokenBytes = f.TokenBytes
	return c
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// keyBytes accepts PEM text with literal "\n" escapes, as env files
// usually carry it.
func keyBytes(s string) []byte {
	if s == "" {
		return nil
	}
	return []byte(strings.ReplaceAll(s, `\n`, "\n"))
}
