package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/authcore"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(s.Engine, authcore.DefaultConfig()) {
		t.Fatalf("defaults drifted:\n got %+v\nwant %+v", s.Engine, authcore.DefaultConfig())
	}
	if s.RedisAddr != "" || s.PostgresDSN != "" {
		t.Fatalf("unexpected connection settings %+v", s)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AUTHCORE_LOCKOUT_MAX_ATTEMPTS", "3")
	t.Setenv("AUTHCORE_LOCKOUT_DURATION", "30m")
	t.Setenv("AUTHCORE_RISK_ADMIN_ROLES", "root, ops ,")
	t.Setenv("AUTHCORE_SESSION_STRICT_IP", "true")
	t.Setenv("AUTHCORE_REDIS_ADDR", "localhost:6379")

	s, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Engine.Lockout.MaxAttempts != 3 || s.Engine.Lockout.LockoutDuration != 30*time.Minute {
		t.Fatalf("lockout not overridden: %+v", s.Engine.Lockout)
	}
	if !reflect.DeepEqual(s.Engine.Risk.AdminRoles, []string{"root", "ops"}) {
		t.Fatalf("unexpected admin roles %q", s.Engine.Risk.AdminRoles)
	}
	if !s.Engine.SessionSecurity.StrictIPValidation {
		t.Fatalf("strict IP not enabled")
	}
	if s.RedisAddr != "localhost:6379" {
		t.Fatalf("unexpected redis addr %q", s.RedisAddr)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authcore.yaml")
	body := strings.Join([]string{
		"MFA_PENDING_TTL: 2m",
		"MFA_MAX_PENDING_ATTEMPTS: 4",
		"TOTP_ISSUER: Example Corp",
		"AUDIT_BUFFER_SIZE: 64",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AUTHCORE_AUDIT_BUFFER_SIZE", "128")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Engine.MFA.PendingTTL != 2*time.Minute || s.Engine.MFA.MaxPendingAttempts != 4 {
		t.Fatalf("file values not applied: %+v", s.Engine.MFA)
	}
	if s.Engine.MFA.TOTP.Issuer != "Example Corp" {
		t.Fatalf("unexpected issuer %q", s.Engine.MFA.TOTP.Issuer)
	}
	if s.Engine.Audit.BufferSize != 128 {
		t.Fatalf("environment must win over the file, got %d", s.Engine.Audit.BufferSize)
	}
}

func TestLoadJWTKeyFromEnv(t *testing.T) {
	t.Setenv("AUTHCORE_JWT_ENABLED", "true")
	t.Setenv("AUTHCORE_JWT_SIGNING_METHOD", "HS256")
	t.Setenv("AUTHCORE_JWT_PRIVATE_KEY", "0123456789abcdef0123456789abcdef")

	s, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !s.Engine.JWT.Enabled || s.Engine.JWT.SigningMethod != "hs256" || len(s.Engine.JWT.PrivateKey) != 32 {
		t.Fatalf("unexpected jwt config %+v", s.Engine.JWT)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("AUTHCORE_SESSION_DURATION", "0s")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "Session Duration") {
		t.Fatalf("expected session duration error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestKeyBytesUnescapesNewlines(t *testing.T) {
	got := string(keyBytes(`-----BEGIN PUBLIC KEY-----\nabc\n-----END PUBLIC KEY-----`))
	if strings.Count(got, "\n") != 2 {
		t.Fatalf("newlines not restored: %q", got)
	}
	if keyBytes("") != nil {
		t.Fatalf("empty key must be nil")
	}
}
