package password

import (
	"errors"
	"strings"
	"testing"
)

func testHashConfig() HashConfig {
	return HashConfig{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func TestArgon2HashVerify(t *testing.T) {
	h, err := NewArgon2(testHashConfig())
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}

	encoded, err := h.Hash("Correct-Horse-9")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", encoded)
	}

	ok, err := h.Verify("Correct-Horse-9", encoded)
	if err != nil || !ok {
		t.Fatalf("expected match, got %v %v", ok, err)
	}
	ok, err = h.Verify("correct-horse-9", encoded)
	if err != nil || ok {
		t.Fatalf("expected mismatch, got %v %v", ok, err)
	}

	other, err := h.Hash("Correct-Horse-9")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if other == encoded {
		t.Fatal("expected distinct salts")
	}
}

func TestArgon2RejectsMalformed(t *testing.T) {
	h, err := NewArgon2(testHashConfig())
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}

	for _, bad := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$short$aGFzaA",
	} {
		if _, err := h.Verify("x", bad); !errors.Is(err, ErrInvalidHash) {
			t.Fatalf("%q: expected ErrInvalidHash, got %v", bad, err)
		}
	}

	if _, err := h.Verify("x", "$argon2id$v=16$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA"); !errors.Is(err, ErrIncompatibleVersion) {
		t.Fatalf("expected ErrIncompatibleVersion, got %v", err)
	}
}

func TestArgon2NeedsUpgrade(t *testing.T) {
	weak, err := NewArgon2(testHashConfig())
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	encoded, err := weak.Hash("Correct-Horse-9")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	cfg := testHashConfig()
	cfg.Time = 2
	strong, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}

	if up, err := weak.NeedsUpgrade(encoded); err != nil || up {
		t.Fatalf("same params must not need upgrade: %v %v", up, err)
	}
	if up, err := strong.NeedsUpgrade(encoded); err != nil || !up {
		t.Fatalf("higher time cost must need upgrade: %v %v", up, err)
	}
}

func TestHashConfigValidate(t *testing.T) {
	if err := DefaultHashConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg := testHashConfig()
	cfg.SaltLength = 8
	if _, err := NewArgon2(cfg); err == nil {
		t.Fatal("expected short salt to be rejected")
	}
}
