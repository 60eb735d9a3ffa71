package random

import (
	"encoding/base64"
	"testing"
)

func TestTokenLengthAndUniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 64; i++ {
		tok, err := Token(32)
		if err != nil {
			t.Fatalf("Token: %v", err)
		}
		raw, err := base64.RawURLEncoding.DecodeString(tok)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(raw) != 32 {
			t.Fatalf("expected 32 bytes, got %d", len(raw))
		}
		if _, dup := seen[tok]; dup {
			t.Fatal("duplicate token")
		}
		seen[tok] = struct{}{}
	}
}

func TestTokenRejectsShortSize(t *testing.T) {
	if _, err := Token(MinTokenBytes - 1); err == nil {
		t.Fatal("expected error for short token")
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("abc")
	if a != Fingerprint("abc") {
		t.Fatal("fingerprint must be deterministic")
	}
	if a == Fingerprint("abd") {
		t.Fatal("fingerprint collision")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}
