// Package random produces opaque tokens from crypto/rand.
package random

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// MinTokenBytes is the smallest entropy accepted for bearer values.
const MinTokenBytes = 16

var errTokenSize = errors.New("token size below minimum")

// Token returns n random bytes encoded as unpadded base64url.
func Token(n int) (string, error) {
	if n < MinTokenBytes {
		return "", errTokenSize
	}
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Fingerprint is the hex SHA-256 of a token. Stores index by fingerprint so
// the bearer value never becomes a key.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
