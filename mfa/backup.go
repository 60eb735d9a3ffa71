package mfa

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// BackupCodeAlphabet omits characters that are easy to confuse (0/O, 1/I).
const BackupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateBackupCodes returns n distinct random codes of length characters.
func GenerateBackupCodes(n, length int) ([]string, error) {
	if n <= 0 || n > 100 {
		return nil, errors.New("backup code count must be within 1..100")
	}
	if length < 8 || length > 32 {
		return nil, errors.New("backup code length must be within 8..32")
	}

	seen := make(map[string]struct{}, n)
	codes := make([]string, 0, n)
	for len(codes) < n {
		code, err := randomCode(length)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(BackupCodeAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = BackupCodeAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
