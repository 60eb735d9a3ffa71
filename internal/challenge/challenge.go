// Package challenge stores pending MFA logins between the password step
// and the code step.
package challenge

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const recordVersion1 = 1

var (
	ErrNotFound = errors.New("mfa challenge not found")
	ErrExpired  = errors.New("mfa challenge expired")
	ErrBackend  = errors.New("mfa challenge backend unavailable")
)

// Challenge is the state carried from a password-verified login to its
// MFA confirmation.
type Challenge struct {
	UserID    string
	TenantID  string
	IPAddress string
	UserAgent string
	RiskScore uint16
	ExpiresAt int64
	Attempts  uint16
}

// Expired reports whether the challenge has passed its deadline at now.
func (c *Challenge) Expired(now time.Time) bool {
	return now.Unix() > c.ExpiresAt
}

// Store persists challenges. Delete reports whether this caller removed the
// record, which makes confirmation single use.
type Store interface {
	Save(ctx context.Context, id string, c *Challenge, ttl time.Duration) error
	Get(ctx context.Context, id string, now time.Time) (*Challenge, error)
	Delete(ctx context.Context, id string) (bool, error)
	RecordFailure(ctx context.Context, id string, maxAttempts int, now time.Time) (bool, error)
}

func encode(c *Challenge) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(recordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, c.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, c.RiskScore); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, c.ExpiresAt); err != nil {
		return nil, err
	}
	for _, s := range []string{c.UserID, c.TenantID, c.IPAddress, c.UserAgent} {
		if err := writeString(&buf, s); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (*Challenge, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordVersion1 {
		return nil, errors.New("invalid mfa challenge version")
	}

	c := &Challenge{}
	if err := binary.Read(r, binary.BigEndian, &c.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &c.RiskScore); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &c.ExpiresAt); err != nil {
		return nil, err
	}
	for _, dst := range []*string{&c.UserID, &c.TenantID, &c.IPAddress, &c.UserAgent} {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		*dst = s
	}
	return c, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 65535 {
		return errors.New("mfa challenge field length exceeded")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
