package mfa

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPConfig configures RFC 6238 codes.
type TOTPConfig struct {
	Issuer    string
	Period    uint
	Digits    int
	Algorithm string
	Skew      uint
}

// DefaultTOTPConfig returns 30 second, 6 digit SHA1 codes with one step of
// clock skew on either side.
func DefaultTOTPConfig() TOTPConfig {
	return TOTPConfig{
		Issuer:    "authcore",
		Period:    30,
		Digits:    6,
		Algorithm: "SHA1",
		Skew:      1,
	}
}

// Validate checks the config against what authenticator apps accept.
func (c TOTPConfig) Validate() error {
	if strings.TrimSpace(c.Issuer) == "" {
		return errors.New("totp issuer must be set")
	}
	if c.Period == 0 {
		return errors.New("totp period must be > 0")
	}
	if c.Digits != 6 && c.Digits != 8 {
		return errors.New("totp digits must be 6 or 8")
	}
	if c.Skew > 3 {
		return errors.New("totp skew must be <= 3")
	}
	if _, err := algorithm(c.Algorithm); err != nil {
		return err
	}
	return nil
}

// Enrollment is a freshly generated shared secret.
type Enrollment struct {
	Secret string
	URI    string
}

// TOTP generates secrets and verifies codes.
type TOTP struct {
	config TOTPConfig
	algo   otp.Algorithm
}

// NewTOTP validates cfg and returns a verifier.
func NewTOTP(cfg TOTPConfig) (*TOTP, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	algo, _ := algorithm(cfg.Algorithm)
	return &TOTP{config: cfg, algo: algo}, nil
}

// Generate creates a new base32 secret and the otpauth:// provisioning URI
// for account.
func (t *TOTP) Generate(account string) (Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      t.config.Issuer,
		AccountName: account,
		Period:      t.config.Period,
		Digits:      otp.Digits(t.config.Digits),
		Algorithm:   t.algo,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("generate totp secret: %w", err)
	}
	return Enrollment{Secret: key.Secret(), URI: key.URL()}, nil
}

// Code returns the code for secret at now.
func (t *TOTP) Code(secret string, now time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, now, t.opts())
}

// Verify reports whether code is valid for secret at now within the
// configured skew. Malformed codes are reported as invalid, not as errors.
func (t *TOTP) Verify(secret, code string, now time.Time) (bool, error) {
	code = strings.TrimSpace(code)
	if len(code) != t.config.Digits {
		return false, nil
	}
	if secret == "" {
		return false, errors.New("empty totp secret")
	}

	period := time.Duration(t.config.Period) * time.Second
	skew := int(t.config.Skew)
	matched := 0
	for step := -skew; step <= skew; step++ {
		want, err := t.Code(secret, now.Add(time.Duration(step)*period))
		if err != nil {
			return false, err
		}
		matched |= subtle.ConstantTimeCompare([]byte(want), []byte(code))
	}
	return matched == 1, nil
}

func (t *TOTP) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    t.config.Period,
		Digits:    otp.Digits(t.config.Digits),
		Algorithm: t.algo,
	}
}

func algorithm(name string) (otp.Algorithm, error) {
	switch strings.ToUpper(name) {
	case "", "SHA1":
		return otp.AlgorithmSHA1, nil
	case "SHA256":
		return otp.AlgorithmSHA256, nil
	case "SHA512":
		return otp.AlgorithmSHA512, nil
	default:
		return 0, errors.New("unsupported totp algorithm")
	}
}
