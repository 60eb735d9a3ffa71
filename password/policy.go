package password

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ViolationCode identifies one failed policy check.
type ViolationCode string

const (
	ViolationTooShort           ViolationCode = "too_short"
	ViolationTooLong            ViolationCode = "too_long"
	ViolationMissingUppercase   ViolationCode = "missing_uppercase"
	ViolationMissingLowercase   ViolationCode = "missing_lowercase"
	ViolationMissingDigit       ViolationCode = "missing_digit"
	ViolationMissingSpecial     ViolationCode = "missing_special"
	ViolationForbiddenSubstring ViolationCode = "forbidden_substring"
	ViolationContainsEmail      ViolationCode = "contains_email"
)

// Policy configures [MeetsPolicy]. A zero length bound disables that
// bound; every other check is switched on by its own field.
type Policy struct {
	MinLength           int
	MaxLength           int
	RequireUppercase    bool
	RequireLowercase    bool
	RequireDigit        bool
	RequireSpecial      bool
	ForbiddenSubstrings []string
	RejectEmailLocal    bool
}

// DefaultPolicy mirrors the baseline used by the login service.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:           8,
		MaxLength:           128,
		RequireUppercase:    true,
		RequireLowercase:    true,
		RequireDigit:        true,
		ForbiddenSubstrings: []string{"password", "qwerty", "123456", "letmein"},
		RejectEmailLocal:    true,
	}
}

// UserContext carries optional account data the policy can check against.
type UserContext struct {
	Email string
}

// Violation is one failed check.
type Violation struct {
	Code    ViolationCode `json:"code"`
	Message string        `json:"message"`
}

// Result is the outcome of [MeetsPolicy].
type Result struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
}

// Has reports whether the result contains code.
func (r Result) Has(code ViolationCode) bool {
	for _, v := range r.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// MeetsPolicy runs every enabled check and collects all violations in a
// fixed order. Length is counted in runes.
func MeetsPolicy(pw string, p Policy, uc *UserContext) Result {
	var out []Violation
	add := func(code ViolationCode, msg string) {
		out = append(out, Violation{Code: code, Message: msg})
	}

	n := utf8.RuneCountInString(pw)
	if p.MinLength > 0 && n < p.MinLength {
		add(ViolationTooShort, fmt.Sprintf("must be at least %d characters", p.MinLength))
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		add(ViolationTooLong, fmt.Sprintf("must be at most %d characters", p.MaxLength))
	}

	c := classify(pw)
	if p.RequireUppercase && !c.upper {
		add(ViolationMissingUppercase, "must contain an uppercase letter")
	}
	if p.RequireLowercase && !c.lower {
		add(ViolationMissingLowercase, "must contain a lowercase letter")
	}
	if p.RequireDigit && !c.digit {
		add(ViolationMissingDigit, "must contain a digit")
	}
	if p.RequireSpecial && !c.special {
		add(ViolationMissingSpecial, "must contain a special character")
	}

	lowered := strings.ToLower(pw)
	for _, banned := range p.ForbiddenSubstrings {
		b := strings.ToLower(strings.TrimSpace(banned))
		if b != "" && strings.Contains(lowered, b) {
			add(ViolationForbiddenSubstring, "contains a common word or pattern")
			break
		}
	}

	if p.RejectEmailLocal && uc != nil {
		if local := emailLocalPart(uc.Email); local != "" && strings.Contains(lowered, local) {
			add(ViolationContainsEmail, "must not contain your email address")
		}
	}

	return Result{Valid: len(out) == 0, Violations: out}
}

func emailLocalPart(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return strings.ToLower(email)
	}
	return strings.ToLower(email[:at])
}

type classes struct {
	upper, lower, digit, special bool
}

func (c classes) count() int {
	n := 0
	for _, ok := range [...]bool{c.upper, c.lower, c.digit, c.special} {
		if ok {
			n++
		}
	}
	return n
}

func classify(pw string) classes {
	var c classes
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			c.upper = true
		case unicode.IsLower(r):
			c.lower = true
		case unicode.IsDigit(r):
			c.digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r):
			c.special = true
		}
	}
	return c
}
