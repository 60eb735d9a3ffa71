package session

import (
	"crypto/subtle"

	"github.com/MrEthical07/authcore/model"
)

// SecurityPolicy selects which recorded context values must match.
type SecurityPolicy struct {
	StrictIPValidation        bool
	StrictUserAgentValidation bool
}

// ContextCheck is the result of [ValidateContext].
type ContextCheck struct {
	Valid  bool
	Reason model.Reason
	Detail string
}

// ValidateContext compares the request context with what the session
// recorded at login. A value the session never recorded cannot mismatch.
func ValidateContext(s model.Session, rc model.RequestContext, p SecurityPolicy) ContextCheck {
	if p.StrictIPValidation && s.IPAddress != "" && !equal(s.IPAddress, rc.IP) {
		return ContextCheck{Reason: model.ReasonIPMismatch, Detail: "request IP does not match session"}
	}
	if p.StrictUserAgentValidation && s.UserAgent != "" && !equal(s.UserAgent, rc.UserAgent) {
		return ContextCheck{Reason: model.ReasonUserAgentMismatch, Detail: "request user agent does not match session"}
	}
	return ContextCheck{Valid: true}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
