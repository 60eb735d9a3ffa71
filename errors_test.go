package authcore

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/model"
)

func TestDenialErrorMatchesSentinel(t *testing.T) {
	cases := []struct {
		reason model.Reason
		want   error
	}{
		{model.ReasonInvalidCredentials, ErrInvalidCredentials},
		{model.ReasonAccountDeleted, ErrInvalidCredentials},
		{model.ReasonAccountLocked, ErrAccountLocked},
		{model.ReasonMFAPending, ErrMFARequired},
		{model.ReasonSessionRevoked, ErrSessionRevoked},
		{model.ReasonUserAgentMismatch, ErrSessionContextMismatch},
		{model.Reason("unknown"), ErrInvalidCredentials},
	}
	for _, tc := range cases {
		err := fmt.Errorf("wrapped: %w", deny(tc.reason))
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected errors.Is(%v)", tc.reason, tc.want)
		}
		if ReasonOf(err) != tc.reason {
			t.Fatalf("ReasonOf = %q, want %q", ReasonOf(err), tc.reason)
		}
	}
}

func TestDenialErrorMessage(t *testing.T) {
	err := &DenialError{Reason: model.ReasonAccountLocked, RetryAfter: 90 * time.Second}
	if got := err.Error(); got != "account_locked (retry after 1m30s)" {
		t.Fatalf("unexpected message %q", got)
	}
	if ReasonOf(errors.New("plain")) != model.ReasonNone {
		t.Fatal("plain errors have no reason")
	}
}

func TestUnavailableWrapsKind(t *testing.T) {
	err := unavailable(ErrStoreUnavailable, errors.New("dial tcp: refused"))
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatal("expected store sentinel")
	}
}
