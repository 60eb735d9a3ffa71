package login

import (
	"testing"
	"time"

	"github.com/MrEthical07/authcore/mfa"
	"github.com/MrEthical07/authcore/model"
)

var now = time.Date(2026, 4, 4, 4, 0, 0, 0, time.UTC)

func member() *model.User {
	last := now.Add(-time.Hour)
	return &model.User{ID: "u1", Email: "u1@example.com", Role: "member", Active: true, LastLoginAt: &last, LoginCount: 3}
}

func knownContext() ([]model.Session, model.RequestContext) {
	return []model.Session{{IPAddress: "10.0.0.1", UserAgent: "firefox"}}, model.RequestContext{IP: "10.0.0.1", UserAgent: "firefox"}
}

func TestDecideAllowsValidPassword(t *testing.T) {
	recent, rc := knownContext()
	d := Decide(Input{User: member(), PasswordValid: true, Request: rc, RecentSessions: recent}, DefaultPolicy(), now)

	if d.Outcome != Allowed || d.Reason != model.ReasonNone {
		t.Fatalf("expected allowed, got %+v", d)
	}
	if d.Risk == nil || d.Risk.Score != 0 {
		t.Fatalf("expected zero risk, got %+v", d.Risk)
	}
	u := member().Apply(d.Delta)
	if u.LoginCount != 4 || !u.LastLoginAt.Equal(now) || u.FailedLoginCount != 0 {
		t.Fatalf("success delta not applied: %+v", u)
	}
}

func TestDecideRejectsAtAdmission(t *testing.T) {
	until := now.Add(5 * time.Minute)
	u := member()
	u.LockoutUntil = &until
	u.FailedLoginCount = 5

	d := Decide(Input{User: u, PasswordValid: true}, DefaultPolicy(), now)
	if d.Outcome != Denied || d.Reason != model.ReasonAccountLocked || d.RetryAfter != 5*time.Minute {
		t.Fatalf("expected locked denial, got %+v", d)
	}
	if !d.Delta.Empty() || d.Risk != nil {
		t.Fatal("admission denial must not touch the account or score risk")
	}

	if d := Decide(Input{User: nil, PasswordValid: false}, DefaultPolicy(), now); d.Reason != model.ReasonInvalidCredentials {
		t.Fatalf("missing user must look like bad credentials, got %+v", d)
	}
}

func TestDecideWrongPasswordCountsAndLocks(t *testing.T) {
	u := member()
	u.FailedLoginCount = 3

	d := Decide(Input{User: u, PasswordValid: false}, DefaultPolicy(), now)
	if d.Outcome != Denied || d.Reason != model.ReasonInvalidCredentials || d.FailedCount != 4 || d.Locked {
		t.Fatalf("unexpected fourth failure: %+v", d)
	}

	next := u.Apply(d.Delta)
	d = Decide(Input{User: &next, PasswordValid: false}, DefaultPolicy(), now)
	if !d.Locked || d.Reason != model.ReasonAccountLocked || d.RetryAfter != 15*time.Minute || !d.ShouldAlert {
		t.Fatalf("expected lock on fifth failure: %+v", d)
	}
}

func TestDecideMFAFlow(t *testing.T) {
	u := member()
	u.MFAEnabled = true
	u.MFASecret = "S"

	d := Decide(Input{User: u, PasswordValid: true}, DefaultPolicy(), now)
	if d.Outcome != MFARequired || d.Reason != model.ReasonMFARequired || !d.Delta.Empty() {
		t.Fatalf("expected MFA challenge, got %+v", d)
	}

	d = Decide(Input{User: u, PasswordValid: true, MFACode: "123456"}, DefaultPolicy(), now)
	if d.Outcome != MFAPending || d.Requirement.Verified != mfa.Pending {
		t.Fatalf("expected pending, got %+v", d)
	}

	ok := ResolveMFA(*u, true, DefaultPolicy(), now)
	if ok.Outcome != Allowed || ok.Delta.LoginCount == nil {
		t.Fatalf("expected allowed after verification, got %+v", ok)
	}
	bad := ResolveMFA(*u, false, DefaultPolicy(), now)
	if bad.Outcome != Denied || bad.Reason != model.ReasonMFACodeInvalid || bad.FailedCount != 1 {
		t.Fatalf("expected counted failure, got %+v", bad)
	}
}

func TestDecideStepUpWithoutMFA(t *testing.T) {
	u := member()
	u.Role = "admin"

	d := Decide(Input{User: u, PasswordValid: true, Request: model.RequestContext{IP: "203.0.113.9"}}, DefaultPolicy(), now)
	if d.Outcome != Allowed {
		t.Fatalf("MFA-less user must still be allowed, got %+v", d)
	}
	if !d.StepUpRecommended || d.Risk.Score != 55 {
		t.Fatalf("expected step-up recommendation at 55, got %+v", d)
	}
}
