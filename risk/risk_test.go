package risk

import (
	"reflect"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/model"
)

var now = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func recentSessions() []model.Session {
	return []model.Session{
		{ID: "s1", IPAddress: "10.0.0.1", UserAgent: "firefox"},
		{ID: "s2", IPAddress: "10.0.0.2", UserAgent: "curl"},
	}
}

func TestAnalyzeNewIPAdminRequiresMFA(t *testing.T) {
	last := now.Add(-24 * time.Hour)
	user := model.User{ID: "u1", Role: "admin", LastLoginAt: &last}
	rc := model.RequestContext{IP: "192.0.2.7", UserAgent: "firefox"}

	a := Analyze(user, rc, recentSessions(), DefaultPolicy(), now)

	if a.Score != 55 {
		t.Fatalf("expected score 55, got %d", a.Score)
	}
	if !a.RequiresMFA {
		t.Fatal("expected MFA requirement above threshold")
	}
	want := []string{FactorNewIP, FactorAdminAccount}
	if got := a.FactorNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected factors %v, got %v", want, got)
	}
}

func TestAnalyzeScoreIsSumOfWeights(t *testing.T) {
	last := now.Add(-31 * 24 * time.Hour)
	users := []model.User{
		{Role: "member"},
		{Role: "admin"},
		{Role: "member", LastLoginAt: &last},
		{Role: "SuperAdmin", LastLoginAt: &last},
	}
	contexts := []model.RequestContext{
		{},
		{IP: "10.0.0.1", UserAgent: "curl"},
		{IP: "203.0.113.1"},
		{IP: "203.0.113.1", UserAgent: "new-agent"},
	}

	for _, u := range users {
		for _, rc := range contexts {
			a := Analyze(u, rc, recentSessions(), DefaultPolicy(), now)
			sum := 0
			for _, f := range a.Factors {
				sum += f.Weight
			}
			if sum != a.Score {
				t.Fatalf("score %d != sum %d for %+v %+v", a.Score, sum, u, rc)
			}
			if a.RequiresMFA != (a.Score > 50) {
				t.Fatalf("MFA flag inconsistent with score %d", a.Score)
			}
		}
	}
}

func TestAnalyzeDormancy(t *testing.T) {
	p := DefaultPolicy()
	boundary := now.Add(-p.DormancyWindow)
	older := boundary.Add(-time.Second)

	if a := Analyze(model.User{LastLoginAt: &boundary}, model.RequestContext{}, nil, p, now); a.Score != 0 {
		t.Fatalf("exact window must not be dormant, got %d", a.Score)
	}
	a := Analyze(model.User{LastLoginAt: &older}, model.RequestContext{}, nil, p, now)
	if a.Score != 40 || a.RequiresMFA {
		t.Fatalf("expected dormant score 40 without MFA, got %+v", a)
	}
	if a := Analyze(model.User{}, model.RequestContext{}, nil, p, now); len(a.Factors) != 0 {
		t.Fatalf("never-logged-in user must not be dormant, got %+v", a)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	last := now.Add(-40 * 24 * time.Hour)
	user := model.User{Role: "admin", LastLoginAt: &last}
	rc := model.RequestContext{IP: "198.51.100.4", UserAgent: "edge"}

	first := Analyze(user, rc, recentSessions(), DefaultPolicy(), now)
	for i := 0; i < 10; i++ {
		if got := Analyze(user, rc, recentSessions(), DefaultPolicy(), now); !reflect.DeepEqual(first, got) {
			t.Fatalf("analysis changed between runs: %+v vs %+v", first, got)
		}
	}
	if first.Score != 115 {
		t.Fatalf("expected all factors to trigger (115), got %d", first.Score)
	}
}
