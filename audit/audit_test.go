package audit

import (
	"reflect"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/model"
	"github.com/MrEthical07/authcore/risk"
)

var at = time.Date(2026, 2, 2, 2, 2, 2, 0, time.UTC)

func meta() Meta {
	return Meta{
		Actor:   Actor{ID: "admin-1", Email: "root@example.com"},
		Target:  Target{UserID: "u1", Email: "u1@example.com"},
		Request: model.RequestContext{IP: "10.1.1.1", UserAgent: "cli"},
		At:      at,
	}
}

func TestSanitizeMetadataStripsSensitiveKeys(t *testing.T) {
	in := map[string]any{
		"password":      "hunter2",
		"Password-Hash": "$argon2id$...",
		"session_token": "tok",
		"resetToken":    "rt",
		"note":          "kept",
		"nested": map[string]any{
			"refresh_token": "x",
			"depth":         1,
			"list":          []any{map[string]any{"secret": "s", "ok": true}},
		},
		"headers": map[string]string{"X-Token": "a", "Token": "b", "Accept": "json"},
	}

	got := SanitizeMetadata(in)

	for _, k := range []string{"password", "Password-Hash", "session_token", "resetToken"} {
		if _, ok := got[k]; ok {
			t.Fatalf("key %q survived sanitisation", k)
		}
	}
	nested := got["nested"].(map[string]any)
	if _, ok := nested["refresh_token"]; ok || nested["depth"] != 1 {
		t.Fatalf("nested map not sanitised: %+v", nested)
	}
	item := nested["list"].([]any)[0].(map[string]any)
	if _, ok := item["secret"]; ok || item["ok"] != true {
		t.Fatalf("list item not sanitised: %+v", item)
	}
	headers := got["headers"].(map[string]string)
	if _, ok := headers["Token"]; ok || headers["Accept"] != "json" || headers["X-Token"] != "a" {
		t.Fatalf("string map not sanitised: %+v", headers)
	}
	if in["password"] != "hunter2" {
		t.Fatal("input mutated")
	}
	if SanitizeMetadata(map[string]any{"token": "x"}) != nil {
		t.Fatal("fully sensitive metadata must collapse to nil")
	}
}

func TestDiff(t *testing.T) {
	before := map[string]any{"email": "a@x", "role": "member", "active": true, "password_hash": "h1"}
	after := map[string]any{"email": "b@x", "role": "member", "name": "Bo", "password_hash": "h2"}

	want := []Change{
		{Field: "active", Old: true, New: nil},
		{Field: "email", Old: "a@x", New: "b@x"},
		{Field: "name", Old: nil, New: "Bo"},
		{Field: "password_hash", Old: Redacted, New: Redacted},
	}
	if got := Diff(before, after); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected diff:\n got %+v\nwant %+v", got, want)
	}
	if got := Diff(before, before); len(got) != 0 {
		t.Fatalf("identical maps must not differ: %+v", got)
	}
}

func TestBuildersCarryMeta(t *testing.T) {
	entries := []Entry{
		Create(meta(), map[string]any{"email": "u1@example.com", "password": "p"}),
		Update(meta(), map[string]any{"role": "a"}, map[string]any{"role": "b"}),
		Deactivate(meta(), "abuse"),
		Activate(meta()),
		Delete(meta(), true),
		RoleChange(meta(), "member", "admin"),
		Logout(meta(), "sid"),
		MFAEnabled(meta(), 10),
		MFADisabled(meta()),
		BackupCodeUsed(meta(), 9),
		BackupCodesRegenerated(meta(), 10),
		SessionRevoked(meta(), "sid", model.ReasonIPMismatch),
		AccountLocked(meta(), at.Add(15*time.Minute), 5),
	}

	for _, e := range entries {
		if e.ActorID != "admin-1" || e.TargetUserID != "u1" || e.IPAddress != "10.1.1.1" || e.UserAgent != "cli" {
			t.Fatalf("%s: meta not copied: %+v", e.Action, e)
		}
		if !e.OccurredAt.Equal(at) || !e.Succeeded() || e.ErrorMessage != "" {
			t.Fatalf("%s: unexpected result: %+v", e.Action, e)
		}
	}

	create := entries[0]
	for _, c := range create.Changes {
		if c.Field == "password" && c.New != Redacted {
			t.Fatalf("create leaked password: %+v", c)
		}
	}
}

func TestLoginEntry(t *testing.T) {
	a := risk.Analysis{Score: 55, Factors: []risk.Factor{{Name: risk.FactorNewIP, Weight: 30}, {Name: risk.FactorAdminAccount, Weight: 25}}, RequiresMFA: true}

	ok := Login(meta(), &a, model.ReasonNone, map[string]any{"session_id": "s1", "session_token": "tok"})
	if !ok.Succeeded() || ok.Metadata["risk_score"] != 55 || ok.Metadata["requires_mfa"] != true {
		t.Fatalf("unexpected login entry: %+v", ok)
	}
	if _, leaked := ok.Metadata["session_token"]; leaked {
		t.Fatal("login entry leaked session token")
	}
	if !reflect.DeepEqual(ok.Metadata["risk_factors"], []string{"new_ip", "admin_account"}) {
		t.Fatalf("unexpected factors: %v", ok.Metadata["risk_factors"])
	}

	failed := Login(meta(), nil, model.ReasonAccountLocked, nil)
	if failed.Succeeded() || failed.ErrorMessage != string(model.ReasonAccountLocked) {
		t.Fatalf("failure must carry message: %+v", failed)
	}
}

func TestFailureAlwaysHasMessage(t *testing.T) {
	e := Activate(meta()).Failed("")
	if e.Result != ResultFailure || e.ErrorMessage == "" {
		t.Fatalf("failure without message: %+v", e)
	}
	if p := PasswordRejected(meta(), []string{"too_short"}); p.Succeeded() || p.ErrorMessage == "" {
		t.Fatalf("password rejection must be a failure: %+v", p)
	}
}

func TestBulkAction(t *testing.T) {
	e := BulkAction(meta(), "deactivate", []string{"u3", "u1", "u2"}, nil)
	if !e.Succeeded() || !reflect.DeepEqual(e.Metadata["target_ids"], []string{"u1", "u2", "u3"}) {
		t.Fatalf("unexpected bulk entry: %+v", e)
	}

	e = BulkAction(meta(), "deactivate", []string{"u1", "u2"}, map[string]string{"u2": "not found"})
	if e.Succeeded() || e.ErrorMessage != "1 of 2 targets failed" {
		t.Fatalf("unexpected bulk failure: %+v", e)
	}
}
