package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/audit"
	"github.com/MrEthical07/authcore/model"
	"github.com/google/uuid"
)

func openTestStore(t *testing.T) *AuditStore {
	t.Helper()
	dsn := os.Getenv("AUTHCORE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("AUTHCORE_TEST_POSTGRES_DSN not set")
	}
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s := NewAuditStore(db)
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return s
}

func TestAppendAndListByTarget(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	target := "user-" + uuid.NewString()
	u := model.User{ID: target, Email: "pg@example.com"}
	at := time.Now().UTC().Truncate(time.Microsecond)

	first := audit.Logout(audit.SelfMeta(u, model.RequestContext{IP: "10.1.1.1"}, at), "sess-1").WithID(uuid.NewString())
	second := audit.RoleChange(audit.SelfMeta(u, model.RequestContext{}, at.Add(time.Second)), "member", "admin").WithID(uuid.NewString())

	for _, e := range []audit.Entry{first, second} {
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := s.ListByTarget(ctx, target, 10)
	if err != nil {
		t.Fatalf("ListByTarget: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].ID != second.ID || got[0].Action != audit.ActionRoleChange {
		t.Fatalf("expected newest first, got %+v", got[0])
	}
	if len(got[0].Changes) != 1 || got[0].Changes[0].Field != "role" {
		t.Fatalf("changes not round-tripped: %+v", got[0].Changes)
	}
	if got[1].IPAddress != "10.1.1.1" || got[1].Metadata["session_id"] != "sess-1" {
		t.Fatalf("unexpected first entry: %+v", got[1])
	}
}

func TestAppendRequiresID(t *testing.T) {
	s := NewAuditStore(nil)
	if err := s.Append(context.Background(), audit.Entry{}); err == nil {
		t.Fatal("expected error for entry without id")
	}
}
