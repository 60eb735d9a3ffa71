// Package postgres is an append-only audit trail in Postgres, reached
// through database/sql with the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore/audit"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const schema = `
CREATE TABLE IF NOT EXISTS auth_audit_log (
	id             TEXT PRIMARY KEY,
	action         TEXT NOT NULL,
	actor_id       TEXT,
	actor_email    TEXT,
	target_user_id TEXT,
	target_email   TEXT,
	changes        JSONB,
	metadata       JSONB,
	ip_address     TEXT,
	user_agent     TEXT,
	result         TEXT NOT NULL,
	error_message  TEXT,
	occurred_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS auth_audit_log_target_idx ON auth_audit_log (target_user_id, occurred_at);
`

// Open opens a Postgres connection using the given DSN. Caller must call Close when done.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// AuditStore appends audit entries. Rows are never updated or deleted.
type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// EnsureSchema creates the audit table and index if they are missing.
func (s *AuditStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

// Append inserts entry. The entry must have ID set.
func (s *AuditStore) Append(ctx context.Context, e audit.Entry) error {
	if e.ID == "" {
		return errors.New("audit entry id is required")
	}
	changes, err := jsonColumn(e.Changes, len(e.Changes) > 0)
	if err != nil {
		return err
	}
	metadata, err := jsonColumn(e.Metadata, len(e.Metadata) > 0)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO auth_audit_log (
	id, action, actor_id, actor_email, target_user_id, target_email,
	changes, metadata, ip_address, user_agent, result, error_message, occurred_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, string(e.Action), nullString(e.ActorID), nullString(e.ActorEmail),
		nullString(e.TargetUserID), nullString(e.TargetEmail), changes, metadata,
		nullString(e.IPAddress), nullString(e.UserAgent), string(e.Result),
		nullString(e.ErrorMessage), e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append audit entry %s: %w", e.ID, err)
	}
	return nil
}

// ListByTarget returns the newest entries about userID, at most limit.
func (s *AuditStore) ListByTarget(ctx context.Context, userID string, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, action, actor_id, actor_email, target_user_id, target_email,
	changes, metadata, ip_address, user_agent, result, error_message, occurred_at
FROM auth_audit_log
WHERE target_user_id = $1
ORDER BY occurred_at DESC, id DESC
LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var (
			e                             audit.Entry
			action, result                string
			actorID, actorEmail, targetID sql.NullString
			targetEmail, ip, ua, errMsg   sql.NullString
			changes, metadata             []byte
		)
		if err := rows.Scan(&e.ID, &action, &actorID, &actorEmail, &targetID, &targetEmail,
			&changes, &metadata, &ip, &ua, &result, &errMsg, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.Action = audit.Action(action)
		e.Result = audit.Result(result)
		e.ActorID, e.ActorEmail = actorID.String, actorEmail.String
		e.TargetUserID, e.TargetEmail = targetID.String, targetEmail.String
		e.IPAddress, e.UserAgent, e.ErrorMessage = ip.String, ua.String, errMsg.String
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &e.Changes); err != nil {
				return nil, fmt.Errorf("decode changes of %s: %w", e.ID, err)
			}
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of %s: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func jsonColumn(v any, present bool) (any, error) {
	if !present {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
