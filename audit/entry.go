package audit

import (
	"time"

	"github.com/MrEthical07/authcore/model"
)

// Action names the kind of change an entry records.
type Action string

const (
	ActionCreate                 Action = "create"
	ActionUpdate                 Action = "update"
	ActionDeactivate             Action = "deactivate"
	ActionActivate               Action = "activate"
	ActionDelete                 Action = "delete"
	ActionRoleChange             Action = "role_change"
	ActionBulkAction             Action = "bulk_action"
	ActionLogin                  Action = "login"
	ActionLogout                 Action = "logout"
	ActionMFAEnabled             Action = "mfa_enabled"
	ActionMFADisabled            Action = "mfa_disabled"
	ActionBackupCodeUsed         Action = "backup_code_used"
	ActionBackupCodesRegenerated Action = "backup_codes_regenerated"
	ActionSessionRevoked         Action = "session_revoked"
	ActionAccountLocked          Action = "account_locked"
	ActionPasswordRejected       Action = "password_rejected"
)

// Result is the outcome recorded on an entry.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Actor is who performed the action. For self-service actions it is the
// target user.
type Actor struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
}

// Target is the user the action applied to.
type Target struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
}

// Meta is the context shared by every constructor.
type Meta struct {
	Actor   Actor
	Target  Target
	Request model.RequestContext
	At      time.Time
}

// SelfMeta returns a Meta whose actor is the target user.
func SelfMeta(u model.User, rc model.RequestContext, at time.Time) Meta {
	return Meta{
		Actor:   Actor{ID: u.ID, Email: u.Email},
		Target:  Target{UserID: u.ID, Email: u.Email},
		Request: rc,
		At:      at,
	}
}

// Change is one field-level difference.
type Change struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}

// Entry is an immutable audit record. ID is assigned by the shell when it
// records the entry.
type Entry struct {
	ID           string         `json:"id,omitempty"`
	Action       Action         `json:"action"`
	ActorID      string         `json:"actor_id,omitempty"`
	ActorEmail   string         `json:"actor_email,omitempty"`
	TargetUserID string         `json:"target_user_id,omitempty"`
	TargetEmail  string         `json:"target_email,omitempty"`
	Changes      []Change       `json:"changes,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	Result       Result         `json:"result"`
	ErrorMessage string         `json:"error_message,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// Succeeded reports whether the entry records a successful action.
func (e Entry) Succeeded() bool {
	return e.Result == ResultSuccess
}

// Failed returns a copy of e marked as failed with msg. An empty msg is
// replaced so failures always carry a message.
func (e Entry) Failed(msg string) Entry {
	if msg == "" {
		msg = "unspecified failure"
	}
	e.Result = ResultFailure
	e.ErrorMessage = msg
	return e
}

// WithID returns a copy of e with its identifier set.
func (e Entry) WithID(id string) Entry {
	e.ID = id
	return e
}

func newEntry(action Action, m Meta, changes []Change, metadata map[string]any) Entry {
	return Entry{
		Action:       action,
		ActorID:      m.Actor.ID,
		ActorEmail:   m.Actor.Email,
		TargetUserID: m.Target.UserID,
		TargetEmail:  m.Target.Email,
		Changes:      changes,
		Metadata:     SanitizeMetadata(metadata),
		IPAddress:    m.Request.IP,
		UserAgent:    m.Request.UserAgent,
		Result:       ResultSuccess,
		OccurredAt:   m.At,
	}
}
