package authcore

import (
	"context"

	"github.com/MrEthical07/authcore/audit"
)

// RecordAudit queues an entry built outside the engine, typically by the
// user-management layer with the audit builders. ID and OccurredAt are
// filled when empty, failures always carry a message, and metadata is sanitized again before dispatch.
func (e *Engine) RecordAudit(ctx context.Context, entry audit.Entry) error {
	if err := e.ready(); err != nil {
		return err
	}
	if entry.Action == "" {
		return ErrAuditEntryInvalid
	}
	if entry.Result == "" {
		entry.Result = audit.ResultSuccess
	}
	if entry.Result == audit.ResultFailure && entry.ErrorMessage == "" {
		entry = entry.Failed("")
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = e.clock.Now()
	}
	entry.Metadata = audit.SanitizeMetadata(entry.Metadata)

	if entry.TargetUserID != "" {
		unlock := e.lockUser(entry.TargetUserID)
		defer unlock()
	}
	e.emit(ctx, entry)
	return nil
}
