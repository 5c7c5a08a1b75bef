package dirauth

import (
	"context"

	internalaudit "github.com/opendirs/dirauth/internal/audit"
)

// Audit event types emitted by the engine.
const (
	auditEventLoginSuccess    = "login_success"
	auditEventLoginFailure    = "login_failure"
	auditEventLoginLockedOut  = "login_locked_out"
	auditEventImpersonation   = "impersonation"
	auditEventCodeIssued      = "auth_code_issued"
	auditEventCodeRejected    = "auth_code_rejected"
	auditEventUserCreated     = "user_created"
	auditEventUserRemoved     = "user_removed"
	auditEventPasswordChanged = "password_changed"
	auditEventLoginChanged    = "login_changed"
	auditEventGroupDeleted    = "group_deleted"
	auditEventLockoutCleared  = "lockout_cleared"
)

type auditDispatcher = internalaudit.Dispatcher

// newAuditDispatcher returns nil when auditing is disabled; every engine
// path that records events tolerates a nil dispatcher.
func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	return internalaudit.NewDispatcher(sink, cfg.BufferSize, cfg.DropIfFull)
}

// emitAudit forwards an event to the dispatcher, which stamps the
// timestamp. The metadata closure is only invoked when auditing is
// active, keeping the disabled path allocation-free.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID, login, actorID string,
	cause error,
	metadata func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		EventType: eventType,
		UserID:    userID,
		Login:     login,
		ActorID:   actorID,
		Success:   success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	e.audit.Record(ctx, event)
}
