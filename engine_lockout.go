package dirauth

import (
	"context"
	"time"

	"github.com/opendirs/dirauth/internal/directory"
)

// FailedAttempts returns the timestamps of failed attempts for the login
// still inside the sliding window, oldest first.
func (e *Engine) FailedAttempts(ctx context.Context, login string) ([]time.Time, error) {
	if e == nil || e.lockout == nil {
		return nil, ErrEngineNotReady
	}
	return e.lockout.Attempts(ctx, directory.Normalize(login))
}

// IsLockedOut reports whether the login has reached the failed-attempt
// threshold inside the window.
func (e *Engine) IsLockedOut(ctx context.Context, login string) (bool, error) {
	if e == nil || e.lockout == nil {
		return false, ErrEngineNotReady
	}
	return e.lockout.Locked(ctx, directory.Normalize(login))
}

// RecordFailedAttempt records a failed attempt for the login and returns
// the in-window count including it. Authenticate does this itself; the
// facade exists for hosts that run additional authenticators of their own.
func (e *Engine) RecordFailedAttempt(ctx context.Context, login string) (int64, error) {
	if e == nil || e.lockout == nil {
		return 0, ErrEngineNotReady
	}
	return e.lockout.RecordAttempt(ctx, directory.Normalize(login))
}

// ClearLockout discards every recorded attempt for the login, an
// administrative override.
func (e *Engine) ClearLockout(ctx context.Context, login string) error {
	if e == nil || e.lockout == nil {
		return ErrEngineNotReady
	}
	login = directory.Normalize(login)
	if err := e.lockout.Clear(ctx, login); err != nil {
		return err
	}
	e.emitAudit(ctx, auditEventLockoutCleared, true, "", login, "", nil, nil)
	return nil
}
