package dirauth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/opendirs/dirauth/internal/directory"
)

// Authenticate runs the full login decision for a cleartext credential
// pair plus an optional two-factor code, and returns the authenticated
// user id. The engine certifies identity only; minting a session from
// the returned id is the caller's job.
//
// Outcomes are sentinels: ErrAccountLockedOut, ErrInvalidCredentials,
// ErrMissingCode, ErrInvalidOrExpiredCode. What to disclose to the end
// user is the caller's choice; the engine never collapses outcomes on
// its own.
//
// Order of checks: lockout window first (a locked login is rejected even
// with the right password), then the direct credential, then the
// administrative impersonation form, then the two-factor gate.
func (e *Engine) Authenticate(ctx context.Context, login, cleartext, code string) (string, error) {
	if e == nil || e.directory == nil {
		return "", ErrEngineNotReady
	}

	start := time.Now()
	defer e.observeLatency(start)

	login = directory.Normalize(login)

	record, err := e.directory.Get(ByLogin(login))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Unknown logins get the same answer as wrong passwords.
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", login, "", ErrUserNotFound, nil)
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	locked, err := e.lockout.Locked(ctx, login)
	if err != nil {
		return "", err
	}
	if locked {
		e.metricInc(MetricLoginLockedOut)
		e.emitAudit(ctx, auditEventLoginLockedOut, false, record.UserID, login, "", ErrAccountLockedOut, nil)
		return "", ErrAccountLockedOut
	}

	userID, actorID, err := e.runAuthenticators(ctx, login, cleartext, record)
	if err != nil {
		return "", err
	}
	if userID == "" {
		count, err := e.lockout.RecordAttempt(ctx, login)
		if err != nil {
			return "", err
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, record.UserID, login, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"attempts_in_window": strconv.FormatInt(count, 10)}
		})
		return "", ErrInvalidCredentials
	}

	if e.config.TwoFactor.Enabled {
		if code == "" {
			e.metricInc(MetricCodeMissing)
			e.emitAudit(ctx, auditEventCodeRejected, false, userID, login, actorID, ErrMissingCode, nil)
			return "", ErrMissingCode
		}
		ok, err := e.ValidateCode(ctx, userID, code)
		if err != nil {
			return "", err
		}
		if !ok {
			e.metricInc(MetricCodeRejected)
			e.emitAudit(ctx, auditEventCodeRejected, false, userID, login, actorID, ErrInvalidOrExpiredCode, nil)
			return "", ErrInvalidOrExpiredCode
		}
	}

	if e.config.Lockout.ClearOnSuccess {
		// Best effort. A stale window must not fail a proven login.
		_ = e.lockout.Clear(ctx, login)
	}

	if actorID != "" {
		e.metricInc(MetricImpersonation)
		e.emitAudit(ctx, auditEventImpersonation, true, userID, login, actorID, nil, nil)
	}
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, userID, login, actorID, nil, nil)

	return userID, nil
}

// runAuthenticators tries the direct credential, then the impersonation
// form. Returns the authenticated user id (empty when both decline) and
// the acting admin's id when the impersonation path matched.
func (e *Engine) runAuthenticators(ctx context.Context, login, cleartext string, record UserRecord) (userID, actorID string, err error) {
	ok, upgraded, err := e.directory.CheckPasswordUpgraded(cleartext, ByLogin(login))
	if err != nil {
		return "", "", err
	}
	if ok {
		if upgraded {
			e.metricInc(MetricPasswordUpgraded)
		}
		return record.UserID, "", nil
	}

	return e.tryImpersonation(ctx, cleartext, record)
}

// tryImpersonation handles the "<admin_login><sep><admin_password>" form:
// an administrator authenticates with their own credentials but the login
// resolves to the original user. The split happens once, so an admin
// password containing the separator survives intact.
func (e *Engine) tryImpersonation(_ context.Context, cleartext string, target UserRecord) (userID, actorID string, err error) {
	cfg := e.config.Impersonation
	if !cfg.Enabled {
		return "", "", nil
	}

	adminLogin, adminPassword, found := strings.Cut(cleartext, cfg.Separator)
	if !found || adminLogin == "" {
		return "", "", nil
	}

	admin, err := e.directory.Get(ByLogin(adminLogin))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", "", nil
		}
		return "", "", err
	}

	if !holdsGroup(admin.Groups, directory.Normalize(cfg.AdminGroup)) {
		return "", "", nil
	}

	ok, upgraded, err := e.directory.CheckPasswordUpgraded(adminPassword, ByUserID(admin.UserID))
	if err != nil {
		return "", "", err
	}
	if !ok {
		return "", "", nil
	}
	if upgraded {
		e.metricInc(MetricPasswordUpgraded)
	}

	return target.UserID, admin.UserID, nil
}

func holdsGroup(groups []string, group string) bool {
	for _, g := range groups {
		if g == group {
			return true
		}
	}
	return false
}
