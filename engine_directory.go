package dirauth

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/opendirs/dirauth/internal/directory"
	"github.com/opendirs/dirauth/password"
)

// AddUser creates a directory record with the given id. The password is
// hashed in the current format with a fresh salt; duplicate ids or
// logins leave the directory untouched.
func (e *Engine) AddUser(ctx context.Context, userID, login, cleartext string, groups ...string) error {
	if e == nil || e.directory == nil {
		return ErrEngineNotReady
	}
	if err := e.directory.Add(userID, login, cleartext, groups); err != nil {
		return err
	}
	e.metricInc(MetricUserCreated)
	e.emitAudit(ctx, auditEventUserCreated, true, userID, directory.Normalize(login), "", nil, nil)
	return nil
}

// CreateUser is AddUser with a generated user id, returned to the caller.
func (e *Engine) CreateUser(ctx context.Context, login, cleartext string, groups ...string) (string, error) {
	userID := uuid.NewString()
	if err := e.AddUser(ctx, userID, login, cleartext, groups...); err != nil {
		return "", err
	}
	return userID, nil
}

// GetUser resolves sel to a record copy.
func (e *Engine) GetUser(sel Selector) (UserRecord, error) {
	if e == nil || e.directory == nil {
		return UserRecord{}, ErrEngineNotReady
	}
	return e.directory.Get(sel)
}

// RemoveUser deletes the record and every index entry pointing at it.
func (e *Engine) RemoveUser(ctx context.Context, userID string) error {
	if e == nil || e.directory == nil {
		return ErrEngineNotReady
	}
	if err := e.directory.Remove(userID); err != nil {
		return err
	}
	e.metricInc(MetricUserRemoved)
	e.emitAudit(ctx, auditEventUserRemoved, true, userID, "", "", nil, nil)
	return nil
}

// ChangePassword re-derives the stored hash for the user. The existing
// salt is kept; login and group membership are untouched.
func (e *Engine) ChangePassword(ctx context.Context, userID, newPassword string) error {
	if e == nil || e.directory == nil {
		return ErrEngineNotReady
	}
	if err := e.directory.ChangePassword(userID, newPassword); err != nil {
		return err
	}
	e.metricInc(MetricPasswordChanged)
	e.emitAudit(ctx, auditEventPasswordChanged, true, userID, "", "", nil, nil)
	return nil
}

// ChangeLogin renames the user's login. A no-op when the normalized
// login is unchanged; fails with ErrDuplicateLogin when taken.
func (e *Engine) ChangeLogin(ctx context.Context, userID, newLogin string) error {
	if e == nil || e.directory == nil {
		return ErrEngineNotReady
	}
	if err := e.directory.ChangeLogin(userID, newLogin); err != nil {
		return err
	}
	e.metricInc(MetricLoginChanged)
	e.emitAudit(ctx, auditEventLoginChanged, true, userID, directory.Normalize(newLogin), "", nil, nil)
	return nil
}

// AddToGroup records the user's membership in group.
func (e *Engine) AddToGroup(userID, group string) error {
	if e == nil || e.directory == nil {
		return ErrEngineNotReady
	}
	return e.directory.AddToGroup(userID, group)
}

// RemoveFromGroup removes the user's membership in group. Absent
// membership is a no-op, not an error.
func (e *Engine) RemoveFromGroup(userID, group string) error {
	if e == nil || e.directory == nil {
		return ErrEngineNotReady
	}
	return e.directory.RemoveFromGroup(userID, group)
}

// DeleteGroup drops the group and strips it from every member's record.
func (e *Engine) DeleteGroup(ctx context.Context, group string) error {
	if e == nil || e.directory == nil {
		return ErrEngineNotReady
	}
	e.directory.DeleteGroup(group)
	e.metricInc(MetricGroupDeleted)
	e.emitAudit(ctx, auditEventGroupDeleted, true, "", "", "", nil, func() map[string]string {
		return map[string]string{"group": directory.Normalize(group)}
	})
	return nil
}

// MembersOf returns the sorted member ids of group; an unknown group
// yields an empty slice.
func (e *Engine) MembersOf(group string) []string {
	if e == nil || e.directory == nil {
		return nil
	}
	return e.directory.MembersOf(group)
}

// CheckPassword verifies a cleartext password against the record sel
// resolves to, upgrading a matching legacy hash in place. Wrong
// passwords return false; only a missing record is an error.
func (e *Engine) CheckPassword(cleartext string, sel Selector) (bool, error) {
	if e == nil || e.directory == nil {
		return false, ErrEngineNotReady
	}
	ok, upgraded, err := e.directory.CheckPasswordUpgraded(cleartext, sel)
	if upgraded {
		e.metricInc(MetricPasswordUpgraded)
	}
	return ok, err
}

// SaveDirectory writes the directory as a versioned snapshot.
func (e *Engine) SaveDirectory(w io.Writer) error {
	if e == nil || e.directory == nil {
		return ErrEngineNotReady
	}
	return e.directory.Save(w)
}

// LoadDirectory reads a directory snapshot, migrating the historical
// schema if needed. The result is fed to Builder.WithDirectory.
func LoadDirectory(r io.Reader, cfg PasswordConfig) (*directory.Store, error) {
	hasher, err := password.NewHasher(password.Config{
		Rounds:     cfg.Rounds,
		SaltLength: cfg.SaltLength,
	})
	if err != nil {
		return nil, err
	}
	return directory.Load(r, hasher)
}
