package dirauth

import (
	"errors"

	"github.com/opendirs/dirauth/internal/directory"
	"github.com/opendirs/dirauth/internal/lockout"
	"github.com/opendirs/dirauth/internal/stores"
)

// Structural directory errors. These indicate caller mistakes or state
// conflicts and are surfaced directly, never recovered silently.
var (
	// ErrDuplicateUserID is returned by AddUser for an existing user id.
	ErrDuplicateUserID = directory.ErrDuplicateUserID
	// ErrDuplicateLogin is returned by AddUser and ChangeLogin for a taken login.
	ErrDuplicateLogin = directory.ErrDuplicateLogin
	// ErrUserNotFound is returned when a lookup resolves to no record.
	ErrUserNotFound = directory.ErrUserNotFound
	// ErrAmbiguousLookup is returned when a lookup supplies both or neither selector.
	ErrAmbiguousLookup = directory.ErrAmbiguousLookup
)

// Authentication outcomes. These are expected results of the login state
// machine, returned as sentinels so the caller can decide what to reveal.
var (
	// ErrAccountLockedOut rejects a login whose failed-attempt count
	// reached the threshold inside the sliding window, regardless of
	// whether the password would have matched.
	ErrAccountLockedOut = errors.New("account locked out")
	// ErrInvalidCredentials rejects a login both authenticators declined.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingCode rejects a login that omitted the two-factor code on
	// a site that requires one.
	ErrMissingCode = errors.New("no authentication code provided")
	// ErrInvalidOrExpiredCode rejects a login whose two-factor code did
	// not match the live code or outlived its validity window.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired authentication code")
)

// Infrastructure errors.
var (
	// ErrLockoutUnavailable indicates the lockout backend is unreachable.
	ErrLockoutUnavailable = lockout.ErrLockoutUnavailable
	// ErrAuthCodeUnavailable indicates the two-factor code backend is unreachable.
	ErrAuthCodeUnavailable = stores.ErrAuthCodeBackend
	// ErrNoContact indicates the profile lookup returned no usable
	// delivery destination for a two-factor code.
	ErrNoContact = errors.New("no contact information for user")
	// ErrTwoFactorDisabled is returned by code operations when the
	// two-factor feature is switched off.
	ErrTwoFactorDisabled = errors.New("two-factor authentication disabled")
	// ErrEngineNotReady indicates the engine was not fully constructed.
	ErrEngineNotReady = errors.New("engine not initialized")
)
