package dirauth

import (
	"errors"
	"time"
)

// Config carries all engine tuning. Configure once, then treat as
// immutable; Build copies it.
type Config struct {
	Password      PasswordConfig
	Lockout       LockoutConfig
	TwoFactor     TwoFactorConfig
	Impersonation ImpersonationConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds PBKDF2 parameters for the current hash format.
//
// Rounds defaults to 64, the compatibility constant carried by existing
// stored hashes. Whether to raise it is a policy decision; this library
// will not change it silently. See DESIGN.md.
type PasswordConfig struct {
	Rounds     int
	SaltLength int
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig holds the sliding-window failed-attempt parameters.
type LockoutConfig struct {
	Window      time.Duration // failed_login_attempt_window
	MaxAttempts int           // max_failed_login_attempts

	// ClearOnSuccess discards a login's recorded attempts after a
	// successful authentication. Clearing policy belongs to the caller
	// of the lockout manager; the engine is that caller.
	ClearOnSuccess bool

	RedisPrefix string
}

/*
====================================
TWO FACTOR CONFIG
====================================
*/

// TwoFactorConfig gates the code challenge and its delivery channels.
// Phone delivery is active only when SrcPhoneNumber, PlivoAuthID, and
// PlivoAuthToken are all present; otherwise codes fall back to email.
type TwoFactorConfig struct {
	Enabled       bool
	CodeLength    int
	ValidDuration time.Duration // two_factor_auth_code_valid_duration

	SrcPhoneNumber string // two_factor_src_phone_number
	PlivoAuthID    string // two_factor_plivo_auth_id
	PlivoAuthToken string // two_factor_plivo_auth_token

	RedisPrefix string
}

// PhoneFactorEnabled reports whether the phone channel is fully configured.
func (c TwoFactorConfig) PhoneFactorEnabled() bool {
	return c.SrcPhoneNumber != "" && c.PlivoAuthID != "" && c.PlivoAuthToken != ""
}

/*
====================================
IMPERSONATION CONFIG
====================================
*/

// ImpersonationConfig controls the administrative composite-credential
// path: a password of the form "<admin_login><Separator><admin_password>"
// authenticates the original login when the admin holds AdminGroup.
type ImpersonationConfig struct {
	Enabled    bool
	Separator  string
	AdminGroup string
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Password: PasswordConfig{
			Rounds:     64,
			SaltLength: 12,
		},
		Lockout: LockoutConfig{
			Window:         time.Hour,
			MaxAttempts:    15,
			ClearOnSuccess: true,
			RedisPrefix:    "flo",
		},
		TwoFactor: TwoFactorConfig{
			Enabled:       false,
			CodeLength:    8,
			ValidDuration: 5 * time.Minute,
			RedisPrefix:   "tfc",
		},
		Impersonation: ImpersonationConfig{
			Enabled:    true,
			Separator:  ":",
			AdminGroup: "group.Admins",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return defaultConfig()
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internally inconsistent or
// unusable values.
func (c *Config) Validate() error {
	if c.Password.Rounds < 1 {
		return errors.New("Password Rounds must be >= 1")
	}
	if c.Password.SaltLength < 8 {
		return errors.New("Password SaltLength must be >= 8")
	}

	if c.Lockout.Window <= 0 {
		return errors.New("Lockout Window must be > 0")
	}
	if c.Lockout.MaxAttempts <= 0 {
		return errors.New("Lockout MaxAttempts must be > 0")
	}

	if c.TwoFactor.Enabled {
		if c.TwoFactor.CodeLength < 4 {
			return errors.New("TwoFactor CodeLength must be >= 4")
		}
		if c.TwoFactor.ValidDuration <= 0 {
			return errors.New("TwoFactor ValidDuration must be > 0")
		}
	}

	if c.Impersonation.Enabled {
		if c.Impersonation.Separator == "" {
			return errors.New("Impersonation Separator must not be empty")
		}
		if c.Impersonation.AdminGroup == "" {
			return errors.New("Impersonation AdminGroup must not be empty")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
