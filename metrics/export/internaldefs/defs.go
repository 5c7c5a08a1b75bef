package internaldefs

import (
	"github.com/opendirs/dirauth"
)

// CounterDef binds a core counter id to its exposition name and help text.
type CounterDef struct {
	ID   dirauth.MetricID
	Name string
	Help string
}

// HistogramDef binds a core histogram id to its exposition name and help text.
type HistogramDef struct {
	ID   dirauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter, in exposition order.
var CounterDefs = []CounterDef{
	{ID: dirauth.MetricLoginSuccess, Name: "dirauth_login_success_total", Help: "Successful login attempts."},
	{ID: dirauth.MetricLoginFailure, Name: "dirauth_login_failure_total", Help: "Failed login attempts."},
	{ID: dirauth.MetricLoginLockedOut, Name: "dirauth_login_locked_out_total", Help: "Logins rejected by the lockout window."},
	{ID: dirauth.MetricImpersonation, Name: "dirauth_impersonation_total", Help: "Successful impersonated logins."},
	{ID: dirauth.MetricCodeMissing, Name: "dirauth_code_missing_total", Help: "Logins rejected for omitting a required authentication code."},
	{ID: dirauth.MetricCodeRejected, Name: "dirauth_code_rejected_total", Help: "Logins with an invalid or expired authentication code."},
	{ID: dirauth.MetricCodeIssued, Name: "dirauth_code_issued_total", Help: "Issued two-factor authentication codes."},
	{ID: dirauth.MetricPasswordUpgraded, Name: "dirauth_password_upgraded_total", Help: "Legacy password hashes upgraded on read."},
	{ID: dirauth.MetricUserCreated, Name: "dirauth_user_created_total", Help: "Directory record creations."},
	{ID: dirauth.MetricUserRemoved, Name: "dirauth_user_removed_total", Help: "Directory record removals."},
	{ID: dirauth.MetricPasswordChanged, Name: "dirauth_password_changed_total", Help: "Explicit password changes."},
	{ID: dirauth.MetricLoginChanged, Name: "dirauth_login_changed_total", Help: "Login renames."},
	{ID: dirauth.MetricGroupDeleted, Name: "dirauth_group_deleted_total", Help: "Group deletions."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: dirauth.MetricAuthenticateLatency, Name: "dirauth_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds are the upper bucket bounds, in seconds, matching the
// core histogram layout.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed
// core bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus exposition requires.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
