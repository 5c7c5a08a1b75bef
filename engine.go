package dirauth

import (
	"time"

	"github.com/opendirs/dirauth/internal/directory"
	"github.com/opendirs/dirauth/internal/lockout"
	"github.com/opendirs/dirauth/internal/stores"
	"github.com/opendirs/dirauth/password"
)

// Engine composes the credential directory, lockout manager, and
// two-factor challenge into a single authentication decision surface.
// It certifies identity only; sessions, cookies, and transport are the
// host application's concern.
type Engine struct {
	config Config

	directory *directory.Store
	hasher    *password.Hasher
	lockout   *lockout.Manager
	authCodes *stores.AuthCodeStore

	profiles ProfileLookup
	notifier Notifier

	audit   *auditDispatcher
	metrics *Metrics

	now func() time.Time
}

// Close releases background resources (the audit dispatcher). The engine
// must not be used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Directory returns the underlying credential store for callers that
// manage it directly, e.g. snapshot persistence.
func (e *Engine) Directory() *directory.Store {
	if e == nil {
		return nil
	}
	return e.directory
}

// AuditDropped returns the number of audit events dropped under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a deep copy of the engine's metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observeLatency(start time.Time) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
}
