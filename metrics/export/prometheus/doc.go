// Package prometheus renders engine metrics in Prometheus text
// exposition format.
//
// [NewExporter] accepts a [dirauth.Engine] and exposes an [http.Handler]
// serving all counters and histograms. Counter names are prefixed
// dirauth_*_total; the single histogram is
// dirauth_authenticate_latency_seconds.
//
// Nothing is registered in a global Prometheus registry; callers mount
// the Handler wherever they serve metrics.
package prometheus
