// Package stores contains small Redis-backed state stores used by the
// engine, currently the per-user two-factor code record.
//
// Records use a compact versioned binary encoding so stored state can be
// evolved without flag days.
package stores
