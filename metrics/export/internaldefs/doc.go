// Package internaldefs exposes stable metric name and bucket definitions
// shared by exporter implementations.
//
// Definitions live here so every exporter renders identical metric names
// and bucket boundaries; a change in this package affects all exporters
// simultaneously.
package internaldefs
