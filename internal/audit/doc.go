// Package audit defines the engine's audit event model, sink interfaces,
// and the asynchronous dispatcher that decouples event emission from
// event delivery.
//
// # Architecture boundaries
//
// This package never blocks the authentication path: the dispatcher either
// buffers or (when configured) drops events under backpressure, and counts
// drops. Sinks own delivery; the engine owns event content.
package audit
