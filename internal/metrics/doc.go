// Package metrics exposes healing activity as Prometheus metrics.
//
// The coordinator reports per-attempt and per-heal observations through the
// Sink, and the aggregate statistics tracker is surfaced as gauges. A small
// HTTP server serves /metrics and /healthz when metrics are enabled in the
// config.
package metrics
