// Package logging provides the subsystem-tagged logging layer used across
// mend. It wraps log/slog with a tint handler for colored CLI output and a
// plain text handler for tests and non-TTY environments.
//
// Every log call carries a subsystem tag (e.g. "Coordinator", "Registry",
// "Engine") so operators can filter a single component's output when many
// tests heal concurrently.
package logging
