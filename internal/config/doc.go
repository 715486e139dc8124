// Package config loads and validates mend's YAML configuration.
//
// Configuration lives in a single file (default ~/.config/mend/config.yaml)
// covering logging, healing policy, the metrics endpoint, the test suite,
// and operator preferences. Loading is defaults-first: the file is
// unmarshalled over the built-in defaults, so a minimal file only needs the
// keys it changes.
//
// The Watcher supports live reload of healing policy while `mend serve` is
// running: edits to the config file are debounced, re-validated, and handed
// to the application; invalid edits are logged and ignored.
package config
