// Package app wires the healing engine together: configuration, logging,
// strategy registration, the coordinator, metrics, and the suite runner.
// It is the composition root used by every command.
package app
