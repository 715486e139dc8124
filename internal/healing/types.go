package healing

import (
	"context"
	"time"
)

// FailureType is the categorical cause of a test failure.
type FailureType string

const (
	// FailureAssertion indicates an assertion or expectation mismatch.
	FailureAssertion FailureType = "assertion_failed"
	// FailureTimeout indicates an operation exceeded its deadline.
	FailureTimeout FailureType = "timeout"
	// FailureElementNotFound indicates a locator did not resolve to an element.
	FailureElementNotFound FailureType = "element_not_found"
	// FailureNetwork indicates a network or fetch error.
	FailureNetwork FailureType = "network_error"
	// FailureUnknown indicates the cause could not be categorized.
	FailureUnknown FailureType = "unknown"
)

// FailureTypes lists all known failure types in a stable order.
func FailureTypes() []FailureType {
	return []FailureType{
		FailureAssertion,
		FailureTimeout,
		FailureElementNotFound,
		FailureNetwork,
		FailureUnknown,
	}
}

// FailureContext is the snapshot of the environment a failure occurred in.
type FailureContext struct {
	// TestConfig is a snapshot of the failing test's configuration.
	TestConfig map[string]interface{} `json:"testConfig,omitempty"`
	// Environment is a snapshot of relevant environment values.
	Environment map[string]string `json:"environment,omitempty"`
	// Custom carries arbitrary engine-specific key/value data.
	Custom map[string]interface{} `json:"custom,omitempty"`
}

// TestFailure describes a single classified test failure. It is created once
// by the failing test engine and treated as immutable from then on; retries
// create a new TestFailure referencing the old one via PreviousAttempts.
type TestFailure struct {
	ID               string         `json:"id"`
	TestID           string         `json:"testId"`
	Type             FailureType    `json:"type"`
	Message          string         `json:"message"`
	Timestamp        time.Time      `json:"timestamp"`
	Context          FailureContext `json:"context"`
	PreviousAttempts []Result       `json:"previousAttempts,omitempty"` // oldest first
}

// RiskTolerance expresses how aggressive a caller allows healing to be.
type RiskTolerance string

const (
	RiskLow    RiskTolerance = "low"
	RiskMedium RiskTolerance = "medium"
	RiskHigh   RiskTolerance = "high"
)

// SystemState is an informational load/resource snapshot passed to strategies.
type SystemState struct {
	Load         float64 `json:"load,omitempty"`
	MemoryFreeMB int     `json:"memoryFreeMb,omitempty"`
}

// UserPreferences carries caller preferences for strategy selection.
type UserPreferences struct {
	// PreferredStrategies are moved to the front of the candidate list,
	// in this order. Names that match no registered strategy are ignored.
	PreferredStrategies []string      `json:"preferredStrategies,omitempty"`
	RiskTolerance       RiskTolerance `json:"riskTolerance,omitempty"`
}

// Context is the runtime snapshot passed to every strategy invocation for a
// given healing attempt. Like TestFailure it is immutable by convention:
// neither the coordinator nor strategies may mutate it.
type Context struct {
	SystemState     SystemState     `json:"systemState"`
	UserPreferences UserPreferences `json:"userPreferences"`
	// AvailableStrategies restricts which registered strategies are
	// eligible for this call. Empty means all registered strategies.
	AvailableStrategies []string `json:"availableStrategies,omitempty"`
	// PreviousAttempts mirrors TestFailure.PreviousAttempts for strategies
	// that adapt to retry history.
	PreviousAttempts []Result `json:"previousAttempts,omitempty"`
}

// ActionResult is the outcome of a single healing action.
type ActionResult string

const (
	ActionSuccess ActionResult = "success"
	ActionFailure ActionResult = "failure"
	ActionSkipped ActionResult = "skipped"
)

// Action records one concrete step a strategy took while healing, for
// example a retry, a selector rewrite, or a wait.
type Action struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	Result      ActionResult           `json:"result"`
	Message     string                 `json:"message,omitempty"`
}

// AttemptResult is what a single strategy invocation produced. Confidence is
// the strategy's self-declared estimate, before aggregation by the scorer.
type AttemptResult struct {
	Success    bool     `json:"success"`
	Confidence float64  `json:"confidence"`
	Actions    []Action `json:"actions,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// Result is the final, coordinator-produced healing outcome for one Heal
// call. Metadata carries the chosen strategy under MetadataStrategy when a
// strategy was applicable.
type Result struct {
	ID         string            `json:"id"`
	Success    bool              `json:"success"`
	Actions    []Action          `json:"actions,omitempty"`
	Confidence float64           `json:"confidence"`
	Duration   time.Duration     `json:"duration"`
	Message    string            `json:"message,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Metadata keys set by the coordinator on every Result.
const (
	// MetadataStrategy is the name of the strategy whose attempt was chosen.
	MetadataStrategy = "strategy"
	// MetadataFailureType is the resolved failure type the coordinator healed.
	MetadataFailureType = "failure_type"
	// MetadataAttempts is the number of strategy invocations the call made.
	MetadataAttempts = "attempts"
)

// Result messages for the non-fatal failure modes encoded in Result.
const (
	// MsgNoApplicableStrategy is returned when no registered strategy
	// supports the failure's type.
	MsgNoApplicableStrategy = "no applicable strategy"
	// MsgBudgetExhausted is returned when previous attempts already
	// consumed the configured attempt budget.
	MsgBudgetExhausted = "attempt budget exhausted"
	// MsgCancelled is returned when the caller's context was cancelled
	// before any strategy could run.
	MsgCancelled = "healing cancelled"
)

// Strategy is the plugin contract for a pluggable recovery algorithm.
// Implementations must not mutate the failure or context they receive and
// should respect the deadline on ctx; the coordinator also enforces a
// timeout externally.
type Strategy interface {
	// Name returns the stable strategy name (e.g. "backoff-adjust").
	Name() string
	// Version returns the strategy's semantic version (e.g. "1.2.0").
	Version() string
	// SupportedFailureTypes returns the non-empty set of failure types
	// this strategy can attempt to heal.
	SupportedFailureTypes() []FailureType
	// Heal attempts recovery. May be slow or I/O bound.
	Heal(ctx context.Context, failure TestFailure, hctx Context) (AttemptResult, error)
}

// Lifecycle is an optional capability a Strategy may implement. It is
// resolved once at registration time via interface assertion; the registry
// calls Initialize for implementers on startup and Shutdown on teardown.
type Lifecycle interface {
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Default configuration values applied by Config.Normalized.
const (
	DefaultConfidenceThreshold = 0.5
	DefaultMaxAttempts         = 3
	DefaultTimeout             = 30 * time.Second
)

// Config is the per-call healing configuration handed in by the test engine.
type Config struct {
	// Enabled gates healing in the caller; the coordinator itself is not
	// invoked when false.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// ConfidenceThreshold is the minimum aggregated confidence a
	// successful attempt needs to count as a heal.
	ConfidenceThreshold float64 `yaml:"confidenceThreshold" json:"confidenceThreshold"`
	// MaxAttempts bounds strategy invocations cumulatively across a
	// test's retry history: the per-call budget is MaxAttempts minus the
	// failure's previous attempts.
	MaxAttempts int `yaml:"maxAttempts" json:"maxAttempts"`
	// Strategies optionally restricts healing to the named strategies.
	Strategies []string `yaml:"strategies,omitempty" json:"strategies,omitempty"`
	// Timeout bounds each individual strategy invocation.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// Normalized returns a copy of the config with zero values replaced by
// defaults so the coordinator never divides by degenerate settings.
func (c Config) Normalized() Config {
	out := c
	if out.ConfidenceThreshold <= 0 {
		out.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if out.ConfidenceThreshold > 1 {
		out.ConfidenceThreshold = 1
	}
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = DefaultMaxAttempts
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	return out
}
