// Package strategy provides the built-in healing strategies that ship with
// mend: plain retry, exponential backoff adjustment, selector repair, and
// staged element waits.
//
// Built-ins do not talk to a test engine directly. Each strategy is
// constructed with a probe callback supplied by the engine that re-executes
// the failed operation (or validates a candidate selector); the strategy
// decides when and how often to call it. This keeps the plugin contract
// engine-agnostic: a Playwright wrapper, a jest wrapper, and a plain command
// runner all provide probes the same way.
package strategy
