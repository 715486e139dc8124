// Package engine executes the configured test suite and feeds failures into
// the healing pipeline.
//
// The CommandEngine runs each test as a subprocess and converts a non-zero
// exit into a classified TestFailure. The Runner executes the suite with
// bounded parallelism; when a test fails and healing is enabled it hands the
// failure to the coordinator and re-runs the test after each successful heal
// until the test passes or the attempt budget runs out.
package engine
