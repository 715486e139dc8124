package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"mend/internal/config"
	"mend/internal/healing"
	"mend/pkg/logging"
)

// outputTailLimit bounds how much captured output is kept per execution.
const outputTailLimit = 16 * 1024

// ExecutionResult is the raw outcome of running a test command once.
type ExecutionResult struct {
	Passed   bool
	ExitCode int
	Output   string
	Duration time.Duration
	// Err is set for failures to start or finish the process, including
	// deadline overruns. It is nil for a plain non-zero exit.
	Err error
}

// Engine executes a single test to completion.
type Engine interface {
	Execute(ctx context.Context, spec config.TestSpec) ExecutionResult
}

// CommandEngine runs tests as subprocesses. It is stateless and safe for
// concurrent use.
type CommandEngine struct{}

// NewCommandEngine creates the subprocess-backed engine.
func NewCommandEngine() *CommandEngine {
	return &CommandEngine{}
}

// Execute runs the test command under the spec's timeout and captures its
// combined output.
func (e *CommandEngine) Execute(ctx context.Context, spec config.TestSpec) ExecutionResult {
	start := time.Now()

	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout.Std())
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Workdir
	cmd.Env = mergedEnv(spec.Env)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	result := ExecutionResult{
		Output:   tail(output.String()),
		Duration: time.Since(start),
	}

	switch {
	case err == nil:
		result.Passed = true
	case ctx.Err() != nil:
		result.ExitCode = -1
		result.Err = fmt.Errorf("test %s timed out after %s", spec.ID, spec.Timeout.Std())
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
			result.Err = fmt.Errorf("running test %s: %w", spec.ID, err)
		}
	}

	logging.Debug("Engine", "Test %s finished: passed=%v exit=%d duration=%s",
		spec.ID, result.Passed, result.ExitCode, result.Duration)
	return result
}

func mergedEnv(extra map[string]string) []string {
	env := os.Environ()
	for key, value := range extra {
		env = append(env, key+"="+value)
	}
	return env
}

func tail(s string) string {
	if len(s) <= outputTailLimit {
		return s
	}
	return s[len(s)-outputTailLimit:]
}

// BuildFailure converts a failed execution into a classified TestFailure.
// previous carries the healing results of earlier rounds for this test so the
// coordinator can enforce its cumulative attempt budget.
func BuildFailure(spec config.TestSpec, result ExecutionResult, previous []healing.Result) healing.TestFailure {
	message := failureMessage(result)
	return healing.TestFailure{
		ID:        uuid.NewString(),
		TestID:    spec.ID,
		Type:      healing.NewClassifier().Classify(message),
		Message:   message,
		Timestamp: time.Now(),
		Context: healing.FailureContext{
			TestConfig: map[string]interface{}{
				"command": strings.Join(spec.Command, " "),
				"workdir": spec.Workdir,
			},
			Environment: spec.Env,
			Custom: map[string]interface{}{
				"exit_code": result.ExitCode,
			},
		},
		PreviousAttempts: previous,
	}
}

// failureMessage picks the most telling line of a failed run: the error for
// process-level failures, otherwise the last non-empty output line.
func failureMessage(result ExecutionResult) string {
	if result.Err != nil {
		return result.Err.Error()
	}
	lines := strings.Split(strings.TrimSpace(result.Output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return fmt.Sprintf("exit code %d", result.ExitCode)
}
