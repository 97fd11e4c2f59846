package smoketest

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
	"github.com/sam-phinizy/beer-hall/internal/logger"
)

// waitDelay bounds how long output pipes are drained after the command is
// killed, so grandchildren holding them open cannot stall the run.
const waitDelay = 2 * time.Second

// Result captures one smoke test run.
type Result struct {
	Command  string
	Args     []string
	ExitCode int
	Output   string
	Duration time.Duration
}

// Check executes command with test.Args and returns a TestFailureError unless
// it exits with an allowed status and its combined output contains the
// marker. A non-positive timeout means no deadline beyond ctx.
func Check(ctx context.Context, command string, test formula.SmokeTest, timeout time.Duration) (*Result, error) {
	test = test.WithDefaults()

	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger.InfoKV(ctx, "Running smoke test", "command", command, "args", test.Args)

	var output bytes.Buffer

	cmd := exec.CommandContext(ctx, command, test.Args...) //nolint:gosec // Command is the installed binary.
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.WaitDelay = waitDelay

	started := time.Now()
	err := cmd.Run()

	result := &Result{
		Command:  command,
		Args:     test.Args,
		ExitCode: cmd.ProcessState.ExitCode(),
		Output:   output.String(),
		Duration: time.Since(started),
	}

	if err != nil {
		var exitErr *exec.ExitError

		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return result, result.failure("timed out after " + timeout.String())
		case ctx.Err() != nil:
			return result, result.failure("interrupted: " + ctx.Err().Error())
		case errors.As(err, &exitErr):
			// Judged below against the allow-list.
		default:
			result.ExitCode = -1
			return result, result.failure("could not start: " + err.Error())
		}
	}

	logger.DebugKV(ctx, "Smoke test finished", "exit_code", result.ExitCode, "duration", result.Duration)

	if !test.AcceptsExitCode(result.ExitCode) {
		return result, result.failure("exit status not in allowed list")
	}

	if !strings.Contains(result.Output, test.Marker) {
		return result, result.failure("output does not contain " + `"` + test.Marker + `"`)
	}

	return result, nil
}

func (r *Result) failure(reason string) error {
	return &formula.TestFailureError{
		Command:  r.Command,
		ExitCode: r.ExitCode,
		Reason:   reason,
		Output:   r.Output,
	}
}
