package llm

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// RunResult captures one invocation of the external model process.
// A non-zero ExitCode is a result, not an error; Run returns an error only
// when the process could not be started at all.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes the external model binary. Production uses ExecRunner;
// tests inject a scripted implementation.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (RunResult, error)
}

// ExecRunner runs the binary as a subprocess.
type ExecRunner struct{}

// Run implements Runner via exec.CommandContext.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := RunResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, err
	}
	return result, nil
}
