package exec

import "fmt"

// ExecError describes a failed command run. Registered secrets are already
// redacted from Command, Stdout and Stderr.
type ExecError struct {
	// Command is the argument vector that was executed.
	Command []string

	// ExitCode is -1 when the process never started.
	ExitCode int

	Stdout string
	Stderr string

	// Err is the underlying error from os/exec.
	Err error

	// TimedOut is set when the run was killed by its timeout.
	TimedOut bool
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("command %v timed out", e.Command)
	}
	if e.Err != nil {
		return fmt.Sprintf("command %v failed with exit code %d: %v", e.Command, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("command %v failed with exit code %d", e.Command, e.ExitCode)
}

// Unwrap returns the underlying error.
func (e *ExecError) Unwrap() error {
	return e.Err
}
