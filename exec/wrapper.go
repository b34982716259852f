package exec

import (
	"context"
	"time"
)

// CommandWrapper prepends a fixed program name to every Run, so callers
// configure "git" once and pass only subcommand arguments.
type CommandWrapper struct {
	executor Executor
	cmd      string
}

// NewWrapper wraps executor so that Run(args...) executes cmd args....
// The executor can be any Executor, including test fakes.
func NewWrapper(executor Executor, cmd string) *CommandWrapper {
	return &CommandWrapper{
		executor: executor,
		cmd:      cmd,
	}
}

// Name returns the wrapped program name.
func (w *CommandWrapper) Name() string {
	return w.cmd
}

func (w *CommandWrapper) WithEnv(env map[string]string) Executor {
	w.executor = w.executor.WithEnv(env)
	return w
}

func (w *CommandWrapper) WithDir(dir string) Executor {
	w.executor = w.executor.WithDir(dir)
	return w
}

func (w *CommandWrapper) WithContext(ctx context.Context) Executor {
	w.executor = w.executor.WithContext(ctx)
	return w
}

func (w *CommandWrapper) WithTimeout(timeout time.Duration) Executor {
	w.executor = w.executor.WithTimeout(timeout)
	return w
}

func (w *CommandWrapper) WithInheritEnv() Executor {
	w.executor = w.executor.WithInheritEnv()
	return w
}

func (w *CommandWrapper) WithSecrets(secrets ...string) Executor {
	w.executor = w.executor.WithSecrets(secrets...)
	return w
}

// Run executes the wrapped program with args appended.
func (w *CommandWrapper) Run(args ...string) (*Result, error) {
	fullArgs := append([]string{w.cmd}, args...)
	return w.executor.Run(fullArgs...)
}

func (w *CommandWrapper) Clone() Executor {
	return &CommandWrapper{
		executor: w.executor.Clone(),
		cmd:      w.cmd,
	}
}
