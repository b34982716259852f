package exec

import (
	"context"
	"time"
)

// Executor runs external commands through a fluent configuration API.
// Local settings apply to the next Run only.
type Executor interface {
	// WithEnv sets environment variables for the next run.
	WithEnv(env map[string]string) Executor

	// WithDir sets the working directory for the next run.
	WithDir(dir string) Executor

	// WithContext sets the context for the next run.
	WithContext(ctx context.Context) Executor

	// WithTimeout bounds the next run. A zero duration disables the bound.
	WithTimeout(timeout time.Duration) Executor

	// WithInheritEnv passes the parent process environment through.
	WithInheritEnv() Executor

	// WithSecrets registers values that must never appear in errors or
	// captured output returned to callers.
	WithSecrets(secrets ...string) Executor

	// Run executes the command given as its argument vector.
	// No shell is involved.
	Run(args ...string) (*Result, error)

	// Clone copies the executor and its global configuration.
	Clone() Executor
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	Combined string
	ExitCode int
}

// Option configures global settings on a Command.
type Option func(*Command)

// WithEnv returns an Option that sets global environment variables.
func WithEnv(env map[string]string) Option {
	return func(c *Command) {
		for k, v := range env {
			c.config.globalEnv[k] = v
		}
	}
}

// WithDir returns an Option that sets the global working directory.
func WithDir(dir string) Option {
	return func(c *Command) {
		c.config.globalDir = dir
	}
}

// WithTimeout returns an Option that bounds every run.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Command) {
		c.config.globalTimeout = timeout
	}
}

// WithInheritEnv returns an Option that inherits the parent environment on every run.
func WithInheritEnv() Option {
	return func(c *Command) {
		c.config.globalInheritEnv = true
	}
}
