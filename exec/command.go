package exec

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	osexec "os/exec"
	"sort"
	"strings"
	"sync"
	"time"
)

// Command is the os/exec backed Executor.
type Command struct {
	config *config
	ctx    context.Context
}

// New creates a Command configured by opts.
func New(opts ...Option) *Command {
	cmd := &Command{
		config: newConfig(),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(cmd)
	}
	return cmd
}

func (c *Command) WithEnv(env map[string]string) Executor {
	for k, v := range env {
		c.config.localEnv[k] = v
	}
	return c
}

func (c *Command) WithDir(dir string) Executor {
	c.config.localDir = dir
	return c
}

func (c *Command) WithContext(ctx context.Context) Executor {
	c.ctx = ctx
	return c
}

func (c *Command) WithTimeout(timeout time.Duration) Executor {
	c.config.localTimeout = &timeout
	return c
}

func (c *Command) WithInheritEnv() Executor {
	val := true
	c.config.localInheritEnv = &val
	return c
}

func (c *Command) WithSecrets(secrets ...string) Executor {
	for _, s := range secrets {
		if s != "" {
			c.config.secrets = append(c.config.secrets, s)
		}
	}
	return c
}

// Run executes args[0] with args[1:]. On failure the returned error is an
// *ExecError and the Result is still populated.
func (c *Command) Run(args ...string) (*Result, error) {
	defer c.config.resetLocal()

	if len(args) == 0 {
		return nil, &ExecError{ExitCode: -1, Err: osexec.ErrNotFound}
	}

	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout := c.config.effectiveTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := osexec.CommandContext(ctx, args[0], args[1:]...)
	if dir := c.config.effectiveDir(); dir != "" {
		cmd.Dir = dir
	}
	if c.config.effectiveInheritEnv() {
		cmd.Env = os.Environ()
	}
	cmd.Env = append(cmd.Env, envList(c.config.effectiveEnv())...)

	var stdout, stderr bytes.Buffer
	combined := &lockedBuffer{}
	cmd.Stdout = io.MultiWriter(&stdout, combined)
	cmd.Stderr = io.MultiWriter(&stderr, combined)

	err := cmd.Run()

	redact := newRedactor(c.config.secrets)
	result := &Result{
		Stdout:   redact(stdout.String()),
		Stderr:   redact(stderr.String()),
		Combined: redact(combined.String()),
		ExitCode: exitCode(cmd, err),
	}

	if err != nil {
		execErr := &ExecError{
			Command:  redactArgs(args, redact),
			ExitCode: result.ExitCode,
			Stdout:   result.Stdout,
			Stderr:   result.Stderr,
			Err:      err,
			TimedOut: stderrors.Is(ctx.Err(), context.DeadlineExceeded),
		}
		return result, execErr
	}

	return result, nil
}

// Clone copies the global configuration. Local settings are not carried over.
func (c *Command) Clone() Executor {
	return &Command{
		config: c.config.clone(),
		ctx:    context.Background(),
	}
}

// LookPath reports whether name resolves to an executable on PATH.
func LookPath(name string) (string, bool) {
	path, err := osexec.LookPath(name)
	if err != nil {
		return "", false
	}
	return path, true
}

func exitCode(cmd *osexec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

// envList renders env sorted by key so runs are reproducible.
func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

func newRedactor(secrets []string) func(string) string {
	if len(secrets) == 0 {
		return func(s string) string { return s }
	}
	pairs := make([]string, 0, len(secrets)*2)
	for _, s := range secrets {
		pairs = append(pairs, s, "***")
	}
	r := strings.NewReplacer(pairs...)
	return r.Replace
}

func redactArgs(args []string, redact func(string) string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = redact(a)
	}
	return out
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
