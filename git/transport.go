package git

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example42/sai-suite-sub001/exec"
	"github.com/example42/sai-suite-sub001/security"
)

// probeTimeout bounds the "git --version" and "gpg --version" probes.
const probeTimeout = 10 * time.Second

// Transport clones and updates repositories with the git binary.
// A Transport is safe for concurrent use.
type Transport struct {
	executor  exec.Executor
	validator *security.Validator
	logger    *zap.Logger

	timeout          time.Duration
	maxRetries       int
	initialBackoff   time.Duration
	verifySignatures bool
	tempDir          string

	availableOnce sync.Once
	available     bool
	version       string

	gpgOnce      sync.Once
	gpgAvailable bool
}

// New creates a Transport.
func New(opts ...Option) *Transport {
	t := &Transport{
		timeout:        DefaultTimeout,
		maxRetries:     DefaultMaxRetries,
		initialBackoff: DefaultInitialBackoff,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.executor == nil {
		t.executor = exec.New()
	}
	if t.logger == nil {
		t.logger = zap.NewNop()
	}
	if t.validator == nil {
		t.validator = security.NewValidator(security.WithLogger(t.logger))
	}
	return t
}

// IsAvailable reports whether a working git binary is installed. The probe
// runs once per Transport.
func (t *Transport) IsAvailable() bool {
	t.availableOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()

		res, err := t.command("git").WithContext(ctx).WithInheritEnv().Run("--version")
		if err != nil {
			t.logger.Debug("git binary not available", zap.Error(err))
			return
		}
		t.available = true
		t.version = strings.TrimSpace(res.Stdout)
		t.logger.Debug("git binary available", zap.String("version", t.version))
	})
	return t.available
}

// Version returns the "git --version" output once IsAvailable succeeded.
func (t *Transport) Version() string {
	t.IsAvailable()
	return t.version
}

// IsGPGAvailable reports whether gpg can be run for signature checks. The
// probe runs once per Transport.
func (t *Transport) IsGPGAvailable() bool {
	t.gpgOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()

		if _, err := t.command("gpg").WithContext(ctx).WithInheritEnv().Run("--version"); err != nil {
			t.logger.Debug("gpg not available", zap.Error(err))
			return
		}
		t.gpgAvailable = true
	})
	return t.gpgAvailable
}

// command returns a fresh executor for program so per-call settings never
// leak between concurrent runs.
func (t *Transport) command(program string) exec.Executor {
	return exec.NewWrapper(t.executor.Clone(), program)
}

// git runs one git invocation bounded by the transport timeout.
func (t *Transport) git(ctx context.Context, env *authEnv, args ...string) (*exec.Result, error) {
	cmd := t.command("git").
		WithContext(ctx).
		WithTimeout(t.timeout).
		WithInheritEnv()
	if env != nil {
		cmd = cmd.WithEnv(env.vars).WithSecrets(env.secrets...)
	}

	t.logger.Debug("running git", zap.Strings("args", redactArgs(args)))
	return cmd.Run(args...)
}

// redactArgs strips credentials from URLs before they are logged.
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = security.RedactURL(a)
	}
	return out
}
