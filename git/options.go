package git

import (
	"time"

	"go.uber.org/zap"

	"github.com/example42/sai-suite-sub001/exec"
	"github.com/example42/sai-suite-sub001/security"
)

const (
	// DefaultTimeout bounds a single git invocation.
	DefaultTimeout = 5 * time.Minute

	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3

	// DefaultInitialBackoff is the delay before the first retry. It doubles
	// on every further retry.
	DefaultInitialBackoff = time.Second

	// maxVerifiedTags caps how many recent tags are signature checked.
	maxVerifiedTags = 5
)

// Option configures a Transport.
type Option func(*Transport)

// WithExecutor replaces the os/exec backed executor. Tests use this to
// script git output.
func WithExecutor(e exec.Executor) Option {
	return func(t *Transport) {
		t.executor = e
	}
}

// WithValidator sets the security validator. Defaults to a MODERATE one.
func WithValidator(v *security.Validator) Option {
	return func(t *Transport) {
		t.validator = v
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// WithTimeout bounds each git invocation.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.timeout = d
	}
}

// WithMaxRetries sets how many times a retryable failure is retried.
func WithMaxRetries(n int) Option {
	return func(t *Transport) {
		if n < 0 {
			n = 0
		}
		t.maxRetries = n
	}
}

// WithInitialBackoff sets the first retry delay.
func WithInitialBackoff(d time.Duration) Option {
	return func(t *Transport) {
		t.initialBackoff = d
	}
}

// WithVerifySignatures enables advisory GPG verification after clone and
// update.
func WithVerifySignatures(enabled bool) Option {
	return func(t *Transport) {
		t.verifySignatures = enabled
	}
}

// WithTempDir sets where askpass helpers are written. Defaults to the
// system temporary directory.
func WithTempDir(dir string) Option {
	return func(t *Transport) {
		t.tempDir = dir
	}
}
