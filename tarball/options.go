package tarball

import (
	"time"

	"go.uber.org/zap"

	"github.com/example42/sai-suite-sub001/security"
)

const (
	// DefaultMaxRetries is the number of download retries after the first attempt.
	DefaultMaxRetries = 3

	// DefaultInitialBackoff is the delay before the first download retry.
	DefaultInitialBackoff = time.Second

	// DefaultMaxArchiveSize caps a downloaded archive.
	DefaultMaxArchiveSize int64 = 500 * 1024 * 1024

	// maxSidecarSize caps checksum files, which are a few lines of text.
	maxSidecarSize = 1024 * 1024
)

// Option configures a Transport.
type Option func(*Transport)

// WithReleaseSource sets where releases are looked up and downloaded.
// The default is a github.ReleaseClient for the public API.
func WithReleaseSource(src ReleaseSource) Option {
	return func(t *Transport) {
		t.source = src
	}
}

// WithValidator sets the security validator.
func WithValidator(v *security.Validator) Option {
	return func(t *Transport) {
		t.validator = v
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// WithMaxRetries sets how many times a failed download is retried.
func WithMaxRetries(n int) Option {
	return func(t *Transport) {
		if n >= 0 {
			t.maxRetries = n
		}
	}
}

// WithInitialBackoff sets the first retry delay; later delays double.
func WithInitialBackoff(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.initialBackoff = d
		}
	}
}

// WithMaxArchiveSize caps the size of a downloaded archive.
func WithMaxArchiveSize(n int64) Option {
	return func(t *Transport) {
		if n > 0 {
			t.maxArchiveSize = n
		}
	}
}
