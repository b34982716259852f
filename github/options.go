package github

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the public GitHub API.
	DefaultBaseURL = "https://api.github.com/"

	DefaultTimeout = 60 * time.Second

	// DefaultRetryMax is how many times a transient HTTP failure is retried.
	DefaultRetryMax = 3

	defaultUserAgent = "sai-repository-sync"
)

// Option configures a ReleaseClient.
type Option func(*ReleaseClient)

// WithBaseURL points the client at another API root, such as GitHub
// Enterprise or a test server.
func WithBaseURL(base string) Option {
	return func(c *ReleaseClient) {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		c.baseURL = base
	}
}

// WithHTTPClient sets the client whose transport the retrying client
// wraps. Its Timeout is kept.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *ReleaseClient) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each HTTP request, including the body transfer.
func WithTimeout(d time.Duration) Option {
	return func(c *ReleaseClient) {
		c.timeout = d
	}
}

// WithRetry configures the retry budget and the wait bounds between
// attempts.
func WithRetry(max int, waitMin, waitMax time.Duration) Option {
	return func(c *ReleaseClient) {
		c.retryMax = max
		c.retryWaitMin = waitMin
		c.retryWaitMax = waitMax
	}
}

func WithUserAgent(ua string) Option {
	return func(c *ReleaseClient) {
		c.userAgent = ua
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *ReleaseClient) {
		c.logger = logger
	}
}
