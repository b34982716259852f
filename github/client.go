package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v67/github"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/example42/sai-suite-sub001/errors"
	"github.com/example42/sai-suite-sub001/transport"
)

// ReleaseClient reads releases and downloads assets. It is safe for
// concurrent use.
type ReleaseClient struct {
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	userAgent    string
	logger       *zap.Logger

	apiBase  *url.URL
	retrying *http.Client

	// latest collapses concurrent lookups of the same release.
	latest singleflight.Group
}

// NewReleaseClient creates a client for the public API unless WithBaseURL
// says otherwise.
func NewReleaseClient(opts ...Option) (*ReleaseClient, error) {
	c := &ReleaseClient{
		baseURL:      DefaultBaseURL,
		timeout:      DefaultTimeout,
		retryMax:     DefaultRetryMax,
		retryWaitMin: time.Second,
		retryWaitMax: 30 * time.Second,
		userAgent:    defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	base, err := url.Parse(c.baseURL)
	if err != nil || base.Host == "" {
		return nil, errors.WithContext(
			errors.Newf(errors.CodeInvalidConfig, "invalid GitHub API URL %q", c.baseURL),
			"field", "github_api_url")
	}
	c.apiBase = base

	rc := retryablehttp.NewClient()
	if c.httpClient != nil {
		hc := *c.httpClient
		rc.HTTPClient = &hc
	}
	if c.timeout > 0 {
		rc.HTTPClient.Timeout = c.timeout
	}
	// Redirects are followed by the outer client so authTransport sees
	// every hop.
	rc.HTTPClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	rc.RetryMax = c.retryMax
	rc.RetryWaitMin = c.retryWaitMin
	rc.RetryWaitMax = c.retryWaitMax
	rc.Logger = leveledLogger{logger: c.logger}
	// Hand the final response back so status codes can be classified.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.retrying = rc.StandardClient()

	return c, nil
}

// LatestRelease returns the newest published, non-prerelease release.
func (c *ReleaseClient) LatestRelease(ctx context.Context, owner, repo string, creds *transport.Credentials) (*Release, error) {
	key := fmt.Sprintf("%s/%s#%p", owner, repo, creds)
	v, err, shared := c.latest.Do(key, func() (interface{}, error) {
		rel, resp, err := c.api(creds).Repositories.GetLatestRelease(ctx, owner, repo)
		if err != nil {
			return nil, wrapError(err, resp, fmt.Sprintf("failed to get latest release of %s/%s", owner, repo))
		}
		return convertRelease(rel), nil
	})
	if err != nil {
		return nil, err
	}
	rel := v.(*Release)
	c.logger.Debug("latest release",
		zap.String("repo", owner+"/"+repo),
		zap.String("tag", rel.TagName),
		zap.Int("assets", len(rel.Assets)),
		zap.Bool("shared", shared))
	return rel, nil
}

// Open starts a streamed GET of assetURL. The caller must close the body.
// The returned size is -1 when the server does not announce it.
func (c *ReleaseClient) Open(ctx context.Context, assetURL string, creds *transport.Credentials) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, http.NoBody)
	if err != nil {
		return nil, 0, errors.Wrapf(err, errors.CodeInvalidInput, "invalid asset URL %s", redactURL(assetURL))
	}
	req.Header.Set("Accept", "application/octet-stream")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpFor(creds).Do(req)
	if err != nil {
		return nil, 0, wrapTransportError(err, "failed to download "+redactURL(assetURL))
	}

	if err := checkRateLimit(resp); err != nil {
		resp.Body.Close()
		return nil, 0, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, statusError(resp.StatusCode,
			fmt.Sprintf("downloading %s: unexpected status %d", redactURL(assetURL), resp.StatusCode))
	}

	return resp.Body, resp.ContentLength, nil
}

// api returns a go-github client carrying creds.
func (c *ReleaseClient) api(creds *transport.Credentials) *github.Client {
	gh := github.NewClient(c.httpFor(creds))
	gh.BaseURL = c.apiBase
	gh.UserAgent = c.userAgent
	return gh
}

func (c *ReleaseClient) httpFor(creds *transport.Credentials) *http.Client {
	return &http.Client{
		Transport: &authTransport{
			next:    c.retrying.Transport,
			creds:   creds,
			apiHost: c.apiBase.Host,
		},
	}
}

// authTransport attaches credentials only to requests aimed at GitHub, so
// a redirect to a third-party CDN never receives the token.
type authTransport struct {
	next    http.RoundTripper
	creds   *transport.Credentials
	apiHost string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.creds.Empty() || !isGitHubHost(req.URL, t.apiHost) {
		return t.next.RoundTrip(req)
	}

	r := req.Clone(req.Context())
	switch t.creds.Type {
	case transport.AuthToken:
		r.Header.Set("Authorization", "Bearer "+t.creds.Token)
	case transport.AuthBasic:
		r.SetBasicAuth(t.creds.Username, t.creds.Password)
	}
	return t.next.RoundTrip(r)
}

// isGitHubHost reports whether u targets the configured API host, or
// github.com when the API is the public one.
func isGitHubHost(u *url.URL, apiHost string) bool {
	if strings.EqualFold(u.Host, apiHost) {
		return true
	}
	return strings.EqualFold(apiHost, "api.github.com") && strings.EqualFold(u.Host, "github.com")
}

// checkRateLimit turns an exhausted X-RateLimit-Remaining header on a
// rejected response into a CodeRateLimit error.
func checkRateLimit(resp *http.Response) error {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		if resp.StatusCode == http.StatusTooManyRequests {
			return errors.New(errors.CodeRateLimit, "GitHub rate limit exceeded")
		}
		return nil
	}
	if rem, err := strconv.Atoi(remaining); err != nil || rem > 0 {
		return nil
	}

	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
	resetAt := time.Unix(resetUnix, 0).UTC()
	return errors.WithContext(
		errors.Newf(errors.CodeRateLimit, "GitHub rate limit exceeded, resets at %s", resetAt.Format("15:04 UTC")),
		"reset_at", resetAt)
}

func convertRelease(rel *github.RepositoryRelease) *Release {
	out := &Release{
		TagName:    rel.GetTagName(),
		Name:       rel.GetName(),
		Draft:      rel.GetDraft(),
		Prerelease: rel.GetPrerelease(),
		TarballURL: rel.GetTarballURL(),
		ZipballURL: rel.GetZipballURL(),
	}
	if p := rel.GetPublishedAt(); !p.IsZero() {
		out.PublishedAt = p.Time
	}
	for _, a := range rel.Assets {
		out.Assets = append(out.Assets, Asset{
			ID:          a.GetID(),
			Name:        a.GetName(),
			DownloadURL: a.GetBrowserDownloadURL(),
			Size:        int64(a.GetSize()),
			ContentType: a.GetContentType(),
		})
	}
	return out
}

// redactURL strips credentials, query and fragment before logging.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid-url>"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
