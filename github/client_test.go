package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example42/sai-suite-sub001/errors"
	"github.com/example42/sai-suite-sub001/transport"
)

const latestReleaseJSON = `{
  "tag_name": "v1.2.0",
  "name": "saidata 1.2.0",
  "draft": false,
  "prerelease": false,
  "published_at": "2026-02-01T10:00:00Z",
  "tarball_url": "%[1]s/repos/example42/saidata/tarball/v1.2.0",
  "zipball_url": "%[1]s/repos/example42/saidata/zipball/v1.2.0",
  "assets": [
    {"id": 1, "name": "saidata-1.2.0.tar.xz", "browser_download_url": "%[2]s/saidata-1.2.0.tar.xz", "size": 2048, "content_type": "application/x-xz"},
    {"id": 2, "name": "saidata-1.2.0.tar.xz.sha256", "browser_download_url": "%[2]s/saidata-1.2.0.tar.xz.sha256", "size": 90, "content_type": "text/plain"}
  ]
}`

func newTestClient(t *testing.T, apiURL string) *ReleaseClient {
	t.Helper()
	c, err := NewReleaseClient(
		WithBaseURL(apiURL),
		WithRetry(2, time.Millisecond, 5*time.Millisecond),
		WithTimeout(5*time.Second))
	require.NoError(t, err)
	return c
}

func TestLatestRelease(t *testing.T) {
	var gotAuth string
	var api *httptest.Server
	api = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/example42/saidata/releases/latest", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, latestReleaseJSON, api.URL, "https://downloads.example.com")
	}))
	defer api.Close()

	c := newTestClient(t, api.URL)
	creds := &transport.Credentials{Type: transport.AuthToken, Token: "ghp_token"}

	rel, err := c.LatestRelease(context.Background(), "example42", "saidata", creds)
	require.NoError(t, err)

	assert.Equal(t, "Bearer ghp_token", gotAuth)
	assert.Equal(t, "v1.2.0", rel.TagName)
	assert.Equal(t, time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC), rel.PublishedAt.UTC())
	require.Len(t, rel.Assets, 2)
	assert.Equal(t, int64(2048), rel.Assets[0].Size)

	sidecar, ok := rel.FindAsset("saidata-1.2.0.tar.xz.sha256")
	assert.True(t, ok)
	assert.Equal(t, "https://downloads.example.com/saidata-1.2.0.tar.xz.sha256", sidecar.DownloadURL)
}

func TestLatestRelease_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		code    errors.ErrorCode
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				io.WriteString(w, `{"message":"Not Found"}`)
			},
			code: errors.CodeNotFound,
		},
		{
			name: "bad credentials",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				io.WriteString(w, `{"message":"Bad credentials"}`)
			},
			code: errors.CodeUnauthorized,
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-RateLimit-Limit", "60")
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", fmt.Sprint(time.Now().Add(time.Hour).Unix()))
				w.WriteHeader(http.StatusForbidden)
				io.WriteString(w, `{"message":"API rate limit exceeded for 127.0.0.1."}`)
			},
			code: errors.CodeRateLimit,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			code: errors.CodeNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestClient(t, srv.URL).LatestRelease(context.Background(), "o", "r", nil)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestLatestRelease_RetriesTransientFailures(t *testing.T) {
	var calls int32
	var api *httptest.Server
	api = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, latestReleaseJSON, api.URL, api.URL)
	}))
	defer api.Close()

	rel, err := newTestClient(t, api.URL).LatestRelease(context.Background(), "example42", "saidata", nil)
	require.NoError(t, err)
	assert.Equal(t, "v1.2.0", rel.TagName)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestOpen_AuthOnlyForGitHubHosts(t *testing.T) {
	var apiAuth, cdnAuth string
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cdnAuth = r.Header.Get("Authorization")
		io.WriteString(w, "archive-bytes")
	}))
	defer cdn.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiAuth = r.Header.Get("Authorization")
		http.Redirect(w, r, cdn.URL+"/blob", http.StatusFound)
	}))
	defer api.Close()

	c := newTestClient(t, api.URL)
	creds := &transport.Credentials{Type: transport.AuthBasic, Username: "me", Password: "pw"}

	body, size, err := c.Open(context.Background(), api.URL+"/asset", creds)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "archive-bytes", string(data))
	assert.Equal(t, int64(len("archive-bytes")), size)

	assert.NotEmpty(t, apiAuth)
	assert.Empty(t, cdnAuth, "credentials must not follow redirects to other hosts")
}

func TestOpen_StatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, _, err := newTestClient(t, srv.URL).Open(context.Background(), srv.URL+"/missing?token=abc", nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
	assert.NotContains(t, err.Error(), "token=abc")
}

func TestNewReleaseClient_InvalidBaseURL(t *testing.T) {
	_, err := NewReleaseClient(WithBaseURL("::not a url"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
}

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		in          string
		owner, repo string
		ok          bool
	}{
		{"https://github.com/example42/saidata.git", "example42", "saidata", true},
		{"https://github.com/example42/saidata", "example42", "saidata", true},
		{"https://github.com/example42/saidata/", "example42", "saidata", true},
		{"git@github.com:example42/saidata.git", "example42", "saidata", true},
		{"ssh://git@github.com/example42/saidata.git", "example42", "saidata", true},
		{"https://ghe.corp.example/team/catalog.git", "team", "catalog", true},
		{"https://github.com/onlyowner", "", "", false},
		{"not a url", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			owner, repo, err := ParseRepoURL(tt.in)
			if !tt.ok {
				require.Error(t, err)
				assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.owner, owner)
			assert.Equal(t, tt.repo, repo)
		})
	}
}
