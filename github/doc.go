// Package github reads release metadata and downloads release assets from
// the GitHub API.
//
// ReleaseClient wraps go-github over a retryablehttp transport, so
// transient 5xx and connection failures are retried before an error is
// returned. Credentials are attached per call and only to requests that
// target the configured API host or github.com; asset downloads that
// redirect to a CDN never receive the token.
//
// Example:
//
//	c, err := github.NewReleaseClient(github.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	owner, repo, err := github.ParseRepoURL("https://github.com/example42/saidata.git")
//	rel, err := c.LatestRelease(ctx, owner, repo, creds)
//
// Errors are PlatformErrors: CodeNotFound for a missing repository or
// release, CodeUnauthorized for rejected credentials, CodeRateLimit when
// the API quota is exhausted, and CodeNetwork for everything transient.
package github
