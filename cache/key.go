package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// keyHashLength is the number of hex characters of the url#branch digest
// kept in a cache key.
const keyHashLength = 12

// Key derives the cache key for url and branch: a readable repository name
// followed by a short digest of "url#branch".
//
// Example:
//
//	Key("https://github.com/example42/saidata.git", "main") // "saidata_3f1c9a0b2d4e"
func Key(rawURL, branch string) string {
	sum := sha256.Sum256([]byte(rawURL + "#" + branch))
	return RepoName(rawURL) + "_" + hex.EncodeToString(sum[:])[:keyHashLength]
}

// RepoName returns the last path segment of a repository URL without a
// ".git" suffix, reduced to [A-Za-z0-9._-].
func RepoName(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Scheme != "" {
		p = u.Path
	} else if i := strings.LastIndex(rawURL, ":"); i >= 0 {
		p = rawURL[i+1:]
	}
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	p = strings.TrimSuffix(p, ".git")

	var b strings.Builder
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := strings.Trim(b.String(), ".")
	if name == "" {
		return "repository"
	}
	return name
}
