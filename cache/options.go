package cache

import (
	"time"

	"github.com/go-git/go-billy/v5"
	"go.uber.org/zap"
)

// DefaultTTL is the freshness window used when WithTTL is not given.
const DefaultTTL = 24 * time.Hour

// WithTTL sets the validity window. Expiry never deletes files.
func WithTTL(ttl time.Duration) Option {
	return func(c *RepositoryCache) {
		c.ttl = ttl
	}
}

// WithFilesystem sets the billy filesystem used for all I/O.
// Defaults to osfs rooted at "/".
//
// Example:
//
//	cache, err := cache.NewRepositoryCache("/cache",
//	    cache.WithFilesystem(memfs.New()))
func WithFilesystem(fs billy.Filesystem) Option {
	return func(c *RepositoryCache) {
		c.fs = fs
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *RepositoryCache) {
		c.now = now
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *RepositoryCache) {
		c.logger = logger
	}
}

// WithReleaseTag records the release a tarball copy was extracted from.
func WithReleaseTag(tag string) MarkOption {
	return func(m *RepositoryMetadata) {
		m.ReleaseTag = tag
	}
}

// PruneExpired removes entries older than the cache TTL.
func PruneExpired() PruneStrategy {
	return &pruneExpired{}
}

// PruneInvalid removes entries whose directory no longer exists.
func PruneInvalid() PruneStrategy {
	return &pruneInvalid{}
}

// PruneOlderThan removes entries not updated within maxAge.
func PruneOlderThan(maxAge time.Duration) PruneStrategy {
	return &pruneOlderThan{maxAge: maxAge}
}

// PruneToSize removes the least recently updated entries until the
// cache is under maxBytes.
func PruneToSize(maxBytes int64) PruneStrategy {
	return &pruneToSize{maxBytes: maxBytes}
}
