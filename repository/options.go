package repository

import (
	"time"

	"go.uber.org/zap"

	"github.com/example42/sai-suite-sub001/connectivity"
	"github.com/example42/sai-suite-sub001/security"
)

const (
	// DefaultBranch is used when no branch is configured.
	DefaultBranch = "main"

	// notFoundRetryInterval rate-limits the forced refresh triggered by a
	// software entry missing from the cache.
	notFoundRetryInterval = 5 * time.Minute
)

// Option configures a Manager.
type Option func(*Manager)

// WithBranch sets the branch to track.
func WithBranch(branch string) Option {
	return func(m *Manager) {
		if branch != "" {
			m.branch = branch
		}
	}
}

// WithGit sets the git transport. Pass nil to disable it.
func WithGit(g GitFetcher) Option {
	return func(m *Manager) {
		m.git = g
		m.gitSet = true
	}
}

// WithReleases sets the release archive transport. Pass nil to disable it.
func WithReleases(r ReleaseFetcher) Option {
	return func(m *Manager) {
		m.releases = r
		m.releasesSet = true
	}
}

// WithTracker sets the connectivity tracker.
func WithTracker(t *connectivity.Tracker) Option {
	return func(m *Manager) {
		m.tracker = t
		m.trackerSet = t != nil
	}
}

// WithCredentialStore sets where credentials are looked up.
func WithCredentialStore(s CredentialStore) Option {
	return func(m *Manager) {
		m.credentials = s
	}
}

// WithCatalogLoader sets the loader used by Get. The default is FileLoader.
func WithCatalogLoader(l CatalogLoader) Option {
	return func(m *Manager) {
		m.loader = l
	}
}

// WithValidator sets the security validator used for URLs and software
// names and passed to the default transports.
func WithValidator(v *security.Validator) Option {
	return func(m *Manager) {
		m.validator = v
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithOfflineMode never contacts the network and serves the cache as is.
func WithOfflineMode(offline bool) Option {
	return func(m *Manager) {
		m.offline = offline
	}
}

// WithAutoUpdate refreshes expired caches on Get. Without it an existing
// cache is served until Update or a forced Get.
func WithAutoUpdate(auto bool) Option {
	return func(m *Manager) {
		m.autoUpdate = auto
	}
}

// WithShallowClone clones with --depth 1.
func WithShallowClone(shallow bool) Option {
	return func(m *Manager) {
		m.shallow = shallow
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}
