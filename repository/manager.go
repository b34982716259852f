package repository

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example42/sai-suite-sub001/cache"
	"github.com/example42/sai-suite-sub001/connectivity"
	"github.com/example42/sai-suite-sub001/errors"
	"github.com/example42/sai-suite-sub001/git"
	"github.com/example42/sai-suite-sub001/security"
	"github.com/example42/sai-suite-sub001/tarball"
	"github.com/example42/sai-suite-sub001/transport"
)

var softwareNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Manager keeps a local copy of one saidata repository and resolves
// software entries from it. Get and Update are serialized.
type Manager struct {
	mu sync.Mutex

	url    string
	branch string

	cache       *cache.RepositoryCache
	git         GitFetcher
	gitSet      bool
	releases    ReleaseFetcher
	releasesSet bool
	tracker     *connectivity.Tracker
	trackerSet  bool
	credentials CredentialStore
	loader      CatalogLoader
	validator   *security.Validator
	logger      *zap.Logger
	now         func() time.Time

	offline    bool
	autoUpdate bool
	shallow    bool

	state             State
	lastError         string
	latestTag         string
	lastNotFoundRetry time.Time
}

// New creates a Manager for url backed by c. Transports that are not
// configured explicitly are created with the manager's validator and
// logger.
//
// Example:
//
//	c, _ := cache.NewRepositoryCache(dir)
//	m, err := repository.New("https://github.com/example42/saidata.git", c,
//	    repository.WithBranch("main"), repository.WithAutoUpdate(true))
//	if err != nil {
//	    return err
//	}
//	res, err := m.Get(ctx, "nginx", false)
func New(url string, c *cache.RepositoryCache, opts ...Option) (*Manager, error) {
	if c == nil {
		return nil, errors.New(errors.CodeInvalidConfig, "repository cache is required")
	}
	m := &Manager{
		url:        url,
		branch:     DefaultBranch,
		cache:      c,
		now:        time.Now,
		autoUpdate: true,
		shallow:    true,
		state:      StateUnknown,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.validator == nil {
		m.validator = security.NewValidator(security.WithLogger(m.logger))
	}
	if err := m.checkURL(url); err != nil {
		return nil, err
	}

	if !m.gitSet {
		m.git = git.New(git.WithValidator(m.validator), git.WithLogger(m.logger))
	}
	if !m.releasesSet {
		rt, err := tarball.New(tarball.WithValidator(m.validator), tarball.WithLogger(m.logger))
		if err != nil {
			return nil, err
		}
		m.releases = rt
	}
	if m.git == nil && m.releases == nil {
		return nil, errors.New(errors.CodeInvalidConfig, "no transport configured")
	}
	if m.tracker == nil {
		m.tracker = m.defaultTracker(url)
	}
	if m.loader == nil {
		m.loader = FileLoader{}
	}
	return m, nil
}

func (m *Manager) checkURL(url string) error {
	if url == "" {
		return errors.New(errors.CodeInvalidConfig, "repository URL is empty")
	}
	return m.validator.Check(url)
}

// Get returns the catalog entry for software, refreshing the local copy
// first when force is set, when there is no usable copy, or when the copy
// expired and auto-update is on.
//
// A malformed software name is rejected before any I/O. When the entry is
// missing, one forced refresh is attempted (at most every five minutes)
// before a *NotFoundError with near-match suggestions is returned.
func (m *Manager) Get(ctx context.Context, software string, force bool) (*Resolved, error) {
	if !softwareNamePattern.MatchString(software) {
		return nil, errors.WithContext(
			errors.Newf(errors.CodeInvalidInput, "invalid software name %q", software),
			"software", software)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	repoPath, stale, err := m.ensure(ctx, force)
	if err != nil {
		return nil, err
	}

	path, err := m.loader.Load(ctx, repoPath, software)
	var nf *NotFoundError
	if errors.As(err, &nf) && !stale.refreshed && m.state != StateOffline && m.now().Sub(m.lastNotFoundRetry) >= notFoundRetryInterval {
		m.lastNotFoundRetry = m.now()
		m.logger.Info("software not found in cached repository, refreshing once", zap.String("software", software))
		refreshed, rerr := m.refreshUnlessBackoff(ctx)
		if errors.IsSecurity(rerr) {
			return nil, rerr
		}
		if refreshed {
			stale = m.staleness()
			path, err = m.loader.Load(ctx, repoPath, software)
		}
	}
	if errors.As(err, &nf) {
		nf.Suggestions = m.suggest(ctx, repoPath, software)
		return nil, errors.WithContext(errors.Wrap(nf, errors.CodeNotFound, "software not found"), "software", software)
	}
	if err != nil {
		return nil, err
	}

	return &Resolved{
		Path:     path,
		RepoPath: repoPath,
		Stale:    stale.stale,
		Age:      stale.age,
		Hint:     stale.hint,
	}, nil
}

// Update refreshes the local copy. With force it refreshes even when the
// copy is valid. It returns true when a usable copy exists afterwards,
// including a stale one kept after every transport failed.
func (m *Manager) Update(ctx context.Context, force bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, _, err := m.ensureWith(ctx, force, true)
	return err == nil
}

// Status describes the configured repository without side effects.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs := m.cache.GetStatus(m.url, m.branch)
	st := Status{
		State:        m.state,
		URL:          security.RedactURL(m.url),
		Branch:       m.branch,
		LocalPath:    cs.LocalPath,
		CacheExists:  cs.Exists,
		CacheValid:   cs.Valid,
		LastUpdated:  cs.LastUpdated,
		Age:          cs.Age,
		ReleaseTag:   cs.ReleaseTag,
		ErrorMessage: m.lastError,
	}
	if cs.HasMetadata {
		st.Transport = transport.KindTarball.String()
		if cs.IsGitRepo {
			st.Transport = transport.KindGit.String()
		}
	}
	st.UpdateAvailable = cs.Exists && (cs.Expired || (cs.ReleaseTag != "" && tarball.UpdateAvailable(cs.ReleaseTag, m.latestTag)))
	return st
}

// Path returns the local repository directory when any copy exists,
// fresh or stale.
func (m *Manager) Path() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs := m.cache.GetStatus(m.url, m.branch)
	if !cs.Exists {
		return "", false
	}
	return cs.LocalPath, true
}

// CheckForUpdate asks the release API whether a newer release than the
// cached one exists. Git copies report whether the cache expired.
func (m *Manager) CheckForUpdate(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs := m.cache.GetStatus(m.url, m.branch)
	if !cs.Exists {
		return true, nil
	}
	if cs.IsGitRepo || m.releases == nil || m.offline {
		return cs.Expired, nil
	}

	info, err := m.releases.GetLatestRelease(ctx, m.url, m.lookupCredentials(ctx))
	if err != nil {
		return false, err
	}
	m.latestTag = info.TagName
	return tarball.UpdateAvailable(cs.ReleaseTag, info.TagName), nil
}

// Reconfigure switches to another repository or branch. The old local
// copy and its metadata are removed before the new target is adopted.
func (m *Manager) Reconfigure(url, branch string) error {
	if branch == "" {
		branch = DefaultBranch
	}
	if err := m.checkURL(url); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if url == m.url && branch == m.branch {
		return nil
	}
	if err := m.cache.Clear(m.url, m.branch); err != nil {
		return err
	}
	m.logger.Info("repository reconfigured",
		zap.String("old_url", security.RedactURL(m.url)),
		zap.String("new_url", security.RedactURL(url)),
		zap.String("branch", branch))

	m.url, m.branch = url, branch
	m.state = StateUnknown
	m.lastError = ""
	m.latestTag = ""
	m.lastNotFoundRetry = time.Time{}
	if m.trackerSet {
		m.tracker.Invalidate()
	} else {
		m.tracker = m.defaultTracker(url)
	}
	return nil
}

// defaultTracker dials the host serving url, or the default targets when
// no host can be derived from it.
func (m *Manager) defaultTracker(url string) *connectivity.Tracker {
	opts := []connectivity.Option{connectivity.WithLogger(m.logger)}
	if target, ok := connectivity.TargetForURL(url); ok {
		opts = append(opts, connectivity.WithProber(connectivity.NewDialProber(target)))
	}
	return connectivity.NewTracker(opts...)
}

func (m *Manager) ensure(ctx context.Context, force bool) (string, staleInfo, error) {
	return m.ensureWith(ctx, force, false)
}

// ensureWith makes sure a usable copy exists and returns its path.
// explicit marks a direct Update call, which refreshes expired copies
// regardless of the auto-update policy.
func (m *Manager) ensureWith(ctx context.Context, force, explicit bool) (string, staleInfo, error) {
	cs := m.cache.GetStatus(m.url, m.branch)
	log := m.logger.With(zap.String("url", security.RedactURL(m.url)), zap.String("branch", m.branch))

	if m.offline {
		m.state = StateOffline
		if !cs.Exists {
			return "", staleInfo{}, errors.New(errors.CodeNotFound, "offline mode is enabled and no cached repository exists")
		}
		return cs.LocalPath, m.useCache(cs, "offline mode"), nil
	}

	needRefresh := force || !cs.Exists || (!cs.Valid && (m.autoUpdate || explicit))
	if !needRefresh {
		if m.state == StateUnknown {
			m.state = StateAvailable
		}
		return cs.LocalPath, m.staleness(), nil
	}

	if cs.Exists && !m.tracker.IsOnline(ctx) {
		m.state = StateOffline
		return cs.LocalPath, m.useCache(cs, "network unreachable"), nil
	}

	if m.tracker.InBackoff() {
		remaining := m.tracker.Remaining()
		if cs.Exists {
			log.Info("skipping refresh during network backoff", zap.Duration("remaining", remaining))
			return cs.LocalPath, m.useCache(cs, "network backoff"), nil
		}
		m.state = StateError
		return "", staleInfo{}, errors.WithContext(
			errors.Newf(errors.CodeNetwork, "repository unavailable: retrying after network failures in %s", remaining.Round(time.Second)),
			"retry_in", remaining.String())
	}

	err := m.refresh(ctx)
	if err == nil {
		s := m.staleness()
		s.refreshed = true
		return m.cache.LocalPath(m.url, m.branch), s, nil
	}

	if errors.IsSecurity(err) {
		m.state = StateError
		return "", staleInfo{}, err
	}

	cs = m.cache.GetStatus(m.url, m.branch)
	if cs.Exists {
		log.Warn("update failed, using cached repository", zap.Error(err))
		m.state = StateAvailable
		return cs.LocalPath, m.useCache(cs, "update failed"), nil
	}

	m.state = StateError
	return "", staleInfo{}, errors.WithContext(
		errors.Wrap(err, errors.GetCode(err), "repository unavailable and nothing is cached"),
		"guidance", errors.Guidance(err))
}

// refreshUnlessBackoff runs a forced refresh unless the network is in
// backoff. A failed refresh leaves the existing copy in service.
func (m *Manager) refreshUnlessBackoff(ctx context.Context) (bool, error) {
	if m.tracker.InBackoff() {
		return false, nil
	}
	if err := m.refresh(ctx); err != nil {
		if !errors.IsSecurity(err) {
			m.state = StateAvailable
		}
		return false, err
	}
	return true, nil
}

// refresh fetches the repository with each available transport in turn,
// git first. A security failure stops the sequence.
func (m *Manager) refresh(ctx context.Context) error {
	m.state = StateUpdating
	creds := m.lookupCredentials(ctx)
	target := m.cache.LocalPath(m.url, m.branch)

	var last error
	networkFailure := false
	for _, kind := range m.transportOrder() {
		log := m.logger.With(zap.Stringer("transport", kind), zap.String("url", security.RedactURL(m.url)))

		res, tag := m.fetch(ctx, kind, target, creds)
		for _, w := range res.Warnings {
			log.Warn(w)
		}
		if res.Success {
			var markOpts []cache.MarkOption
			if tag != "" {
				markOpts = append(markOpts, cache.WithReleaseTag(tag))
				m.latestTag = tag
			}
			if err := m.cache.MarkUpdated(m.url, m.branch, kind == transport.KindGit, string(transport.TypeOf(creds)), markOpts...); err != nil {
				log.Warn("failed to record cache metadata", zap.Error(err))
			}
			m.tracker.RecordSuccess()
			m.state = StateAvailable
			m.lastError = ""
			log.Info("repository updated", zap.String("message", res.Message), zap.String("details", res.Details))
			return nil
		}

		last = res.Error()
		log.Warn("transport failed",
			zap.String("message", res.Message),
			zap.String("guidance", res.Details),
			zap.Error(last))
		switch errors.GetCode(last) {
		case errors.CodeNetwork, errors.CodeTimeout:
			networkFailure = true
		}
		if errors.IsSecurity(last) {
			break
		}
	}

	if last == nil {
		last = errors.New(errors.CodeUnavailable, "no transport is available")
	}
	if networkFailure {
		m.tracker.RecordFailure()
	}
	m.lastError = last.Error()
	m.state = StateError
	return last
}

// transportOrder lists the transports to try: git when its binary is
// present, then release archives.
func (m *Manager) transportOrder() []transport.Kind {
	var kinds []transport.Kind
	if m.git != nil && m.git.IsAvailable() {
		kinds = append(kinds, transport.KindGit)
	}
	if m.releases != nil {
		kinds = append(kinds, transport.KindTarball)
	}
	return kinds
}

// fetch runs one transport against target. The release tag is returned
// for archive fetches.
func (m *Manager) fetch(ctx context.Context, kind transport.Kind, target string, creds *transport.Credentials) (transport.Result, string) {
	switch kind {
	case transport.KindGit:
		return m.fetchGit(ctx, target, creds), ""
	case transport.KindTarball:
		info, err := m.releases.GetLatestRelease(ctx, m.url, creds)
		if err != nil {
			return transport.Failed(err, "failed to look up the latest release"), ""
		}
		return m.releases.DownloadAndExtract(ctx, info, target, creds), info.TagName
	}
	return transport.Failed(errors.Newf(errors.CodeInternal, "unknown transport %s", kind), "unknown transport"), ""
}

// fetchGit updates an existing checkout in place, or clones into a
// staging directory that replaces target only once the clone verified.
func (m *Manager) fetchGit(ctx context.Context, target string, creds *transport.Credentials) transport.Result {
	if isCheckout(target) {
		res := m.git.Update(ctx, target, creds)
		if res.Success || errors.IsSecurity(res.Err) {
			return res
		}
		m.logger.Warn("git update failed, cloning afresh", zap.String("message", res.Message), zap.Error(res.Err))
	}

	staging := target + ".clone"
	res := m.git.Clone(ctx, m.url, staging, git.CloneOptions{
		Branch:  m.branch,
		Shallow: m.shallow,
		Auth:    creds,
	})
	if !res.Success {
		_ = os.RemoveAll(staging)
		return res
	}
	if err := os.RemoveAll(target); err != nil {
		_ = os.RemoveAll(staging)
		return transport.Failed(errors.Wrapf(err, errors.CodePermission, "failed to remove %s", target), "cannot replace cached repository")
	}
	if err := os.Rename(staging, target); err != nil {
		_ = os.RemoveAll(staging)
		return transport.Failed(errors.Wrapf(err, errors.CodePermission, "failed to move clone into %s", target), "cannot replace cached repository")
	}
	res.Path = target
	return res
}

func (m *Manager) lookupCredentials(ctx context.Context) *transport.Credentials {
	if m.credentials == nil {
		return nil
	}
	creds, err := m.credentials.GetCredentials(ctx, m.url)
	if err != nil {
		m.logger.Warn("failed to read stored credentials, continuing without", zap.Error(err))
		return nil
	}
	return creds
}

func isCheckout(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}
