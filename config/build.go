package config

import (
	"go.uber.org/zap"

	"github.com/example42/sai-suite-sub001/cache"
	"github.com/example42/sai-suite-sub001/git"
	"github.com/example42/sai-suite-sub001/github"
	"github.com/example42/sai-suite-sub001/internal/logging"
	"github.com/example42/sai-suite-sub001/repository"
	"github.com/example42/sai-suite-sub001/security"
	"github.com/example42/sai-suite-sub001/tarball"
)

// NewManager wires a repository.Manager and its transports from cfg.
// Extra options are applied last and override the configured ones.
func NewManager(cfg *Config, logger *zap.Logger, extra ...repository.Option) (*repository.Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger)

	validator := security.NewValidator(
		security.WithLevel(security.ParseLevel(cfg.SecurityLevel)),
		security.WithLogger(logger))

	c, err := cache.NewRepositoryCache(cfg.CacheDir,
		cache.WithTTL(cfg.TTL),
		cache.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	gitTransport := git.New(
		git.WithValidator(validator),
		git.WithLogger(logger),
		git.WithTimeout(cfg.Timeout),
		git.WithMaxRetries(cfg.MaxRetries),
		git.WithVerifySignatures(cfg.VerifySignatures))

	client, err := github.NewReleaseClient(
		github.WithBaseURL(cfg.GitHubAPIURL),
		github.WithTimeout(cfg.Timeout),
		github.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	releases, err := tarball.New(
		tarball.WithReleaseSource(client),
		tarball.WithValidator(validator),
		tarball.WithLogger(logger),
		tarball.WithMaxRetries(cfg.MaxRetries),
		tarball.WithMaxArchiveSize(cfg.MaxArchiveSize))
	if err != nil {
		return nil, err
	}

	opts := append([]repository.Option{
		repository.WithBranch(cfg.Branch),
		repository.WithGit(gitTransport),
		repository.WithReleases(releases),
		repository.WithValidator(validator),
		repository.WithLogger(logger),
		repository.WithOfflineMode(cfg.OfflineMode),
		repository.WithAutoUpdate(cfg.AutoUpdate),
		repository.WithShallowClone(cfg.ShallowClone),
	}, extra...)
	return repository.New(cfg.URL, c, opts...)
}
