// Package config loads synchronizer settings from a file and the
// environment and builds a ready repository.Manager from them.
//
// Settings are read with viper. A file may be YAML, JSON or TOML; every
// key can be overridden by an environment variable prefixed SAI_REPO_,
// for example SAI_REPO_OFFLINE_MODE=true or SAI_REPO_TTL=6h.
//
//	cfg, err := config.Load("/etc/sai/repository.yaml")
//	if err != nil {
//	    return err
//	}
//	m, err := config.NewManager(cfg, logging.New(cfg.LogLevel, false))
package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/example42/sai-suite-sub001/errors"
	"github.com/example42/sai-suite-sub001/security"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "SAI_REPO"

// Default values.
const (
	DefaultURL            = "https://github.com/example42/saidata.git"
	DefaultBranch         = "main"
	DefaultTTL            = 24 * time.Hour
	DefaultTimeout        = 5 * time.Minute
	DefaultMaxRetries     = 3
	DefaultMaxArchiveSize = 500 << 20
	DefaultGitHubAPIURL   = "https://api.github.com/"
)

// Config holds the synchronizer settings.
type Config struct {
	URL      string `mapstructure:"url"`
	Branch   string `mapstructure:"branch"`
	CacheDir string `mapstructure:"cache_dir"`

	TTL         time.Duration `mapstructure:"ttl"`
	OfflineMode bool          `mapstructure:"offline_mode"`
	AutoUpdate  bool          `mapstructure:"auto_update"`

	// Timeout bounds each git invocation and each release API request.
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	ShallowClone bool          `mapstructure:"shallow_clone"`

	SecurityLevel    string `mapstructure:"security_level"`
	VerifySignatures bool   `mapstructure:"verify_signatures"`

	GitHubAPIURL   string `mapstructure:"github_api_url"`
	MaxArchiveSize int64  `mapstructure:"max_archive_size"`

	LogLevel string `mapstructure:"log_level"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	c := &Config{AutoUpdate: true, ShallowClone: true}
	c.SetDefaults()
	return c
}

// SetDefaults fills unset fields. Booleans are left alone.
func (c *Config) SetDefaults() {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.Branch == "" {
		c.Branch = DefaultBranch
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir()
	}
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.SecurityLevel == "" {
		c.SecurityLevel = string(security.LevelModerate)
	}
	if c.GitHubAPIURL == "" {
		c.GitHubAPIURL = DefaultGitHubAPIURL
	}
	if c.MaxArchiveSize == 0 {
		c.MaxArchiveSize = DefaultMaxArchiveSize
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var problems []string
	if c.URL == "" {
		problems = append(problems, "url is empty")
	}
	if c.CacheDir == "" {
		problems = append(problems, "cache_dir is empty")
	}
	if c.TTL <= 0 {
		problems = append(problems, "ttl must be greater than 0")
	}
	if c.Timeout <= 0 {
		problems = append(problems, "timeout must be greater than 0")
	}
	if c.MaxRetries < 0 {
		problems = append(problems, "max_retries must not be negative")
	}
	if c.MaxArchiveSize <= 0 {
		problems = append(problems, "max_archive_size must be greater than 0")
	}
	switch security.Level(strings.ToLower(c.SecurityLevel)) {
	case security.LevelStrict, security.LevelModerate, security.LevelPermissive:
	default:
		problems = append(problems, "security_level must be strict, moderate or permissive")
	}
	if len(problems) > 0 {
		return errors.WithContext(
			errors.Newf(errors.CodeInvalidConfig, "invalid repository configuration: %s", strings.Join(problems, "; ")),
			"problems", problems)
	}
	return nil
}

// Load reads path, when set, then applies environment overrides,
// defaults and validation. A missing path is an error; an empty path
// loads from the environment alone.
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("url", defaults.URL)
	v.SetDefault("branch", defaults.Branch)
	v.SetDefault("cache_dir", defaults.CacheDir)
	v.SetDefault("ttl", defaults.TTL)
	v.SetDefault("offline_mode", defaults.OfflineMode)
	v.SetDefault("auto_update", defaults.AutoUpdate)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("max_retries", defaults.MaxRetries)
	v.SetDefault("shallow_clone", defaults.ShallowClone)
	v.SetDefault("security_level", defaults.SecurityLevel)
	v.SetDefault("verify_signatures", defaults.VerifySignatures)
	v.SetDefault("github_api_url", defaults.GitHubAPIURL)
	v.SetDefault("max_archive_size", defaults.MaxArchiveSize)
	v.SetDefault("log_level", defaults.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			code := errors.CodeInvalidConfig
			if errors.Is(err, fs.ErrNotExist) {
				code = errors.CodeNotFound
			}
			return nil, errors.WithContext(errors.Wrapf(err, code, "failed to read config file %s", path), "path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to decode repository configuration")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "sai", "cache", "repositories")
	}
	return filepath.Join(home, ".sai", "cache", "repositories")
}
