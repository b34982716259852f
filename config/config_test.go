package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example42/sai-suite-sub001/errors"
	"github.com/example42/sai-suite-sub001/repository"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultURL, cfg.URL)
	assert.Equal(t, "main", cfg.Branch)
	assert.Equal(t, 24*time.Hour, cfg.TTL)
	assert.True(t, cfg.AutoUpdate)
	assert.True(t, cfg.ShallowClone)
	assert.False(t, cfg.OfflineMode)
	assert.Equal(t, "moderate", cfg.SecurityLevel)
	assert.Contains(t, cfg.CacheDir, filepath.Join("sai", "cache", "repositories"))
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty url", func(c *Config) { c.URL = "" }, "url is empty"},
		{"negative ttl", func(c *Config) { c.TTL = -time.Second }, "ttl"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "max_retries"},
		{"bad level", func(c *Config) { c.SecurityLevel = "paranoid" }, "security_level"},
		{"zero archive size", func(c *Config) { c.MaxArchiveSize = 0 }, "max_archive_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repository.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
url: https://github.com/example42/saidata-mirror.git
branch: stable
ttl: 6h
offline_mode: true
auto_update: false
max_retries: 5
security_level: strict
max_archive_size: 1048576
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/example42/saidata-mirror.git", cfg.URL)
	assert.Equal(t, "stable", cfg.Branch)
	assert.Equal(t, 6*time.Hour, cfg.TTL)
	assert.True(t, cfg.OfflineMode)
	assert.False(t, cfg.AutoUpdate)
	assert.True(t, cfg.ShallowClone, "unset keys keep their defaults")
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, "strict", cfg.SecurityLevel)
	assert.Equal(t, int64(1<<20), cfg.MaxArchiveSize)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repository.yaml")
	require.NoError(t, os.WriteFile(path, []byte("branch: stable\nttl: 6h\n"), 0o644))

	t.Setenv("SAI_REPO_BRANCH", "develop")
	t.Setenv("SAI_REPO_TTL", "30m")
	t.Setenv("SAI_REPO_OFFLINE_MODE", "true")
	t.Setenv("SAI_REPO_CACHE_DIR", "/var/cache/sai")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "develop", cfg.Branch)
	assert.Equal(t, 30*time.Minute, cfg.TTL)
	assert.True(t, cfg.OfflineMode)
	assert.Equal(t, "/var/cache/sai", cfg.CacheDir)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultURL, cfg.URL)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("security_level: paranoid\n"), 0o644))
	_, err = Load(bad)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))

	broken := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("url: [unterminated\n"), 0o644))
	_, err = Load(broken)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
}

func TestNewManager(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CacheDir = filepath.Join(t.TempDir(), "repositories")
	cfg.OfflineMode = true

	m, err := NewManager(cfg, nil)
	require.NoError(t, err)

	st := m.Status()
	assert.Equal(t, repository.StateUnknown, st.State)
	assert.Equal(t, "main", st.Branch)
	assert.False(t, st.CacheExists)
	assert.DirExists(t, cfg.CacheDir)

	cfg.URL = "https://github.com/x/y.git;reboot"
	_, err = NewManager(cfg, nil)
	require.Error(t, err)
	assert.True(t, errors.IsSecurity(err))
}
