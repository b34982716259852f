package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"go.uber.org/zap"

	"github.com/example42/sai-suite-sub001/errors"
)

// NewRepositoryCache creates a cache rooted at basePath, creating the
// directory if needed. An existing metadata file is picked up as is.
//
// Example:
//
//	c, err := cache.NewRepositoryCache("/home/me/.sai/cache/repositories",
//	    cache.WithTTL(24*time.Hour))
func NewRepositoryCache(basePath string, opts ...Option) (*RepositoryCache, error) {
	if basePath == "" {
		return nil, errors.New(errors.CodeInvalidConfig, "cache directory is empty")
	}

	c := &RepositoryCache{
		basePath: filepath.Clean(basePath),
		ttl:      DefaultTTL,
		fs:       osfs.New("/"),
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.metadataPath = filepath.Join(c.basePath, metadataFileName)

	if err := c.fs.MkdirAll(c.basePath, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.CodePermission, "failed to create cache directory %s", c.basePath)
	}

	return c, nil
}

// BasePath returns the cache root directory.
func (c *RepositoryCache) BasePath() string {
	return c.basePath
}

// TTL returns the configured validity window.
func (c *RepositoryCache) TTL() time.Duration {
	return c.ttl
}

// LocalPath returns the directory that holds the copy of url at branch.
// The directory may not exist.
func (c *RepositoryCache) LocalPath(url, branch string) string {
	return filepath.Join(c.basePath, Key(url, branch))
}

// IsValid reports whether a fresh copy of url at branch exists: the
// directory is present and it was updated within the TTL. It never fails;
// missing or corrupt metadata means not valid.
func (c *RepositoryCache) IsValid(url, branch string) bool {
	return c.GetStatus(url, branch).Valid
}

// GetPath returns the local path only when the cache entry is valid.
func (c *RepositoryCache) GetPath(url, branch string) (string, bool) {
	st := c.GetStatus(url, branch)
	if !st.Valid {
		return "", false
	}
	return st.LocalPath, true
}

// GetStatus describes the cache entry for url at branch, including
// expired entries. With no metadata Age is InfiniteAge and Expired is true.
func (c *RepositoryCache) GetStatus(url, branch string) Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := Key(url, branch)
	md := loadMetadata(c.fs, c.metadataPath, c.logger)
	entry := md.Repositories[key]

	st := Status{
		Key:       key,
		LocalPath: filepath.Join(c.basePath, key),
		Age:       InfiniteAge,
		Expired:   true,
	}
	st.Exists = c.dirExists(st.LocalPath)

	if entry == nil {
		return st
	}

	st.HasMetadata = true
	st.LastUpdated = entry.UpdatedAt()
	st.Age = c.now().Sub(st.LastUpdated)
	if st.Age < 0 {
		st.Age = 0
	}
	st.Expired = st.Age > c.ttl
	st.Valid = st.Exists && !st.Expired
	st.IsGitRepo = entry.IsGitRepo
	st.AuthType = entry.AuthType
	st.ReleaseTag = entry.ReleaseTag
	st.SizeBytes = entry.SizeBytes
	st.FileCount = entry.FileCount
	return st
}

// MarkUpdated records a successful fetch of url at branch. It recomputes
// the size and file count of the local directory, skipping unreadable
// entries, and persists the metadata atomically.
func (c *RepositoryCache) MarkUpdated(url, branch string, isGit bool, authType string, opts ...MarkOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(url, branch)
	localPath := filepath.Join(c.basePath, key)
	if !c.dirExists(localPath) {
		return errors.WithContext(
			errors.Newf(errors.CodeNotFound, "cannot mark %s updated: %s does not exist", key, localPath),
			"key", key)
	}

	size, files := c.measure(localPath)
	now := c.now()
	entry := &RepositoryMetadata{
		URL:         url,
		Branch:      branch,
		LocalPath:   localPath,
		LastUpdated: unixSeconds(now),
		IsGitRepo:   isGit,
		AuthType:    authType,
		SizeBytes:   size,
		FileCount:   files,
	}
	for _, opt := range opts {
		opt(entry)
	}

	md := loadMetadata(c.fs, c.metadataPath, c.logger)
	md.Repositories[key] = entry
	md.LastUpdated = unixSeconds(now)
	if err := saveMetadata(c.fs, c.metadataPath, md); err != nil {
		return errors.Wrap(err, errors.CodePermission, "failed to persist cache metadata")
	}

	c.logger.Debug("cache entry updated",
		zap.String("key", key),
		zap.Int64("size_bytes", size),
		zap.Int("file_count", files))
	return nil
}

// Entries returns a copy of every metadata entry keyed by cache key.
func (c *RepositoryCache) Entries() map[string]RepositoryMetadata {
	c.mu.RLock()
	defer c.mu.RUnlock()

	md := loadMetadata(c.fs, c.metadataPath, c.logger)
	out := make(map[string]RepositoryMetadata, len(md.Repositories))
	for k, v := range md.Repositories {
		out[k] = *v
	}
	return out
}

// Clear removes the metadata and the directory for url at branch.
func (c *RepositoryCache) Clear(url, branch string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(url, branch)
	md := loadMetadata(c.fs, c.metadataPath, c.logger)

	localPath := c.LocalPath(url, branch)
	if err := util.RemoveAll(c.fs, localPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.CodePermission, "failed to remove %s", localPath)
	}

	if _, ok := md.Repositories[key]; !ok {
		return nil
	}
	delete(md.Repositories, key)
	md.LastUpdated = unixSeconds(c.now())
	if err := saveMetadata(c.fs, c.metadataPath, md); err != nil {
		return errors.Wrap(err, errors.CodePermission, "failed to persist cache metadata")
	}
	c.logger.Info("cache entry cleared", zap.String("key", key))
	return nil
}

// ClearAll removes every cached repository and returns how many entries
// were removed.
func (c *RepositoryCache) ClearAll() (int, error) {
	return c.Prune(pruneAll{})
}

// Stats summarizes every entry in the cache.
func (c *RepositoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	md := loadMetadata(c.fs, c.metadataPath, c.logger)
	now := c.now()

	var st Stats
	for key, entry := range md.Repositories {
		st.Repositories++
		st.TotalSize += entry.SizeBytes
		st.TotalFiles += entry.FileCount

		dir, _ := c.entryPath(key)
		exists := c.dirExists(dir)
		expired := now.Sub(entry.UpdatedAt()) > c.ttl
		switch {
		case !exists:
			st.Missing++
		case expired:
			st.Expired++
		default:
			st.Valid++
		}

		updated := entry.UpdatedAt()
		if st.Oldest == nil || updated.Before(*st.Oldest) {
			t := updated
			st.Oldest = &t
		}
		if st.Newest == nil || updated.After(*st.Newest) {
			t := updated
			st.Newest = &t
		}
	}
	return st
}

// entryPath is the directory for key under the base path. The local_path
// recorded in metadata is never trusted for filesystem access. A key that
// is not a single path element yields "" and false.
func (c *RepositoryCache) entryPath(key string) (string, bool) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", false
	}
	return filepath.Join(c.basePath, key), true
}

func (c *RepositoryCache) dirExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := c.fs.Stat(path)
	return err == nil && info.IsDir()
}

// measure returns the total size and regular file count under root.
func (c *RepositoryCache) measure(root string) (int64, int) {
	var size int64
	var files int
	c.walkDir(root, func(_ string, info os.FileInfo) {
		if info.Mode().IsRegular() {
			size += info.Size()
			files++
		}
	})
	return size, files
}

// walkDir visits every entry under root. Unreadable directories are
// skipped rather than aborting the walk; symlinks are not followed.
func (c *RepositoryCache) walkDir(root string, fn func(path string, info os.FileInfo)) {
	entries, err := c.fs.ReadDir(root)
	if err != nil {
		c.logger.Debug("skipping unreadable directory", zap.String("path", root), zap.Error(err))
		return
	}
	for _, info := range entries {
		path := filepath.Join(root, info.Name())
		fn(path, info)
		if info.IsDir() {
			c.walkDir(path, fn)
		}
	}
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func (c *RepositoryCache) String() string {
	return fmt.Sprintf("RepositoryCache(%s, ttl=%s)", c.basePath, c.ttl)
}
