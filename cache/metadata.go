package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"go.uber.org/zap"
)

const (
	metadataFileName = ".repository_metadata.json"
	cacheVersion     = "1.0"
)

// metadataFile is the on-disk layout of the metadata file.
type metadataFile struct {
	CacheVersion string                         `json:"cache_version"`
	LastUpdated  float64                        `json:"last_updated"`
	Repositories map[string]*RepositoryMetadata `json:"repositories"`
}

func emptyMetadata() *metadataFile {
	return &metadataFile{
		CacheVersion: cacheVersion,
		Repositories: make(map[string]*RepositoryMetadata),
	}
}

// loadMetadata reads the metadata file. A missing, unreadable, corrupt or
// foreign-version file yields an empty index; it never fails.
func loadMetadata(fs billy.Filesystem, path string, logger *zap.Logger) *metadataFile {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read cache metadata, treating cache as empty",
				zap.String("path", path), zap.Error(err))
		}
		return emptyMetadata()
	}

	var md metadataFile
	if err := json.Unmarshal(data, &md); err != nil {
		logger.Warn("cache metadata is corrupt, treating cache as empty",
			zap.String("path", path), zap.Error(err))
		return emptyMetadata()
	}
	if md.CacheVersion != cacheVersion {
		logger.Warn("unsupported cache metadata version, treating cache as empty",
			zap.String("path", path), zap.String("version", md.CacheVersion))
		return emptyMetadata()
	}
	if md.Repositories == nil {
		md.Repositories = make(map[string]*RepositoryMetadata)
	}
	return &md
}

// saveMetadata writes md atomically: a uniquely named temp file in the
// same directory is renamed over the target so readers in other processes
// never see partial JSON.
func saveMetadata(fs billy.Filesystem, path string, md *metadataFile) error {
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache metadata: %w", err)
	}

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmpFile, err := util.TempFile(fs, dir, metadataFileName+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temporary metadata file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = fs.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary metadata file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = fs.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary metadata file: %w", err)
	}

	if err := fs.Rename(tmpPath, path); err != nil {
		_ = fs.Remove(tmpPath)
		return fmt.Errorf("failed to rename metadata file: %w", err)
	}
	return nil
}
