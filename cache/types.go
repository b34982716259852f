package cache

import (
	"math"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"go.uber.org/zap"
)

// RepositoryCache persists metadata for locally synchronized repositories
// and decides whether each copy is still fresh.
//
// Metadata lives in a single JSON file in the cache directory. Every
// operation re-reads it from disk and every change is written atomically,
// so several processes may share one cache directory. Concurrent writers
// race with last-write-wins semantics.
type RepositoryCache struct {
	basePath     string
	metadataPath string
	ttl          time.Duration

	fs     billy.Filesystem
	now    func() time.Time
	logger *zap.Logger

	mu sync.RWMutex
}

// RepositoryMetadata describes one cached repository.
type RepositoryMetadata struct {
	URL         string  `json:"url"`
	Branch      string  `json:"branch"`
	LocalPath   string  `json:"local_path"`
	LastUpdated float64 `json:"last_updated"` // Unix seconds
	IsGitRepo   bool    `json:"is_git_repo"`
	AuthType    string  `json:"auth_type,omitempty"`
	SizeBytes   int64   `json:"size_bytes"`
	FileCount   int     `json:"file_count"`

	// ReleaseTag is set when the copy came from a release archive.
	ReleaseTag string `json:"release_tag,omitempty"`
}

// UpdatedAt returns LastUpdated as a time.Time.
func (m *RepositoryMetadata) UpdatedAt() time.Time {
	sec, frac := math.Modf(m.LastUpdated)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// Status reports the cache state of one repository. It is computed
// without side effects and is available even with no metadata.
type Status struct {
	Key       string
	LocalPath string

	// Exists reports whether the local directory is present.
	Exists bool

	// HasMetadata reports whether a metadata entry was found.
	HasMetadata bool

	Valid   bool
	Expired bool

	// Age is InfiniteAge when there is no metadata.
	Age         time.Duration
	LastUpdated time.Time

	IsGitRepo  bool
	AuthType   string
	ReleaseTag string
	SizeBytes  int64
	FileCount  int
}

// InfiniteAge is the Age reported for repositories that were never updated.
const InfiniteAge = time.Duration(math.MaxInt64)

// AgeSeconds returns Age in seconds, or +Inf for InfiniteAge.
func (s Status) AgeSeconds() float64 {
	if s.Age == InfiniteAge {
		return math.Inf(1)
	}
	return s.Age.Seconds()
}

// Stats summarizes the whole cache.
type Stats struct {
	Repositories int
	Valid        int
	Expired      int
	Missing      int // metadata present, directory gone
	TotalSize    int64
	TotalFiles   int
	Oldest       *time.Time
	Newest       *time.Time
}

// Option configures RepositoryCache creation.
type Option func(*RepositoryCache)

// MarkOption adds optional fields to MarkUpdated.
type MarkOption func(*RepositoryMetadata)

// PruneStrategy decides which entries a sweep removes.
type PruneStrategy interface {
	ShouldPrune(entry *RepositoryMetadata, exists bool, now time.Time, ttl time.Duration) bool
}
