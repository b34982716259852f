package cache

import (
	"os"
	"sort"
	"time"

	"github.com/go-git/go-billy/v5/util"
	"go.uber.org/zap"

	"github.com/example42/sai-suite-sub001/errors"
)

// Prune removes every entry matched by any of strategies, deleting both
// its directory and its metadata. It returns the number of entries
// removed. With no strategies it removes expired entries.
//
// Examples:
//
//	// Remove copies older than the TTL
//	n, err := cache.Prune(PruneExpired())
//
//	// Remove copies not refreshed for 30 days and keep the cache under 1 GiB
//	n, err := cache.Prune(PruneOlderThan(30*24*time.Hour), PruneToSize(1<<30))
func (c *RepositoryCache) Prune(strategies ...PruneStrategy) (int, error) {
	if len(strategies) == 0 {
		strategies = []PruneStrategy{PruneExpired()}
	}

	var sizeStrategy *pruneToSize
	var others []PruneStrategy
	for _, s := range strategies {
		if ps, ok := s.(*pruneToSize); ok {
			sizeStrategy = ps
		} else {
			others = append(others, s)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	md := loadMetadata(c.fs, c.metadataPath, c.logger)
	now := c.now()

	toRemove := make(map[string]bool)
	for key, entry := range md.Repositories {
		dir, _ := c.entryPath(key)
		exists := c.dirExists(dir)
		for _, s := range others {
			if s.ShouldPrune(entry, exists, now, c.ttl) {
				toRemove[key] = true
				break
			}
		}
	}
	if sizeStrategy != nil {
		for _, key := range c.selectForSize(md, sizeStrategy.maxBytes, toRemove) {
			toRemove[key] = true
		}
	}

	if len(toRemove) == 0 {
		return 0, nil
	}

	removed := 0
	var firstErr error
	for key := range toRemove {
		entry := md.Repositories[key]
		dir, ok := c.entryPath(key)
		if !ok {
			c.logger.Warn("dropping cache entry with an unusable key", zap.String("key", key))
			delete(md.Repositories, key)
			continue
		}
		if err := util.RemoveAll(c.fs, dir); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("failed to remove cached repository",
				zap.String("key", key), zap.String("path", dir), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		delete(md.Repositories, key)
		removed++
		c.logger.Info("pruned cached repository", zap.String("key", key), zap.String("url", entry.URL))
	}

	md.LastUpdated = unixSeconds(now)
	if err := saveMetadata(c.fs, c.metadataPath, md); err != nil {
		return removed, errors.Wrap(err, errors.CodePermission, "failed to persist cache metadata")
	}
	if firstErr != nil {
		return removed, errors.Wrap(firstErr, errors.CodePermission, "failed to remove some cached repositories")
	}
	return removed, nil
}

// CleanupExpired removes entries older than the TTL.
func (c *RepositoryCache) CleanupExpired() (int, error) {
	return c.Prune(PruneExpired())
}

// CleanupInvalid drops metadata whose directory has disappeared.
func (c *RepositoryCache) CleanupInvalid() (int, error) {
	return c.Prune(PruneInvalid())
}

// CleanupOld removes entries not updated for maxAgeDays days.
func (c *RepositoryCache) CleanupOld(maxAgeDays int) (int, error) {
	return c.Prune(PruneOlderThan(time.Duration(maxAgeDays) * 24 * time.Hour))
}

// CleanupToSize removes least recently updated entries until the recorded
// total size is at most maxBytes.
func (c *RepositoryCache) CleanupToSize(maxBytes int64) (int, error) {
	return c.Prune(PruneToSize(maxBytes))
}

// selectForSize picks the oldest entries, not already marked, whose
// removal brings the recorded total under maxBytes.
func (c *RepositoryCache) selectForSize(md *metadataFile, maxBytes int64, marked map[string]bool) []string {
	type candidate struct {
		key     string
		size    int64
		updated float64
	}

	var total int64
	var candidates []candidate
	for key, entry := range md.Repositories {
		if marked[key] {
			continue
		}
		total += entry.SizeBytes
		candidates = append(candidates, candidate{key: key, size: entry.SizeBytes, updated: entry.LastUpdated})
	}
	if total <= maxBytes {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].updated < candidates[j].updated
	})

	var out []string
	for _, cand := range candidates {
		if total <= maxBytes {
			break
		}
		out = append(out, cand.key)
		total -= cand.size
	}
	return out
}

type pruneExpired struct{}

func (p *pruneExpired) ShouldPrune(entry *RepositoryMetadata, _ bool, now time.Time, ttl time.Duration) bool {
	return now.Sub(entry.UpdatedAt()) > ttl
}

type pruneInvalid struct{}

func (p *pruneInvalid) ShouldPrune(_ *RepositoryMetadata, exists bool, _ time.Time, _ time.Duration) bool {
	return !exists
}

type pruneOlderThan struct {
	maxAge time.Duration
}

func (p *pruneOlderThan) ShouldPrune(entry *RepositoryMetadata, _ bool, now time.Time, _ time.Duration) bool {
	return now.Sub(entry.UpdatedAt()) > p.maxAge
}

// pruneToSize is handled by Prune directly because it needs the whole index.
type pruneToSize struct {
	maxBytes int64
}

func (p *pruneToSize) ShouldPrune(*RepositoryMetadata, bool, time.Time, time.Duration) bool {
	return false
}

type pruneAll struct{}

func (pruneAll) ShouldPrune(*RepositoryMetadata, bool, time.Time, time.Duration) bool {
	return true
}
