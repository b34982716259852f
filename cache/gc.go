package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StartGC prunes the cache every interval with strategies until the
// returned stop function is called. stop is safe to call more than once
// and waits for the collector goroutine to exit.
//
// Example:
//
//	stop := c.StartGC(time.Hour, PruneInvalid(), PruneOlderThan(30*24*time.Hour))
//	defer stop()
func (c *RepositoryCache) StartGC(interval time.Duration, strategies ...PruneStrategy) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := c.Prune(strategies...); err != nil {
					c.logger.Warn("cache garbage collection failed", zap.Error(err))
				} else if n > 0 {
					c.logger.Info("cache garbage collection removed entries", zap.Int("removed", n))
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}
