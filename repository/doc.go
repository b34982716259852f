// Package repository keeps a local copy of a saidata repository fresh and
// resolves software entries from it.
//
// A Manager owns one repository URL and branch. Get refreshes the copy
// when it is missing, expired (with auto-update) or when forced, trying
// the git transport first and release archives second. When every
// transport fails, any cached copy is served, however old; only a missing
// cache is an error. Security failures are never papered over with the
// cache or the other transport.
//
//	c, err := cache.NewRepositoryCache(filepath.Join(home, ".sai", "cache", "repositories"))
//	if err != nil {
//	    return err
//	}
//	m, err := repository.New("https://github.com/example42/saidata.git", c)
//	if err != nil {
//	    return err
//	}
//	res, err := m.Get(ctx, "nginx", false)
//	if err != nil {
//	    return err
//	}
//	if res.Hint != "" {
//	    fmt.Fprintln(os.Stderr, res.Hint)
//	}
//
// Network failures are counted by a connectivity.Tracker; while it is in
// backoff, refreshes are skipped and the cache is served. In offline mode
// the network is never contacted.
package repository
