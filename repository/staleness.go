package repository

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/example42/sai-suite-sub001/cache"
)

const (
	staleInfoAge   = 6 * time.Hour
	staleWarnAge   = 24 * time.Hour
	staleStrongAge = 7 * 24 * time.Hour
)

type staleInfo struct {
	stale bool
	age   time.Duration
	hint  string
	level zapcore.Level

	// refreshed is set when the copy was fetched by this call.
	refreshed bool
}

// staleHint grades age: info from six hours, a warning from a day and a
// stronger warning from a week. Younger copies get no hint.
func staleHint(age time.Duration) (string, zapcore.Level) {
	switch {
	case age == cache.InfiniteAge:
		return "repository cache has no update record; run an update when the network is available", zapcore.WarnLevel
	case age >= staleStrongAge:
		return fmt.Sprintf("repository cache is %d days old and likely out of date; run an update as soon as the network is available", int(age/(24*time.Hour))), zapcore.WarnLevel
	case age >= staleWarnAge:
		return fmt.Sprintf("repository cache is %d hours old; consider running an update", int(age/time.Hour)), zapcore.WarnLevel
	case age >= staleInfoAge:
		return fmt.Sprintf("repository cache was last updated %d hours ago", int(age/time.Hour)), zapcore.InfoLevel
	}
	return "", zapcore.DebugLevel
}

// staleness describes the current cache entry without logging.
func (m *Manager) staleness() staleInfo {
	cs := m.cache.GetStatus(m.url, m.branch)
	s := staleInfo{stale: cs.Exists && cs.Expired, age: cs.Age}
	s.hint, s.level = staleHint(cs.Age)
	return s
}

// useCache describes cs and logs its staleness hint, for the paths that
// serve the cache without refreshing it.
func (m *Manager) useCache(cs cache.Status, reason string) staleInfo {
	s := staleInfo{stale: cs.Expired, age: cs.Age}
	s.hint, s.level = staleHint(cs.Age)
	if cs.Expired && s.level < zapcore.WarnLevel {
		s.level = zapcore.WarnLevel
		if s.hint == "" {
			s.hint = "repository cache is past its TTL"
		}
	}

	fields := []zap.Field{
		zap.String("reason", reason),
		zap.String("path", cs.LocalPath),
		zap.Bool("expired", cs.Expired),
	}
	if cs.Age != cache.InfiniteAge {
		fields = append(fields, zap.Duration("age", cs.Age))
	}
	msg := "using cached repository"
	if s.hint != "" {
		msg = s.hint
	}
	if ce := m.logger.Check(s.level, msg); ce != nil {
		ce.Write(fields...)
	}
	return s
}
