package repository

import (
	"context"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"
)

const (
	maxSuggestions  = 5
	maxEditDistance = 2
)

// suggest returns up to five names from the repository that are close to
// software: within two edits, or containing it (or contained by it).
func (m *Manager) suggest(ctx context.Context, repoPath, software string) []string {
	lister, ok := m.loader.(Lister)
	if !ok {
		return nil
	}
	names, err := lister.List(ctx, repoPath)
	if err != nil {
		m.logger.Debug("failed to list catalog for suggestions", zap.Error(err))
		return nil
	}
	return nearMatches(software, names)
}

func nearMatches(software string, names []string) []string {
	type match struct {
		name string
		dist int
	}
	var matches []match
	for _, name := range names {
		if name == software {
			continue
		}
		d := levenshtein.ComputeDistance(software, name)
		if d <= maxEditDistance || strings.Contains(name, software) || strings.Contains(software, name) {
			matches = append(matches, match{name, d})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].dist != matches[j].dist {
			return matches[i].dist < matches[j].dist
		}
		return matches[i].name < matches[j].name
	})

	var out []string
	for i := 0; i < len(matches) && i < maxSuggestions; i++ {
		out = append(out, matches[i].name)
	}
	return out
}
