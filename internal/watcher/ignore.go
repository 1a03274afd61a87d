package watcher

import (
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// ignoreSet is the process-wide compiled glob set, swapped atomically by
// SetIgnorePatterns. Patterns are matched against the full path (§4.1),
// using doublestar so that "**/*.tmp"-style patterns work the way they do
// in the rest of the pack's watch tooling (ignore-pattern matching in
// wave's and dive's file watchers is doublestar-based for the same reason:
// filepath.Match alone can't express a recursive "any depth" glob).
type ignoreSet struct {
	mu       sync.RWMutex
	patterns []string
}

func newIgnoreSet() *ignoreSet {
	return &ignoreSet{}
}

func (s *ignoreSet) replace(patterns []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = append([]string(nil), patterns...)
}

func (s *ignoreSet) matches(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}
