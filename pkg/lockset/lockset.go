package lockset

import (
	"sort"
	"sync"
)

// Set hands out named mutexes and acquires groups of them in a fixed
// lexicographic order, so callers locking overlapping name sets can
// never deadlock each other.
type Set struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New builds an empty lock set.
func New() *Set {
	return &Set{locks: make(map[string]*entry)}
}

// Lock acquires every named lock, deduplicated and sorted. The returned
// release function unlocks in reverse order and must be called exactly
// once.
func (s *Set) Lock(names []string) func() {
	keys := dedupSorted(names)
	entries := make([]*entry, len(keys))
	for i, key := range keys {
		entries[i] = s.retain(key)
		entries[i].mu.Lock()
	}
	return func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
			s.release(keys[i])
		}
	}
}

func (s *Set) retain(name string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.locks[name]
	if !ok {
		e = &entry{}
		s.locks[name] = e
	}
	e.refs++
	return e
}

func (s *Set) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.locks[name]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(s.locks, name)
	}
}

func dedupSorted(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	copy(keys, names)
	sort.Strings(keys)
	out := keys[:1]
	for _, key := range keys[1:] {
		if key != out[len(out)-1] {
			out = append(out, key)
		}
	}
	return out
}
