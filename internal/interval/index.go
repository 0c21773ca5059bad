// Package interval maintains the per-resource booking indexes used for
// occupancy conflict checks. Each resource key (one teacher, one
// classroom, one class) maps to a start-ordered list of tagged
// intervals; the tags let callers express exclusion and population
// rules as plain predicates.
package interval

import (
	"sort"
	"sync"
	"time"
)

// Entry is one booked interval tagged with its owning occupancy.
// SubjectID and GroupNumber only matter on class keys, where the
// population rule needs them.
type Entry struct {
	Start       time.Time
	End         time.Time
	OccupancyID string
	SubjectID   string
	GroupNumber *int
}

// Match decides whether an indexed entry should be considered a
// potential conflict for the candidate being checked.
type Match func(Entry) bool

// Overlaps reports whether [s1,e1) and [s2,e2) intersect. Half-open:
// touching endpoints do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// Index holds the booking intervals for every resource key.
type Index struct {
	mu   sync.RWMutex
	keys map[string][]Entry
}

// NewIndex builds an empty index.
func NewIndex() *Index {
	return &Index{keys: make(map[string][]Entry)}
}

// Load replaces the whole index with the given snapshot, typically the
// store contents at boot.
func (ix *Index) Load(snapshot map[string][]Entry) {
	keys := make(map[string][]Entry, len(snapshot))
	for key, entries := range snapshot {
		list := make([]Entry, len(entries))
		copy(list, entries)
		sortEntries(list)
		keys[key] = list
	}
	ix.mu.Lock()
	ix.keys = keys
	ix.mu.Unlock()
}

// Insert adds an entry under the resource key, keeping start order.
func (ix *Index) Insert(key string, e Entry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	list := ix.keys[key]
	pos := sort.Search(len(list), func(i int) bool {
		if list[i].Start.Equal(e.Start) {
			return list[i].OccupancyID >= e.OccupancyID
		}
		return list[i].Start.After(e.Start)
	})
	list = append(list, Entry{})
	copy(list[pos+1:], list[pos:])
	list[pos] = e
	ix.keys[key] = list
}

// Remove deletes the entry owned by the occupancy from the resource
// key, if present.
func (ix *Index) Remove(key, occupancyID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	list := ix.keys[key]
	for i, e := range list {
		if e.OccupancyID == occupancyID {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(ix.keys, key)
		return
	}
	ix.keys[key] = list
}

// Conflicting returns the first indexed entry under the key that
// overlaps [start,end) and satisfies match. Entries starting at or
// after end are pruned by binary search; the remainder is scanned,
// which is linear only in the bookings that begin before the candidate
// ends.
func (ix *Index) Conflicting(key string, start, end time.Time, match Match) (Entry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	list := ix.keys[key]
	bound := sort.Search(len(list), func(i int) bool {
		return !list[i].Start.Before(end)
	})
	for i := 0; i < bound; i++ {
		e := list[i]
		if !e.End.After(start) {
			continue
		}
		if match == nil || match(e) {
			return e, true
		}
	}
	return Entry{}, false
}

// Size reports how many intervals are indexed under the key.
func (ix *Index) Size(key string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.keys[key])
}

func sortEntries(list []Entry) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Start.Equal(list[j].Start) {
			return list[i].OccupancyID < list[j].OccupancyID
		}
		return list[i].Start.Before(list[j].Start)
	})
}
