package engine

import (
	"sync"

	"streamgate/internal/logger"
	"streamgate/internal/playlist"
)

// group holds the ordered candidates and current index for one channel.
type group struct {
	entries []playlist.Entry
	index   int
}

// GroupSnapshot is a point-in-time copy of one group's state.
type GroupSnapshot struct {
	Entries []playlist.Entry
	Index   int
}

// GroupStore maps channel group names to their candidate lists and current
// indices. It is mutated only through Replace and Advance; everything else
// sees copies, so probes never run with the store lock held.
type GroupStore struct {
	mu     sync.RWMutex
	groups map[string]*group
}

// NewGroupStore creates an empty GroupStore.
func NewGroupStore() *GroupStore {
	return &GroupStore{groups: make(map[string]*group)}
}

// Replace swaps in a new set of candidate lists. Surviving groups keep
// their current index when still in range, otherwise it resets to 0.
// Groups absent from newGroups are dropped; empty candidate lists are
// skipped entirely.
func (s *GroupStore) Replace(newGroups map[string][]playlist.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*group, len(newGroups))
	for name, entries := range newGroups {
		if len(entries) == 0 {
			logger.Debug("group_empty_skipped", "group", name)
			continue
		}
		copied := make([]playlist.Entry, len(entries))
		copy(copied, entries)

		idx := 0
		if old, ok := s.groups[name]; ok && old.index < len(copied) {
			idx = old.index
		}
		next[name] = &group{entries: copied, index: idx}
	}
	s.groups = next
}

// Snapshot returns a copy of every group's candidates and current index.
func (s *GroupStore) Snapshot() map[string]GroupSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(map[string]GroupSnapshot, len(s.groups))
	for name, g := range s.groups {
		entries := make([]playlist.Entry, len(g.entries))
		copy(entries, g.entries)
		snap[name] = GroupSnapshot{Entries: entries, Index: clampIndex(g.index, len(entries))}
	}
	return snap
}

// Selected returns the candidate at each group's current index. This is the
// narrow view the background monitor works from.
func (s *GroupStore) Selected() map[string]playlist.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]playlist.Entry, len(s.groups))
	for name, g := range s.groups {
		if g.index >= len(g.entries) {
			// Shrinking reload raced an index write; self-correct.
			g.index = 0
		}
		out[name] = g.entries[g.index]
	}
	return out
}

// Advance moves a group's current index forward by one, wrapping. Returns
// the old and new index, or ok=false when the group does not exist.
func (s *GroupStore) Advance(name string) (oldIndex, newIndex int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, found := s.groups[name]
	if !found {
		return 0, 0, false
	}
	oldIndex = clampIndex(g.index, len(g.entries))
	g.index = (oldIndex + 1) % len(g.entries)
	return oldIndex, g.index, true
}

// SetIndex records a group's newly selected index. It is a no-op when the
// group has been removed by a reload mid-pass or the index is out of range,
// so a stale pass can never resurrect or corrupt a group.
func (s *GroupStore) SetIndex(name string, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, found := s.groups[name]
	if !found || index < 0 || index >= len(g.entries) {
		return
	}
	g.index = index
}

// Len returns the number of non-empty groups.
func (s *GroupStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.groups)
}

func clampIndex(idx, n int) int {
	if idx < 0 || idx >= n {
		return 0
	}
	return idx
}
