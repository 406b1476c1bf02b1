package data

import (
	"strings"
	"sync"
	"time"

	"github.com/kelgrand/iptv-deck/pkg/m3u"
)

// Store provides thread-safe in-memory storage for the channel lineup.
// Every refresh replaces the lineup wholesale.
type Store struct {
	mu       sync.RWMutex
	channels []m3u.Channel
	skipped  []m3u.Skipped
	results  []SourceResult
	byURL    map[string]int
	lastSync time.Time
	loaded   bool
}

// Query selects a subset of the lineup. Zero fields match everything.
type Query struct {
	Search        string
	Group         string
	FavoritesOnly bool
	Favorites     map[string]bool
}

// GroupCount is a channel group with the number of channels in it.
type GroupCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// NewStore creates a new empty data store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces the stored lineup with the given refresh outcome.
func (s *Store) Set(channels []m3u.Channel, skipped []m3u.Skipped, results []SourceResult) {
	byURL := make(map[string]int, len(channels))
	for i, ch := range channels {
		if _, ok := byURL[ch.URL]; !ok {
			byURL[ch.URL] = i
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.channels = channels
	s.skipped = skipped
	s.results = results
	s.byURL = byURL
	s.lastSync = time.Now()
	s.loaded = true
}

// Channels retrieves the full lineup. Returns false before the first load.
func (s *Store) Channels() ([]m3u.Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.channels, s.loaded
}

// Skipped returns the drop diagnostics from the last refresh.
func (s *Store) Skipped() []m3u.Skipped {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.skipped
}

// Results returns the per-source outcome of the last refresh.
func (s *Store) Results() []SourceResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.results
}

// HasData returns true once an initial lineup has been loaded.
func (s *Store) HasData() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loaded
}

// LastSync returns the time of the last lineup replacement.
func (s *Store) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastSync
}

// Lookup finds the channel whose stream URL matches target exactly.
func (s *Store) Lookup(target string) (m3u.Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byURL[target]
	if !ok {
		return m3u.Channel{}, false
	}
	return s.channels[i], true
}

// Filter returns the channels matching the query, in lineup order. Search
// text matches the normalized channel title or group.
func (s *Store) Filter(q Query) []m3u.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := NormalizeChannelName(q.Search)

	matched := make([]m3u.Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		if q.Group != "" && ch.Group != q.Group {
			continue
		}
		if q.FavoritesOnly && !q.Favorites[ch.Title] {
			continue
		}
		if search != "" &&
			!strings.Contains(NormalizeChannelName(ch.Title), search) &&
			!strings.Contains(NormalizeChannelName(ch.Group), search) {
			continue
		}
		matched = append(matched, ch)
	}
	return matched
}

// Groups returns every channel group with its channel count, ordered by
// first appearance in the lineup.
func (s *Store) Groups() []GroupCount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index := make(map[string]int)
	groups := make([]GroupCount, 0)
	for _, ch := range s.channels {
		i, ok := index[ch.Group]
		if !ok {
			i = len(groups)
			index[ch.Group] = i
			groups = append(groups, GroupCount{Name: ch.Group})
		}
		groups[i].Count++
	}
	return groups
}
