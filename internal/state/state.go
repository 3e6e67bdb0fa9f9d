package state

import (
	"time"

	"blogdiscover/internal/domain"
)

// DiscoveryState holds every mutable set and map describing traversal
// progress. It is mutated only by the engine's single control flow; the
// checkpoint store serializes a consistent snapshot of it.
type DiscoveryState struct {
	Timestamp   time.Time
	Discovered  map[string]domain.BlogRecord
	Processed   StringSet
	Failed      StringSet
	FailedBases StringSet
	Queued      StringSet
}

// New returns an empty state.
func New() *DiscoveryState {
	return &DiscoveryState{
		Discovered:  make(map[string]domain.BlogRecord),
		Processed:   NewStringSet(),
		Failed:      NewStringSet(),
		FailedBases: NewStringSet(),
		Queued:      NewStringSet(),
	}
}

// AddBlog records a confirmed discovery. The record is only ever inserted
// whole; a domain is never written twice.
func (s *DiscoveryState) AddBlog(dom string, rec domain.BlogRecord) {
	if _, exists := s.Discovered[dom]; exists {
		return
	}
	s.Discovered[dom] = rec
}

// RebuildQueued refills the queued-domain set from frontier items. Used
// when loading checkpoints written before the set existed.
func (s *DiscoveryState) RebuildQueued(items []domain.FrontierItem, canonical func(string) string) {
	for _, it := range items {
		if d := canonical(it.URL); d != "" {
			s.Queued.Add(d)
		}
	}
}
