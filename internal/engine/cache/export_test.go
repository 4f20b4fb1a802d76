package cache

import "go.trai.ch/hoard/internal/core/domain"

// SetClock replaces the access clock. Tests use it to force equal or ordered timestamps.
func (s *Store) SetClock(clock func() int64) {
	s.clock = clock
}

// EntryState exposes the mutable state of one entry for invariant checks.
type EntryState struct {
	Refs  int
	Pins  int
	Tier  domain.Tier
	Stale bool
}

// States returns the state of every resident entry.
func (s *Store) States() map[domain.CanonicalKey]EntryState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.CanonicalKey]EntryState, len(s.entries))
	for key, e := range s.entries {
		e.mu.Lock()
		out[key] = EntryState{Refs: e.refs, Pins: e.pins, Tier: e.tier, Stale: e.stale}
		e.mu.Unlock()
	}
	return out
}

// Candidates returns the keys eviction would consider, in eviction order.
func (s *Store) Candidates() []domain.CanonicalKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []domain.CanonicalKey
	for _, c := range s.candidatesLocked() {
		keys = append(keys, c.e.key)
	}
	return keys
}
