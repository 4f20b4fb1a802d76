package cache

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/dustin/go-humanize"
	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/zerr"
)

type candidate struct {
	e          *entry
	lastAccess int64
}

// EvictToBudget removes unreferenced entries, least recently used first, until the resident
// bytes fit the budget or nothing else can be evicted. It returns the number of entries removed.
func (s *Store) EvictToBudget(ctx context.Context) int {
	s.mu.Lock()
	victims := s.evictLocked()
	s.mu.Unlock()

	s.free(ctx, victims)
	if len(victims) > 0 {
		s.observe()
	}
	return len(victims)
}

// evictLocked removes victims from the map and returns them for freeing. Callers hold s.mu.
func (s *Store) evictLocked() []*entry {
	if s.resident <= s.opts.Budget {
		return nil
	}

	var victims []*entry
	for _, c := range s.candidatesLocked() {
		if s.resident <= s.opts.Budget {
			break
		}
		s.removeLocked(c.e)
		victims = append(victims, c.e)
	}
	s.evictions.Add(uint64(len(victims)))

	if s.resident > s.opts.Budget {
		s.logger.Debug(fmt.Sprintf("resident %s exceeds budget %s, remaining entries are in use",
			humanize.IBytes(uint64(s.resident)), humanize.IBytes(uint64(max(s.opts.Budget, 0)))))
	}
	return victims
}

// candidatesLocked returns unreferenced, unpinned entries in eviction order. Callers hold s.mu.
//
// Entries are ordered by last access, then by insertion order, so entries touched at the
// same clock reading leave in the order they were loaded.
func (s *Store) candidatesLocked() []candidate {
	candidates := make([]candidate, 0, len(s.entries))
	for _, e := range s.entries {
		e.mu.Lock()
		if e.evictable() {
			candidates = append(candidates, candidate{e: e, lastAccess: e.lastAccess})
		}
		e.mu.Unlock()
	}
	slices.SortFunc(candidates, func(a, b candidate) int {
		return cmp.Or(
			cmp.Compare(a.lastAccess, b.lastAccess),
			cmp.Compare(a.e.insertSeq, b.e.insertSeq),
		)
	})
	return candidates
}

// removeLocked drops e from the map. Callers hold s.mu.
func (s *Store) removeLocked(e *entry) {
	delete(s.entries, e.key)
	s.resident -= e.artifact.Size
}

// free releases tier resources of removed entries. It must run outside s.mu.
func (s *Store) free(ctx context.Context, victims []*entry) {
	for _, e := range victims {
		s.device.Free(ctx, e.key, e.artifact)
		s.metrics.Evicted(e.key, e.artifact.Size)
		s.logger.Debug(fmt.Sprintf("evicted %s (%s)", e.key, humanize.IBytes(uint64(e.artifact.Size))))
	}
}

// Invalidate removes the entry for key immediately, bypassing eviction order.
// It fails with domain.ErrEntryBusy while the entry is leased or mid tier move.
// Invalidating a key that is not resident is a no-op.
func (s *Store) Invalidate(ctx context.Context, key domain.CanonicalKey) error {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return s.invalidate(ctx, e)
}

// invalidate removes e if it is still the resident entry for its key.
func (s *Store) invalidate(ctx context.Context, e *entry) error {
	s.mu.Lock()
	if s.entries[e.key] != e {
		s.mu.Unlock()
		return nil
	}

	e.mu.Lock()
	if !e.evictable() {
		refs := e.refs
		e.mu.Unlock()
		s.mu.Unlock()
		return zerr.With(zerr.Wrap(domain.ErrEntryBusy, e.key.String()), "refs", refs)
	}
	e.mu.Unlock()

	s.removeLocked(e)
	s.mu.Unlock()

	s.device.Free(ctx, e.key, e.artifact)
	s.logger.Debug(fmt.Sprintf("invalidated %s", e.key))
	s.observe()
	return nil
}

// retire handles a registry change of base. Loads of base or its sub-artifacts that are in
// flight will not be cached. Idle entries are removed now; held ones are marked stale, stop
// serving new lookups and are removed on their last release.
func (s *Store) retire(ctx context.Context, base domain.CanonicalKey) (dropped, deferred []domain.CanonicalKey) {
	base = base.Base()

	s.mu.Lock()
	s.gens[base]++
	var retired []*entry
	for _, key := range s.keysLocked(base) {
		e := s.entries[key]
		e.mu.Lock()
		e.stale = true
		e.mu.Unlock()
		retired = append(retired, e)
	}
	s.mu.Unlock()

	// Callers arriving from now on must not join a load of the old configuration.
	s.loads.Forget(base.String())
	for _, e := range retired {
		s.loads.Forget(e.key.String())
		if err := s.invalidate(ctx, e); err != nil {
			deferred = append(deferred, e.key)
			continue
		}
		dropped = append(dropped, e.key)
	}
	return dropped, deferred
}

// Keys lists the resident keys whose base key matches base, including sub-artifacts.
func (s *Store) Keys(base domain.CanonicalKey) []domain.CanonicalKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keysLocked(base)
}

func (s *Store) keysLocked(base domain.CanonicalKey) []domain.CanonicalKey {
	var keys []domain.CanonicalKey
	for key := range s.entries {
		if key.Base() == base.Base() {
			keys = append(keys, key)
		}
	}
	slices.SortFunc(keys, domain.CanonicalKey.Compare)
	return keys
}

// detachLocked takes a stale entry out of the map so a fresh load can replace it.
// It reports whether the entry was idle, in which case the caller frees it; otherwise its
// last holder does. Callers hold s.mu.
func (s *Store) detachLocked(e *entry) (idle bool) {
	s.removeLocked(e)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evictable() {
		return true
	}
	e.detached = true
	return false
}

// unpin drops a pin taken by pin and removes the entry if it was retired meanwhile.
func (s *Store) unpin(ctx context.Context, e *entry) {
	if e.unpin() {
		s.dropStale(ctx, e)
	}
}

// dropStale removes a retired entry once nothing holds it.
func (s *Store) dropStale(ctx context.Context, e *entry) {
	s.mu.Lock()
	e.mu.Lock()
	idle := e.evictable()
	detached := e.detached
	if idle {
		e.detached = false
	}
	e.mu.Unlock()

	resident := s.entries[e.key] == e
	if !idle || (!resident && !detached) {
		s.mu.Unlock()
		return
	}
	if resident {
		s.removeLocked(e)
	}
	s.mu.Unlock()

	s.device.Free(ctx, e.key, e.artifact)
	s.logger.Debug(fmt.Sprintf("dropped stale %s", e.key))
	if resident {
		s.observe()
	}
}
