// Package cache implements the tiered artifact cache and its lease protocol.
package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/hoard/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

// LoadFunc materializes the artifact for a cache miss.
type LoadFunc func(ctx context.Context) (domain.Artifact, error)

// Options configures a Store. They are fixed for the lifetime of the store.
type Options struct {
	// Budget is the byte budget shared by the Staged and Active tiers.
	Budget int64
	// SequentialOffload demotes an entry to Staged when its last lease is released.
	// When false the entry stays Active until evicted.
	SequentialOffload bool
}

// Store is the key to entry map with byte-budget accounting.
//
// mu guards the map, resident, insertSeq and gens. Loads and tier moves never run under mu.
type Store struct {
	opts    Options
	device  ports.Device
	logger  ports.Logger
	metrics ports.CacheMetrics
	clock   func() int64

	mu        sync.RWMutex
	entries   map[domain.CanonicalKey]*entry
	resident  int64
	insertSeq uint64
	// gens counts registry changes per base key. A load that sees it move was started
	// against the old configuration and is never cached.
	gens map[domain.CanonicalKey]uint64

	loads singleflight.Group

	hits         atomic.Uint64
	misses       atomic.Uint64
	evictions    atomic.Uint64
	loadFailures atomic.Uint64
}

// NewStore creates a Store. metrics may be nil.
func NewStore(opts Options, device ports.Device, logger ports.Logger, metrics ports.CacheMetrics) *Store {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	var ticks atomic.Int64
	return &Store{
		opts:    opts,
		device:  device,
		logger:  logger,
		metrics: metrics,
		clock:   func() int64 { return ticks.Add(1) },
		entries: make(map[domain.CanonicalKey]*entry),
		gens:    make(map[domain.CanonicalKey]uint64),
	}
}

// Options returns the store configuration.
func (s *Store) Options() Options {
	return s.opts
}

// GetOrLoad returns the entry for key, loading it with load on a miss.
// A miss inserts a Staged entry and then runs an eviction pass.
// A failed load returns domain.ErrLoadFailed and leaves nothing in the store.
func (s *Store) GetOrLoad(ctx context.Context, key domain.CanonicalKey, load LoadFunc) (domain.EntryInfo, error) {
	e, err := s.pin(ctx, key, load)
	if err != nil {
		return domain.EntryInfo{}, err
	}
	info := e.info()
	s.unpin(ctx, e)
	return info, nil
}

// pin returns the entry for key with its pin count raised, loading it on a miss.
// A pinned entry is never evicted or invalidated; callers must unpin it.
func (s *Store) pin(ctx context.Context, key domain.CanonicalKey, load LoadFunc) (*entry, error) {
	for {
		if e := s.pinExisting(key); e != nil {
			s.hits.Add(1)
			s.metrics.Hit(key)
			return e, nil
		}

		leader := false
		v, err, _ := s.loads.Do(key.String(), func() (any, error) {
			leader = true
			return s.loadAndInsert(ctx, key, load)
		})
		if err != nil {
			return nil, err
		}
		if leader {
			return v.(*entry), nil
		}
		// A concurrent load finished first. Its pin belongs to that caller, so look the entry up again.
	}
}

// pinExisting pins the entry for key if it is resident and current.
// A stale entry only serves the leases it already has, so it counts as a miss.
func (s *Store) pinExisting(key domain.CanonicalKey) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stale {
		return nil
	}
	e.pins++
	e.lastAccess = s.clock()
	return e
}

// loadAndInsert runs load outside the map lock, then inserts the result pinned and evicts.
// If the key's configuration changed during the load the entry is handed to this caller
// detached and stale, and the next lookup loads again.
func (s *Store) loadAndInsert(ctx context.Context, key domain.CanonicalKey, load LoadFunc) (*entry, error) {
	s.mu.RLock()
	gen := s.gens[key.Base()]
	s.mu.RUnlock()

	// The previous singleflight round may have inserted the entry after our lookup missed.
	if e := s.pinExisting(key); e != nil {
		s.hits.Add(1)
		s.metrics.Hit(key)
		return e, nil
	}

	s.misses.Add(1)
	s.metrics.Miss(key)

	artifact, err := load(ctx)
	if err == nil && artifact.Size < 0 {
		err = zerr.With(zerr.Wrap(domain.ErrCorruptArtifact, "negative artifact size"), "size", artifact.Size)
	}
	if err != nil {
		s.loadFailures.Add(1)
		s.metrics.LoadFailed(key)
		return nil, zerr.With(errors.Join(domain.ErrLoadFailed, err), "key", key.String())
	}

	e := &entry{
		key:      key,
		artifact: artifact,
		tier:     domain.TierStaged,
		pins:     1,
	}

	s.mu.Lock()
	s.insertSeq++
	e.insertSeq = s.insertSeq
	e.lastAccess = s.clock()
	if s.gens[key.Base()] != gen {
		e.stale = true
		e.detached = true
		s.mu.Unlock()
		s.logger.Debug(fmt.Sprintf("%s changed while loading, not caching it", key))
		return e, nil
	}

	var idleStale *entry
	if old, ok := s.entries[key]; ok && s.detachLocked(old) {
		idleStale = old
	}
	s.entries[key] = e
	s.resident += artifact.Size
	victims := s.evictLocked()
	resident := s.resident
	s.mu.Unlock()

	if idleStale != nil {
		s.device.Free(ctx, idleStale.key, idleStale.artifact)
	}

	s.logger.Debug(fmt.Sprintf("loaded %s (%s, resident %s of %s)",
		key, humanize.IBytes(uint64(artifact.Size)), humanize.IBytes(uint64(max(resident, 0))), humanize.IBytes(uint64(max(s.opts.Budget, 0)))))
	s.free(ctx, victims)
	s.observe()

	return e, nil
}

// Snapshot lists every resident entry sorted by key.
func (s *Store) Snapshot() []domain.EntryInfo {
	s.mu.RLock()
	infos := make([]domain.EntryInfo, 0, len(s.entries))
	for _, e := range s.entries {
		infos = append(infos, e.info())
	}
	s.mu.RUnlock()

	slices.SortFunc(infos, func(a, b domain.EntryInfo) int {
		return a.Key.Compare(b.Key)
	})
	return infos
}

// Stats summarizes occupancy and counters.
func (s *Store) Stats() domain.CacheStats {
	s.mu.RLock()
	stats := domain.CacheStats{
		Budget:        s.opts.Budget,
		ResidentBytes: s.resident,
		Entries:       len(s.entries),
	}
	for _, e := range s.entries {
		e.mu.Lock()
		if e.tier == domain.TierActive {
			stats.ActiveBytes += e.artifact.Size
		}
		e.mu.Unlock()
	}
	s.mu.RUnlock()

	stats.Hits = s.hits.Load()
	stats.Misses = s.misses.Load()
	stats.Evictions = s.evictions.Load()
	stats.LoadFailures = s.loadFailures.Load()
	return stats
}

func (s *Store) observe() {
	s.metrics.Observe(s.Stats())
}

type nopMetrics struct{}

func (nopMetrics) Hit(domain.CanonicalKey)            {}
func (nopMetrics) Miss(domain.CanonicalKey)           {}
func (nopMetrics) LoadFailed(domain.CanonicalKey)     {}
func (nopMetrics) Evicted(domain.CanonicalKey, int64) {}
func (nopMetrics) Observe(domain.CacheStats)          {}
