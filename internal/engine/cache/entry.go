package cache

import (
	"sync"

	"go.trai.ch/hoard/internal/core/domain"
)

// entry is one resident artifact.
//
// key, artifact and insertSeq are immutable once the entry is in the map.
// refs, pins, tier, lastAccess, stale and detached are guarded by mu.
// A detached entry has left the map while still held; its last holder frees it.
// moveMu serializes acquire and release on this entry so tier moves observe a consistent refcount.
type entry struct {
	key       domain.CanonicalKey
	artifact  domain.Artifact
	insertSeq uint64

	moveMu sync.Mutex

	mu         sync.Mutex
	refs       int
	pins       int
	tier       domain.Tier
	lastAccess int64
	stale      bool
	detached   bool
}

// evictable reports whether nothing holds the entry. Callers hold e.mu.
func (e *entry) evictable() bool {
	return e.refs == 0 && e.pins == 0
}

// unpin drops one pin and reports whether a stale entry just became idle.
func (e *entry) unpin() (dropStale bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pins--
	return e.stale && e.evictable()
}

func (e *entry) info() domain.EntryInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.EntryInfo{
		Key:        e.key,
		Tier:       e.tier,
		Size:       e.artifact.Size,
		Refs:       e.refs,
		LastAccess: e.lastAccess,
		Digest:     e.artifact.Digest,
	}
}
