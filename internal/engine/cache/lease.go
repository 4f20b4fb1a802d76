package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/zerr"
)

// Lease is a single-owner handle over one resident artifact.
// While a lease is open its entry is Active and cannot be evicted or invalidated.
type Lease struct {
	store    *Store
	entry    *entry
	released atomic.Bool
}

// Key returns the leased key.
func (l *Lease) Key() domain.CanonicalKey {
	return l.entry.key
}

// Size returns the resident size of the leased artifact in bytes.
func (l *Lease) Size() int64 {
	return l.entry.artifact.Size
}

// Digest returns the content digest of the leased artifact.
func (l *Lease) Digest() uint64 {
	return l.entry.artifact.Digest
}

// Artifact returns the artifact handle. It fails with domain.ErrUseAfterRelease once released.
func (l *Lease) Artifact() (any, error) {
	if l.released.Load() {
		return nil, zerr.Wrap(domain.ErrUseAfterRelease, l.entry.key.String())
	}
	return l.entry.artifact.Handle, nil
}

// Release returns the lease. Releasing twice fails with domain.ErrDoubleRelease.
func (l *Lease) Release(ctx context.Context) error {
	if !l.released.CompareAndSwap(false, true) {
		return zerr.Wrap(domain.ErrDoubleRelease, l.entry.key.String())
	}
	return l.store.release(ctx, l.entry)
}

// As returns the leased handle as T.
func As[T any](l *Lease) (T, error) {
	var zero T
	h, err := l.Artifact()
	if err != nil {
		return zero, err
	}
	v, ok := h.(T)
	if !ok {
		return zero, zerr.With(zerr.New("unexpected artifact handle type"), "type", fmt.Sprintf("%T", h))
	}
	return v, nil
}

// Acquire returns a lease on key, loading it with load on a miss.
// The first lease on an entry promotes it to the Active tier before returning.
func (s *Store) Acquire(ctx context.Context, key domain.CanonicalKey, load LoadFunc) (*Lease, error) {
	e, err := s.pin(ctx, key, load)
	if err != nil {
		return nil, err
	}

	e.moveMu.Lock()
	defer e.moveMu.Unlock()

	e.mu.Lock()
	promote := e.refs == 0 && e.tier != domain.TierActive
	e.mu.Unlock()

	if promote {
		if err := s.device.Promote(ctx, key, e.artifact); err != nil {
			s.unpin(ctx, e)
			return nil, zerr.With(errors.Join(domain.ErrTierMoveFailed, err), "key", key.String())
		}
	}

	e.mu.Lock()
	e.tier = domain.TierActive
	e.refs++
	e.pins--
	e.mu.Unlock()

	if promote {
		s.logger.Debug(fmt.Sprintf("promoted %s", key))
	}
	return &Lease{store: s, entry: e}, nil
}

// With acquires key, runs fn and releases the lease on every exit path, including panics.
func (s *Store) With(ctx context.Context, key domain.CanonicalKey, load LoadFunc, fn func(context.Context, *Lease) error) error {
	return withLease(ctx, func() (*Lease, error) { return s.Acquire(ctx, key, load) }, fn)
}

func withLease(ctx context.Context, acquire func() (*Lease, error), fn func(context.Context, *Lease) error) (err error) {
	lease, err := acquire()
	if err != nil {
		return err
	}
	defer func() {
		if relErr := lease.Release(ctx); relErr != nil {
			err = errors.Join(err, relErr)
		}
	}()
	return fn(ctx, lease)
}

// release drops one reference. The last release demotes the entry under sequential offload.
// It never runs eviction.
func (s *Store) release(ctx context.Context, e *entry) error {
	e.moveMu.Lock()
	defer e.moveMu.Unlock()

	e.mu.Lock()
	e.refs--
	if e.refs > 0 {
		e.mu.Unlock()
		return nil
	}
	demote := s.opts.SequentialOffload && e.tier == domain.TierActive
	if demote {
		e.pins++
	}
	stale := e.stale && e.evictable()
	e.mu.Unlock()

	var err error
	if demote {
		if err = s.device.Demote(ctx, e.key, e.artifact); err != nil {
			err = zerr.With(errors.Join(domain.ErrTierMoveFailed, err), "key", e.key.String())
		} else {
			e.mu.Lock()
			e.tier = domain.TierStaged
			e.mu.Unlock()
			s.logger.Debug(fmt.Sprintf("demoted %s", e.key))
		}
		s.unpin(ctx, e)
	} else if stale {
		s.dropStale(ctx, e)
	}
	return err
}
