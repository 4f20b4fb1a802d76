package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/hoard/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// DefaultPreloadConcurrency bounds concurrent loads during Preload when no limit is given.
const DefaultPreloadConcurrency = 2

// Manager resolves keys through the registry and serves them from the Store.
type Manager struct {
	store    *Store
	registry ports.Registry
	loader   ports.Loader
	logger   ports.Logger
	tracer   ports.Tracer

	unsubscribe func()
}

// NewManager creates a Manager and subscribes it to registry changes.
// Call Close to stop receiving change notifications.
func NewManager(
	store *Store,
	registry ports.Registry,
	loader ports.Loader,
	logger ports.Logger,
	tracer ports.Tracer,
) *Manager {
	m := &Manager{
		store:    store,
		registry: registry,
		loader:   loader,
		logger:   logger,
		tracer:   tracer,
	}
	m.unsubscribe = registry.Subscribe(m.onChange)
	return m
}

// Store returns the underlying store.
func (m *Manager) Store() *Store {
	return m.store
}

// Close stops registry change notifications.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Acquire leases the artifact for key.
// Keys the registry does not know, or reports in an error state, fail with
// domain.ErrArtifactUnavailable without attempting a load.
func (m *Manager) Acquire(ctx context.Context, key domain.CanonicalKey) (*Lease, error) {
	ctx, span := m.tracer.Start(ctx, "acquire", ports.WithAttribute("key", key.String()))
	defer span.End()

	load, err := m.resolve(ctx, key)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	lease, err := m.store.Acquire(ctx, key, load)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("size", lease.Size())
	return lease, nil
}

// With leases key for the duration of fn and always releases it.
func (m *Manager) With(ctx context.Context, key domain.CanonicalKey, fn func(context.Context, *Lease) error) error {
	return withLease(ctx, func() (*Lease, error) { return m.Acquire(ctx, key) }, fn)
}

// GetOrLoad makes key resident without leasing it.
func (m *Manager) GetOrLoad(ctx context.Context, key domain.CanonicalKey) (domain.EntryInfo, error) {
	ctx, span := m.tracer.Start(ctx, "get_or_load", ports.WithAttribute("key", key.String()))
	defer span.End()

	load, err := m.resolve(ctx, key)
	if err != nil {
		span.RecordError(err)
		return domain.EntryInfo{}, err
	}

	info, err := m.store.GetOrLoad(ctx, key, load)
	if err != nil {
		span.RecordError(err)
		return domain.EntryInfo{}, err
	}
	return info, nil
}

// Preload loads keys concurrently, at most limit at a time.
// Every key is attempted; the first failure is returned.
func (m *Manager) Preload(ctx context.Context, keys []domain.CanonicalKey, limit int) error {
	if limit <= 0 {
		limit = DefaultPreloadConcurrency
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for _, key := range keys {
		g.Go(func() error {
			if _, err := m.GetOrLoad(ctx, key); err != nil {
				m.logger.Warn(fmt.Sprintf("preload of %s failed", key))
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// Invalidate drops key from the cache. It fails with domain.ErrEntryBusy while the key is leased.
func (m *Manager) Invalidate(ctx context.Context, key domain.CanonicalKey) error {
	return m.store.Invalidate(ctx, key)
}

// Snapshot lists resident entries.
func (m *Manager) Snapshot() []domain.EntryInfo {
	return m.store.Snapshot()
}

// Stats summarizes the cache.
func (m *Manager) Stats() domain.CacheStats {
	return m.store.Stats()
}

// resolve consults the registry and returns the loader invocation for key.
// The load looks the key up again so a registry change that lands before it starts is honored.
func (m *Manager) resolve(ctx context.Context, key domain.CanonicalKey) (LoadFunc, error) {
	if _, err := m.request(ctx, key); err != nil {
		return nil, err
	}

	return func(ctx context.Context) (domain.Artifact, error) {
		req, err := m.request(ctx, key)
		if err != nil {
			return domain.Artifact{}, err
		}

		ctx, span := m.tracer.Start(ctx, "load",
			ports.WithAttribute("key", key.String()),
			ports.WithAttribute("format", string(req.Format)),
		)
		defer span.End()

		artifact, err := m.loader.Load(ctx, req)
		if err != nil {
			span.RecordError(err)
			m.markError(ctx, key, err)
			return domain.Artifact{}, err
		}
		span.SetAttribute("size", artifact.Size)
		m.logger.Info(fmt.Sprintf("loaded %s from %s", key, req.Path))
		return artifact, nil
	}, nil
}

// request builds the load request for key from its current registry configuration.
func (m *Manager) request(ctx context.Context, key domain.CanonicalKey) (domain.LoadRequest, error) {
	cfg, err := m.registry.Lookup(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrArtifactUnavailable) {
			return domain.LoadRequest{}, err
		}
		return domain.LoadRequest{}, zerr.With(errors.Join(domain.ErrArtifactUnavailable, err), "key", key.String())
	}
	if cfg.Error != domain.ErrorNone {
		err := zerr.With(zerr.Wrap(domain.ErrArtifactUnavailable, key.String()), "state", string(cfg.Error))
		return domain.LoadRequest{}, err
	}

	path, override := cfg.Location(key)
	return domain.LoadRequest{
		Key:      key,
		Path:     path,
		Format:   cfg.Format,
		Override: override,
	}, nil
}

// markError records load failures that will not heal on retry against the artifact,
// so later acquires fail fast until its configuration changes.
func (m *Manager) markError(ctx context.Context, key domain.CanonicalKey, err error) {
	var state domain.ErrorState
	switch {
	case errors.Is(err, fs.ErrNotExist):
		state = domain.ErrorNotFound
	case errors.Is(err, domain.ErrCorruptArtifact):
		state = domain.ErrorConversionRequired
	default:
		return
	}
	if markErr := m.registry.MarkError(ctx, key.Base(), state); markErr != nil {
		m.logger.Warn(fmt.Sprintf("could not mark %s as %s: %v", key.Base(), state, markErr))
	}
}

// onChange retires every cached slot of the changed artifact, sub-artifacts included.
// Loads of it that are still running finish but are not cached.
func (m *Manager) onChange(key domain.CanonicalKey) {
	dropped, deferred := m.store.retire(context.Background(), key)
	for _, k := range deferred {
		m.logger.Warn(fmt.Sprintf("%s changed while in use, it will be dropped on release", k))
	}
	for _, k := range dropped {
		m.logger.Info(fmt.Sprintf("invalidated %s after registry change", k))
	}
}
