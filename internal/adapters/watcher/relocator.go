package watcher

import (
	"context"
	"fmt"
	"time"

	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/hoard/internal/core/ports"
)

// DefaultDebounceWindow is the quiet period before changed paths are reported.
const DefaultDebounceWindow = 250 * time.Millisecond

// Registry is the part of the registry the relocator notifies.
type Registry interface {
	Relocated(path string) []domain.CanonicalKey
}

// Relocator turns debounced watch events into registry change notifications,
// which in turn invalidate cached entries.
type Relocator struct {
	watcher  ports.Watcher
	registry Registry
	logger   ports.Logger
	window   time.Duration
}

// NewRelocator wires watcher events to registry.
func NewRelocator(watcher ports.Watcher, registry Registry, logger ports.Logger) *Relocator {
	return &Relocator{
		watcher:  watcher,
		registry: registry,
		logger:   logger,
		window:   DefaultDebounceWindow,
	}
}

// WithWindow overrides the debounce window.
func (r *Relocator) WithWindow(window time.Duration) *Relocator {
	r.window = window
	return r
}

// Run watches root until ctx ends. Pending changes are flushed before it returns.
func (r *Relocator) Run(ctx context.Context, root string) error {
	if err := r.watcher.Start(ctx, root); err != nil {
		_ = r.watcher.Stop()
		return err
	}

	d := NewDebouncer(r.window, r.relocate)
	stop := context.AfterFunc(ctx, func() { _ = r.watcher.Stop() })
	defer stop()

	for event := range r.watcher.Events() {
		d.Add(event.Path)
	}
	d.Flush()
	return nil
}

func (r *Relocator) relocate(paths []string) {
	for _, path := range paths {
		keys := r.registry.Relocated(path)
		if len(keys) > 0 {
			r.logger.Info(fmt.Sprintf("%s changed on disk, invalidated %d artifact(s)", path, len(keys)))
		}
	}
}
