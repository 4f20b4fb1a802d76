package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/hoard/internal/engine/cache"
)

func isUnavailable(err error) bool {
	return errors.Is(err, domain.ErrArtifactUnavailable)
}

// Acquire leases each key in turn, reports it and releases it, then prints the cache state.
func (a *App) Acquire(ctx context.Context, raw []string) error {
	keys, err := parseKeys(raw)
	if err != nil {
		return err
	}
	s, err := a.start()
	if err != nil {
		return err
	}
	defer s.close(ctx)

	var errs error
	for _, key := range keys {
		err := s.manager.With(ctx, key, func(_ context.Context, l *cache.Lease) error {
			a.logger.Info(fmt.Sprintf("leased %s (%s, digest %016x, %s)",
				l.Key(), humanize.IBytes(uint64(l.Size())), l.Digest(), s.device.Where(l.Key())))
			return nil
		})
		errs = errors.Join(errs, err)
	}

	renderSnapshot(a.out, s.manager.Snapshot(), s.manager.Stats())
	return errs
}

// Status loads the configured preload set and prints the cache state.
func (a *App) Status(ctx context.Context) error {
	s, err := a.start()
	if err != nil {
		return err
	}
	defer s.close(ctx)

	err = a.preload(ctx, s)
	renderSnapshot(a.out, s.manager.Snapshot(), s.manager.Stats())
	return err
}

func (a *App) preload(ctx context.Context, s *session) error {
	keys, err := s.preloadKeys()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	a.logger.Debug(fmt.Sprintf("preloading %d artifact(s)", len(keys)))
	return s.manager.Preload(ctx, keys, s.settings.PreloadConcurrency)
}
