package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.trai.ch/hoard/internal/adapters/watcher"
	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/hoard/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions configures Serve.
type ServeOptions struct {
	// Listen overrides the configured address.
	Listen string
	// NoWatch disables the models directory watcher.
	NoWatch bool
}

// Introspection is the read side of the cache served over HTTP.
type Introspection interface {
	Snapshot() []domain.EntryInfo
	Stats() domain.CacheStats
}

// NewHandler serves /entries, /stats and, when metrics is not nil, /metrics.
func NewHandler(cache Introspection, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /entries", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, cache.Snapshot())
	})
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, cache.Stats())
	})
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// Serve preloads the configured artifacts and serves introspection until ctx ends.
// The models directory is watched so artifacts changed on disk leave the cache.
func (a *App) Serve(ctx context.Context, opts ServeOptions) error {
	s, err := a.start()
	if err != nil {
		return err
	}
	defer s.close(ctx)

	if err := a.preload(ctx, s); err != nil {
		a.logger.Error(err)
	}

	var w ports.Watcher
	if !opts.NoWatch {
		if w, err = a.newWatcher(); err != nil {
			return err
		}
	}

	addr := s.settings.Listen
	if opts.Listen != "" {
		addr = opts.Listen
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		if w != nil {
			_ = w.Stop()
		}
		return zerr.With(zerr.Wrap(err, "failed to listen"), "address", addr)
	}

	var metrics http.Handler
	if a.metrics != nil {
		metrics = a.metrics.Handler()
	}
	srv := &http.Server{
		Handler:           NewHandler(s.manager, metrics),
		ReadHeaderTimeout: shutdownTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info(fmt.Sprintf("serving on http://%s", ln.Addr()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return zerr.Wrap(err, "server failed")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if w != nil {
		relocator := watcher.NewRelocator(w, s.registry, a.logger)
		g.Go(func() error {
			return relocator.Run(ctx, s.settings.Root)
		})
	}

	return g.Wait()
}
