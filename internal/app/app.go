// Package app implements the application layer for hoard.
package app

import (
	"context"
	"io"
	"os"

	"go.trai.ch/hoard/internal/adapters/device"
	"go.trai.ch/hoard/internal/adapters/metrics"
	"go.trai.ch/hoard/internal/adapters/registry"
	"go.trai.ch/hoard/internal/adapters/telemetry"
	"go.trai.ch/hoard/internal/adapters/watcher"
	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/hoard/internal/core/ports"
	"go.trai.ch/hoard/internal/engine/cache"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	openRegistry registry.Opener
	newDevice    device.Factory
	loader       ports.Loader
	newTelemetry telemetry.Factory
	metrics      *metrics.Collector
	newWatcher   watcher.Factory
	logger       ports.Logger

	configPath string
	out        io.Writer
}

// New creates a new App instance.
func New(
	configLoader ports.ConfigLoader,
	openRegistry registry.Opener,
	newDevice device.Factory,
	loader ports.Loader,
	newTelemetry telemetry.Factory,
	collector *metrics.Collector,
	newWatcher watcher.Factory,
	log ports.Logger,
) *App {
	return &App{
		configLoader: configLoader,
		openRegistry: openRegistry,
		newDevice:    newDevice,
		loader:       loader,
		newTelemetry: newTelemetry,
		metrics:      collector,
		newWatcher:   newWatcher,
		logger:       log,
		configPath:   domain.DefaultConfigPath(),
		out:          os.Stdout,
	}
}

// WithOutput sets where tables and reports are written.
func (a *App) WithOutput(w io.Writer) *App {
	a.out = w
	return a
}

// GlobalOptions are the flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	Verbose    bool
	JSON       bool
}

// Configure applies global options before a command runs.
func (a *App) Configure(opts GlobalOptions) {
	if opts.ConfigPath != "" {
		a.configPath = opts.ConfigPath
	}
	a.logger.SetVerbose(opts.Verbose)
	a.logger.SetJSON(opts.JSON)
}

// workspace is the settings and registry a command operates on.
type workspace struct {
	settings domain.Settings
	registry *registry.Registry
}

func (a *App) open() (*workspace, error) {
	return a.load(true)
}

// load reads the settings and the registry, scanning the models directory when configured
// and scan is set.
func (a *App) load(scan bool) (*workspace, error) {
	settings, err := a.configLoader.Load(a.configPath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	reg, err := a.openRegistry(settings.RegistryPath, settings.Root)
	if err != nil {
		return nil, err
	}

	if scan && settings.Scan {
		if _, err := reg.Scan(); err != nil {
			return nil, err
		}
	}
	return &workspace{settings: settings, registry: reg}, nil
}

// session is a cache manager built from the workspace settings.
type session struct {
	*workspace
	manager   *cache.Manager
	device    *device.Placement
	telemetry *telemetry.Telemetry
}

func (a *App) start() (*session, error) {
	ws, err := a.open()
	if err != nil {
		return nil, err
	}

	dev, err := a.newDevice(ws.settings.Device)
	if err != nil {
		return nil, err
	}

	var sink ports.CacheMetrics
	if a.metrics != nil {
		sink = a.metrics
	}

	tel := a.newTelemetry(ws.settings.Telemetry)
	store := cache.NewStore(cache.Options{
		Budget:            ws.settings.Budget,
		SequentialOffload: ws.settings.SequentialOffload,
	}, dev, a.logger, sink)

	return &session{
		workspace: ws,
		manager:   cache.NewManager(store, ws.registry, a.loader, a.logger, tel.Tracer),
		device:    dev,
		telemetry: tel,
	}, nil
}

func (s *session) close(ctx context.Context) {
	s.manager.Close()
	_ = s.telemetry.Shutdown(context.WithoutCancel(ctx))
}

// preloadKeys parses the configured preload list.
func (s *session) preloadKeys() ([]domain.CanonicalKey, error) {
	return parseKeys(s.settings.Preload)
}

func parseKeys(raw []string) ([]domain.CanonicalKey, error) {
	keys := make([]domain.CanonicalKey, 0, len(raw))
	for _, s := range raw {
		k, err := domain.ParseKey(s)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}
