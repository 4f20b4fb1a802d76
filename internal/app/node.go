package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/hoard/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/hoard/internal/adapters/device"    //nolint:depguard // Wired in app layer
	"go.trai.ch/hoard/internal/adapters/loader"    //nolint:depguard // Wired in app layer
	"go.trai.ch/hoard/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/hoard/internal/adapters/metrics"   //nolint:depguard // Wired in app layer
	"go.trai.ch/hoard/internal/adapters/registry"  //nolint:depguard // Wired in app layer
	"go.trai.ch/hoard/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/hoard/internal/adapters/watcher"   //nolint:depguard // Wired in app layer
	"go.trai.ch/hoard/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components contains the initialized application components the CLI needs.
type Components struct {
	App    *App
	Logger ports.Logger
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			registry.NodeID,
			device.NodeID,
			loader.NodeID,
			telemetry.NodeID,
			metrics.NodeID,
			watcher.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			configLoader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}
			openRegistry, err := graft.Dep[registry.Opener](ctx)
			if err != nil {
				return nil, err
			}
			newDevice, err := graft.Dep[device.Factory](ctx)
			if err != nil {
				return nil, err
			}
			artifactLoader, err := graft.Dep[ports.Loader](ctx)
			if err != nil {
				return nil, err
			}
			newTelemetry, err := graft.Dep[telemetry.Factory](ctx)
			if err != nil {
				return nil, err
			}
			collector, err := graft.Dep[*metrics.Collector](ctx)
			if err != nil {
				return nil, err
			}
			newWatcher, err := graft.Dep[watcher.Factory](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(configLoader, openRegistry, newDevice, artifactLoader, newTelemetry, collector, newWatcher, log), nil
		},
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{AppNodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Components, error) {
			a, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: a, Logger: log}, nil
		},
	})
}
