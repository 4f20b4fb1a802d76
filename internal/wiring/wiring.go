// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/hoard/internal/adapters/config"
	_ "go.trai.ch/hoard/internal/adapters/device"
	_ "go.trai.ch/hoard/internal/adapters/loader"
	_ "go.trai.ch/hoard/internal/adapters/logger"
	_ "go.trai.ch/hoard/internal/adapters/metrics"
	_ "go.trai.ch/hoard/internal/adapters/registry"
	_ "go.trai.ch/hoard/internal/adapters/telemetry"
	_ "go.trai.ch/hoard/internal/adapters/watcher"
	// Register app nodes.
	_ "go.trai.ch/hoard/internal/app"
)
