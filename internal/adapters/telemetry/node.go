package telemetry

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/hoard/internal/adapters/logger"
	"go.trai.ch/hoard/internal/core/ports"
)

// NodeID is the graft node for the telemetry factory.
const NodeID graft.ID = "adapter.telemetry"

// Factory builds telemetry for the configured on/off switch.
type Factory func(enabled bool) *Telemetry

func init() {
	graft.Register(graft.Node[Factory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (Factory, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return func(enabled bool) *Telemetry {
				return New(enabled, log)
			}, nil
		},
	})
}
