package device

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/hoard/internal/adapters/logger"
	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/hoard/internal/core/ports"
)

// NodeID is the graft node for the device factory.
const NodeID graft.ID = "adapter.device"

// Factory builds the placement backend for a configured device.
type Factory func(mode domain.Device) (*Placement, error)

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
			return func(mode domain.Device) (*Placement, error) {
				return New(mode, log)
			}, nil
		},
	})
}
