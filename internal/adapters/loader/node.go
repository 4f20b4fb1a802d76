package loader

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/hoard/internal/adapters/logger"
	"go.trai.ch/hoard/internal/core/ports"
)

// NodeID is the graft node for the loader set.
const NodeID graft.ID = "adapter.loader"

func init() {
	graft.Register(graft.Node[ports.Loader]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.Loader, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewSet(log), nil
		},
	})
}
