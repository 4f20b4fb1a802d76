package registry

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/hoard/internal/adapters/logger"
	"go.trai.ch/hoard/internal/core/ports"
)

// NodeID is the graft node for the registry opener.
const NodeID graft.ID = "adapter.registry"

// Opener opens the registry at a settings-dependent location.
type Opener func(path, root string) (*Registry, error)

func init() {
	graft.Register(graft.Node[Opener]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (Opener, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return func(path, root string) (*Registry, error) {
				return Open(path, root, log)
			}, nil
		},
	})
}
