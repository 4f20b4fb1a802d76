package metrics

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/prometheus/client_golang/prometheus"
)

// NodeID is the graft node for the metrics collector.
const NodeID graft.ID = "adapter.metrics"

func init() {
	graft.Register(graft.Node[*Collector]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Collector, error) {
			return NewCollector(prometheus.NewRegistry()), nil
		},
	})
}
