package ports

import "go.trai.ch/hoard/internal/core/domain"

// CacheMetrics receives cache events for export.
//
//go:generate mockgen -source=metrics.go -destination=mocks/mock_metrics.go -package=mocks
type CacheMetrics interface {
	// Hit records a lookup served from the cache.
	Hit(key domain.CanonicalKey)
	// Miss records a lookup that required a load.
	Miss(key domain.CanonicalKey)
	// LoadFailed records a failed load.
	LoadFailed(key domain.CanonicalKey)
	// Evicted records an entry removed to satisfy the budget.
	Evicted(key domain.CanonicalKey, size int64)
	// Observe publishes current occupancy.
	Observe(stats domain.CacheStats)
}
