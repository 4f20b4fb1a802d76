package ports

import (
	"context"

	"go.trai.ch/hoard/internal/core/domain"
)

// Registry maps canonical keys to artifact configuration.
//
//go:generate mockgen -source=registry.go -destination=mocks/mock_registry.go -package=mocks
type Registry interface {
	// Lookup resolves the configuration for a key, including sub-artifact overrides.
	// Unknown keys return domain.ErrArtifactNotFound.
	Lookup(ctx context.Context, key domain.CanonicalKey) (domain.ArtifactConfig, error)
	// MarkError records a soft error state against a key.
	MarkError(ctx context.Context, key domain.CanonicalKey, state domain.ErrorState) error
	// Subscribe registers fn to be called whenever a key's configuration changes.
	// The returned function cancels the subscription.
	Subscribe(fn func(domain.CanonicalKey)) (cancel func())
}
