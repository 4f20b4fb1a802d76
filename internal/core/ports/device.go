package ports

import (
	"context"

	"go.trai.ch/hoard/internal/core/domain"
)

// Device moves artifacts between the Staged and Active tiers.
//
//go:generate mockgen -source=device.go -destination=mocks/mock_device.go -package=mocks
type Device interface {
	// Promote moves an artifact into the Active tier.
	Promote(ctx context.Context, key domain.CanonicalKey, artifact domain.Artifact) error
	// Demote moves an artifact back to the Staged tier.
	Demote(ctx context.Context, key domain.CanonicalKey, artifact domain.Artifact) error
	// Free releases any tier resources held for an evicted artifact.
	Free(ctx context.Context, key domain.CanonicalKey, artifact domain.Artifact)
}
