package ports

import (
	"context"

	"go.trai.ch/hoard/internal/core/domain"
)

// Loader materializes an artifact from storage.
// Failures wrap domain.ErrUnsupportedFormat, domain.ErrCorruptArtifact or domain.ErrStorageUnavailable.
//
//go:generate mockgen -source=loader.go -destination=mocks/mock_loader.go -package=mocks
type Loader interface {
	Load(ctx context.Context, req domain.LoadRequest) (domain.Artifact, error)
}
