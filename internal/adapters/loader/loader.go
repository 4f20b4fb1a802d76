// Package loader materializes artifacts from disk, one variant per format.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/hoard/internal/core/ports"
	"go.trai.ch/zerr"
)

// FormatLoader loads one format.
type FormatLoader interface {
	Load(ctx context.Context, path string) (domain.Artifact, error)
}

// Set implements ports.Loader by dispatching on the request's format.
type Set struct {
	loaders map[domain.Format]FormatLoader
	logger  ports.Logger
}

// NewSet returns a Set with the checkpoint, safetensors and folder loaders.
func NewSet(logger ports.Logger) *Set {
	s := &Set{loaders: make(map[domain.Format]FormatLoader), logger: logger}
	s.Register(domain.FormatCheckpoint, Checkpoint{})
	s.Register(domain.FormatSafetensors, Safetensors{})
	s.Register(domain.FormatFolder, Folder{})
	return s
}

// Register installs or replaces the loader for format.
func (s *Set) Register(format domain.Format, l FormatLoader) {
	s.loaders[format] = l
}

// Load materializes req. A folder-format sub-artifact whose override points at a single file
// is loaded by the loader matching the file's extension.
func (s *Set) Load(ctx context.Context, req domain.LoadRequest) (domain.Artifact, error) {
	info, err := os.Stat(req.Path)
	if err != nil {
		return domain.Artifact{}, storageError(req.Path, err)
	}

	format := req.Format
	if format == domain.FormatFolder && !info.IsDir() {
		format = formatOf(req.Path)
	}

	l, ok := s.loaders[format]
	if !ok {
		return domain.Artifact{}, zerr.With(zerr.Wrap(domain.ErrUnsupportedFormat, req.Key.String()), "format", string(format))
	}

	artifact, err := l.Load(ctx, req.Path)
	if err != nil {
		return domain.Artifact{}, err
	}
	s.logger.Debug(fmt.Sprintf("read %s as %s (%s, digest %016x)",
		req.Path, format, humanize.IBytes(uint64(artifact.Size)), artifact.Digest))
	return artifact, nil
}

// formatOf guesses a single-file format from the extension.
func formatOf(path string) domain.Format {
	if strings.EqualFold(filepath.Ext(path), ".safetensors") {
		return domain.FormatSafetensors
	}
	return domain.FormatCheckpoint
}

// Blob is the handle of a checkpoint artifact: the raw file contents.
type Blob struct {
	Path string
	Data []byte
}

// Checkpoint loads opaque single-file weights.
type Checkpoint struct{}

// Load reads the whole file.
func (Checkpoint) Load(ctx context.Context, path string) (domain.Artifact, error) {
	data, err := readFile(ctx, path)
	if err != nil {
		return domain.Artifact{}, err
	}
	return domain.Artifact{
		Handle: &Blob{Path: path, Data: data},
		Size:   int64(len(data)),
		Digest: xxhash.Sum64(data),
	}, nil
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// #nosec G304 -- paths come from the registry
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, storageError(path, err)
	}
	return data, nil
}

func storageError(path string, err error) error {
	return zerr.With(errors.Join(domain.ErrStorageUnavailable, err), "path", path)
}

func corrupt(path, reason string) error {
	return zerr.With(zerr.Wrap(domain.ErrCorruptArtifact, reason), "path", path)
}
