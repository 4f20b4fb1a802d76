package domain

import (
	"path/filepath"

	"go.trai.ch/zerr"
)

// Format tags the on-disk representation of an artifact and selects its loader.
type Format string

const (
	// FormatCheckpoint is a single opaque weights file (.ckpt, .pt, .bin).
	FormatCheckpoint Format = "checkpoint"
	// FormatSafetensors is a single file with a length-prefixed JSON header.
	FormatSafetensors Format = "safetensors"
	// FormatFolder is a directory of component files, one subdirectory per sub-artifact.
	FormatFolder Format = "folder"
)

// Formats lists every format with a loader variant.
func Formats() []Format {
	return []Format{FormatCheckpoint, FormatSafetensors, FormatFolder}
}

// ParseFormat validates a format tag.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", zerr.With(zerr.Wrap(ErrUnsupportedFormat, "parse format"), "format", s)
}

// ErrorState is the soft error the registry records against an artifact.
type ErrorState string

const (
	// ErrorNone means the artifact is usable.
	ErrorNone ErrorState = ""
	// ErrorNotFound means the artifact's location no longer exists.
	ErrorNotFound ErrorState = "not_found"
	// ErrorConversionRequired means the artifact must be converted before it can be loaded.
	ErrorConversionRequired ErrorState = "conversion_required"
)

// ArtifactConfig is the registry's metadata for one artifact.
type ArtifactConfig struct {
	Path         string
	Format       Format
	Description  string
	Default      bool
	SubArtifacts map[string]string
	Error        ErrorState
}

// Clone returns a deep copy so callers never share the registry's maps.
func (c ArtifactConfig) Clone() ArtifactConfig {
	if c.SubArtifacts != nil {
		subs := make(map[string]string, len(c.SubArtifacts))
		for k, v := range c.SubArtifacts {
			subs[k] = v
		}
		c.SubArtifacts = subs
	}
	return c
}

// Location resolves where the artifact selected by key lives.
// A sub-artifact uses its override path when one is configured, otherwise a subdirectory of Path.
func (c ArtifactConfig) Location(key CanonicalKey) (path string, override bool) {
	sub := key.SubArtifact()
	if sub == "" {
		return c.Path, false
	}
	if p, ok := c.SubArtifacts[sub]; ok && p != "" {
		return p, true
	}
	return filepath.Join(c.Path, sub), false
}

// LoadRequest is everything a loader needs to materialize one artifact.
type LoadRequest struct {
	Key    CanonicalKey
	Path   string
	Format Format
	// Override is set when Path came from a per-sub-artifact override rather than the artifact root.
	Override bool
}

// Artifact is a materialized artifact and its resident size.
type Artifact struct {
	// Handle is the opaque in-memory payload.
	Handle any
	// Size is the resident size in bytes.
	Size int64
	// Digest is the xxhash of the loaded bytes.
	Digest uint64
}
