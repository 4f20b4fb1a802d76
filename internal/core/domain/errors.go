package domain

import "go.trai.ch/zerr"

var (
	// ErrInvalidIdentifier is returned when a key component is empty or contains a reserved separator.
	ErrInvalidIdentifier = zerr.New("invalid artifact identifier")

	// ErrArtifactNotFound is returned when the registry has no stanza for a key.
	ErrArtifactNotFound = zerr.New("artifact not found in registry")

	// ErrArtifactExists is returned when adding a key that is already registered without clobber.
	ErrArtifactExists = zerr.New("artifact already registered")

	// ErrArtifactUnavailable is returned when the registry reports the artifact in an error state.
	ErrArtifactUnavailable = zerr.New("artifact unavailable")

	// ErrLoadFailed is returned when a loader fails to materialize an artifact.
	ErrLoadFailed = zerr.New("artifact load failed")

	// ErrEntryBusy is returned when invalidating an entry that is leased or mid tier move.
	ErrEntryBusy = zerr.New("cache entry is busy")

	// ErrUseAfterRelease is returned when a released lease is used.
	ErrUseAfterRelease = zerr.New("lease used after release")

	// ErrDoubleRelease is returned when a lease is released twice.
	ErrDoubleRelease = zerr.New("lease released twice")

	// ErrTierMoveFailed is returned when promoting or demoting an entry between tiers fails.
	ErrTierMoveFailed = zerr.New("tier move failed")

	// ErrUnsupportedFormat is returned when no loader handles the artifact format.
	ErrUnsupportedFormat = zerr.New("unsupported artifact format")

	// ErrCorruptArtifact is returned when artifact bytes fail validation.
	ErrCorruptArtifact = zerr.New("corrupt artifact")

	// ErrStorageUnavailable is returned when the artifact location cannot be read.
	ErrStorageUnavailable = zerr.New("artifact storage unavailable")

	// ErrInvalidBudget is returned when the configured cache budget cannot be parsed or is not positive.
	ErrInvalidBudget = zerr.New("invalid cache budget")

	// ErrInvalidDevice is returned when the configured device is unknown.
	ErrInvalidDevice = zerr.New("invalid device, expected 'host' or 'accelerator'")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrRegistryReadFailed is returned when the registry file cannot be read.
	ErrRegistryReadFailed = zerr.New("failed to read registry")

	// ErrRegistryParseFailed is returned when the registry file cannot be parsed.
	ErrRegistryParseFailed = zerr.New("failed to parse registry")

	// ErrRegistryWriteFailed is returned when the registry cannot be committed to disk.
	ErrRegistryWriteFailed = zerr.New("failed to write registry")

	// ErrScanFailed is returned when the models directory cannot be scanned.
	ErrScanFailed = zerr.New("failed to scan models directory")

	// ErrNoDefault is returned when no default artifact is set for a category.
	ErrNoDefault = zerr.New("no default artifact")
)
