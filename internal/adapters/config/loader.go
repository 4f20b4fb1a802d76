// Package config loads hoard settings from hoard.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/hoard/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load reads the settings file at path. A missing file yields the defaults, with relative
// paths resolved against the directory path would have been in.
func (l *Loader) Load(path string) (domain.Settings, error) {
	var file File
	err := readAndUnmarshalYAML(path, &file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		l.Logger.Debug(fmt.Sprintf("%s not found, using defaults", path))
	case err != nil:
		return domain.Settings{}, err
	}
	return resolve(path, file)
}

// resolve applies defaults to file and validates it.
func resolve(configPath string, file File) (domain.Settings, error) {
	configDir := filepath.Dir(configPath)

	root := resolvePath(configDir, file.Root, domain.DefaultModelsPath())
	registry := resolvePath(configDir, file.Registry, "")
	if registry == "" {
		registry = filepath.Join(root, domain.RegistryFileName)
	}

	budget, err := parseBudget(file.Budget)
	if err != nil {
		return domain.Settings{}, err
	}

	device := domain.Device(file.Device)
	switch device {
	case "":
		device = domain.DeviceHost
	case domain.DeviceHost, domain.DeviceAccelerator:
	default:
		return domain.Settings{}, zerr.With(zerr.Wrap(domain.ErrInvalidDevice, configPath), "device", file.Device)
	}

	for _, key := range file.Preload {
		if _, err := domain.ParseKey(key); err != nil {
			return domain.Settings{}, zerr.With(zerr.Wrap(err, "invalid preload key"), "config", configPath)
		}
	}

	if file.PreloadConcurrency < 0 {
		return domain.Settings{}, zerr.With(
			zerr.Wrap(domain.ErrConfigParseFailed, "preload_concurrency must not be negative"),
			"preload_concurrency", file.PreloadConcurrency,
		)
	}

	listen := file.Listen
	if listen == "" {
		listen = domain.DefaultListen
	}

	return domain.Settings{
		Root:               root,
		RegistryPath:       registry,
		Budget:             budget,
		SequentialOffload:  file.SequentialOffload,
		Device:             device,
		Preload:            file.Preload,
		PreloadConcurrency: file.PreloadConcurrency,
		Scan:               file.Scan,
		Listen:             listen,
		Telemetry:          file.Telemetry,
	}, nil
}

// parseBudget parses a human byte size such as "6GB" or "512MiB". Empty means domain.DefaultBudget.
func parseBudget(s string) (int64, error) {
	if s == "" {
		s = domain.DefaultBudget
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, zerr.With(errors.Join(domain.ErrInvalidBudget, err), "budget", s)
	}
	if n == 0 || n > math.MaxInt64 {
		return 0, zerr.With(zerr.Wrap(domain.ErrInvalidBudget, "budget must be positive"), "budget", s)
	}
	return int64(n), nil
}

// resolvePath makes configured relative to dir. An empty configured path yields fallback,
// itself resolved against dir unless empty.
func resolvePath(dir, configured, fallback string) string {
	if configured == "" {
		configured = fallback
	}
	if configured == "" {
		return ""
	}
	if filepath.IsAbs(configured) {
		return filepath.Clean(configured)
	}
	return filepath.Clean(filepath.Join(dir, configured))
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into target.
func readAndUnmarshalYAML[T any](path string, target *T) error {
	// #nosec G304 -- path comes from the command line or the default location
	data, err := os.ReadFile(path)
	if err != nil {
		return zerr.With(errors.Join(domain.ErrConfigReadFailed, err), "path", path)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return zerr.With(errors.Join(domain.ErrConfigParseFailed, err), "path", path)
	}
	return nil
}
