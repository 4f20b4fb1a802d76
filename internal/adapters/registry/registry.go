// Package registry implements the models.yaml artifact registry.
package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/hoard/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// stanza is a registered artifact. Implicit stanzas come from Scan and are never committed.
type stanza struct {
	cfg      domain.ArtifactConfig
	implicit bool
}

// Registry implements ports.Registry on top of a YAML file.
// Changes stay in memory until Commit.
type Registry struct {
	path   string
	root   string
	logger ports.Logger

	mu     sync.RWMutex
	models map[domain.CanonicalKey]*stanza

	subsMu  sync.Mutex
	subs    map[int]func(domain.CanonicalKey)
	nextSub int
}

// Listing is one row of List.
type Listing struct {
	Key    domain.CanonicalKey
	Config domain.ArtifactConfig
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Category    string
	Subcategory string
}

// Open reads the registry at path. A missing file yields an empty registry.
// Relative artifact paths are resolved against root.
func Open(path, root string, logger ports.Logger) (*Registry, error) {
	r := &Registry{
		path:   path,
		root:   root,
		logger: logger,
		models: make(map[domain.CanonicalKey]*stanza),
		subs:   make(map[int]func(domain.CanonicalKey)),
	}

	// #nosec G304 -- path comes from the settings file
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug(fmt.Sprintf("registry %s not found, starting empty", path))
		return r, nil
	}
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrRegistryReadFailed, err), "path", path)
	}

	var dtos map[string]stanzaDTO
	if err := yaml.Unmarshal(data, &dtos); err != nil {
		return nil, zerr.With(errors.Join(domain.ErrRegistryParseFailed, err), "path", path)
	}
	for raw, dto := range dtos {
		key, cfg, err := fromDTO(raw, dto)
		if err != nil {
			return nil, zerr.With(errors.Join(domain.ErrRegistryParseFailed, err), "path", path)
		}
		r.models[key] = &stanza{cfg: cfg}
	}
	return r, nil
}

// Path returns the registry file location.
func (r *Registry) Path() string {
	return r.path
}

// Root returns the directory relative artifact paths are resolved against.
func (r *Registry) Root() string {
	return r.root
}

// Lookup returns the configuration for key with paths made absolute.
// A registered artifact whose files are gone is marked domain.ErrorNotFound and reported
// unavailable; a scanned one is forgotten instead.
func (r *Registry) Lookup(_ context.Context, key domain.CanonicalKey) (domain.ArtifactConfig, error) {
	base := key.Base()

	r.mu.RLock()
	s, ok := r.models[base]
	var cfg domain.ArtifactConfig
	if ok {
		cfg = r.absolute(s.cfg)
	}
	r.mu.RUnlock()
	if !ok {
		return domain.ArtifactConfig{}, notFound(base)
	}

	_, statErr := os.Stat(cfg.Path)
	exists := statErr == nil

	switch {
	case !exists:
		return domain.ArtifactConfig{}, r.markMissing(base, cfg.Path)
	case cfg.Error == domain.ErrorNotFound:
		r.mu.Lock()
		if s, ok := r.models[base]; ok && s.cfg.Error == domain.ErrorNotFound {
			s.cfg.Error = domain.ErrorNone
		}
		r.mu.Unlock()
		cfg.Error = domain.ErrorNone
		r.logger.Info(fmt.Sprintf("%s is back at %s", base, cfg.Path))
	}
	return cfg, nil
}

func (r *Registry) markMissing(key domain.CanonicalKey, path string) error {
	r.mu.Lock()
	s, ok := r.models[key]
	if ok && s.implicit {
		delete(r.models, key)
	} else if ok {
		s.cfg.Error = domain.ErrorNotFound
	}
	r.mu.Unlock()

	if !ok || s.implicit {
		r.logger.Debug(fmt.Sprintf("forgetting scanned %s, %s is gone", key, path))
		return notFound(key)
	}
	r.logger.Warn(fmt.Sprintf("files for %s not found at %s", key, path))
	return zerr.With(zerr.With(zerr.Wrap(domain.ErrArtifactUnavailable, key.String()), "state", string(domain.ErrorNotFound)), "path", path)
}

// Info returns the stored configuration for key without touching the disk.
func (r *Registry) Info(key domain.CanonicalKey) (domain.ArtifactConfig, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.models[key.Base()]
	if !ok {
		return domain.ArtifactConfig{}, false, notFound(key.Base())
	}
	return r.absolute(s.cfg), s.implicit, nil
}

// MarkError records a soft error state against key.
func (r *Registry) MarkError(_ context.Context, key domain.CanonicalKey, state domain.ErrorState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.models[key.Base()]
	if !ok {
		return notFound(key.Base())
	}
	s.cfg.Error = state
	return nil
}

// ClearError resets the error state of key.
func (r *Registry) ClearError(ctx context.Context, key domain.CanonicalKey) error {
	return r.MarkError(ctx, key, domain.ErrorNone)
}

// Add registers cfg under key. An existing key fails with domain.ErrArtifactExists unless
// clobber is set, in which case the old configuration is replaced and subscribers are told.
func (r *Registry) Add(key domain.CanonicalKey, cfg domain.ArtifactConfig, clobber bool) error {
	if key.SubArtifact() != "" {
		return zerr.With(zerr.Wrap(domain.ErrInvalidIdentifier, "sub-artifacts cannot be registered"), "key", key.String())
	}
	if _, err := domain.ParseFormat(string(cfg.Format)); err != nil {
		return err
	}
	if cfg.Path == "" {
		return zerr.With(zerr.Wrap(domain.ErrInvalidIdentifier, "empty path"), "key", key.String())
	}

	r.mu.Lock()
	old, existed := r.models[key]
	if existed && !clobber && !old.implicit {
		r.mu.Unlock()
		return zerr.With(zerr.Wrap(domain.ErrArtifactExists, key.String()), "path", old.cfg.Path)
	}
	r.models[key] = &stanza{cfg: cfg.Clone()}
	if cfg.Default {
		r.setDefaultLocked(key)
	}
	r.mu.Unlock()

	if existed {
		r.notify(key)
	}
	return nil
}

// Remove forgets key and tells subscribers.
func (r *Registry) Remove(key domain.CanonicalKey) error {
	r.mu.Lock()
	_, ok := r.models[key.Base()]
	delete(r.models, key.Base())
	r.mu.Unlock()

	if !ok {
		return notFound(key.Base())
	}
	r.notify(key.Base())
	return nil
}

// Default returns the default artifact of a category and subcategory. Without an explicit
// default the first artifact by name is used.
func (r *Registry) Default(category, subcategory string) (domain.CanonicalKey, error) {
	rows := r.List(Filter{Category: category, Subcategory: subcategory})
	for _, row := range rows {
		if row.Config.Default {
			return row.Key, nil
		}
	}
	if len(rows) > 0 {
		return rows[0].Key, nil
	}
	err := zerr.With(zerr.Wrap(domain.ErrNoDefault, category+domain.KeySeparator+subcategory), "category", category)
	return domain.CanonicalKey{}, err
}

// SetDefault marks key as the default of its category and subcategory.
func (r *Registry) SetDefault(key domain.CanonicalKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[key.Base()]; !ok {
		return notFound(key.Base())
	}
	r.setDefaultLocked(key.Base())
	return nil
}

func (r *Registry) setDefaultLocked(key domain.CanonicalKey) {
	for k, s := range r.models {
		if k.Category() == key.Category() && k.Subcategory() == key.Subcategory() {
			s.cfg.Default = k == key
		}
	}
}

// List returns the artifacts matching filter, ordered case-insensitively by name.
func (r *Registry) List(filter Filter) []Listing {
	r.mu.RLock()
	rows := make([]Listing, 0, len(r.models))
	for k, s := range r.models {
		if filter.Category != "" && k.Category() != filter.Category {
			continue
		}
		if filter.Subcategory != "" && k.Subcategory() != filter.Subcategory {
			continue
		}
		rows = append(rows, Listing{Key: k, Config: r.absolute(s.cfg)})
	}
	r.mu.RUnlock()

	slices.SortFunc(rows, func(a, b Listing) int {
		if c := strings.Compare(strings.ToLower(a.Key.Name()), strings.ToLower(b.Key.Name())); c != 0 {
			return c
		}
		return a.Key.Compare(b.Key)
	})
	return rows
}

// Commit writes the registered artifacts to disk. The file is replaced atomically.
func (r *Registry) Commit() error {
	r.mu.RLock()
	dtos := make(map[string]stanzaDTO, len(r.models))
	for k, s := range r.models {
		if !s.implicit {
			dtos[k.String()] = toDTO(s.cfg)
		}
	}
	r.mu.RUnlock()

	var buf bytes.Buffer
	buf.WriteString(preamble)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(dtos); err != nil {
		return zerr.With(errors.Join(domain.ErrRegistryWriteFailed, err), "path", r.path)
	}
	if err := enc.Close(); err != nil {
		return zerr.With(errors.Join(domain.ErrRegistryWriteFailed, err), "path", r.path)
	}

	if err := writeAtomic(r.path, buf.Bytes()); err != nil {
		return zerr.With(errors.Join(domain.ErrRegistryWriteFailed, err), "path", r.path)
	}
	r.logger.Debug(fmt.Sprintf("committed %d artifacts to %s", len(dtos), r.path))
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".models-*.yaml")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(domain.PrivateFilePerm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Subscribe registers fn for change notifications. The returned function cancels it.
func (r *Registry) Subscribe(fn func(domain.CanonicalKey)) func() {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	return func() {
		r.subsMu.Lock()
		defer r.subsMu.Unlock()
		delete(r.subs, id)
	}
}

// notify calls subscribers outside every registry lock.
func (r *Registry) notify(key domain.CanonicalKey) {
	r.subsMu.Lock()
	fns := make([]func(domain.CanonicalKey), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.subsMu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}

// absolute returns a copy of cfg with every path resolved against the root.
func (r *Registry) absolute(cfg domain.ArtifactConfig) domain.ArtifactConfig {
	cfg = cfg.Clone()
	cfg.Path = r.resolve(cfg.Path)
	for sub, p := range cfg.SubArtifacts {
		cfg.SubArtifacts[sub] = r.resolve(p)
	}
	return cfg
}

func (r *Registry) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.root, p)
}

func notFound(key domain.CanonicalKey) error {
	return zerr.With(zerr.Wrap(domain.ErrArtifactNotFound, key.String()), "key", key.String())
}

func fromDTO(raw string, dto stanzaDTO) (domain.CanonicalKey, domain.ArtifactConfig, error) {
	key, err := domain.ParseKey(raw)
	if err != nil {
		return domain.CanonicalKey{}, domain.ArtifactConfig{}, err
	}
	if key.SubArtifact() != "" {
		return domain.CanonicalKey{}, domain.ArtifactConfig{}, zerr.With(
			zerr.Wrap(domain.ErrInvalidIdentifier, "registry keys cannot select a sub-artifact"), "key", raw)
	}
	format, err := domain.ParseFormat(dto.Format)
	if err != nil {
		return domain.CanonicalKey{}, domain.ArtifactConfig{}, zerr.With(err, "key", raw)
	}
	state := domain.ErrorState(dto.Error)
	switch state {
	case domain.ErrorNone, domain.ErrorNotFound, domain.ErrorConversionRequired:
	default:
		return domain.CanonicalKey{}, domain.ArtifactConfig{}, zerr.With(zerr.New("unknown error state"), "error", dto.Error)
	}
	return key, domain.ArtifactConfig{
		Path:         dto.Path,
		Format:       format,
		Description:  dto.Description,
		Default:      dto.Default,
		SubArtifacts: dto.SubArtifacts,
		Error:        state,
	}, nil
}

func toDTO(cfg domain.ArtifactConfig) stanzaDTO {
	return stanzaDTO{
		Path:         cfg.Path,
		Format:       string(cfg.Format),
		Description:  cfg.Description,
		Default:      cfg.Default,
		SubArtifacts: cfg.SubArtifacts,
		Error:        string(cfg.Error),
	}
}
