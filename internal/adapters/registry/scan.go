package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/zerr"
)

// formatByExt maps single-file artifact extensions to formats.
var formatByExt = map[string]domain.Format{
	".safetensors": domain.FormatSafetensors,
	".ckpt":        domain.FormatCheckpoint,
	".pt":          domain.FormatCheckpoint,
	".pth":         domain.FormatCheckpoint,
	".bin":         domain.FormatCheckpoint,
}

// Scan registers artifacts found under root/<category>/<subcategory>/ that the registry does
// not know yet. Files are keyed by their stem and directories become folder artifacts.
// Registered artifacts whose files are gone are marked, scanned ones are forgotten.
// It returns the number of artifacts added.
func (r *Registry) Scan() (int, error) {
	r.pruneMissing()

	categories, err := readDirs(r.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, zerr.With(errors.Join(domain.ErrScanFailed, err), "root", r.root)
	}

	var found []scanned
	for _, category := range categories {
		subcategories, err := readDirs(filepath.Join(r.root, category))
		if err != nil {
			return 0, zerr.With(errors.Join(domain.ErrScanFailed, err), "root", r.root)
		}
		for _, subcategory := range subcategories {
			dir := filepath.Join(r.root, category, subcategory)
			items, err := scanDir(dir, category, subcategory)
			if err != nil {
				return 0, zerr.With(errors.Join(domain.ErrScanFailed, err), "dir", dir)
			}
			found = append(found, items...)
		}
	}

	added := 0
	r.mu.Lock()
	for _, item := range found {
		if _, ok := r.models[item.key]; ok {
			continue
		}
		r.models[item.key] = &stanza{cfg: item.cfg, implicit: true}
		added++
	}
	r.mu.Unlock()

	r.logger.Debug(fmt.Sprintf("scan of %s found %d artifacts, %d new", r.root, len(found), added))
	return added, nil
}

type scanned struct {
	key domain.CanonicalKey
	cfg domain.ArtifactConfig
}

func scanDir(dir, category, subcategory string) ([]scanned, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []scanned
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		var format domain.Format
		stem := name
		if entry.IsDir() {
			format = domain.FormatFolder
		} else {
			ext := strings.ToLower(filepath.Ext(name))
			f, ok := formatByExt[ext]
			if !ok {
				continue
			}
			format = f
			stem = strings.TrimSuffix(name, filepath.Ext(name))
		}

		key, err := domain.Resolve(stem, category, subcategory, "")
		if err != nil {
			continue
		}
		out = append(out, scanned{
			key: key,
			cfg: domain.ArtifactConfig{
				Path:   filepath.Join(category, subcategory, name),
				Format: format,
			},
		})
	}
	return out, nil
}

// readDirs lists the non-hidden subdirectories of dir.
func readDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			dirs = append(dirs, entry.Name())
		}
	}
	return dirs, nil
}

// pruneMissing marks registered artifacts whose files are gone, clears the mark on those that
// came back and forgets scanned ones that vanished.
func (r *Registry) pruneMissing() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, s := range r.models {
		if _, err := os.Stat(r.resolve(s.cfg.Path)); err == nil {
			if s.cfg.Error == domain.ErrorNotFound {
				s.cfg.Error = domain.ErrorNone
			}
			continue
		}
		if s.implicit {
			delete(r.models, key)
			continue
		}
		s.cfg.Error = domain.ErrorNotFound
	}
}

// Relocated tells subscribers about every artifact whose files live at or under path,
// or whose directory contains path. It returns the affected keys.
func (r *Registry) Relocated(path string) []domain.CanonicalKey {
	path = filepath.Clean(path)

	r.mu.RLock()
	var keys []domain.CanonicalKey
	for key, s := range r.models {
		cfg := r.absolute(s.cfg)
		paths := []string{cfg.Path}
		for _, p := range cfg.SubArtifacts {
			paths = append(paths, p)
		}
		for _, p := range paths {
			if related(p, path) {
				keys = append(keys, key)
				break
			}
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(keys, domain.CanonicalKey.Compare)
	for _, key := range keys {
		r.notify(key)
	}
	return keys
}

// related reports whether a and b are the same path or one contains the other.
func related(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if a == b {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(a, b+sep) || strings.HasPrefix(b, a+sep)
}
