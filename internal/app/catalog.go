package app

import (
	"context"
	"fmt"

	"go.trai.ch/hoard/internal/adapters/registry"
	"go.trai.ch/hoard/internal/core/domain"
)

// ListOptions narrows List.
type ListOptions struct {
	Category    string
	Subcategory string
}

// List prints the registered artifacts.
func (a *App) List(_ context.Context, opts ListOptions) error {
	ws, err := a.open()
	if err != nil {
		return err
	}
	rows := ws.registry.List(registry.Filter{Category: opts.Category, Subcategory: opts.Subcategory})
	renderListing(a.out, rows)
	return nil
}

// Show prints the configuration of one artifact.
func (a *App) Show(ctx context.Context, raw string) error {
	key, err := domain.ParseKey(raw)
	if err != nil {
		return err
	}
	ws, err := a.open()
	if err != nil {
		return err
	}

	// Lookup refreshes the not-found state from disk. The mark is a view of the current
	// filesystem; Show never commits it, so the registry file keeps what the user wrote.
	if _, err := ws.registry.Lookup(ctx, key); err != nil && !isUnavailable(err) {
		return err
	}
	cfg, implicit, err := ws.registry.Info(key)
	if err != nil {
		return err
	}
	renderArtifact(a.out, key, cfg, implicit)
	return nil
}

// Default prints the default artifact of a category and subcategory, or sets it when name is given.
func (a *App) Default(_ context.Context, category, subcategory, name string) error {
	ws, err := a.open()
	if err != nil {
		return err
	}

	if name == "" {
		key, err := ws.registry.Default(category, subcategory)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(a.out, key)
		return nil
	}

	key, err := domain.Resolve(name, category, subcategory, "")
	if err != nil {
		return err
	}
	if err := ws.registry.SetDefault(key); err != nil {
		return err
	}
	if err := ws.registry.Commit(); err != nil {
		return err
	}
	a.logger.Info(fmt.Sprintf("%s is now the default", key))
	return nil
}

// AddOptions describes an artifact to register.
type AddOptions struct {
	Key         string
	Path        string
	Format      string
	Description string
	Default     bool
	Clobber     bool
}

// Add registers an artifact and commits the registry.
func (a *App) Add(_ context.Context, opts AddOptions) error {
	key, err := domain.ParseKey(opts.Key)
	if err != nil {
		return err
	}
	format, err := domain.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	ws, err := a.open()
	if err != nil {
		return err
	}

	cfg := domain.ArtifactConfig{
		Path:        opts.Path,
		Format:      format,
		Description: opts.Description,
		Default:     opts.Default,
	}
	if err := ws.registry.Add(key, cfg, opts.Clobber); err != nil {
		return err
	}
	if err := ws.registry.Commit(); err != nil {
		return err
	}
	a.logger.Info(fmt.Sprintf("registered %s", key))
	return nil
}

// Remove unregisters an artifact and commits the registry.
func (a *App) Remove(_ context.Context, raw string) error {
	key, err := domain.ParseKey(raw)
	if err != nil {
		return err
	}
	ws, err := a.open()
	if err != nil {
		return err
	}
	if err := ws.registry.Remove(key); err != nil {
		return err
	}
	if err := ws.registry.Commit(); err != nil {
		return err
	}
	a.logger.Info(fmt.Sprintf("removed %s", key))
	return nil
}

// Scan registers the artifacts found under the models directory.
// Scanned artifacts are implicit and never written to the registry file.
func (a *App) Scan(_ context.Context) error {
	ws, err := a.load(false)
	if err != nil {
		return err
	}
	added, err := ws.registry.Scan()
	if err != nil {
		return err
	}
	a.logger.Info(fmt.Sprintf("found %d new artifact(s) under %s", added, ws.settings.Root))
	renderListing(a.out, ws.registry.List(registry.Filter{}))
	return nil
}
