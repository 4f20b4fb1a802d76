package app

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"go.trai.ch/hoard/internal/adapters/registry"
	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/hoard/internal/ui/style"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return style.Header.PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})
}

func renderListing(w io.Writer, rows []registry.Listing) {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, style.Muted.Render("no artifacts registered"))
		return
	}

	t := newTable("", "KEY", "FORMAT", "STATE", "PATH")
	for _, row := range rows {
		marker := ""
		if row.Config.Default {
			marker = style.Star
		}
		t.Row(marker, row.Key.String(), string(row.Config.Format), state(row.Config.Error), row.Config.Path)
	}
	_, _ = fmt.Fprintln(w, t.Render())
}

func state(e domain.ErrorState) string {
	if e == domain.ErrorNone {
		return style.Check
	}
	return style.Failure.Render(style.Cross + " " + string(e))
}

func renderArtifact(w io.Writer, key domain.CanonicalKey, cfg domain.ArtifactConfig, implicit bool) {
	origin := "registry"
	if implicit {
		origin = "scan"
	}

	_, _ = fmt.Fprintln(w, style.Header.Render(key.String()))
	field := func(name, value string) {
		_, _ = fmt.Fprintf(w, "  %s %s\n", style.Muted.Render(fmt.Sprintf("%-12s", name)), value)
	}
	field("path", cfg.Path)
	field("format", string(cfg.Format))
	if cfg.Description != "" {
		field("description", cfg.Description)
	}
	field("default", fmt.Sprint(cfg.Default))
	field("state", state(cfg.Error))
	field("origin", origin)
	for _, sub := range slices.Sorted(maps.Keys(cfg.SubArtifacts)) {
		field(":"+sub, cfg.SubArtifacts[sub])
	}
}

func renderSnapshot(w io.Writer, entries []domain.EntryInfo, stats domain.CacheStats) {
	t := newTable("", "KEY", "TIER", "SIZE", "REFS", "DIGEST")
	for _, e := range entries {
		tier := e.Tier.String()
		glyph := style.Staged.Render(style.TierGlyph(tier))
		if e.Tier == domain.TierActive {
			glyph = style.Active.Render(style.TierGlyph(tier))
		}
		t.Row(glyph, e.Key.String(), tier, humanize.IBytes(uint64(e.Size)), fmt.Sprint(e.Refs), fmt.Sprintf("%016x", e.Digest))
	}
	if len(entries) > 0 {
		_, _ = fmt.Fprintln(w, t.Render())
	}

	_, _ = fmt.Fprintf(w, "%s %s / %s resident, %s active, %d entries\n",
		style.Muted.Render("cache"),
		humanize.IBytes(uint64(stats.ResidentBytes)),
		humanize.IBytes(uint64(stats.Budget)),
		humanize.IBytes(uint64(stats.ActiveBytes)),
		stats.Entries,
	)
	_, _ = fmt.Fprintf(w, "%s %d hits, %d misses, %d evictions, %d load failures\n",
		style.Muted.Render("stats"),
		stats.Hits, stats.Misses, stats.Evictions, stats.LoadFailures,
	)
}
