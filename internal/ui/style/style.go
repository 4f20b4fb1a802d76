// Package style holds the colors and glyphs shared by terminal output.
package style

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Amber  = lipgloss.Color("#F59E0B")
	Slate  = lipgloss.Color("#667085")
	Teal   = lipgloss.Color("#0E9F8E")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Violet = lipgloss.Color("#8B5CF6")
)

// Glyphs.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Dot     = "●"
	Circle  = "○"
	Star    = "★"
)

// Styles used by the CLI tables.
var (
	Header  = lipgloss.NewStyle().Bold(true).Foreground(Violet)
	Muted   = lipgloss.NewStyle().Foreground(Slate)
	Active  = lipgloss.NewStyle().Foreground(Teal)
	Staged  = lipgloss.NewStyle().Foreground(Amber)
	Failure = lipgloss.NewStyle().Foreground(Red)
)

// TierGlyph returns the marker for a cache tier name: a filled dot for active, a hollow one otherwise.
func TierGlyph(tier string) string {
	if tier == "active" {
		return Dot
	}
	return Circle
}
