package render

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Palette is the color scheme of the chat view
type Palette struct {
	Name string

	Border lipgloss.Color

	User      lipgloss.Color
	Assistant lipgloss.Color
	Accent    lipgloss.Color
	Error     lipgloss.Color

	Text     lipgloss.Color
	TextDim  lipgloss.Color
	TextMute lipgloss.Color
}

// DefaultPalette is used when no palette is configured
const DefaultPalette = "tokyonight"

var palettes = map[string]Palette{
	"tokyonight": {
		Name:      "tokyonight",
		Border:    lipgloss.Color("#414868"),
		User:      lipgloss.Color("#9ece6a"),
		Assistant: lipgloss.Color("#7aa2f7"),
		Accent:    lipgloss.Color("#bb9af7"),
		Error:     lipgloss.Color("#f7768e"),
		Text:      lipgloss.Color("#c0caf5"),
		TextDim:   lipgloss.Color("#565f89"),
		TextMute:  lipgloss.Color("#3b4261"),
	},
	"catppuccin": {
		Name:      "catppuccin",
		Border:    lipgloss.Color("#45475a"),
		User:      lipgloss.Color("#a6e3a1"),
		Assistant: lipgloss.Color("#89b4fa"),
		Accent:    lipgloss.Color("#cba6f7"),
		Error:     lipgloss.Color("#f38ba8"),
		Text:      lipgloss.Color("#cdd6f4"),
		TextDim:   lipgloss.Color("#6c7086"),
		TextMute:  lipgloss.Color("#45475a"),
	},
	"light": {
		Name:      "light",
		Border:    lipgloss.Color("#a8aecb"),
		User:      lipgloss.Color("#33635c"),
		Assistant: lipgloss.Color("#2e7de9"),
		Accent:    lipgloss.Color("#9854f1"),
		Error:     lipgloss.Color("#f52a65"),
		Text:      lipgloss.Color("#3760bf"),
		TextDim:   lipgloss.Color("#6172b0"),
		TextMute:  lipgloss.Color("#a8aecb"),
	},
}

// PaletteByName returns the named palette.
func PaletteByName(name string) (Palette, bool) {
	p, ok := palettes[name]
	return p, ok
}

// PaletteFor picks the palette for a configured name, falling back to the
// light palette for the glamour "light" style and to the default otherwise.
func PaletteFor(name, markdownStyle string) Palette {
	if p, ok := palettes[name]; ok {
		return p
	}
	if markdownStyle == "light" {
		return palettes["light"]
	}
	return palettes[DefaultPalette]
}

// PaletteNames returns the palette names, sorted.
func PaletteNames() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
