package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// ThemeType names a colour scheme.
type ThemeType string

const (
	ThemeDark  ThemeType = "dark"  // Charcoal and gold
	ThemeMacOS ThemeType = "macos" // Apple-inspired
)

// ThemeColorScheme defines the palette of a theme.
type ThemeColorScheme struct {
	Name       string
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
	Muted      lipgloss.Color
	Text       lipgloss.Color
	Background lipgloss.Color
	Border     lipgloss.Color
	Accent     lipgloss.Color
}

func predefinedThemes() map[ThemeType]ThemeColorScheme {
	return map[ThemeType]ThemeColorScheme{
		ThemeDark: {
			Name:       "Charcoal",
			Primary:    ColorPrimary,
			Secondary:  ColorSecondary,
			Success:    lipgloss.Color("#34D399"),
			Warning:    lipgloss.Color("#FBBF24"),
			Error:      lipgloss.Color("#F87171"),
			Muted:      ColorMuted,
			Text:       ColorText,
			Background: ColorBg,
			Border:     ColorBorder,
			Accent:     ColorAccent,
		},
		ThemeMacOS: {
			Name:       "Apple (MacOS)",
			Primary:    lipgloss.Color("#FFD60A"), // SF Yellow
			Secondary:  lipgloss.Color("#0A84FF"), // SF Blue
			Success:    lipgloss.Color("#30D158"), // SF Green
			Warning:    lipgloss.Color("#FF9F0A"), // SF Orange
			Error:      lipgloss.Color("#FF453A"), // SF Red
			Muted:      lipgloss.Color("#8E8E93"), // SF Gray
			Text:       lipgloss.Color("#FFFFFF"),
			Background: lipgloss.Color("#1C1C1E"),
			Border:     lipgloss.Color("#3A3A3C"),
			Accent:     lipgloss.Color("#BF5AF2"), // SF Purple
		},
	}
}

// ApplyTheme switches the palette. Unknown themes are ignored.
func (s *Styles) ApplyTheme(theme ThemeType) {
	scheme, ok := predefinedThemes()[theme]
	if !ok {
		return
	}
	s.rebuild(scheme)
}
