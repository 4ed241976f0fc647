package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colors for the dashboard: charcoal surfaces with a liquid gold accent.
var (
	ColorPrimary   = lipgloss.Color("#FCD34D") // Gold (Amber 300)
	ColorSecondary = lipgloss.Color("#22D3EE") // Bright Cyan (Cyan 400)
	ColorSuccess   = lipgloss.Color("#059669") // Emerald 600
	ColorWarning   = lipgloss.Color("#D97706") // Amber 600
	ColorError     = lipgloss.Color("#DC2626") // Red 600
	ColorMuted     = lipgloss.Color("#9CA3AF") // Gray 400
	ColorText      = lipgloss.Color("#F1F5F9") // Slate 100
	ColorBg        = lipgloss.Color("#111827") // Gray 900
	ColorBorder    = lipgloss.Color("#374151") // Gray 700
	ColorDim       = lipgloss.Color("#6B7280") // Gray 500
	ColorAccent    = lipgloss.Color("#F472B6") // Pink 400
	ColorInfo      = lipgloss.Color("#2DD4BF") // Teal 400
	ColorLive      = lipgloss.Color("#EF4444") // Red 500
)

// MessageIcons provides consistent icons for status lines.
var MessageIcons = map[string]string{
	"success": "✓",
	"error":   "✗",
	"warning": "⚠",
	"info":    "ℹ",
	"pending": "○",
	"done":    "●",
	"live":    "◉",
}

// ToolIcons maps hub tools to their menu icon.
var ToolIcons = map[string]string{
	"tts":     "🔊",
	"story":   "📖",
	"units":   "📐",
	"images":  "🖼",
	"docs":    "📄",
	"logo":    "✨",
	"default": "⚙",
}

// GetToolIcon returns the icon for a hub tool.
func GetToolIcon(tool string) string {
	if icon, ok := ToolIcons[strings.ToLower(tool)]; ok {
		return icon
	}
	return ToolIcons["default"]
}

// Styles contains all dashboard styles.
type Styles struct {
	Brand      lipgloss.Style
	Tab        lipgloss.Style
	TabActive  lipgloss.Style
	Panel      lipgloss.Style
	PanelTitle lipgloss.Style
	Label      lipgloss.Style
	Text       lipgloss.Style
	Dim        lipgloss.Style
	Selected   lipgloss.Style
	Error      lipgloss.Style
	Success    lipgloss.Style
	Warning    lipgloss.Style
	Accent     lipgloss.Style
	Spinner    lipgloss.Style
	Help       lipgloss.Style
	StatusBar  lipgloss.Style
	Live       lipgloss.Style

	UserBubble  lipgloss.Style
	AgentBubble lipgloss.Style
	Badge       lipgloss.Style
	BadgeDone   lipgloss.Style
}

// DefaultStyles returns the default dashboard styles.
func DefaultStyles() *Styles {
	s := &Styles{}
	s.rebuild(predefinedThemes()[ThemeDark])
	return s
}

func (s *Styles) rebuild(c ThemeColorScheme) {
	s.Brand = lipgloss.NewStyle().Bold(true).Foreground(c.Primary)
	s.Tab = lipgloss.NewStyle().Foreground(c.Muted).Padding(0, 2)
	s.TabActive = lipgloss.NewStyle().Bold(true).Foreground(c.Background).Background(c.Primary).Padding(0, 2)
	s.Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(c.Border).
		Padding(0, 1)
	s.PanelTitle = lipgloss.NewStyle().Bold(true).Foreground(c.Primary).MarginBottom(1)
	s.Label = lipgloss.NewStyle().Foreground(c.Muted)
	s.Text = lipgloss.NewStyle().Foreground(c.Text)
	s.Dim = lipgloss.NewStyle().Foreground(ColorDim)
	s.Selected = lipgloss.NewStyle().Bold(true).Foreground(c.Secondary)
	s.Error = lipgloss.NewStyle().Bold(true).Foreground(c.Error)
	s.Success = lipgloss.NewStyle().Foreground(c.Success)
	s.Warning = lipgloss.NewStyle().Bold(true).Foreground(c.Warning)
	s.Accent = lipgloss.NewStyle().Foreground(c.Accent)
	s.Spinner = lipgloss.NewStyle().Foreground(c.Primary)
	s.Help = lipgloss.NewStyle().Foreground(ColorDim).Italic(true)
	s.StatusBar = lipgloss.NewStyle().Foreground(c.Muted).Padding(0, 1)
	s.Live = lipgloss.NewStyle().Bold(true).Foreground(ColorLive)

	s.UserBubble = lipgloss.NewStyle().
		Foreground(c.Background).
		Background(c.Primary).
		Padding(0, 1)
	s.AgentBubble = lipgloss.NewStyle().
		Foreground(c.Text).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(c.Border).
		Padding(0, 1)
	s.Badge = lipgloss.NewStyle().Foreground(c.Warning).Bold(true)
	s.BadgeDone = lipgloss.NewStyle().Foreground(c.Success)
}

// FormatError renders an error line.
func (s *Styles) FormatError(msg string) string {
	return s.Error.Render(MessageIcons["error"] + " " + msg)
}

// FormatSuccess renders a success line.
func (s *Styles) FormatSuccess(msg string) string {
	return s.Success.Render(MessageIcons["success"] + " " + msg)
}

// FormatHelp renders a key hint line such as "enter run · esc back".
func (s *Styles) FormatHelp(pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, pairs[i]+" "+pairs[i+1])
	}
	return s.Help.Render(strings.Join(parts, " · "))
}
