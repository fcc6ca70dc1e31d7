// Package styles provides shared lipgloss v2 styles for CLI and TUI components.
package styles

import (
	"image/color"
	"sort"
	"strings"

	lipgloss "charm.land/lipgloss/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// Palette defines a minimal semantic theme palette.
type Palette struct {
	Primary    color.Color
	Secondary  color.Color
	Foreground color.Color
	Muted      color.Color
	Background color.Color
	Surface    color.Color
	Success    color.Color
	Warning    color.Color
	Error      color.Color
}

// DefaultTheme is the name of the default theme.
const DefaultTheme = "tokyo-night"

// themes holds the built-in named palettes.
var themes = map[string]Palette{
	"tokyo-night": {
		Primary:    lipgloss.Color("#7aa2f7"),
		Secondary:  lipgloss.Color("#7dcfff"),
		Foreground: lipgloss.Color("#c0caf5"),
		Muted:      lipgloss.Color("#565f89"),
		Background: lipgloss.Color("#1a1b26"),
		Surface:    lipgloss.Color("#3b4261"),
		Success:    lipgloss.Color("#9ece6a"),
		Warning:    lipgloss.Color("#e0af68"),
		Error:      lipgloss.Color("#f7768e"),
	},
	"gruvbox": {
		Primary:    lipgloss.Color("#83a598"),
		Secondary:  lipgloss.Color("#8ec07c"),
		Foreground: lipgloss.Color("#ebdbb2"),
		Muted:      lipgloss.Color("#665c54"),
		Background: lipgloss.Color("#282828"),
		Surface:    lipgloss.Color("#3c3836"),
		Success:    lipgloss.Color("#b8bb26"),
		Warning:    lipgloss.Color("#fabd2f"),
		Error:      lipgloss.Color("#fb4934"),
	},
	"catppuccin-mocha": {
		Primary:    lipgloss.Color("#89b4fa"),
		Secondary:  lipgloss.Color("#94e2d5"),
		Foreground: lipgloss.Color("#cdd6f4"),
		Muted:      lipgloss.Color("#6c7086"),
		Background: lipgloss.Color("#1e1e2e"),
		Surface:    lipgloss.Color("#313244"),
		Success:    lipgloss.Color("#a6e3a1"),
		Warning:    lipgloss.Color("#f9e2af"),
		Error:      lipgloss.Color("#f38ba8"),
	},
}

// ThemeNames returns sorted names of all built-in themes.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPalette returns the palette for the given theme name.
func GetPalette(name string) (Palette, bool) {
	p, ok := themes[name]
	return p, ok
}

// CurrentPalette holds the active theme palette.
var CurrentPalette Palette

// Style exports.
var (
	// CLI styles.
	CommandHeaderStyle lipgloss.Style
	DividerStyle       lipgloss.Style

	TextPrimaryStyle     lipgloss.Style
	TextPrimaryBoldStyle lipgloss.Style
	TextForegroundStyle  lipgloss.Style
	TextMutedStyle       lipgloss.Style
	TextErrorStyle       lipgloss.Style
	TextWarningStyle     lipgloss.Style
	TextSuccessStyle     lipgloss.Style

	// Result grid.
	GridHeaderStyle      lipgloss.Style
	GridRowSelectedStyle lipgloss.Style
	GridCursorStyle      lipgloss.Style
	GridFieldKeyStyle    lipgloss.Style
	GridFieldValueStyle  lipgloss.Style
	GridDetailRuleStyle  lipgloss.Style
	ScrollTrackStyle     lipgloss.Style
	ScrollThumbStyle     lipgloss.Style

	// Search bar and status line.
	SearchPromptStyle lipgloss.Style
	SearchBarStyle    lipgloss.Style
	StatusBarStyle    lipgloss.Style
	StatusErrorStyle  lipgloss.Style
	HelpStyle         lipgloss.Style
)

// ColorPool is used for deterministic color hashing of hosts and sources.
var ColorPool []color.Color

// SetTheme sets the active palette and rebuilds all global styles.
func SetTheme(p Palette) {
	CurrentPalette = p

	CommandHeaderStyle = lipgloss.NewStyle().
		Foreground(p.Primary).
		Bold(true)
	DividerStyle = lipgloss.NewStyle().
		Foreground(p.Muted)

	TextPrimaryStyle = lipgloss.NewStyle().Foreground(p.Primary)
	TextPrimaryBoldStyle = lipgloss.NewStyle().Foreground(p.Primary).Bold(true)
	TextForegroundStyle = lipgloss.NewStyle().Foreground(p.Foreground)
	TextMutedStyle = lipgloss.NewStyle().Foreground(p.Muted)
	TextErrorStyle = lipgloss.NewStyle().Foreground(p.Error)
	TextWarningStyle = lipgloss.NewStyle().Foreground(p.Warning)
	TextSuccessStyle = lipgloss.NewStyle().Foreground(p.Success)

	GridHeaderStyle = lipgloss.NewStyle().
		Foreground(p.Muted).
		Bold(true)
	GridRowSelectedStyle = lipgloss.NewStyle().
		Background(Mix(p.Surface, p.Primary, 0.15)).
		Foreground(p.Foreground)
	GridCursorStyle = lipgloss.NewStyle().
		Foreground(p.Primary)
	GridFieldKeyStyle = lipgloss.NewStyle().
		Foreground(p.Secondary)
	GridFieldValueStyle = lipgloss.NewStyle().
		Foreground(p.Foreground)
	GridDetailRuleStyle = lipgloss.NewStyle().
		Foreground(p.Surface)
	ScrollTrackStyle = lipgloss.NewStyle().
		Foreground(p.Surface)
	ScrollThumbStyle = lipgloss.NewStyle().
		Foreground(Mix(p.Muted, p.Primary, 0.5))

	SearchPromptStyle = lipgloss.NewStyle().
		Foreground(p.Primary).
		Bold(true)
	SearchBarStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Surface).
		Padding(0, 1)
	StatusBarStyle = lipgloss.NewStyle().
		Foreground(p.Muted)
	StatusErrorStyle = lipgloss.NewStyle().
		Foreground(p.Error).
		Bold(true)
	HelpStyle = lipgloss.NewStyle().
		Foreground(p.Muted)

	ColorPool = []color.Color{
		p.Primary,
		p.Secondary,
		p.Success,
		p.Warning,
		p.Error,
		Mix(p.Primary, p.Error, 0.5),
	}
}

// ColorForString returns a deterministic color for a given string.
// The same string always produces the same color.
func ColorForString(s string) color.Color {
	var hash uint32
	for _, c := range s {
		hash = hash*31 + uint32(c)
	}
	return ColorPool[hash%uint32(len(ColorPool))]
}

// LevelStyle returns the style for a log level value such as "ERROR".
func LevelStyle(level string) lipgloss.Style {
	switch strings.ToUpper(level) {
	case "ERROR", "FATAL", "PANIC":
		return TextErrorStyle
	case "WARN", "WARNING":
		return TextWarningStyle
	case "INFO":
		return TextSuccessStyle
	default:
		return TextMutedStyle
	}
}

// Mix blends a toward b by t in Lab space. Colors that cannot be converted
// return a unchanged.
func Mix(a, b color.Color, t float64) color.Color {
	ca, ok := colorful.MakeColor(a)
	if !ok {
		return a
	}
	cb, ok := colorful.MakeColor(b)
	if !ok {
		return a
	}
	return ca.BlendLab(cb, t).Clamped()
}

// nolint:gochecknoinits // bootstrap default theme before any style is accessed.
func init() {
	SetTheme(themes[DefaultTheme])
}
