package themes

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the visual style for the TUI.
type Theme struct {
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Normal      lipgloss.Style
	Muted       lipgloss.Style
	Selected    lipgloss.Style
	Inflow      lipgloss.Style
	Outflow     lipgloss.Style
	Checked     lipgloss.Style
	Unchecked   lipgloss.Style
	Warning     lipgloss.Style
	RoundedBox  lipgloss.Style
	Primary     lipgloss.Color
	Border      lipgloss.Color
	Foreground  lipgloss.Color
	MutedColor  lipgloss.Color
	SuccessText lipgloss.Color
	ErrorText   lipgloss.Color
}

func build(primary, foreground, subtle, muted, border, success, warning, failure lipgloss.Color) Theme {
	return Theme{
		Primary:     primary,
		Border:      border,
		Foreground:  foreground,
		MutedColor:  muted,
		SuccessText: success,
		ErrorText:   failure,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(foreground).
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(subtle).
			MarginBottom(1),
		Normal: lipgloss.NewStyle().
			Foreground(foreground),
		Muted: lipgloss.NewStyle().
			Foreground(muted).
			Italic(true),
		Selected: lipgloss.NewStyle().
			Background(primary).
			Foreground(foreground).
			Bold(true),
		Inflow: lipgloss.NewStyle().
			Foreground(success),
		Outflow: lipgloss.NewStyle().
			Foreground(failure),
		Checked: lipgloss.NewStyle().
			Foreground(success).
			Bold(true),
		Unchecked: lipgloss.NewStyle().
			Foreground(muted),
		Warning: lipgloss.NewStyle().
			Foreground(warning).
			Bold(true),
		RoundedBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(1, 2),
	}
}

// Default is the default theme.
var Default = build(
	lipgloss.Color("#7c3aed"), // primary
	lipgloss.Color("#fafafa"), // foreground
	lipgloss.Color("#a3a3a3"), // subtle
	lipgloss.Color("#737373"), // muted
	lipgloss.Color("#404040"), // border
	lipgloss.Color("#10b981"), // success
	lipgloss.Color("#f59e0b"), // warning
	lipgloss.Color("#ef4444"), // error
)

// CatppuccinMocha is the Catppuccin Mocha theme.
var CatppuccinMocha = build(
	lipgloss.Color("#cba6f7"),
	lipgloss.Color("#cdd6f4"),
	lipgloss.Color("#a6adc8"),
	lipgloss.Color("#6c7086"),
	lipgloss.Color("#45475a"),
	lipgloss.Color("#a6e3a1"),
	lipgloss.Color("#f9e2af"),
	lipgloss.Color("#f38ba8"),
)

var byName = map[string]Theme{
	"default":          Default,
	"catppuccin-mocha": CatppuccinMocha,
}

// ByName looks up a theme by its configuration name.
func ByName(name string) (Theme, bool) {
	t, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Names lists the configurable theme names in sorted order.
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
