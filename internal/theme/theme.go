package theme

import (
	"errors"
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// ErrNotFound is returned for unknown theme names.
var ErrNotFound = errors.New("theme not found")

// DefaultName is used when the configured theme does not exist.
const DefaultName = "dark"

// Theme represents a color scheme for the TUI
type Theme struct {
	Name        string
	Description string
	Type        string // "dark" or "light"

	// Core colors
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color

	// Text colors
	Text      lipgloss.Color
	TextMuted lipgloss.Color
	TextDim   lipgloss.Color

	// UI colors
	Background      lipgloss.Color
	Surface         lipgloss.Color
	Border          lipgloss.Color
	BorderHighlight lipgloss.Color

	// Finding severities
	Critical lipgloss.Color
	High     lipgloss.Color
	Medium   lipgloss.Color
	Low      lipgloss.Color

	// Chat roles
	User      lipgloss.Color
	Assistant lipgloss.Color
	System    lipgloss.Color

	// Glamour style for markdown ("dark", "light", "notty")
	MarkdownTheme string
}

// Severity returns the color for a finding severity label.
func (t *Theme) Severity(s string) lipgloss.Color {
	switch s {
	case "critical":
		return t.Critical
	case "high":
		return t.High
	case "medium":
		return t.Medium
	default:
		return t.Low
	}
}

// Score returns the color for a 0-100 compliance score.
func (t *Theme) Score(score float64) lipgloss.Color {
	switch {
	case score >= 80:
		return t.Success
	case score >= 50:
		return t.Warning
	default:
		return t.Error
	}
}

// Registry holds all available themes
type Registry struct {
	themes  map[string]*Theme
	current string
}

// NewRegistry creates a new theme registry with builtin themes
func NewRegistry() *Registry {
	r := &Registry{
		themes:  make(map[string]*Theme),
		current: DefaultName,
	}
	for _, t := range builtins() {
		r.Register(t)
	}
	return r
}

// Get returns a theme by name
func (r *Registry) Get(name string) (*Theme, error) {
	t, ok := r.themes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return t, nil
}

// Current returns the currently active theme
func (r *Registry) Current() *Theme {
	return r.themes[r.current]
}

// CurrentName returns the name of the active theme.
func (r *Registry) CurrentName() string { return r.current }

// SetCurrent sets the current theme
func (r *Registry) SetCurrent(name string) error {
	if _, ok := r.themes[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	r.current = name
	return nil
}

// List returns all available theme names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.themes))
	for name := range r.themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register registers a custom theme
func (r *Registry) Register(t *Theme) {
	r.themes[t.Name] = t
}

// Default returns the default theme.
func Default() *Theme {
	return Dark()
}

func builtins() []*Theme {
	return []*Theme{Dark(), Light(), HighContrast(), Solarized(), Mono()}
}

// Dark is the default palette (Catppuccin Mocha tones).
func Dark() *Theme {
	return &Theme{
		Name:        "dark",
		Description: "Soft pastel on dark",
		Type:        "dark",

		Primary:   lipgloss.Color("#CBA6F7"),
		Secondary: lipgloss.Color("#89B4FA"),
		Success:   lipgloss.Color("#A6E3A1"),
		Warning:   lipgloss.Color("#F9E2AF"),
		Error:     lipgloss.Color("#F38BA8"),

		Text:      lipgloss.Color("#CDD6F4"),
		TextMuted: lipgloss.Color("#A6ADC8"),
		TextDim:   lipgloss.Color("#6C7086"),

		Background:      lipgloss.Color("#1E1E2E"),
		Surface:         lipgloss.Color("#313244"),
		Border:          lipgloss.Color("#6C7086"),
		BorderHighlight: lipgloss.Color("#CBA6F7"),

		Critical: lipgloss.Color("#F38BA8"),
		High:     lipgloss.Color("#FAB387"),
		Medium:   lipgloss.Color("#F9E2AF"),
		Low:      lipgloss.Color("#94E2D5"),

		User:      lipgloss.Color("#89B4FA"),
		Assistant: lipgloss.Color("#CDD6F4"),
		System:    lipgloss.Color("#6C7086"),

		MarkdownTheme: "dark",
	}
}

// Light is a pale palette (Catppuccin Latte tones).
func Light() *Theme {
	return &Theme{
		Name:        "light",
		Description: "Pastel on light",
		Type:        "light",

		Primary:   lipgloss.Color("#8839EF"),
		Secondary: lipgloss.Color("#1E66F5"),
		Success:   lipgloss.Color("#40A02B"),
		Warning:   lipgloss.Color("#DF8E1D"),
		Error:     lipgloss.Color("#D20F39"),

		Text:      lipgloss.Color("#4C4F69"),
		TextMuted: lipgloss.Color("#6C6F85"),
		TextDim:   lipgloss.Color("#9CA0B0"),

		Background:      lipgloss.Color("#EFF1F5"),
		Surface:         lipgloss.Color("#CCD0DA"),
		Border:          lipgloss.Color("#9CA0B0"),
		BorderHighlight: lipgloss.Color("#8839EF"),

		Critical: lipgloss.Color("#D20F39"),
		High:     lipgloss.Color("#FE640B"),
		Medium:   lipgloss.Color("#DF8E1D"),
		Low:      lipgloss.Color("#179299"),

		User:      lipgloss.Color("#1E66F5"),
		Assistant: lipgloss.Color("#4C4F69"),
		System:    lipgloss.Color("#9CA0B0"),

		MarkdownTheme: "light",
	}
}

// HighContrast uses the 16-color ANSI palette only.
func HighContrast() *Theme {
	return &Theme{
		Name:        "high-contrast",
		Description: "ANSI colors, maximum legibility",
		Type:        "dark",

		Primary:   lipgloss.Color("13"),
		Secondary: lipgloss.Color("14"),
		Success:   lipgloss.Color("10"),
		Warning:   lipgloss.Color("11"),
		Error:     lipgloss.Color("9"),

		Text:      lipgloss.Color("15"),
		TextMuted: lipgloss.Color("7"),
		TextDim:   lipgloss.Color("8"),

		Background:      lipgloss.Color("0"),
		Surface:         lipgloss.Color("0"),
		Border:          lipgloss.Color("7"),
		BorderHighlight: lipgloss.Color("15"),

		Critical: lipgloss.Color("9"),
		High:     lipgloss.Color("11"),
		Medium:   lipgloss.Color("3"),
		Low:      lipgloss.Color("14"),

		User:      lipgloss.Color("14"),
		Assistant: lipgloss.Color("15"),
		System:    lipgloss.Color("8"),

		MarkdownTheme: "dark",
	}
}

// Solarized is Solarized Dark.
func Solarized() *Theme {
	return &Theme{
		Name:        "solarized",
		Description: "Solarized dark",
		Type:        "dark",

		Primary:   lipgloss.Color("#268BD2"),
		Secondary: lipgloss.Color("#2AA198"),
		Success:   lipgloss.Color("#859900"),
		Warning:   lipgloss.Color("#B58900"),
		Error:     lipgloss.Color("#DC322F"),

		Text:      lipgloss.Color("#839496"),
		TextMuted: lipgloss.Color("#657B83"),
		TextDim:   lipgloss.Color("#586E75"),

		Background:      lipgloss.Color("#002B36"),
		Surface:         lipgloss.Color("#073642"),
		Border:          lipgloss.Color("#586E75"),
		BorderHighlight: lipgloss.Color("#268BD2"),

		Critical: lipgloss.Color("#DC322F"),
		High:     lipgloss.Color("#CB4B16"),
		Medium:   lipgloss.Color("#B58900"),
		Low:      lipgloss.Color("#2AA198"),

		User:      lipgloss.Color("#268BD2"),
		Assistant: lipgloss.Color("#93A1A1"),
		System:    lipgloss.Color("#586E75"),

		MarkdownTheme: "dark",
	}
}

// Mono renders without hue, for dumb terminals and screenshots.
func Mono() *Theme {
	gray := func(s string) lipgloss.Color { return lipgloss.Color(s) }
	return &Theme{
		Name:        "mono",
		Description: "Grayscale",
		Type:        "dark",

		Primary:   gray("#FFFFFF"),
		Secondary: gray("#D0D0D0"),
		Success:   gray("#D0D0D0"),
		Warning:   gray("#B0B0B0"),
		Error:     gray("#FFFFFF"),

		Text:      gray("#D0D0D0"),
		TextMuted: gray("#A0A0A0"),
		TextDim:   gray("#707070"),

		Background:      gray("#000000"),
		Surface:         gray("#202020"),
		Border:          gray("#707070"),
		BorderHighlight: gray("#FFFFFF"),

		Critical: gray("#FFFFFF"),
		High:     gray("#D0D0D0"),
		Medium:   gray("#A0A0A0"),
		Low:      gray("#707070"),

		User:      gray("#FFFFFF"),
		Assistant: gray("#D0D0D0"),
		System:    gray("#707070"),

		MarkdownTheme: "notty",
	}
}
