package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
)

// markdown renders assistant messages and the report. The glamour renderer
// is rebuilt only when the width or the theme's markdown style changes.
type markdown struct {
	r     *glamour.TermRenderer
	width int
	style string
}

func uintPtr(u uint) *uint    { return &u }
func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

// compactStyle drops glamour's document margins so output lines up with the
// panel borders.
func compactStyle(base ansi.StyleConfig) ansi.StyleConfig {
	s := base
	s.Document.Margin = uintPtr(0)
	s.Document.Indent = uintPtr(0)
	s.Paragraph.Margin = uintPtr(0)
	s.Paragraph.Indent = uintPtr(0)
	s.CodeBlock.Margin = uintPtr(0)

	s.H1.Prefix = ""
	s.H1.Suffix = ""
	s.H1.Bold = boolPtr(true)
	s.H2.Prefix = ""
	s.H3.Prefix = ""

	s.List.LevelIndent = 2
	s.Item.BlockPrefix = "• "
	s.BlockQuote.IndentToken = strPtr("┃ ")
	return s
}

func baseStyle(name string) ansi.StyleConfig {
	switch name {
	case "light":
		return styles.LightStyleConfig
	case "notty":
		return styles.NoTTYStyleConfig
	default:
		return styles.DarkStyleConfig
	}
}

// render returns text as terminal markdown wrapped at width. On any
// renderer error the plain text is returned.
func (m *markdown) render(text string, width int, style string) string {
	if width < 20 {
		width = 20
	}
	if m.r == nil || m.width != width || m.style != style {
		r, err := glamour.NewTermRenderer(
			glamour.WithStyles(compactStyle(baseStyle(style))),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return text
		}
		m.r, m.width, m.style = r, width, style
	}
	out, err := m.r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
