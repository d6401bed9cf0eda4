package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/complior/complior-sub000/internal/theme"
)

// withScrollbar renders vp with a one-column track on the right. Content
// that fits needs no track and is returned padded to the same width.
func withScrollbar(vp viewport.Model, t *theme.Theme) string {
	content := vp.View()
	total, visible := vp.TotalLineCount(), vp.Height
	if content == "" || visible < 3 || total <= visible {
		return content
	}

	lines := strings.Split(content, "\n")
	if len(lines) > visible {
		lines = lines[:visible]
	}
	thumb := int(vp.ScrollPercent() * float64(visible-1))
	track := lipgloss.NewStyle().Foreground(t.Border)
	knob := lipgloss.NewStyle().Foreground(t.Primary)

	var b strings.Builder
	for i, line := range lines {
		// Pad by display width; lines carry ANSI sequences.
		b.WriteString(line)
		if pad := vp.Width - lipgloss.Width(line); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		b.WriteString(" ")
		switch {
		case i == thumb:
			b.WriteString(knob.Render("█"))
		case i == 0:
			b.WriteString(track.Render("▲"))
		case i == len(lines)-1:
			b.WriteString(track.Render("▼"))
		default:
			b.WriteString(track.Render("│"))
		}
		if i < len(lines)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
