package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/complior/complior-sub000/internal/app"
	"github.com/complior/complior-sub000/internal/config"
	"github.com/complior/complior-sub000/internal/overlay"
	"github.com/complior/complior-sub000/internal/theme"
)

// ─── Overlay ──────────────────────────────────────────────────────────────────

// renderOverlay draws the open overlay as a bordered box no wider than width
// and no taller than height.
func (m Model) renderOverlay(st *app.State, t *theme.Theme, width, height int) string {
	inner := max(width-4, 10)
	rows := max(height-4, 3)

	var title, body string
	switch o := st.Overlay.(type) {
	case *overlay.CommandPalette:
		title = "Commands"
		body = renderPalette(o, t, rows)
	case *overlay.FilePicker:
		title = "Open file"
		body = renderFilePicker(o, t, rows)
	case *overlay.Help:
		title = "Keyboard shortcuts"
		body = renderHelp(o, t, rows)
	case *overlay.GettingStarted:
		title = "Getting started"
		body = renderTour(o, t, inner)
	case *overlay.ProviderSetup:
		title = "AI provider"
		body = renderKeyFlow(o.Step(), o.Providers(), o.Cursor(), false, o.Provider(), o.MaskedKey(), o.Err(), o.Succeeded(), t, inner)
	case *overlay.ModelSelector:
		title = "Select model"
		body = renderModels(o, t, rows)
	case *overlay.ThemePicker:
		title = "Theme"
		body = renderThemes(o, t)
	case *overlay.Onboarding:
		title = fmt.Sprintf("Setup %d/%d", min(o.StepIndex()+1, len(o.Steps)), len(o.Steps))
		body = renderOnboarding(o, t, inner)
	case *overlay.ConfirmDialog:
		title = o.Title
		body = lipgloss.NewStyle().Width(inner).Render(o.Message) + "\n\n" +
			lipgloss.NewStyle().Foreground(t.TextMuted).Render("y/enter confirm · n/esc cancel")
	case *overlay.UndoHistory:
		title = "Undo history"
		body = renderUndo(o, t, rows, time.Now())
	case *overlay.DismissModal:
		title = "Dismiss finding"
		body = renderDismiss(o, t, inner)
	default:
		return ""
	}

	head := lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Render(title)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderHighlight).
		Padding(0, 1).
		Width(inner + 2).
		MaxHeight(height).
		Render(head + "\n\n" + strings.TrimRight(body, "\n"))
}

// placeOver centres dlg over screen, replacing whole background rows.
func placeOver(screen, dlg string, width int) string {
	if dlg == "" {
		return screen
	}
	bg := strings.Split(screen, "\n")
	fg := strings.Split(dlg, "\n")

	top := max((len(bg)-len(fg))/2, 1)
	left := max((width-lipgloss.Width(dlg))/2, 0)
	pad := strings.Repeat(" ", left)
	for i, line := range fg {
		if y := top + i; y < len(bg) {
			bg[y] = pad + line
		}
	}
	return strings.Join(bg, "\n")
}

// ─── Lists ────────────────────────────────────────────────────────────────────

// highlight styles the matched rune positions of s.
func highlight(s string, matched []int, t *theme.Theme) string {
	if len(matched) == 0 {
		return s
	}
	hit := make(map[int]bool, len(matched))
	for _, i := range matched {
		hit[i] = true
	}
	em := lipgloss.NewStyle().Foreground(t.Warning).Bold(true)
	var b strings.Builder
	for i, r := range []rune(s) {
		if hit[i] {
			b.WriteString(em.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func filterLine(filter string, t *theme.Theme) string {
	return lipgloss.NewStyle().Foreground(t.Primary).Render("> ") + filter +
		lipgloss.NewStyle().Reverse(true).Render(" ")
}

func renderPalette(p *overlay.CommandPalette, t *theme.Theme, rows int) string {
	dim := lipgloss.NewStyle().Foreground(t.TextMuted)
	var b strings.Builder
	b.WriteString(filterLine(p.Filter(), t) + "\n")
	matches := p.Matches()
	if len(matches) == 0 {
		b.WriteString(dim.Render("no matching command"))
		return b.String()
	}
	start := scrollStart(p.Cursor(), len(matches), rows-1)
	for i := start; i < len(matches) && i < start+rows-1; i++ {
		e := p.Entry(matches[i].Index)
		row := highlight(e.Title, matches[i].Matched, t)
		if e.Hint != "" {
			row += "  " + dim.Render(e.Hint)
		}
		b.WriteString(listRow(i == p.Cursor(), row, t) + "\n")
	}
	return b.String()
}

func renderFilePicker(p *overlay.FilePicker, t *theme.Theme, rows int) string {
	var b strings.Builder
	b.WriteString(filterLine(p.Filter(), t) + "\n")
	matches := p.Matches()
	if len(matches) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Render("no files"))
		return b.String()
	}
	start := scrollStart(p.Cursor(), len(matches), rows-1)
	for i := start; i < len(matches) && i < start+rows-1; i++ {
		b.WriteString(listRow(i == p.Cursor(), highlight(p.File(matches[i].Index), matches[i].Matched, t), t) + "\n")
	}
	return b.String()
}

func renderHelp(h *overlay.Help, t *theme.Theme, rows int) string {
	section := lipgloss.NewStyle().Bold(true).Foreground(t.Secondary)
	key := lipgloss.NewStyle().Foreground(t.Primary).Width(14)

	var lines []string
	for _, s := range h.Sections {
		lines = append(lines, section.Render(s.Title))
		for _, r := range s.Rows {
			lines = append(lines, "  "+key.Render(r[0])+r[1])
		}
		lines = append(lines, "")
	}
	off := min(h.Offset(), max(len(lines)-1, 0))
	lines = lines[off:]
	if len(lines) > rows {
		lines = lines[:rows]
	}
	return strings.Join(lines, "\n")
}

func renderTour(g *overlay.GettingStarted, t *theme.Theme, width int) string {
	if len(g.Pages) == 0 {
		return ""
	}
	p := g.Pages[g.Page()]
	dots := make([]string, len(g.Pages))
	for i := range g.Pages {
		if i == g.Page() {
			dots[i] = lipgloss.NewStyle().Foreground(t.Primary).Render("●")
		} else {
			dots[i] = lipgloss.NewStyle().Foreground(t.TextDim).Render("○")
		}
	}
	return lipgloss.NewStyle().Bold(true).Render(p.Title) + "\n\n" +
		lipgloss.NewStyle().Width(width).Render(p.Body) + "\n\n" +
		strings.Join(dots, " ") + "  " +
		lipgloss.NewStyle().Foreground(t.TextMuted).Render("←/→ page · esc close")
}

func renderModels(s *overlay.ModelSelector, t *theme.Theme, rows int) string {
	dim := lipgloss.NewStyle().Foreground(t.TextMuted)
	var b strings.Builder
	start := scrollStart(s.Cursor(), len(s.Models), rows)
	for i := start; i < len(s.Models) && i < start+rows; i++ {
		mi := s.Models[i]
		row := mi.Name + dim.Render(fmt.Sprintf("  %s · %dk", mi.Provider, mi.Context/1000))
		if mi.ID == s.Current {
			row += lipgloss.NewStyle().Foreground(t.Success).Render(" ✓")
		}
		b.WriteString(listRow(i == s.Cursor(), row, t) + "\n")
	}
	return b.String()
}

func renderThemes(p *overlay.ThemePicker, t *theme.Theme) string {
	var b strings.Builder
	for i, name := range p.Names {
		row := name
		if name == p.Original {
			row += lipgloss.NewStyle().Foreground(t.TextMuted).Render(" (current)")
		}
		b.WriteString(listRow(i == p.Cursor(), row, t) + "\n")
	}
	// Swatch of the previewed palette.
	var sw []string
	for _, c := range []lipgloss.Color{t.Primary, t.Secondary, t.Success, t.Warning, t.Error, t.Critical} {
		sw = append(sw, lipgloss.NewStyle().Foreground(c).Render("██"))
	}
	b.WriteString("\n" + strings.Join(sw, " "))
	return b.String()
}

func renderUndo(u *overlay.UndoHistory, t *theme.Theme, rows int, now time.Time) string {
	dim := lipgloss.NewStyle().Foreground(t.TextMuted)
	switch {
	case u.Loading:
		return dim.Render("loading…")
	case u.Err != "":
		return lipgloss.NewStyle().Foreground(t.Error).Render(u.Err)
	case len(u.Entries) == 0:
		return dim.Render("nothing to undo")
	}
	var b strings.Builder
	start := scrollStart(u.Cursor(), len(u.Entries), rows-2)
	for i := start; i < len(u.Entries) && i < start+rows-2; i++ {
		e := u.Entries[i]
		b.WriteString(listRow(i == u.Cursor(), e.Description+"  "+dim.Render(overlay.Age(now, e.Timestamp)), t) + "\n")
	}
	b.WriteString("\n" + dim.Render("enter undo · esc close"))
	return b.String()
}

func renderDismiss(d *overlay.DismissModal, t *theme.Theme, width int) string {
	var b strings.Builder
	f := d.Finding
	b.WriteString(lipgloss.NewStyle().Foreground(t.Severity(f.Severity)).Render(f.Severity) + " " + f.CheckID + "\n")
	b.WriteString(lipgloss.NewStyle().Width(width).Render(f.Message) + "\n\n")
	for i, r := range d.Reasons {
		b.WriteString(listRow(i == d.Cursor(), r, t) + "\n")
	}
	return b.String()
}

// ─── Provider key flow ────────────────────────────────────────────────────────

// renderKeyFlow draws the provider → key → verify → result sequence shared by
// the provider dialog and the onboarding provider step.
func renderKeyFlow(step overlay.KeyStep, providers []config.ProviderInfo, cursor int, skippable bool,
	provider, masked, errText string, ok bool, t *theme.Theme, width int) string {
	dim := lipgloss.NewStyle().Foreground(t.TextMuted)
	var b strings.Builder

	switch step {
	case overlay.StepSelectProvider:
		for i, p := range providers {
			b.WriteString(listRow(i == cursor, p.Name+"  "+dim.Render(p.Hint), t) + "\n")
		}
		if skippable {
			b.WriteString(listRow(cursor == len(providers), "Skip for now", t) + "\n")
		}
		b.WriteString("\n" + dim.Render("enter select"))
	case overlay.StepEnterKey:
		b.WriteString("Paste your " + providerName(providers, provider) + " API key:\n\n")
		b.WriteString(lipgloss.NewStyle().Foreground(t.Primary).Render("> ") + masked +
			lipgloss.NewStyle().Reverse(true).Render(" ") + "\n\n")
		b.WriteString(dim.Render("enter save · esc back"))
	case overlay.StepVerifying:
		b.WriteString(dim.Render("Saving key…"))
	case overlay.StepResult:
		if ok {
			b.WriteString(lipgloss.NewStyle().Foreground(t.Success).Render("✓ "+providerName(providers, provider)+" is ready.") + "\n")
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(t.Error).Width(width).Render("✗ "+errText) + "\n\n")
			b.WriteString(dim.Render("r retry · esc close"))
		}
	}
	return b.String()
}

func providerName(providers []config.ProviderInfo, key string) string {
	for _, p := range providers {
		if p.Key == key {
			return p.Name
		}
	}
	return key
}

// ─── Onboarding ───────────────────────────────────────────────────────────────

func renderOnboarding(o *overlay.Onboarding, t *theme.Theme, width int) string {
	dim := lipgloss.NewStyle().Foreground(t.TextMuted)
	if o.Completed() {
		return lipgloss.NewStyle().Foreground(t.Success).Render("All set.") + "\n\n" +
			lipgloss.NewStyle().Width(width).Render(o.Summary())
	}

	step := o.Steps[o.StepIndex()]
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Width(width).Render(step.Title) + "\n\n")

	if step.Kind == overlay.TextInput {
		b.WriteString(renderKeyFlow(o.KeyStep(), config.ProviderRegistry, o.KeyCursor(), true,
			o.KeyProvider(), o.MaskedKey(), o.KeyErr(), o.KeySucceeded(), t, width))
		return b.String()
	}

	chosen := make(map[int]bool)
	for _, i := range o.Selection(o.StepIndex()) {
		chosen[i] = true
	}
	for i, opt := range step.Options {
		var mark string
		switch {
		case step.Kind == overlay.Checkbox && chosen[i]:
			mark = "[x] "
		case step.Kind == overlay.Checkbox:
			mark = "[ ] "
		case chosen[i]:
			mark = "(•) "
		default:
			mark = "( ) "
		}
		b.WriteString(listRow(i == o.Cursor(), mark+opt, t) + "\n")
	}
	hint := "enter select · ←/→ step · esc later"
	if step.Kind == overlay.Checkbox {
		hint = "space toggle · enter next · ←/→ step · esc later"
	}
	b.WriteString("\n" + dim.Render(hint))
	return b.String()
}
