package tui

// render.go: draws the state. Region sizes come from app.State.Layout so
// mouse hit-testing in the controller and drawing agree.

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/complior/complior-sub000/internal/action"
	"github.com/complior/complior-sub000/internal/app"
	"github.com/complior/complior-sub000/internal/keymap"
	"github.com/complior/complior-sub000/internal/overlay"
	"github.com/complior/complior-sub000/internal/theme"
)

func (m Model) View() string {
	st := m.ctrl.State()
	t := m.themeFor(st)
	l := st.Layout()
	w := l.Body.W

	rows := []string{m.renderTabs(st, l, t), m.renderBody(st, l, t)}
	if st.ShowTerminal {
		rows = append(rows, m.renderTerminal(st, l.Terminal, t))
	}
	rows = append(rows, m.renderInput(st, w, t), m.renderStatus(st, w, t))
	screen := strings.Join(rows, "\n")

	if st.Overlay != nil {
		dlg := m.renderOverlay(st, t, min(w-4, 72), l.Body.H+2)
		screen = placeOver(screen, dlg, w)
	}
	return screen
}

// themeFor is the active theme, or the one under the theme picker cursor.
func (m Model) themeFor(st *app.State) *theme.Theme {
	name := st.Theme
	if tp, ok := st.Overlay.(*overlay.ThemePicker); ok {
		name = tp.Preview()
	}
	if t, err := m.themes.Get(name); err == nil {
		return t
	}
	if t := m.themes.Current(); t != nil {
		return t
	}
	return theme.Default()
}

// ─── Header ───────────────────────────────────────────────────────────────────

func (m Model) renderTabs(st *app.State, l app.Layout, t *theme.Theme) string {
	active := lipgloss.NewStyle().Bold(true).Foreground(t.Background).Background(t.Primary)
	idle := lipgloss.NewStyle().Foreground(t.TextMuted)

	var b strings.Builder
	for i, v := range action.Views() {
		if i > 0 {
			b.WriteString(" ")
		}
		title := app.TabTitle(v)
		if v == st.View {
			b.WriteString(active.Render(title))
		} else {
			b.WriteString(idle.Render(title))
		}
	}
	return fit(b.String(), l.Body.W, 1)
}

// ─── Body ─────────────────────────────────────────────────────────────────────

func (m Model) renderBody(st *app.State, l app.Layout, t *theme.Theme) string {
	if st.View != action.ViewChat {
		var content string
		switch st.View {
		case action.ViewDashboard:
			content = m.renderDashboard(st, t)
		case action.ViewScan:
			content = m.renderScan(st, t, l.Body.W-2)
		case action.ViewFix:
			content = m.renderFix(st, t)
		case action.ViewTimeline:
			content = m.renderTimeline(st, t)
		case action.ViewReport:
			content = m.renderReport(st, t, l.Body.W-4, l.Body.H-2)
		}
		return panel(content, l.Body, st.Panel == keymap.PanelChat, t)
	}

	var cols []string
	if l.Files.W > 0 {
		cols = append(cols, panel(m.renderFiles(st, t, l.Files.H-2), l.Files, st.Panel == keymap.PanelFiles, t))
	}
	cols = append(cols, panel(m.renderChat(st, t, l.Chat.W-2, l.Chat.H-2), l.Chat, st.Panel == keymap.PanelChat, t))
	if l.Code.W > 0 {
		cols = append(cols, panel(m.renderCode(st, t, l.Code.W-2, l.Code.H-2), l.Code, st.Panel == keymap.PanelCode, t))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m Model) renderDashboard(st *app.State, t *theme.Theme) string {
	bold := lipgloss.NewStyle().Bold(true).Foreground(t.Text)
	dim := lipgloss.NewStyle().Foreground(t.TextMuted)

	var b strings.Builder
	b.WriteString(bold.Render("EU AI Act compliance") + "  " + dim.Render(st.Project) + "\n\n")

	if res := st.LastScan; res != nil {
		score := lipgloss.NewStyle().Bold(true).Foreground(t.Score(res.Score)).Render(fmt.Sprintf("%.0f/100", res.Score))
		fmt.Fprintf(&b, "Score  %s   %d files scanned\n", score, res.FilesScanned)
		counts := res.CountBySeverity()
		var parts []string
		for _, s := range []string{"critical", "high", "medium", "low"} {
			if n := counts[s]; n > 0 {
				parts = append(parts, lipgloss.NewStyle().Foreground(t.Severity(s)).Render(fmt.Sprintf("%d %s", n, s)))
			}
		}
		if len(parts) == 0 {
			parts = append(parts, lipgloss.NewStyle().Foreground(t.Success).Render("no findings"))
		}
		b.WriteString("Findings  " + strings.Join(parts, dim.Render(" · ")) + "\n")
	} else {
		b.WriteString(dim.Render("No scan yet. Press s to scan the project.") + "\n")
	}
	if st.Scanning {
		b.WriteString(m.frame(st) + " scanning…\n")
	}
	if n := len(st.FixQueue); n > 0 {
		fmt.Fprintf(&b, "Fix queue  %d\n", n)
	}

	b.WriteString("\n" + bold.Render("Next steps") + "\n")
	switch {
	case len(st.Suggestions) > 0:
		for i, s := range st.Suggestions {
			b.WriteString(listRow(i == st.SuggestionCursor, s, t) + "\n")
		}
	case st.SuggestionPending:
		b.WriteString(dim.Render(m.frame(st)+" thinking…") + "\n")
	default:
		b.WriteString(dim.Render("s scan · c chat · ctrl+p commands · ? help") + "\n")
	}
	return b.String()
}

func (m Model) renderScan(st *app.State, t *theme.Theme, width int) string {
	dim := lipgloss.NewStyle().Foreground(t.TextMuted)
	fs := st.Findings()
	if len(fs) == 0 {
		if st.LastScan == nil {
			return dim.Render("No scan yet. Press r to scan.")
		}
		return lipgloss.NewStyle().Foreground(t.Success).Render("No findings.")
	}

	queued := make(map[string]bool, len(st.FixQueue))
	for _, id := range st.FixQueue {
		queued[id] = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", dim.Render(fmt.Sprintf("%d findings · d dismiss · f queue fix · x explain · w what-if", len(fs))))
	for i, f := range fs {
		sev := lipgloss.NewStyle().Foreground(t.Severity(f.Severity)).Render(fmt.Sprintf("%-8s", f.Severity))
		mark := " "
		if queued[f.ID] {
			mark = "+"
		}
		row := fmt.Sprintf("%s %s %s  %s", mark, sev, f.CheckID, f.Message)
		if loc := location(f); loc != "" {
			row += dim.Render("  " + loc)
		}
		b.WriteString(listRow(i == st.FindingCursor, row, t) + "\n")
	}
	if f := st.SelectedFinding(); f != nil {
		b.WriteString("\n" + lipgloss.NewStyle().Width(width).Foreground(t.Text).Render(f.Message) + "\n")
		if f.Obligation != "" {
			b.WriteString(dim.Render("Obligation: "+f.Obligation) + "\n")
		}
		if f.HasFix() {
			b.WriteString(dim.Render("Fix: "+f.Fix) + "\n")
		}
	}
	return b.String()
}

func (m Model) renderFix(st *app.State, t *theme.Theme) string {
	dim := lipgloss.NewStyle().Foreground(t.TextMuted)
	items := st.FixItems()
	var b strings.Builder
	if len(items) == 0 {
		b.WriteString(dim.Render("The fix queue is empty. Press f on a finding in the Scan view.") + "\n")
	} else {
		b.WriteString(dim.Render("space select · p preview · d toggle diff · a apply · r reject") + "\n")
		for i, f := range items {
			box := "[ ]"
			if st.FixSelected[f.ID] {
				box = "[x]"
			}
			row := fmt.Sprintf("%s %s  %s", box, f.CheckID, f.Message)
			b.WriteString(listRow(i == st.FixCursor, row, t) + "\n")
		}
	}
	if d := st.PendingDiff; d != nil && st.ShowDiff {
		b.WriteString("\n" + lipgloss.NewStyle().Bold(true).Render(d.Path) + "\n")
		b.WriteString(renderDiff(d.Diff, d.OldString, d.NewString, t))
	}
	return b.String()
}

// renderDiff colours a unified diff, or builds a minimal one from the old
// and new strings when the engine sent none.
func renderDiff(diff, oldStr, newStr string, t *theme.Theme) string {
	add := lipgloss.NewStyle().Foreground(t.Success)
	del := lipgloss.NewStyle().Foreground(t.Error)
	hunk := lipgloss.NewStyle().Foreground(t.Secondary)

	var lines []string
	if strings.TrimSpace(diff) == "" {
		for _, l := range strings.Split(oldStr, "\n") {
			lines = append(lines, "-"+l)
		}
		for _, l := range strings.Split(newStr, "\n") {
			lines = append(lines, "+"+l)
		}
	} else {
		lines = strings.Split(strings.TrimRight(diff, "\n"), "\n")
	}

	var b strings.Builder
	for _, l := range lines {
		switch {
		case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"), strings.HasPrefix(l, "@@"):
			b.WriteString(hunk.Render(l))
		case strings.HasPrefix(l, "+"):
			b.WriteString(add.Render(l))
		case strings.HasPrefix(l, "-"):
			b.WriteString(del.Render(l))
		default:
			b.WriteString(l)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderTimeline(st *app.State, t *theme.Theme) string {
	dim := lipgloss.NewStyle().Foreground(t.TextMuted)
	if len(st.Timeline) == 0 {
		return dim.Render("Nothing has happened yet. Scans, fixes and undos show up here. u opens undo history.")
	}
	kind := lipgloss.NewStyle().Foreground(t.Secondary).Width(9)
	var b strings.Builder
	for _, e := range st.Timeline[min(st.TimelineScroll, len(st.Timeline)-1):] {
		b.WriteString(dim.Render(e.At.Format("15:04:05")) + "  " + kind.Render(e.Kind) + e.Text + "\n")
	}
	return b.String()
}

func (m Model) renderReport(st *app.State, t *theme.Theme, width, height int) string {
	doc := m.md.render(Report(st.LastScan, st.Project, time.Now()), width, t.MarkdownTheme)
	vp := viewport.New(width, max(height, 1))
	vp.SetContent(doc)
	vp.SetYOffset(st.ReportScroll)
	return vp.View()
}

// ─── Chat view panels ─────────────────────────────────────────────────────────

func (m Model) renderFiles(st *app.State, t *theme.Theme, height int) string {
	dim := lipgloss.NewStyle().Foreground(t.TextMuted)
	if st.Files == nil {
		return dim.Render("ctrl+o lists files")
	}
	start := scrollStart(st.FileCursor, len(st.Files), height)
	var b strings.Builder
	for i := start; i < len(st.Files) && i < start+height; i++ {
		b.WriteString(listRow(i == st.FileCursor && st.Panel == keymap.PanelFiles, st.Files[i], t) + "\n")
	}
	return b.String()
}

func (m Model) renderChat(st *app.State, t *theme.Theme, width, height int) string {
	user := lipgloss.NewStyle().Bold(true).Foreground(t.User)
	sys := lipgloss.NewStyle().Italic(true).Foreground(t.System)
	dim := lipgloss.NewStyle().Foreground(t.TextDim)
	contentW := max(width-2, 10)

	var b strings.Builder
	for _, msg := range st.Messages {
		switch msg.Role {
		case "user":
			b.WriteString(user.Render("› ") + lipgloss.NewStyle().Width(contentW-2).Render(msg.Content))
		case "assistant":
			if msg.Thinking != "" {
				b.WriteString(dim.Render("thought: "+firstLine(msg.Thinking)) + "\n")
			}
			b.WriteString(m.md.render(msg.Content, contentW, t.MarkdownTheme))
		default:
			b.WriteString(sys.Width(contentW).Render(msg.Content))
		}
		b.WriteString("\n\n")
	}
	if st.Streaming {
		if st.StreamThinking != "" {
			b.WriteString(dim.Render("thinking: "+lastLine(st.StreamThinking)) + "\n")
		}
		for _, tl := range st.ToolLines {
			b.WriteString(lipgloss.NewStyle().Foreground(t.Secondary).Render(tl) + "\n")
		}
		b.WriteString(lipgloss.NewStyle().Width(contentW).Foreground(t.Assistant).Render(st.StreamText))
		b.WriteString(" " + m.frame(st) + "\n")
	}
	if b.Len() == 0 {
		return dim.Render("Press i and ask about your compliance status.")
	}

	vp := viewport.New(contentW, max(height, 1))
	vp.SetContent(strings.TrimRight(b.String(), "\n"))
	vp.SetYOffset(max(vp.TotalLineCount()-vp.Height-st.ChatBack, 0))
	return withScrollbar(vp, t)
}

func (m Model) renderCode(st *app.State, t *theme.Theme, width, height int) string {
	f := st.File
	if f == nil {
		return ""
	}
	num := lipgloss.NewStyle().Foreground(t.TextDim)
	sel := lipgloss.NewStyle().Background(t.Surface).Foreground(t.Text)
	cur := lipgloss.NewStyle().Foreground(t.Primary)
	from, to := st.Selection()
	visual := st.Mode == keymap.Visual

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(f.Path) + "\n")
	start := scrollStart(st.CodeCursor, len(f.Lines), height-1)
	gutter := len(fmt.Sprint(len(f.Lines)))
	for i := start; i < len(f.Lines) && i < start+height-1; i++ {
		line := strings.ReplaceAll(f.Lines[i], "\t", "    ")
		prefix := num.Render(fmt.Sprintf("%*d ", gutter, i+1))
		switch {
		case visual && i >= from && i <= to:
			line = sel.Render(line)
		case i == st.CodeCursor && st.Panel == keymap.PanelCode:
			line = cur.Render(line)
		}
		b.WriteString(prefix + lipgloss.NewStyle().MaxWidth(max(width-gutter-1, 1)).Render(line) + "\n")
	}
	return b.String()
}

func (m Model) renderTerminal(st *app.State, r app.Rect, t *theme.Theme) string {
	h := r.H - 2
	end := max(len(st.Terminal)-st.TermBack, 0)
	start := max(end-h, 0)
	content := strings.Join(st.Terminal[start:end], "\n")
	return panel(content, r, st.Panel == keymap.PanelTerminal, t)
}

// ─── Footer ───────────────────────────────────────────────────────────────────

func (m Model) renderInput(st *app.State, width int, t *theme.Theme) string {
	mode := st.Mode
	badge := lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(t.Background)
	switch mode {
	case keymap.Insert:
		badge = badge.Background(t.Success)
	case keymap.Command:
		badge = badge.Background(t.Warning)
	case keymap.Visual:
		badge = badge.Background(t.Secondary)
	default:
		badge = badge.Background(t.Primary)
	}

	prompt := "› "
	in := &st.Input
	if st.ColonMode {
		prompt = ":"
		in = &st.Cmdline
	}
	text := in.Text()
	if st.Editing() && st.Overlay == nil {
		text = withCursor(text, in.Cursor(), t)
	} else if text == "" && mode == keymap.Normal {
		text = lipgloss.NewStyle().Foreground(t.TextDim).Render("i to type · : for commands")
	}
	return fit(badge.Render(mode.String())+" "+prompt+text, width, 1)
}

// withCursor draws a block cursor at byte offset pos.
func withCursor(text string, pos int, t *theme.Theme) string {
	block := lipgloss.NewStyle().Reverse(true)
	if pos >= len(text) {
		return text + block.Render(" ")
	}
	_, size := utf8.DecodeRuneInString(text[pos:])
	return text[:pos] + block.Render(text[pos:pos+size]) + text[pos+size:]
}

func (m Model) renderStatus(st *app.State, width int, t *theme.Theme) string {
	dim := lipgloss.NewStyle().Foreground(t.TextMuted)

	var conn lipgloss.Color
	switch st.Conn {
	case app.Connected:
		conn = t.Success
	case app.Connecting, app.Reconnecting:
		conn = t.Warning
	default:
		conn = t.Error
	}
	parts := []string{lipgloss.NewStyle().Foreground(conn).Render("● " + st.Conn.String())}
	if st.EngineVersion != "" {
		parts = append(parts, dim.Render("engine "+st.EngineVersion))
	}
	if st.Provider != "" {
		parts = append(parts, dim.Render(st.Provider+"/"+shortModel(st.Model)))
	}
	if st.Watching {
		parts = append(parts, lipgloss.NewStyle().Foreground(t.Secondary).Render("◉ watch"))
	}
	if n := st.Usage.PromptTokens + st.Usage.CompletionTokens; n > 0 {
		parts = append(parts, dim.Render(fmt.Sprintf("%d tok", n)))
	}
	if st.Status != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(t.Text).Render(st.Status))
	}
	left := strings.Join(parts, dim.Render("  "))

	hints := m.help.ShortHelpView(keymap.Hints(st.EffectiveMode(), st.View).ShortHelp())
	gap := width - lipgloss.Width(left) - lipgloss.Width(hints)
	if gap < 2 {
		return fit(left, width, 1)
	}
	return left + strings.Repeat(" ", gap) + hints
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// panel draws content in a rounded border filling r exactly.
func panel(content string, r app.Rect, focused bool, t *theme.Theme) string {
	if r.W < 2 || r.H < 2 {
		return fit(content, r.W, r.H)
	}
	border := t.Border
	if focused {
		border = t.BorderHighlight
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Render(fit(content, r.W-2, r.H-2))
}

// fit crops or pads s to exactly w columns by h rows.
func fit(s string, w, h int) string {
	if w <= 0 || h <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > h {
		lines = lines[:h]
	}
	for len(lines) < h {
		lines = append(lines, "")
	}
	trunc := lipgloss.NewStyle().MaxWidth(w)
	for i, l := range lines {
		l = trunc.Render(l)
		if pad := w - lipgloss.Width(l); pad > 0 {
			l += strings.Repeat(" ", pad)
		}
		lines[i] = l
	}
	return strings.Join(lines, "\n")
}

func listRow(selected bool, text string, t *theme.Theme) string {
	if selected {
		return lipgloss.NewStyle().Foreground(t.Primary).Bold(true).Render("› ") + text
	}
	return "  " + text
}

// scrollStart keeps cursor visible in a window of height rows.
func scrollStart(cursor, n, height int) int {
	if height <= 0 || n <= height {
		return 0
	}
	start := cursor - height/2
	return max(0, min(start, n-height))
}

// frame is the spinner frame for the current tick.
func (m Model) frame(st *app.State) string {
	frames := m.spinner.Frames
	return frames[st.Frame%len(frames)]
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func shortModel(model string) string {
	if i := strings.LastIndexByte(model, '/'); i >= 0 {
		model = model[i+1:]
	}
	if len(model) > 30 {
		return model[:27] + "..."
	}
	return model
}
