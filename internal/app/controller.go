package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/complior/complior-sub000/internal/action"
	"github.com/complior/complior-sub000/internal/command"
	"github.com/complior/complior-sub000/internal/keymap"
	"github.com/complior/complior-sub000/internal/overlay"
	"github.com/complior/complior-sub000/internal/session"
)

const (
	// DefaultHealthEvery is the health-check period.
	DefaultHealthEvery = 5 * time.Second
	// DefaultReportPath is where Report view exports land.
	DefaultReportPath = "complior-report.md"

	statusTTL  = 4 * time.Second
	pageLines  = 10
	wheelLines = 3
)

// Options seeds a controller.
type Options struct {
	Project        string
	Themes         []string
	Theme          string
	Provider       string
	Model          string
	Watching       bool
	IdleAfter      time.Duration // 0 disables idle suggestions
	HealthEvery    time.Duration // 0 disables health checks
	OnboardingDone bool
	OnboardingStep int
	History        []string
	Now            func() time.Time
}

// Controller owns the application state. All methods must be called from
// one goroutine.
type Controller struct {
	st   State
	opts Options
	now  func() time.Time

	idleFired     bool
	healthPending bool
	lastHealth    time.Time
	rescanPending bool
}

// New builds a controller. The onboarding wizard opens at once until it has
// been completed.
func New(opts Options) *Controller {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.Project == "" {
		opts.Project = "."
	}
	c := &Controller{opts: opts, now: now}
	c.st = State{
		Running:        true,
		View:           action.ViewDashboard,
		Mode:           keymap.Normal,
		History:        NewHistory(opts.History),
		AutoScroll:     true,
		Project:        opts.Project,
		FixSelected:    map[string]bool{},
		Conn:           Connecting,
		Watching:       opts.Watching,
		Theme:          opts.Theme,
		Provider:       opts.Provider,
		Model:          opts.Model,
		OnboardingDone: opts.OnboardingDone,
		OnboardingStep: opts.OnboardingStep,
		LastInput:      now(),
	}
	c.lastHealth = now()
	// the startup readiness wait reports the first EngineStatus
	c.healthPending = true
	if !opts.OnboardingDone {
		c.st.Overlay = overlay.NewOnboarding(overlay.OnboardingSteps, opts.OnboardingStep)
	}
	return c
}

// State exposes the state for rendering. Callers must not modify it.
func (c *Controller) State() *State { return &c.st }

// ─── Actions ──────────────────────────────────────────────────────────────────

// Apply handles one user action and returns at most one command.
func (c *Controller) Apply(a action.Action) command.Command {
	switch a := a.(type) {
	case nil, action.None:
		return nil
	case action.Resize:
		// terminal geometry, not user intent: never routed to an overlay
		c.st.Width, c.st.Height = a.Width, a.Height
		return nil
	}
	c.touch()

	if c.st.Overlay != nil {
		return c.applyOverlay(a)
	}
	return c.apply(a)
}

func (c *Controller) applyOverlay(a action.Action) command.Command {
	if overlay.Opens(a) && !c.togglesHelp(a) {
		c.st.Overlay = nil
		return c.apply(a)
	}
	res := c.st.Overlay.Handle(a)
	if res.Close {
		c.st.Overlay = nil
	}
	if res.Cmd != nil {
		c.noteOverlayCommand(res.Cmd)
		return res.Cmd
	}
	if res.Then != nil {
		return c.apply(res.Then)
	}
	return nil
}

// togglesHelp reports whether a is "?" pressed with help already open, which
// closes it.
func (c *Controller) togglesHelp(a action.Action) bool {
	_, ok := a.(action.ToggleHelp)
	return ok && c.st.Overlay.Kind() == overlay.KindHelp
}

// noteOverlayCommand mirrors an overlay's outgoing command into state.
func (c *Controller) noteOverlayCommand(cmd command.Command) {
	switch cmd := cmd.(type) {
	case command.SaveOnboardingPartial:
		c.st.OnboardingStep = cmd.Step
	case command.CompleteOnboarding:
		c.st.OnboardingDone = true
		c.st.OnboardingStep = 0
		c.system("Onboarding complete.\n" + cmd.Summary)
	case command.SaveProviderConfig:
		c.setStatus("Saving " + cmd.Provider + " key…")
	case command.DismissFinding:
		c.setStatus("Dismissing finding…")
	case command.Undo:
		c.setStatus("Undoing…")
	}
}

func (c *Controller) apply(a action.Action) command.Command {
	switch a := a.(type) {
	case action.Quit:
		c.st.Running = false

	case action.InsertChar:
		if c.st.Editing() {
			c.st.ActiveInput().Insert(a.Char)
		}
	case action.DeleteBack:
		if c.st.Editing() {
			c.st.ActiveInput().DeleteBack()
		}
	case action.DeleteForward:
		if c.st.Editing() {
			c.st.ActiveInput().DeleteForward()
		}

	case action.MoveLeft:
		switch {
		case c.st.Editing():
			c.st.ActiveInput().Left()
		case c.st.View == action.ViewChat && c.st.Mode == keymap.Normal:
			c.cyclePanel(-1)
		}
	case action.MoveRight:
		switch {
		case c.st.Editing():
			c.st.ActiveInput().Right()
		case c.st.View == action.ViewChat && c.st.Mode == keymap.Normal:
			c.cyclePanel(1)
		}
	case action.Home:
		if c.st.Editing() {
			c.st.ActiveInput().Home()
		} else {
			c.scroll(-1 << 20)
		}
	case action.End:
		if c.st.Editing() {
			c.st.ActiveInput().End()
		} else {
			c.scroll(1 << 20)
		}
	case action.MoveUp:
		c.vertical(-1)
	case action.MoveDown:
		c.vertical(1)
	case action.PageUp:
		c.scroll(-pageLines)
	case action.PageDown:
		c.scroll(pageLines)
	case action.Top:
		c.scroll(-1 << 20)
	case action.Bottom:
		c.scroll(1 << 20)
	case action.ScrollWheel:
		c.focusAt(a.X, a.Y)
		if a.Up {
			c.scroll(-wheelLines)
		} else {
			c.scroll(wheelLines)
		}
	case action.Click:
		return c.click(a.X, a.Y)

	case action.EnterInsertMode:
		c.st.Mode = keymap.Insert
		c.st.ColonMode = false
	case action.EnterColonMode:
		c.st.Mode = keymap.Command
		c.st.ColonMode = true
		c.st.Cmdline.Clear()
	case action.EnterVisualMode:
		c.enterVisual()
	case action.Cancel:
		c.cancel()
	case action.Submit:
		return c.submit()

	case action.NextPanel:
		c.cyclePanel(1)
	case action.PrevPanel:
		c.cyclePanel(-1)
	case action.SwitchView:
		c.switchView(a.View)

	case action.OpenCommandPalette:
		c.st.Overlay = overlay.NewCommandPalette(overlay.DefaultPalette)
	case action.OpenFilePicker:
		return c.openFilePicker()
	case action.ToggleHelp:
		c.st.Overlay = overlay.NewHelp(helpSections())
	case action.OpenModelSelector:
		c.st.Overlay = overlay.NewModelSelector(overlay.Catalog, c.st.Provider, c.st.Model)
	case action.OpenThemePicker:
		c.st.Overlay = overlay.NewThemePicker(c.opts.Themes, c.st.Theme)
	case action.OpenUndoHistory:
		c.st.Overlay = overlay.NewUndoHistory()
		return command.FetchUndoHistory{}
	case action.OpenProviderSetup:
		c.st.Overlay = overlay.NewProviderSetup()
	case action.OpenOnboarding:
		start := c.st.OnboardingStep
		if c.st.OnboardingDone {
			start = 0
		}
		c.st.Overlay = overlay.NewOnboarding(overlay.OnboardingSteps, start)
	case action.OpenGettingStarted:
		c.st.Overlay = overlay.NewGettingStarted(overlay.Tour)

	case action.ViewKey:
		if c.st.Mode == keymap.Normal {
			return c.viewKey(a.Key)
		}

	case action.SelectionToAI:
		return c.selectionToAI()
	case action.YankSelection:
		return c.yank()
	case action.AcceptDiff:
		return c.acceptDiff()
	case action.RejectDiff:
		c.rejectDiff()

	case action.ToggleTerminal:
		c.st.ShowTerminal = !c.st.ShowTerminal
		switch {
		case c.st.ShowTerminal:
			c.st.Panel = keymap.PanelTerminal
		case c.st.Panel == keymap.PanelTerminal:
			c.st.Panel = keymap.PanelChat
		}
	case action.ToggleWatch:
		return command.ToggleWatch{Enable: !c.st.Watching}
	case action.Reconnect:
		c.st.Conn = Reconnecting
		c.healthPending = true
		c.setStatus("Reconnecting to engine…")
		return command.Reconnect{}
	case action.Undo:
		c.st.Overlay = overlay.NewConfirm("Undo", "Revert the last applied change?", command.Undo{})
	case action.Execute:
		return c.execute(a.Line)
	}
	return nil
}

// touch records user activity for the idle timer.
func (c *Controller) touch() {
	c.st.LastInput = c.now()
	c.idleFired = false
}

// ─── Editing and submit ───────────────────────────────────────────────────────

func (c *Controller) vertical(d int) {
	switch c.st.Mode {
	case keymap.Insert, keymap.Command:
		in := c.st.ActiveInput()
		if d < 0 {
			if s, ok := c.st.History.Prev(in.Text()); ok {
				in.Set(s)
			}
		} else if s, ok := c.st.History.Next(); ok {
			in.Set(s)
		}
	default:
		c.scroll(d)
	}
}

func (c *Controller) cancel() {
	switch c.st.Mode {
	case keymap.Visual:
		c.st.Mode = keymap.Normal
		c.st.SelStart = c.st.CodeCursor
	case keymap.Command:
		c.st.Cmdline.Clear()
		c.st.ColonMode = false
		c.st.Mode = keymap.Normal
		c.st.History.Reset()
	case keymap.Insert:
		c.st.Mode = keymap.Normal
		c.st.History.Reset()
	default:
		c.st.Status = ""
	}
}

func (c *Controller) submit() command.Command {
	if !c.st.Editing() {
		return c.submitNormal()
	}
	in := c.st.ActiveInput()
	text := strings.TrimSpace(in.Text())
	colon := c.st.ColonMode
	in.Clear()
	if colon {
		c.st.ColonMode = false
		c.st.Mode = keymap.Normal
	}
	if text == "" {
		c.st.History.Reset()
		return nil
	}
	c.st.History.Push(text)

	switch {
	case colon:
		return c.execute(text)
	case strings.HasPrefix(text, "!"):
		return c.runShell(strings.TrimSpace(text[1:]))
	case strings.HasPrefix(text, "/"):
		return c.execute(text[1:])
	}
	return c.startChat(text)
}

func (c *Controller) submitNormal() command.Command {
	if c.st.View != action.ViewChat {
		return nil
	}
	switch c.st.Panel {
	case keymap.PanelFiles:
		if c.st.FileCursor < len(c.st.Files) {
			return command.OpenFile{Path: c.st.Files[c.st.FileCursor]}
		}
	case keymap.PanelChat:
		c.st.Mode = keymap.Insert
	}
	return nil
}

// ─── Commands started by the controller ───────────────────────────────────────

func (c *Controller) startChat(text string) command.Command {
	if c.st.Streaming {
		// a new request supersedes the old one; its late frames are dropped
		c.resetStream()
	}
	c.st.Messages = append(c.st.Messages, session.NewMessage("user", text))
	c.st.RequestID = uuid.NewString()
	c.st.Streaming = true
	c.st.View = action.ViewChat
	c.st.ChatBack = 0
	c.st.AutoScroll = true
	return command.Chat{Text: text, RequestID: c.st.RequestID}
}

func (c *Controller) startScan(path string) command.Command {
	if path == "" {
		path = c.st.Project
	}
	c.st.ScanID = uuid.NewString()
	c.st.Scanning = true
	c.rescanPending = false
	c.setStatus("Scanning " + path + "…")
	return command.Scan{Path: path, ID: c.st.ScanID}
}

func (c *Controller) runShell(cmdline string) command.Command {
	if cmdline == "" {
		return nil
	}
	c.st.ShowTerminal = true
	c.st.Terminal = append(c.st.Terminal, "$ "+cmdline)
	c.st.TermBack = 0
	return command.RunCommand{Cmd: cmdline}
}

func (c *Controller) openFilePicker() command.Command {
	c.st.Overlay = overlay.NewFilePicker(c.st.Files)
	if c.st.Files == nil {
		return command.ListFiles{Root: c.st.Project}
	}
	return nil
}

// ─── Views, panels and scrolling ──────────────────────────────────────────────

func (c *Controller) switchView(v action.View) {
	c.st.View = v
	if c.st.Mode == keymap.Visual {
		c.st.Mode = keymap.Normal
	}
	if v != action.ViewChat && (c.st.Panel == keymap.PanelFiles || c.st.Panel == keymap.PanelCode) {
		c.st.Panel = keymap.PanelChat
	}
}

// panels lists the focusable panels in tab order.
func (c *Controller) panels() []keymap.Panel {
	ps := []keymap.Panel{keymap.PanelChat}
	if c.st.View == action.ViewChat {
		ps = append(ps, keymap.PanelFiles)
		if c.st.File != nil {
			ps = append(ps, keymap.PanelCode)
		}
	}
	if c.st.ShowTerminal {
		ps = append(ps, keymap.PanelTerminal)
	}
	return ps
}

func (c *Controller) cyclePanel(d int) {
	ps := c.panels()
	i := 0
	for j, p := range ps {
		if p == c.st.Panel {
			i = j
			break
		}
	}
	c.st.Panel = ps[(i+d+len(ps))%len(ps)]
}

// scroll moves whatever the focus scrolls by d lines; negative is up.
func (c *Controller) scroll(d int) {
	s := &c.st
	if s.Panel == keymap.PanelTerminal && s.ShowTerminal {
		s.TermBack = clamp(s.TermBack-d, 0, len(s.Terminal)-terminalRows)
		return
	}
	switch s.View {
	case action.ViewChat:
		switch s.Panel {
		case keymap.PanelFiles:
			s.FileCursor = clamp(s.FileCursor+d, 0, len(s.Files)-1)
		case keymap.PanelCode:
			if s.File != nil {
				s.CodeCursor = clamp(s.CodeCursor+d, 0, len(s.File.Lines)-1)
			}
		default:
			limit := s.chatLines() - s.Layout().Chat.H
			s.ChatBack = clamp(s.ChatBack-d, 0, limit)
			// manual scrolling suspends follow mode until back at the bottom
			s.AutoScroll = s.ChatBack == 0
		}
	case action.ViewScan:
		s.FindingCursor = clamp(s.FindingCursor+d, 0, len(s.Findings())-1)
	case action.ViewFix:
		s.FixCursor = clamp(s.FixCursor+d, 0, len(s.FixItems())-1)
	case action.ViewTimeline:
		s.TimelineScroll = clamp(s.TimelineScroll+d, 0, len(s.Timeline)-1)
	case action.ViewReport:
		s.ReportScroll = clamp(s.ReportScroll+d, 0, 1<<16)
	case action.ViewDashboard:
		s.SuggestionCursor = clamp(s.SuggestionCursor+d, 0, len(s.Suggestions)-1)
	}
}

// focusAt moves panel focus to the panel under a mouse position.
func (c *Controller) focusAt(x, y int) {
	l := c.st.Layout()
	switch {
	case l.Terminal.Contains(x, y):
		c.st.Panel = keymap.PanelTerminal
	case l.Files.Contains(x, y):
		c.st.Panel = keymap.PanelFiles
	case l.Code.Contains(x, y):
		c.st.Panel = keymap.PanelCode
	case l.Chat.Contains(x, y):
		c.st.Panel = keymap.PanelChat
	}
}

func (c *Controller) click(x, y int) command.Command {
	l := c.st.Layout()
	for i, r := range l.Tabs {
		if r.Contains(x, y) {
			c.switchView(action.Views()[i])
			return nil
		}
	}
	if l.Input.Contains(x, y) {
		c.st.Mode = keymap.Insert
		c.st.ColonMode = false
		return nil
	}
	c.focusAt(x, y)
	switch {
	case l.Files.Contains(x, y):
		if row := y - l.Files.Y - 1; row >= 0 && row < len(c.st.Files) {
			c.st.FileCursor = row
		}
	case l.Code.Contains(x, y) && c.st.File != nil:
		if row := y - l.Code.Y - 1; row >= 0 && row < len(c.st.File.Lines) {
			c.st.CodeCursor = row
		}
	}
	return nil
}

// ─── Visual selection and diffs ───────────────────────────────────────────────

func (c *Controller) enterVisual() {
	if c.st.File == nil {
		c.setStatus("Open a file first (ctrl+o)")
		return
	}
	c.st.View = action.ViewChat
	c.st.Panel = keymap.PanelCode
	c.st.Mode = keymap.Visual
	c.st.SelStart = c.st.CodeCursor
}

func (c *Controller) selectionToAI() command.Command {
	if c.st.Mode != keymap.Visual || c.st.File == nil {
		return nil
	}
	from, to := c.st.Selection()
	prompt := fmt.Sprintf("Explain this code from %s (lines %d-%d) with respect to EU AI Act compliance:\n```\n%s\n```",
		c.st.File.Path, from+1, to+1, c.st.SelectedText())
	c.st.Mode = keymap.Normal
	c.st.SelStart = c.st.CodeCursor
	return c.startChat(prompt)
}

func (c *Controller) yank() command.Command {
	if c.st.File == nil {
		return nil
	}
	text := ""
	if c.st.Mode == keymap.Visual {
		text = c.st.SelectedText()
		c.st.Mode = keymap.Normal
		c.st.SelStart = c.st.CodeCursor
	} else if c.st.CodeCursor < len(c.st.File.Lines) {
		text = c.st.File.Lines[c.st.CodeCursor]
	}
	if text == "" {
		return nil
	}
	return command.CopyToClipboard{Text: text}
}

func (c *Controller) acceptDiff() command.Command {
	d := c.st.PendingDiff
	if d == nil {
		c.setStatus("No previewed fix to apply")
		return nil
	}
	c.st.PendingDiff = nil
	c.st.ShowDiff = false
	c.setStatus("Applying fix to " + d.Path + "…")
	return command.EditFile{Path: d.Path, OldString: d.OldString, NewString: d.NewString}
}

func (c *Controller) rejectDiff() {
	if c.st.PendingDiff == nil {
		return
	}
	c.addTimeline("fix", "Rejected fix for "+c.st.PendingDiff.Path)
	c.st.PendingDiff = nil
	c.st.ShowDiff = false
	c.setStatus("Fix discarded")
}

// ─── Messages, status and timeline ────────────────────────────────────────────

func (c *Controller) system(text string) {
	c.st.Messages = append(c.st.Messages, session.NewMessage("system", text))
}

func (c *Controller) setStatus(text string) {
	c.st.Status = text
	c.st.StatusUntil = c.now().Add(statusTTL)
}

func (c *Controller) addTimeline(kind, text string) {
	c.st.Timeline = append(c.st.Timeline, TimelineEntry{At: c.now(), Kind: kind, Text: text})
}

func helpSections() []overlay.HelpSection {
	var out []overlay.HelpSection
	for _, s := range keymap.Sections() {
		out = append(out, overlay.HelpSection{Title: s.Title, Rows: s.Rows()})
	}
	return out
}
