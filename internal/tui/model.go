// Package tui is the bubbletea front end: it turns terminal messages into
// controller actions, hands the resulting commands to the executor, feeds
// executor events back to the controller and renders the state.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/complior/complior-sub000/internal/app"
	"github.com/complior/complior-sub000/internal/command"
	"github.com/complior/complior-sub000/internal/keymap"
	"github.com/complior/complior-sub000/internal/theme"
)

// TickInterval drives animation, status expiry, idle suggestions and health
// checks.
const TickInterval = 200 * time.Millisecond

// Runner performs controller commands; *Executor is the real one.
type Runner interface {
	Run(cmd command.Command, st *app.State)
}

// ─── Messages ─────────────────────────────────────────────────────────────────

type eventMsg struct{ ev app.Event }

type tickMsg time.Time

// ─── Model ────────────────────────────────────────────────────────────────────

// Model is the bubbletea model. All controller access happens in Update and
// View, which bubbletea calls from one goroutine.
type Model struct {
	ctrl   *app.Controller
	runner Runner
	events <-chan app.Event
	themes *theme.Registry
	log    *zap.Logger

	md      *markdown
	spinner spinner.Spinner
	help    help.Model
	tick    time.Duration
}

// New builds the model. events may be nil when nothing reports back.
func New(ctrl *app.Controller, runner Runner, events <-chan app.Event, themes *theme.Registry, log *zap.Logger) Model {
	if log == nil {
		log = zap.NewNop()
	}
	if themes == nil {
		themes = theme.NewRegistry()
	}
	h := help.New()
	h.ShortSeparator = " · "
	return Model{
		ctrl:    ctrl,
		runner:  runner,
		events:  events,
		themes:  themes,
		log:     log.Named("tui"),
		md:      &markdown{},
		spinner: spinner.Dot,
		help:    h,
		tick:    TickInterval,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), tickAfter(m.tick))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case eventMsg:
		m.run(m.ctrl.HandleEvent(msg.ev))
		cmds = append(cmds, waitForEvent(m.events))

	case tickMsg:
		m.run(m.ctrl.Tick(time.Time(msg)))
		cmds = append(cmds, tickAfter(m.tick))

	case tea.KeyMsg:
		for _, k := range splitPaste(msg) {
			m.apply(k)
			if !m.ctrl.State().Running {
				break
			}
		}

	case tea.MouseMsg, tea.WindowSizeMsg:
		m.apply(msg)
	}

	if !m.ctrl.State().Running {
		return m, tea.Quit
	}
	return m, tea.Batch(cmds...)
}

// apply maps one terminal message through the key tables for the current
// mode and runs whatever command the controller returns.
func (m Model) apply(msg tea.Msg) {
	st := m.ctrl.State()
	a := keymap.Map(msg, st.EffectiveMode(), st.Panel)
	m.run(m.ctrl.Apply(a))
}

func (m Model) run(cmd command.Command) {
	if cmd == nil || m.runner == nil {
		return
	}
	m.runner.Run(cmd, m.ctrl.State())
}

// splitPaste turns a multi-rune key message (a paste, or keys that arrived
// in one read) into one message per rune. Line breaks become spaces since
// the prompt is a single line.
func splitPaste(msg tea.KeyMsg) []tea.KeyMsg {
	if msg.Type != tea.KeyRunes || len(msg.Runes) <= 1 {
		return []tea.KeyMsg{msg}
	}
	out := make([]tea.KeyMsg, 0, len(msg.Runes))
	for _, r := range msg.Runes {
		switch r {
		case '\r', '\n', '\t':
			r = ' '
		}
		out = append(out, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return out
}

// waitForEvent delivers the next executor event. It is re-armed after each
// one; a closed channel ends the loop.
func waitForEvent(ch <-chan app.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg{ev: ev}
	}
}

func tickAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}
