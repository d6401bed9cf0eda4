// Package keymap turns terminal input into actions. Map is pure: the same
// message, mode and panel always give the same action.
package keymap

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/complior/complior-sub000/internal/action"
)

// Mode selects the key table.
type Mode int

const (
	Normal Mode = iota
	Insert
	Command
	Visual
)

var modeNames = [...]string{"NORMAL", "INSERT", "COMMAND", "VISUAL"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "?"
}

// Panel is the focused pane of the chat view.
type Panel int

const (
	PanelChat Panel = iota
	PanelFiles
	PanelCode
	PanelTerminal
)

var panelNames = [...]string{"chat", "files", "code", "terminal"}

func (p Panel) String() string {
	if int(p) < len(panelNames) {
		return panelNames[p]
	}
	return "?"
}

// Binding pairs a bubbles key binding with the action it produces.
type Binding struct {
	key.Binding
	Action action.Action
}

func bind(a action.Action, desc string, keys ...string) Binding {
	return Binding{
		Binding: key.NewBinding(key.WithKeys(keys...), key.WithHelp(strings.Join(keys, "/"), desc)),
		Action:  a,
	}
}

// ─── Tables ───────────────────────────────────────────────────────────────────

var Global = []Binding{
	bind(action.Quit{}, "quit", "ctrl+c"),
	bind(action.ToggleTerminal{}, "toggle terminal", "ctrl+t"),
	bind(action.OpenCommandPalette{}, "command palette", "ctrl+p"),
	bind(action.OpenFilePicker{}, "open file", "ctrl+o"),
	bind(action.Undo{}, "undo last change", "ctrl+z"),
	bind(action.ToggleWatch{}, "watch mode", "ctrl+w"),
	bind(action.Reconnect{}, "reconnect engine", "ctrl+r"),
}

var NormalKeys = []Binding{
	bind(action.Quit{}, "quit", "q"),
	bind(action.EnterInsertMode{}, "insert mode", "i"),
	bind(action.EnterColonMode{}, "command line", ":"),
	bind(action.EnterVisualMode{}, "visual selection", "v"),
	bind(action.MoveDown{}, "down", "j", "down"),
	bind(action.MoveUp{}, "up", "k", "up"),
	bind(action.MoveLeft{}, "left", "h", "left"),
	bind(action.MoveRight{}, "right", "l", "right"),
	bind(action.Top{}, "top", "g"),
	bind(action.Bottom{}, "bottom", "G"),
	bind(action.PageDown{}, "page down", "ctrl+d", "pgdown"),
	bind(action.PageUp{}, "page up", "ctrl+u", "pgup"),
	bind(action.Home{}, "start", "home"),
	bind(action.End{}, "end", "end"),
	bind(action.NextPanel{}, "next panel", "tab"),
	bind(action.PrevPanel{}, "previous panel", "shift+tab"),
	bind(action.SwitchView{View: action.ViewDashboard}, "dashboard", "1"),
	bind(action.SwitchView{View: action.ViewScan}, "scan", "2"),
	bind(action.SwitchView{View: action.ViewFix}, "fix", "3"),
	bind(action.SwitchView{View: action.ViewChat}, "chat", "4"),
	bind(action.SwitchView{View: action.ViewTimeline}, "timeline", "5"),
	bind(action.SwitchView{View: action.ViewReport}, "report", "6"),
	bind(action.ToggleHelp{}, "help", "?"),
	bind(action.OpenModelSelector{}, "model", "M"),
	bind(action.OpenThemePicker{}, "theme", "T"),
	bind(action.OpenUndoHistory{}, "undo history", "U"),
	bind(action.OpenProviderSetup{}, "AI provider", "P"),
	bind(action.OpenOnboarding{}, "onboarding", "O"),
	bind(action.OpenGettingStarted{}, "getting started", "H"),
	bind(action.Submit{}, "select", "enter"),
	bind(action.Cancel{}, "cancel", "esc"),
}

// InsertKeys serve both Insert and Command mode.
var InsertKeys = []Binding{
	bind(action.Submit{}, "send", "enter"),
	bind(action.Cancel{}, "normal mode", "esc"),
	bind(action.DeleteBack{}, "delete back", "backspace", "ctrl+h"),
	bind(action.DeleteForward{}, "delete forward", "delete"),
	bind(action.MoveLeft{}, "left", "left"),
	bind(action.MoveRight{}, "right", "right"),
	bind(action.MoveUp{}, "older history", "up"),
	bind(action.MoveDown{}, "newer history", "down"),
	bind(action.Home{}, "line start", "home", "ctrl+a"),
	bind(action.End{}, "line end", "end", "ctrl+e"),
	bind(action.PageUp{}, "page up", "pgup"),
	bind(action.PageDown{}, "page down", "pgdown"),
}

var VisualKeys = []Binding{
	bind(action.MoveDown{}, "extend down", "j", "down"),
	bind(action.MoveUp{}, "extend up", "k", "up"),
	bind(action.YankSelection{}, "copy", "y"),
	bind(action.SelectionToAI{}, "ask AI", "a"),
	bind(action.Cancel{}, "cancel", "esc", "v"),
}

// CodeKeys override Normal keys while the code panel has focus.
var CodeKeys = []Binding{
	bind(action.YankSelection{}, "copy line", "y"),
}

// ViewKeys documents the per-view single keys. They reach the controller as
// ViewKey actions and are listed here only for help text.
var ViewKeys = map[action.View][]key.Binding{
	action.ViewDashboard: {
		key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "scan project")),
		key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "chat")),
	},
	action.ViewScan: {
		key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dismiss finding")),
		key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "queue fix")),
		key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "explain")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
		key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "what if")),
	},
	action.ViewFix: {
		key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "show diff")),
		key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "preview fix")),
		key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "apply")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reject")),
	},
	action.ViewTimeline: {
		key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo history")),
	},
	action.ViewReport: {
		key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
	},
}

type table map[string]action.Action

func index(bindings []Binding) table {
	t := table{}
	for _, b := range bindings {
		for _, k := range b.Keys() {
			t[k] = b.Action
		}
	}
	return t
}

var (
	globalTable = index(Global)
	normalTable = index(NormalKeys)
	insertTable = index(InsertKeys)
	visualTable = index(VisualKeys)
	codeTable   = index(CodeKeys)
)

// ─── Mapping ──────────────────────────────────────────────────────────────────

// Map converts one terminal message into an action. Anything unmapped is
// action.None. A key message carrying several runes (a paste) maps to None;
// the event loop splits pastes into single-rune messages first.
func Map(msg tea.Msg, mode Mode, panel Panel) action.Action {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return mapKey(msg, mode, panel)
	case tea.MouseMsg:
		return mapMouse(msg)
	case tea.WindowSizeMsg:
		return action.Resize{Width: msg.Width, Height: msg.Height}
	}
	return action.None{}
}

func mapKey(msg tea.KeyMsg, mode Mode, panel Panel) action.Action {
	k := msg.String()
	if a, ok := globalTable[k]; ok {
		return a
	}
	switch mode {
	case Insert, Command:
		if a, ok := insertTable[k]; ok {
			return a
		}
		if r, ok := printable(msg); ok {
			return action.InsertChar{Char: r}
		}
	case Visual:
		if a, ok := visualTable[k]; ok {
			return a
		}
	default:
		if panel == PanelCode {
			if a, ok := codeTable[k]; ok {
				return a
			}
		}
		if a, ok := normalTable[k]; ok {
			return a
		}
		if r, ok := printable(msg); ok {
			return action.ViewKey{Key: r}
		}
	}
	return action.None{}
}

// printable returns the single rune typed by msg, if it is one.
func printable(msg tea.KeyMsg) (rune, bool) {
	if msg.Alt {
		return 0, false
	}
	switch msg.Type {
	case tea.KeySpace:
		return ' ', true
	case tea.KeyRunes:
		if len(msg.Runes) == 1 {
			return msg.Runes[0], true
		}
	}
	return 0, false
}

func mapMouse(msg tea.MouseMsg) action.Action {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return action.ScrollWheel{Up: true, X: msg.X, Y: msg.Y}
	case tea.MouseButtonWheelDown:
		return action.ScrollWheel{Up: false, X: msg.X, Y: msg.Y}
	case tea.MouseButtonLeft:
		if msg.Action == tea.MouseActionPress {
			return action.Click{X: msg.X, Y: msg.Y}
		}
	}
	return action.None{}
}
