package keymap

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"

	"github.com/complior/complior-sub000/internal/action"
)

// Section is one titled group of bindings for the help overlay.
type Section struct {
	Title    string
	Bindings []key.Binding
}

func keys(bs []Binding) []key.Binding {
	out := make([]key.Binding, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.Binding)
	}
	return out
}

// Sections lists every binding, grouped the way the help overlay shows them.
func Sections() []Section {
	out := []Section{
		{Title: "Global", Bindings: keys(Global)},
		{Title: "Normal mode", Bindings: keys(NormalKeys)},
		{Title: "Insert and command mode", Bindings: keys(InsertKeys)},
		{Title: "Visual mode", Bindings: keys(VisualKeys)},
		{Title: "Code panel", Bindings: keys(CodeKeys)},
	}
	for _, v := range action.Views() {
		if bs, ok := ViewKeys[v]; ok {
			out = append(out, Section{Title: "View: " + v.String(), Bindings: bs})
		}
	}
	return out
}

// Rows flattens a section into key/description pairs.
func (s Section) Rows() [][2]string {
	rows := make([][2]string, 0, len(s.Bindings))
	for _, b := range s.Bindings {
		h := b.Help()
		rows = append(rows, [2]string{h.Key, h.Desc})
	}
	return rows
}

// hints implements help.KeyMap for the status-bar hint line.
type hints struct {
	short []key.Binding
}

func (h hints) ShortHelp() []key.Binding  { return h.short }
func (h hints) FullHelp() [][]key.Binding { return [][]key.Binding{h.short} }

var _ help.KeyMap = hints{}

// Hints returns the few bindings worth showing in the footer for mode.
func Hints(mode Mode, view action.View) help.KeyMap {
	pick := func(bs []Binding, want ...string) []key.Binding {
		var out []key.Binding
		for _, w := range want {
			for _, b := range bs {
				if b.Help().Key == w {
					out = append(out, b.Binding)
					break
				}
			}
		}
		return out
	}
	switch mode {
	case Insert, Command:
		return hints{short: pick(InsertKeys, "enter", "esc", "up")}
	case Visual:
		return hints{short: keys(VisualKeys)}
	}
	short := pick(NormalKeys, "i", ":", "?", "q")
	short = append(short, ViewKeys[view]...)
	short = append(short, pick(Global, "ctrl+p")...)
	return hints{short: short}
}
