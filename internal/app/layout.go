package app

import (
	"fmt"

	"github.com/mattn/go-runewidth"

	"github.com/complior/complior-sub000/internal/action"
)

// Layout constants shared by the renderer and mouse hit-testing.
const (
	headerRows     = 1
	footerRows     = 2 // input line + status bar
	terminalRows   = 8
	filesWidth     = 28
	minFilesScreen = 100
	defaultWidth   = 80
	defaultHeight  = 24
)

// Rect is a screen region in cells.
type Rect struct {
	X, Y, W, H int
}

func (r Rect) Contains(x, y int) bool {
	return r.W > 0 && r.H > 0 && x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Layout is the screen split for the current state.
type Layout struct {
	Tabs     []Rect // one per view, in action.Views() order
	Body     Rect
	Files    Rect // chat view only
	Chat     Rect // chat log, or the whole body outside the chat view
	Code     Rect // chat view with an open file
	Terminal Rect
	Input    Rect
	Status   Rect
}

// TabTitle is the label of a view's tab.
func TabTitle(v action.View) string {
	titles := map[action.View]string{
		action.ViewDashboard: "Dashboard",
		action.ViewScan:      "Scan",
		action.ViewFix:       "Fix",
		action.ViewChat:      "Chat",
		action.ViewTimeline:  "Timeline",
		action.ViewReport:    "Report",
	}
	return fmt.Sprintf(" %d %s ", int(v)+1, titles[v])
}

// Layout computes regions from the terminal size, view and toggles.
func (s *State) Layout() Layout {
	w, h := s.Width, s.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}

	var l Layout
	x := 0
	for _, v := range action.Views() {
		tw := runewidth.StringWidth(TabTitle(v))
		l.Tabs = append(l.Tabs, Rect{X: x, Y: 0, W: tw, H: 1})
		x += tw + 1
	}

	bodyH := h - headerRows - footerRows
	if s.ShowTerminal {
		bodyH -= terminalRows
		l.Terminal = Rect{X: 0, Y: headerRows + max(bodyH, 0), W: w, H: terminalRows}
	}
	bodyH = max(bodyH, 1)
	l.Body = Rect{X: 0, Y: headerRows, W: w, H: bodyH}
	l.Input = Rect{X: 0, Y: h - footerRows, W: w, H: 1}
	l.Status = Rect{X: 0, Y: h - 1, W: w, H: 1}

	l.Chat = l.Body
	if s.View != action.ViewChat {
		return l
	}
	if w >= minFilesScreen {
		l.Files = Rect{X: 0, Y: headerRows, W: filesWidth, H: bodyH}
		l.Chat.X = filesWidth
		l.Chat.W = w - filesWidth
	}
	if s.File != nil {
		codeW := l.Chat.W / 2
		l.Code = Rect{X: l.Chat.X + l.Chat.W - codeW, Y: headerRows, W: codeW, H: bodyH}
		l.Chat.W -= codeW
	}
	return l
}
