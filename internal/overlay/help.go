package overlay

import "github.com/complior/complior-sub000/internal/action"

// HelpSection is one titled block of key/description rows.
type HelpSection struct {
	Title string
	Rows  [][2]string
}

// Help is the scrollable key reference.
type Help struct {
	Sections []HelpSection
	offset   int
	lines    int
}

func NewHelp(sections []HelpSection) *Help {
	n := 0
	for _, s := range sections {
		n += len(s.Rows) + 2
	}
	return &Help{Sections: sections, lines: n}
}

func (h *Help) Kind() Kind      { return KindHelp }
func (h *Help) TakesText() bool { return false }

// Offset is the first visible line.
func (h *Help) Offset() int { return h.offset }

func (h *Help) Handle(a action.Action) Result {
	switch a.(type) {
	case action.Cancel, action.Quit, action.ToggleHelp, action.Submit:
		return closed()
	case action.MoveDown:
		h.scroll(1)
	case action.MoveUp:
		h.scroll(-1)
	case action.PageDown:
		h.scroll(pageSize)
	case action.PageUp:
		h.scroll(-pageSize)
	case action.Top:
		h.offset = 0
	case action.Bottom:
		h.scroll(h.lines)
	}
	return Result{}
}

func (h *Help) scroll(d int) {
	h.offset = max(0, min(h.offset+d, h.lines-1))
}

// ─── Getting started ──────────────────────────────────────────────────────────

// Page is one screen of the getting-started tour.
type Page struct {
	Title string
	Body  string
}

// Tour is the getting-started content.
var Tour = []Page{
	{
		Title: "Welcome to Complior",
		Body: "Complior scans your project for EU AI Act obligations and helps you fix what it finds.\n" +
			"Press 1-6 to switch views, ? for every shortcut and ctrl+p for the command palette.",
	},
	{
		Title: "Scan",
		Body: "Press s on the dashboard or run :scan to check the project.\n" +
			"Findings show up in the Scan view. d dismisses one, f queues it for fixing, x asks the assistant to explain it.",
	},
	{
		Title: "Fix",
		Body: "In the Fix view, space selects findings and p previews the patch.\n" +
			"a applies the previewed diff, r rejects it. ctrl+z undoes the last applied change.",
	},
	{
		Title: "Chat",
		Body: "Press i to type. Plain text goes to the assistant, !cmd runs a shell command and /cmd runs a command.\n" +
			"In the code panel, v starts a selection; a sends it to the assistant, y copies it.",
	},
	{
		Title: "Stay current",
		Body: "ctrl+w watches the project and rescans on save. The Timeline keeps every scan and fix.\n" +
			"e in the Report view exports a markdown report.",
	},
}

// GettingStarted pages through Tour.
type GettingStarted struct {
	Pages []Page
	page  int
}

func NewGettingStarted(pages []Page) *GettingStarted {
	return &GettingStarted{Pages: pages}
}

func (g *GettingStarted) Kind() Kind      { return KindGettingStarted }
func (g *GettingStarted) TakesText() bool { return false }
func (g *GettingStarted) Page() int       { return g.page }

func (g *GettingStarted) Handle(a action.Action) Result {
	switch a.(type) {
	case action.Cancel, action.Quit:
		return closed()
	case action.MoveRight, action.MoveDown, action.Submit:
		if g.page >= len(g.Pages)-1 {
			if _, ok := a.(action.Submit); ok {
				return closed()
			}
			return Result{}
		}
		g.page++
	case action.MoveLeft, action.MoveUp:
		if g.page > 0 {
			g.page--
		}
	}
	return Result{}
}
