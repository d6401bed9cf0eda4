package overlay

// palette.go: command palette and file picker. Both are a text filter over
// a fixed list, ranked with sahilm/fuzzy; Enter picks the highlighted row.

import (
	"unicode/utf8"

	"github.com/sahilm/fuzzy"

	"github.com/complior/complior-sub000/internal/action"
	"github.com/complior/complior-sub000/internal/command"
)

// ─── Fuzzy list ───────────────────────────────────────────────────────────────

// Match is one visible row: the index into the source list and the matched
// character positions for highlighting.
type Match struct {
	Index   int
	Matched []int
}

type fuzzyList struct {
	source  []string
	filter  string
	matches []Match
	cur     cursor
}

func newFuzzyList(source []string) fuzzyList {
	l := fuzzyList{source: source}
	l.refilter()
	return l
}

func (l *fuzzyList) refilter() {
	l.matches = l.matches[:0]
	if l.filter == "" {
		for i := range l.source {
			l.matches = append(l.matches, Match{Index: i})
		}
	} else {
		for _, m := range fuzzy.Find(l.filter, l.source) {
			l.matches = append(l.matches, Match{Index: m.Index, Matched: m.MatchedIndexes})
		}
	}
	l.cur.pos = 0
	l.cur.setLen(len(l.matches))
}

// edit applies text-editing actions to the filter.
func (l *fuzzyList) edit(a action.Action) bool {
	switch a := a.(type) {
	case action.InsertChar:
		if !utf8.ValidRune(a.Char) {
			return true
		}
		l.filter += string(a.Char)
	case action.DeleteBack:
		if l.filter == "" {
			return true
		}
		_, size := utf8.DecodeLastRuneInString(l.filter)
		l.filter = l.filter[:len(l.filter)-size]
	default:
		return false
	}
	l.refilter()
	return true
}

// selected returns the source index under the cursor, or -1.
func (l *fuzzyList) selected() int {
	if len(l.matches) == 0 {
		return -1
	}
	return l.matches[l.cur.pos].Index
}

// ─── Command palette ──────────────────────────────────────────────────────────

// PaletteEntry is one command offered by the palette. Line is executed as a
// command line when picked.
type PaletteEntry struct {
	Title string
	Hint  string
	Line  string
}

// DefaultPalette lists the commands offered by the palette.
var DefaultPalette = []PaletteEntry{
	{Title: "Scan project", Hint: "s", Line: "scan"},
	{Title: "Go to dashboard", Hint: "1", Line: "dashboard"},
	{Title: "Go to scan results", Hint: "2", Line: "scan-view"},
	{Title: "Go to fixes", Hint: "3", Line: "fix"},
	{Title: "Go to chat", Hint: "4", Line: "chat-view"},
	{Title: "Go to timeline", Hint: "5", Line: "timeline"},
	{Title: "Go to report", Hint: "6", Line: "report"},
	{Title: "Switch theme", Hint: "T", Line: "theme"},
	{Title: "Select model", Hint: "M", Line: "model"},
	{Title: "Configure AI provider", Hint: "P", Line: "provider"},
	{Title: "Undo history", Hint: "U", Line: "history"},
	{Title: "Undo last change", Hint: "ctrl+z", Line: "undo"},
	{Title: "Toggle watch mode", Hint: "ctrl+w", Line: "watch"},
	{Title: "Reconnect engine", Hint: "ctrl+r", Line: "reconnect"},
	{Title: "Open file", Hint: "ctrl+o", Line: "files"},
	{Title: "Export report", Hint: "e", Line: "export"},
	{Title: "Run onboarding", Hint: "O", Line: "onboarding"},
	{Title: "Getting started", Line: "tips"},
	{Title: "Clear chat", Line: "clear"},
	{Title: "Keyboard shortcuts", Hint: "?", Line: "help"},
	{Title: "Quit", Hint: "q", Line: "quit"},
}

// CommandPalette filters DefaultPalette and hands the pick back to the
// controller as an Execute action.
type CommandPalette struct {
	entries []PaletteEntry
	list    fuzzyList
}

func NewCommandPalette(entries []PaletteEntry) *CommandPalette {
	titles := make([]string, len(entries))
	for i, e := range entries {
		titles[i] = e.Title
	}
	return &CommandPalette{entries: entries, list: newFuzzyList(titles)}
}

func (p *CommandPalette) Kind() Kind      { return KindCommandPalette }
func (p *CommandPalette) TakesText() bool { return true }

func (p *CommandPalette) Filter() string   { return p.list.filter }
func (p *CommandPalette) Cursor() int      { return p.list.cur.pos }
func (p *CommandPalette) Matches() []Match { return p.list.matches }

// Entry returns the palette entry at source index i.
func (p *CommandPalette) Entry(i int) PaletteEntry { return p.entries[i] }

func (p *CommandPalette) Handle(a action.Action) Result {
	if isDismiss(a) {
		return closed()
	}
	if p.list.edit(a) || p.list.cur.move(a) {
		return Result{}
	}
	if _, ok := a.(action.Submit); ok {
		i := p.list.selected()
		if i < 0 {
			return Result{}
		}
		return Result{Close: true, Then: action.Execute{Line: p.entries[i].Line}}
	}
	return Result{}
}

// ─── File picker ──────────────────────────────────────────────────────────────

// FilePicker fuzzy-filters the project file snapshot; Enter opens the file.
type FilePicker struct {
	list fuzzyList
}

func NewFilePicker(files []string) *FilePicker {
	return &FilePicker{list: newFuzzyList(files)}
}

func (p *FilePicker) Kind() Kind      { return KindFilePicker }
func (p *FilePicker) TakesText() bool { return true }

func (p *FilePicker) Filter() string    { return p.list.filter }
func (p *FilePicker) Cursor() int       { return p.list.cur.pos }
func (p *FilePicker) Matches() []Match  { return p.list.matches }
func (p *FilePicker) File(i int) string { return p.list.source[i] }

// SetFiles replaces the snapshot, keeping the typed filter.
func (p *FilePicker) SetFiles(files []string) {
	p.list.source = files
	p.list.refilter()
}

func (p *FilePicker) Handle(a action.Action) Result {
	if isDismiss(a) {
		return closed()
	}
	if p.list.edit(a) || p.list.cur.move(a) {
		return Result{}
	}
	if _, ok := a.(action.Submit); ok {
		i := p.list.selected()
		if i < 0 {
			return Result{}
		}
		return Result{Close: true, Cmd: command.OpenFile{Path: p.list.source[i]}}
	}
	return Result{}
}
