package overlay

// dialog.go: small list dialogs: confirm, dismiss reason, undo history,
// theme and model pickers.

import (
	"time"

	"github.com/complior/complior-sub000/internal/action"
	"github.com/complior/complior-sub000/internal/command"
	"github.com/complior/complior-sub000/internal/engine"
)

// ─── Confirm ──────────────────────────────────────────────────────────────────

// ConfirmDialog holds a command until the user accepts or declines it.
type ConfirmDialog struct {
	Title   string
	Message string
	Pending command.Command
}

func NewConfirm(title, message string, pending command.Command) *ConfirmDialog {
	return &ConfirmDialog{Title: title, Message: message, Pending: pending}
}

func (d *ConfirmDialog) Kind() Kind      { return KindConfirmDialog }
func (d *ConfirmDialog) TakesText() bool { return false }

func (d *ConfirmDialog) Handle(a action.Action) Result {
	switch a := a.(type) {
	case action.Submit:
		return Result{Close: true, Cmd: d.Pending}
	case action.ViewKey:
		switch a.Key {
		case 'y', 'Y':
			return Result{Close: true, Cmd: d.Pending}
		case 'n', 'N':
			return closed()
		}
	case action.Cancel, action.Quit:
		return closed()
	}
	return Result{}
}

// ─── Dismiss finding ──────────────────────────────────────────────────────────

// DismissReasons are the reasons offered when dismissing a finding.
var DismissReasons = []string{
	"False positive",
	"Accepted risk",
	"Not applicable to this system",
	"Handled outside the codebase",
	"Will fix later",
}

// DismissModal asks why a finding is being dismissed.
type DismissModal struct {
	Finding engine.Finding
	Reasons []string
	cur     cursor
}

func NewDismissModal(f engine.Finding) *DismissModal {
	d := &DismissModal{Finding: f, Reasons: DismissReasons}
	d.cur.setLen(len(d.Reasons))
	return d
}

func (d *DismissModal) Kind() Kind      { return KindDismissModal }
func (d *DismissModal) TakesText() bool { return false }
func (d *DismissModal) Cursor() int     { return d.cur.pos }

func (d *DismissModal) Handle(a action.Action) Result {
	if isDismiss(a) {
		return closed()
	}
	if d.cur.move(a) {
		return Result{}
	}
	if _, ok := a.(action.Submit); ok {
		return Result{Close: true, Cmd: command.DismissFinding{ID: d.Finding.ID, Reason: d.Reasons[d.cur.pos]}}
	}
	return Result{}
}

// ─── Undo history ─────────────────────────────────────────────────────────────

// UndoHistory lists engine-side undo entries, newest first. It opens empty
// and is filled when the history arrives.
type UndoHistory struct {
	Entries []engine.UndoEntry
	Loading bool
	Err     string
	cur     cursor
}

func NewUndoHistory() *UndoHistory {
	return &UndoHistory{Loading: true}
}

func (u *UndoHistory) Kind() Kind      { return KindUndoHistory }
func (u *UndoHistory) TakesText() bool { return false }
func (u *UndoHistory) Cursor() int     { return u.cur.pos }

// SetEntries fills the list with a fetched history.
func (u *UndoHistory) SetEntries(entries []engine.UndoEntry, err error) {
	u.Loading = false
	if err != nil {
		u.Err = err.Error()
		return
	}
	u.Err = ""
	u.Entries = entries
	u.cur.setLen(len(entries))
}

func (u *UndoHistory) Handle(a action.Action) Result {
	if isDismiss(a) {
		return closed()
	}
	if u.cur.move(a) {
		return Result{}
	}
	if _, ok := a.(action.Submit); ok {
		if len(u.Entries) == 0 {
			return Result{}
		}
		return Result{Close: true, Cmd: command.Undo{ID: u.Entries[u.cur.pos].ID}}
	}
	return Result{}
}

// Age formats how long ago an entry was recorded.
func Age(now, t time.Time) string {
	d := now.Sub(t).Round(time.Second)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return d.Truncate(time.Minute).String()
	default:
		return t.Format("Jan 2 15:04")
	}
}

// ─── Theme picker ─────────────────────────────────────────────────────────────

// ThemePicker previews themes as the cursor moves. Enter commits the
// highlighted theme, Escape leaves the active one in place.
type ThemePicker struct {
	Names    []string
	Original string
	cur      cursor
}

func NewThemePicker(names []string, current string) *ThemePicker {
	t := &ThemePicker{Names: names, Original: current}
	t.cur.setLen(len(names))
	for i, n := range names {
		if n == current {
			t.cur.pos = i
			break
		}
	}
	return t
}

func (t *ThemePicker) Kind() Kind      { return KindThemePicker }
func (t *ThemePicker) TakesText() bool { return false }
func (t *ThemePicker) Cursor() int     { return t.cur.pos }

// Preview is the theme the renderer should use while the picker is open.
func (t *ThemePicker) Preview() string {
	if len(t.Names) == 0 {
		return t.Original
	}
	return t.Names[t.cur.pos]
}

func (t *ThemePicker) Handle(a action.Action) Result {
	if isDismiss(a) {
		return closed()
	}
	if t.cur.move(a) {
		return Result{}
	}
	if _, ok := a.(action.Submit); ok {
		if t.Preview() == t.Original {
			return closed()
		}
		return Result{Close: true, Cmd: command.SwitchTheme{Name: t.Preview()}}
	}
	return Result{}
}

// ─── Model selector ───────────────────────────────────────────────────────────

// ModelInfo is one entry of the model catalog.
type ModelInfo struct {
	Provider string
	ID       string
	Name     string
	Context  int
}

// Catalog is the fixed list of selectable chat models.
var Catalog = []ModelInfo{
	{Provider: "openrouter", ID: "anthropic/claude-sonnet-4", Name: "Claude Sonnet 4 (OpenRouter)", Context: 200_000},
	{Provider: "openrouter", ID: "openai/gpt-4o", Name: "GPT-4o (OpenRouter)", Context: 128_000},
	{Provider: "openrouter", ID: "google/gemini-2.5-pro", Name: "Gemini 2.5 Pro (OpenRouter)", Context: 1_000_000},
	{Provider: "openrouter", ID: "meta-llama/llama-3.3-70b-instruct", Name: "Llama 3.3 70B (OpenRouter)", Context: 131_072},
	{Provider: "anthropic", ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", Context: 200_000},
	{Provider: "anthropic", ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", Context: 200_000},
	{Provider: "openai", ID: "gpt-4o", Name: "GPT-4o", Context: 128_000},
	{Provider: "openai", ID: "gpt-4o-mini", Name: "GPT-4o mini", Context: 128_000},
	{Provider: "openai", ID: "o3-mini", Name: "o3-mini", Context: 200_000},
}

// ModelSelector picks a model from Catalog, the active provider's models
// listed first.
type ModelSelector struct {
	Models  []ModelInfo
	Current string
	cur     cursor
}

func NewModelSelector(catalog []ModelInfo, provider, current string) *ModelSelector {
	models := make([]ModelInfo, 0, len(catalog))
	for _, m := range catalog {
		if m.Provider == provider {
			models = append(models, m)
		}
	}
	for _, m := range catalog {
		if m.Provider != provider {
			models = append(models, m)
		}
	}
	s := &ModelSelector{Models: models, Current: current}
	s.cur.setLen(len(models))
	for i, m := range models {
		if m.ID == current && m.Provider == provider {
			s.cur.pos = i
			break
		}
	}
	return s
}

func (s *ModelSelector) Kind() Kind      { return KindModelSelector }
func (s *ModelSelector) TakesText() bool { return false }
func (s *ModelSelector) Cursor() int     { return s.cur.pos }

func (s *ModelSelector) Handle(a action.Action) Result {
	if isDismiss(a) {
		return closed()
	}
	if s.cur.move(a) {
		return Result{}
	}
	if _, ok := a.(action.Submit); ok && len(s.Models) > 0 {
		m := s.Models[s.cur.pos]
		return Result{Close: true, Cmd: command.SelectModel{Provider: m.Provider, Model: m.ID}}
	}
	return Result{}
}
