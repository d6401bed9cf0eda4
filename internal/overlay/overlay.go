// Package overlay holds the modal sub-state-machines that take over input
// while open: wizards, pickers, dialogs. Each overlay owns its state and is
// dropped on close; the controller keeps at most one.
package overlay

import (
	"github.com/complior/complior-sub000/internal/action"
	"github.com/complior/complior-sub000/internal/command"
)

// Kind identifies an overlay for rendering and tests.
type Kind int

const (
	KindCommandPalette Kind = iota + 1
	KindFilePicker
	KindHelp
	KindGettingStarted
	KindProviderSetup
	KindModelSelector
	KindThemePicker
	KindOnboarding
	KindConfirmDialog
	KindUndoHistory
	KindDismissModal
)

var kindNames = map[Kind]string{
	KindCommandPalette: "command palette",
	KindFilePicker:     "file picker",
	KindHelp:           "help",
	KindGettingStarted: "getting started",
	KindProviderSetup:  "provider setup",
	KindModelSelector:  "model selector",
	KindThemePicker:    "theme picker",
	KindOnboarding:     "onboarding",
	KindConfirmDialog:  "confirm",
	KindUndoHistory:    "undo history",
	KindDismissModal:   "dismiss finding",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "none"
}

// Result is what an overlay hands back after handling one action. At most
// one of Cmd and Then is set. Then is applied by the controller to its
// global table after the overlay has closed.
type Result struct {
	Cmd   command.Command
	Close bool
	Then  action.Action
}

// Overlay is one modal sub-state-machine.
type Overlay interface {
	Kind() Kind
	// TakesText reports whether keys should be mapped with the text-entry
	// table. It may change as the overlay moves between steps.
	TakesText() bool
	Handle(a action.Action) Result
}

func closed() Result                { return Result{Close: true} }
func emit(c command.Command) Result { return Result{Cmd: c} }

// isDismiss reports whether a is one of the keys that discards an overlay.
func isDismiss(a action.Action) bool {
	switch a.(type) {
	case action.Cancel, action.Quit:
		return true
	}
	return false
}

// Opens reports whether a opens an overlay. Such actions are not handled by
// the active overlay; the new overlay replaces it.
func Opens(a action.Action) bool {
	switch a.(type) {
	case action.OpenCommandPalette, action.OpenFilePicker, action.ToggleHelp,
		action.OpenModelSelector, action.OpenThemePicker, action.OpenUndoHistory,
		action.OpenProviderSetup, action.OpenOnboarding, action.OpenGettingStarted:
		return true
	}
	return false
}

// ─── List cursor ──────────────────────────────────────────────────────────────

// cursor is a clamped index into a list of n items.
type cursor struct {
	pos int
	n   int
}

func (c *cursor) setLen(n int) {
	c.n = n
	if c.pos >= n {
		c.pos = n - 1
	}
	if c.pos < 0 {
		c.pos = 0
	}
}

// move handles the list navigation actions and reports whether a was one.
func (c *cursor) move(a action.Action) bool {
	switch a.(type) {
	case action.MoveUp:
		if c.pos > 0 {
			c.pos--
		}
	case action.MoveDown:
		if c.pos < c.n-1 {
			c.pos++
		}
	case action.Top, action.Home:
		c.pos = 0
	case action.Bottom, action.End:
		if c.n > 0 {
			c.pos = c.n - 1
		}
	case action.PageUp:
		c.pos -= pageSize
		c.setLen(c.n)
	case action.PageDown:
		c.pos += pageSize
		c.setLen(c.n)
	default:
		return false
	}
	return true
}

const pageSize = 10
