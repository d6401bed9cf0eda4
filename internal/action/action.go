// Package action defines the abstract user intents produced by the key
// mapper and consumed by the controller. Actions are plain values and are
// never mutated after construction.
package action

// Action is a sealed sum type; only this package can add variants.
type Action interface {
	action()
}

// View identifies one of the top-level screens. It lives here so that
// SwitchView can carry it without importing the controller.
type View int

const (
	ViewDashboard View = iota
	ViewScan
	ViewFix
	ViewChat
	ViewTimeline
	ViewReport
)

var viewNames = [...]string{"dashboard", "scan", "fix", "chat", "timeline", "report"}

func (v View) String() string {
	if int(v) < len(viewNames) {
		return viewNames[v]
	}
	return "unknown"
}

// Views lists every view in tab order.
func Views() []View {
	return []View{ViewDashboard, ViewScan, ViewFix, ViewChat, ViewTimeline, ViewReport}
}

type (
	None struct{}
	Quit struct{}

	// Text editing
	InsertChar    struct{ Char rune }
	DeleteBack    struct{}
	DeleteForward struct{}

	// Cursor / scrolling
	MoveUp    struct{}
	MoveDown  struct{}
	MoveLeft  struct{}
	MoveRight struct{}
	Home      struct{}
	End       struct{}
	PageUp    struct{}
	PageDown  struct{}
	Top       struct{}
	Bottom    struct{}

	// Modes
	EnterInsertMode struct{}
	EnterColonMode  struct{}
	EnterVisualMode struct{}
	Cancel          struct{}
	Submit          struct{}

	// Navigation
	NextPanel  struct{}
	PrevPanel  struct{}
	SwitchView struct{ View View }

	// Overlay triggers
	OpenCommandPalette struct{}
	OpenFilePicker     struct{}
	ToggleHelp         struct{}
	OpenModelSelector  struct{}
	OpenThemePicker    struct{}
	OpenUndoHistory    struct{}
	OpenProviderSetup  struct{}
	OpenOnboarding     struct{}
	OpenGettingStarted struct{}

	// ViewKey is a single printable key pressed in Normal mode that has no
	// global meaning; its effect depends on the active view.
	ViewKey struct{ Key rune }

	SelectionToAI  struct{}
	YankSelection  struct{}
	AcceptDiff     struct{}
	RejectDiff     struct{}
	ToggleTerminal struct{}
	ToggleWatch    struct{}
	Reconnect      struct{}
	Undo           struct{}

	// Execute runs a command line as if it had been typed after ':'.
	// The command palette hands it back as its follow-up action.
	Execute struct{ Line string }

	// Mouse and terminal
	Click       struct{ X, Y int }
	ScrollWheel struct {
		Up   bool
		X, Y int
	}
	Resize struct{ Width, Height int }
)

func (None) action()               {}
func (Quit) action()               {}
func (InsertChar) action()         {}
func (DeleteBack) action()         {}
func (DeleteForward) action()      {}
func (MoveUp) action()             {}
func (MoveDown) action()           {}
func (MoveLeft) action()           {}
func (MoveRight) action()          {}
func (Home) action()               {}
func (End) action()                {}
func (PageUp) action()             {}
func (PageDown) action()           {}
func (Top) action()                {}
func (Bottom) action()             {}
func (EnterInsertMode) action()    {}
func (EnterColonMode) action()     {}
func (EnterVisualMode) action()    {}
func (Cancel) action()             {}
func (Submit) action()             {}
func (NextPanel) action()          {}
func (PrevPanel) action()          {}
func (SwitchView) action()         {}
func (OpenCommandPalette) action() {}
func (OpenFilePicker) action()     {}
func (ToggleHelp) action()         {}
func (OpenModelSelector) action()  {}
func (OpenThemePicker) action()    {}
func (OpenUndoHistory) action()    {}
func (OpenProviderSetup) action()  {}
func (OpenOnboarding) action()     {}
func (OpenGettingStarted) action() {}
func (ViewKey) action()            {}
func (SelectionToAI) action()      {}
func (YankSelection) action()      {}
func (AcceptDiff) action()         {}
func (RejectDiff) action()         {}
func (ToggleTerminal) action()     {}
func (ToggleWatch) action()        {}
func (Reconnect) action()          {}
func (Undo) action()               {}
func (Execute) action()            {}
func (Click) action()              {}
func (ScrollWheel) action()        {}
func (Resize) action()             {}

// All returns one sample value of every variant. Tests use it to check
// properties that must hold for each kind of action.
func All() []Action {
	return []Action{
		None{}, Quit{},
		InsertChar{Char: 'a'}, InsertChar{Char: 'é'}, DeleteBack{}, DeleteForward{},
		MoveUp{}, MoveDown{}, MoveLeft{}, MoveRight{}, Home{}, End{},
		PageUp{}, PageDown{}, Top{}, Bottom{},
		EnterInsertMode{}, EnterColonMode{}, EnterVisualMode{}, Cancel{}, Submit{},
		NextPanel{}, PrevPanel{}, SwitchView{View: ViewScan},
		OpenCommandPalette{}, OpenFilePicker{}, ToggleHelp{}, OpenModelSelector{},
		OpenThemePicker{}, OpenUndoHistory{}, OpenProviderSetup{}, OpenOnboarding{},
		OpenGettingStarted{},
		ViewKey{Key: 's'}, ViewKey{Key: 'd'},
		SelectionToAI{}, YankSelection{}, AcceptDiff{}, RejectDiff{},
		ToggleTerminal{}, ToggleWatch{}, Reconnect{}, Undo{}, Execute{Line: "watch"},
		Click{X: 1, Y: 1}, ScrollWheel{Up: true}, ScrollWheel{}, Resize{Width: 120, Height: 40},
	}
}
