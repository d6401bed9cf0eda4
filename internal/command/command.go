// Package command defines the deferred work requests the controller hands
// to the executor. The controller never performs I/O itself.
package command

// Command is a sealed sum type of async work requests.
type Command interface {
	command()
}

type (
	// Scan asks the engine to scan Path. ID correlates the result.
	Scan struct {
		Path string
		ID   string
	}
	// Chat streams an assistant reply. RequestID correlates stream events.
	Chat struct {
		Text      string
		RequestID string
	}
	OpenFile    struct{ Path string }
	RunCommand  struct{ Cmd string }
	Reconnect   struct{}
	HealthCheck struct{}
	SwitchTheme struct{ Name string }
	SaveSession struct{ Name string }
	LoadSession struct{ Name string }
	ToggleWatch struct{ Enable bool }
	// Undo reverts the entry with ID, or the latest one when ID is empty.
	Undo             struct{ ID string }
	FetchUndoHistory struct{}
	FetchSuggestions struct{}
	WhatIf           struct{ Scenario string }
	FixDryRun        struct{ FindingIDs []string }
	EditFile         struct {
		Path      string
		OldString string
		NewString string
	}
	DismissFinding struct {
		ID     string
		Reason string
	}
	SaveProviderConfig struct {
		Provider string
		Model    string
		APIKey   string
	}
	CompleteOnboarding struct {
		Answers map[string][]string
		Summary string
	}
	SaveOnboardingPartial struct{ Step int }
	CopyToClipboard       struct{ Text string }
	ExportReport          struct{ Path string }

	// SelectModel changes the chat model without touching the stored key.
	SelectModel struct {
		Provider string
		Model    string
	}
	// ListFiles refreshes the project file-tree snapshot.
	ListFiles struct{ Root string }
)

func (Scan) command()                  {}
func (Chat) command()                  {}
func (OpenFile) command()              {}
func (RunCommand) command()            {}
func (Reconnect) command()             {}
func (HealthCheck) command()           {}
func (SwitchTheme) command()           {}
func (SaveSession) command()           {}
func (LoadSession) command()           {}
func (ToggleWatch) command()           {}
func (Undo) command()                  {}
func (FetchUndoHistory) command()      {}
func (FetchSuggestions) command()      {}
func (WhatIf) command()                {}
func (FixDryRun) command()             {}
func (EditFile) command()              {}
func (DismissFinding) command()        {}
func (SaveProviderConfig) command()    {}
func (CompleteOnboarding) command()    {}
func (SaveOnboardingPartial) command() {}
func (CopyToClipboard) command()       {}
func (ExportReport) command()          {}
func (SelectModel) command()           {}
func (ListFiles) command()             {}

// Name returns a stable short name for logging.
func Name(c Command) string {
	switch c.(type) {
	case Scan:
		return "scan"
	case Chat:
		return "chat"
	case OpenFile:
		return "open_file"
	case RunCommand:
		return "run_command"
	case Reconnect:
		return "reconnect"
	case HealthCheck:
		return "health_check"
	case SwitchTheme:
		return "switch_theme"
	case SaveSession:
		return "save_session"
	case LoadSession:
		return "load_session"
	case ToggleWatch:
		return "toggle_watch"
	case Undo:
		return "undo"
	case FetchUndoHistory:
		return "fetch_undo_history"
	case FetchSuggestions:
		return "fetch_suggestions"
	case WhatIf:
		return "what_if"
	case FixDryRun:
		return "fix_dry_run"
	case EditFile:
		return "edit_file"
	case DismissFinding:
		return "dismiss_finding"
	case SaveProviderConfig:
		return "save_provider_config"
	case CompleteOnboarding:
		return "complete_onboarding"
	case SaveOnboardingPartial:
		return "save_onboarding_partial"
	case CopyToClipboard:
		return "copy_to_clipboard"
	case ExportReport:
		return "export_report"
	case SelectModel:
		return "select_model"
	case ListFiles:
		return "list_files"
	case nil:
		return "none"
	default:
		return "unknown"
	}
}
