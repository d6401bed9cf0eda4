package app

import (
	"github.com/complior/complior-sub000/internal/engine"
	"github.com/complior/complior-sub000/internal/session"
	"github.com/complior/complior-sub000/internal/sse"
)

// Event is a result delivered to the controller from background work.
// Events arrive on the executor's channel and are applied one at a time.
type Event interface {
	event()
}

type (
	// StreamEvent is one parsed frame of a chat response.
	StreamEvent struct {
		RequestID string
		Event     sse.Event
	}
	// ChatFinished ends a chat request, with Err set if the stream broke.
	ChatFinished struct {
		RequestID string
		Err       error
	}
	ScanFinished struct {
		ScanID string
		Result *engine.ScanResult
		Err    error
	}
	FileOpened struct {
		Path    string
		Content string
		Err     error
	}
	CommandOutput struct {
		Cmd    string
		Output string
		Err    error
	}
	EditApplied struct {
		Path   string
		Output string
		Err    error
	}
	// EngineStatus reports a supervisor or health-check observation.
	EngineStatus struct {
		Conn    ConnStatus
		Process engine.Status
		Version string
		Err     error
	}
	UndoHistoryLoaded struct {
		Entries []engine.UndoEntry
		Err     error
	}
	UndoApplied struct {
		Output string
		Err    error
	}
	SuggestionsLoaded struct {
		Suggestions []string
		Err         error
	}
	WhatIfResult struct {
		Scenario string
		Text     string
		Err      error
	}
	FixDryRunResult struct {
		Diff *engine.DryRunDiff
		Err  error
	}
	FindingDismissed struct {
		ID     string
		Reason string
		Err    error
	}
	ProviderSaved struct {
		Provider string
		Model    string
		Err      error
	}
	ThemeSwitched struct {
		Name string
		Err  error
	}
	SessionSaved struct {
		Name string
		Err  error
	}
	SessionLoaded struct {
		Name string
		Data *session.Data
		Err  error
	}
	WatchToggled struct {
		Enabled bool
		Err     error
	}
	// FilesChanged is a debounced batch of project file changes.
	FilesChanged   struct{ Paths []string }
	FileTreeLoaded struct {
		Files []string
		Err   error
	}
	OnboardingSaved struct {
		Completed bool
		Err       error
	}
	ClipboardCopied struct {
		Chars int
		Err   error
	}
	ReportExported struct {
		Path string
		Err  error
	}
)

func (StreamEvent) event()       {}
func (ChatFinished) event()      {}
func (ScanFinished) event()      {}
func (FileOpened) event()        {}
func (CommandOutput) event()     {}
func (EditApplied) event()       {}
func (EngineStatus) event()      {}
func (UndoHistoryLoaded) event() {}
func (UndoApplied) event()       {}
func (SuggestionsLoaded) event() {}
func (WhatIfResult) event()      {}
func (FixDryRunResult) event()   {}
func (FindingDismissed) event()  {}
func (ProviderSaved) event()     {}
func (ThemeSwitched) event()     {}
func (SessionSaved) event()      {}
func (SessionLoaded) event()     {}
func (WatchToggled) event()      {}
func (FilesChanged) event()      {}
func (FileTreeLoaded) event()    {}
func (OnboardingSaved) event()   {}
func (ClipboardCopied) event()   {}
func (ReportExported) event()    {}
