// Package app is the application controller: a state machine that turns
// actions and background events into state changes plus at most one command
// for the executor. Nothing in this package performs I/O on the hot path.
package app

import (
	"strings"
	"time"

	"github.com/complior/complior-sub000/internal/action"
	"github.com/complior/complior-sub000/internal/engine"
	"github.com/complior/complior-sub000/internal/keymap"
	"github.com/complior/complior-sub000/internal/overlay"
	"github.com/complior/complior-sub000/internal/session"
	"github.com/complior/complior-sub000/internal/sse"
)

// ConnStatus is the UI's view of the engine connection.
type ConnStatus int

const (
	Connecting ConnStatus = iota
	Connected
	Disconnected
	Reconnecting
	Failed
)

var connNames = [...]string{"connecting", "connected", "disconnected", "reconnecting", "failed"}

func (c ConnStatus) String() string {
	if int(c) < len(connNames) {
		return connNames[c]
	}
	return "unknown"
}

// OpenFile is the file shown in the code panel.
type OpenFile struct {
	Path  string
	Lines []string
}

// TimelineEntry records one notable event of the session.
type TimelineEntry struct {
	At   time.Time
	Kind string
	Text string
}

// State is everything the renderer needs. The controller owns it; the
// renderer only reads.
type State struct {
	Running   bool
	View      action.View
	Panel     keymap.Panel
	Mode      keymap.Mode
	ColonMode bool
	Overlay   overlay.Overlay
	Width     int
	Height    int

	Input   Input // chat prompt
	Cmdline Input // ':' command line
	History *History

	// Chat
	Messages       []session.Message
	Streaming      bool
	RequestID      string
	StreamText     string
	StreamThinking string
	ToolLines      []string
	Usage          sse.Usage
	ChatBack       int // lines scrolled up from the bottom
	AutoScroll     bool

	// Scan and fix
	Project       string
	Scanning      bool
	ScanID        string
	LastScan      *engine.ScanResult
	FindingCursor int
	FixQueue      []string
	FixSelected   map[string]bool
	FixCursor     int
	PendingDiff   *engine.DryRunDiff
	ShowDiff      bool

	// Files and code
	Files      []string
	FileCursor int
	File       *OpenFile
	CodeCursor int
	SelStart   int

	// Terminal
	ShowTerminal bool
	Terminal     []string
	TermBack     int

	Timeline       []TimelineEntry
	TimelineScroll int
	ReportScroll   int
	UndoHistory    []engine.UndoEntry

	Suggestions       []string
	SuggestionCursor  int
	SuggestionPending bool

	Conn          ConnStatus
	Process       engine.Status
	EngineVersion string
	Watching      bool

	Theme          string
	Provider       string
	Model          string
	OnboardingDone bool
	OnboardingStep int

	Status      string
	StatusUntil time.Time
	Frame       int
	LastInput   time.Time
}

// Editing reports whether keys go to a text buffer.
func (s *State) Editing() bool {
	return s.Mode == keymap.Insert || s.Mode == keymap.Command
}

// ActiveInput is the buffer receiving text in the current mode.
func (s *State) ActiveInput() *Input {
	if s.ColonMode {
		return &s.Cmdline
	}
	return &s.Input
}

// EffectiveMode is the key table to use: text-taking overlays get Insert.
func (s *State) EffectiveMode() keymap.Mode {
	if s.Overlay != nil {
		if s.Overlay.TakesText() {
			return keymap.Insert
		}
		return keymap.Normal
	}
	return s.Mode
}

// Findings returns the last scan's findings, or nil.
func (s *State) Findings() []engine.Finding {
	if s.LastScan == nil {
		return nil
	}
	return s.LastScan.Findings
}

// SelectedFinding is the finding under the Scan view cursor.
func (s *State) SelectedFinding() *engine.Finding {
	fs := s.Findings()
	if s.FindingCursor < 0 || s.FindingCursor >= len(fs) {
		return nil
	}
	return &fs[s.FindingCursor]
}

// FixItems are the queued findings still present in the last scan, in
// queue order.
func (s *State) FixItems() []engine.Finding {
	byID := make(map[string]engine.Finding)
	for _, f := range s.Findings() {
		byID[f.ID] = f
	}
	out := make([]engine.Finding, 0, len(s.FixQueue))
	for _, id := range s.FixQueue {
		if f, ok := byID[id]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Selection returns the visual selection as an inclusive line range.
func (s *State) Selection() (from, to int) {
	from, to = s.SelStart, s.CodeCursor
	if from > to {
		from, to = to, from
	}
	return from, to
}

// SelectedText joins the selected code lines.
func (s *State) SelectedText() string {
	if s.File == nil || len(s.File.Lines) == 0 {
		return ""
	}
	from, to := s.Selection()
	from = clamp(from, 0, len(s.File.Lines)-1)
	to = clamp(to, 0, len(s.File.Lines)-1)
	return strings.Join(s.File.Lines[from:to+1], "\n")
}

// chatLines estimates the rendered height of the message log.
func (s *State) chatLines() int {
	n := 0
	for _, m := range s.Messages {
		n += strings.Count(m.Content, "\n") + 2
	}
	if s.Streaming {
		n += strings.Count(s.StreamText, "\n") + 2
	}
	return n
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}
