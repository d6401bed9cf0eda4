package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/complior/complior-sub000/internal/action"
	"github.com/complior/complior-sub000/internal/command"
	"github.com/complior/complior-sub000/internal/engine"
	"github.com/complior/complior-sub000/internal/keymap"
	"github.com/complior/complior-sub000/internal/overlay"
	"github.com/complior/complior-sub000/internal/session"
	"github.com/complior/complior-sub000/internal/sse"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newController(t *testing.T, mutate ...func(*Options)) (*Controller, *testClock) {
	t.Helper()
	clk := &testClock{now: t0}
	opts := Options{
		Project:        "/proj",
		Themes:         []string{"dark", "light"},
		Theme:          "dark",
		Provider:       "openrouter",
		Model:          "anthropic/claude-sonnet-4",
		OnboardingDone: true,
		Now:            clk.Now,
	}
	for _, m := range mutate {
		m(&opts)
	}
	return New(opts), clk
}

func typeText(c *Controller, s string) {
	for _, r := range s {
		c.Apply(action.InsertChar{Char: r})
	}
}

func sampleScan() *engine.ScanResult {
	return &engine.ScanResult{
		Score:        62,
		FilesScanned: 4,
		Findings: []engine.Finding{
			{ID: "f1", CheckID: "art50-disclosure", Message: "No AI disclosure", Severity: "high", File: "app.go", Line: 12},
			{ID: "f2", CheckID: "logging", Message: "Missing audit log", Severity: "medium", File: "log.go"},
		},
	}
}

func TestStartupOpensOnboarding(t *testing.T) {
	c, _ := newController(t, func(o *Options) {
		o.OnboardingDone = false
		o.OnboardingStep = 2
	})
	ob, ok := c.State().Overlay.(*overlay.Onboarding)
	require.True(t, ok)
	require.Equal(t, 2, ob.StepIndex())

	done, _ := newController(t)
	require.Nil(t, done.State().Overlay)
}

func TestInsertTypingAndBackspace(t *testing.T) {
	c, _ := newController(t)
	require.Nil(t, c.Apply(action.EnterInsertMode{}))
	typeText(c, "hé")
	require.Equal(t, "hé", c.State().Input.Text())
	c.Apply(action.InsertChar{Char: '!'})
	c.Apply(action.DeleteBack{})
	require.Equal(t, "hé", c.State().Input.Text())
}

func TestTypingIgnoredInNormalMode(t *testing.T) {
	c, _ := newController(t)
	c.Apply(action.InsertChar{Char: 'x'})
	require.Empty(t, c.State().Input.Text())
}

func TestColonScan(t *testing.T) {
	c, _ := newController(t)
	c.Apply(action.EnterColonMode{})
	require.Equal(t, keymap.Command, c.State().Mode)
	typeText(c, "scan")

	cmd := c.Apply(action.Submit{})
	scan, ok := cmd.(command.Scan)
	require.True(t, ok, "got %T", cmd)
	require.Equal(t, "/proj", scan.Path)

	st := c.State()
	require.Equal(t, st.ScanID, scan.ID)
	require.True(t, st.Scanning)
	require.False(t, st.ColonMode)
	require.Equal(t, keymap.Normal, st.Mode)
	require.Empty(t, st.Cmdline.Text())
	require.Equal(t, []string{"scan"}, st.History.Entries())
}

func TestColonCancelClearsCommandLine(t *testing.T) {
	c, _ := newController(t)
	c.Apply(action.EnterColonMode{})
	typeText(c, "sca")
	c.Apply(action.Cancel{})
	st := c.State()
	require.False(t, st.ColonMode)
	require.Equal(t, keymap.Normal, st.Mode)
	require.Empty(t, st.Cmdline.Text())
}

func TestSubmitPrefixes(t *testing.T) {
	t.Run("bang runs a shell command", func(t *testing.T) {
		c, _ := newController(t)
		c.Apply(action.EnterInsertMode{})
		typeText(c, "!ls -la")
		require.Equal(t, command.RunCommand{Cmd: "ls -la"}, c.Apply(action.Submit{}))
		require.True(t, c.State().ShowTerminal)
		require.Equal(t, []string{"$ ls -la"}, c.State().Terminal)
	})
	t.Run("slash runs a command line", func(t *testing.T) {
		c, _ := newController(t)
		c.Apply(action.EnterInsertMode{})
		typeText(c, "/theme")
		require.Nil(t, c.Apply(action.Submit{}))
		_, ok := c.State().Overlay.(*overlay.ThemePicker)
		require.True(t, ok)
		require.Equal(t, keymap.Normal, c.State().EffectiveMode())
	})
	t.Run("plain text starts a chat", func(t *testing.T) {
		c, _ := newController(t)
		c.Apply(action.EnterInsertMode{})
		typeText(c, "  is my app high-risk?  ")
		cmd := c.Apply(action.Submit{})
		chat, ok := cmd.(command.Chat)
		require.True(t, ok, "got %T", cmd)
		require.Equal(t, "is my app high-risk?", chat.Text)
		st := c.State()
		require.Equal(t, st.RequestID, chat.RequestID)
		require.True(t, st.Streaming)
		require.Equal(t, action.ViewChat, st.View)
		require.Equal(t, "user", st.Messages[len(st.Messages)-1].Role)
	})
	t.Run("blank submit does nothing", func(t *testing.T) {
		c, _ := newController(t)
		c.Apply(action.EnterInsertMode{})
		typeText(c, "   ")
		require.Nil(t, c.Apply(action.Submit{}))
		require.Empty(t, c.State().History.Entries())
	})
}

func TestUnknownCommand(t *testing.T) {
	c, _ := newController(t)
	c.Apply(action.EnterColonMode{})
	typeText(c, "bogus arg")
	require.Nil(t, c.Apply(action.Submit{}))
	msgs := c.State().Messages
	require.NotEmpty(t, msgs)
	require.Equal(t, "system", msgs[len(msgs)-1].Role)
	require.Equal(t, "Unknown command: bogus", msgs[len(msgs)-1].Content)
}

func TestCommandLine(t *testing.T) {
	cases := []struct {
		line string
		want command.Command
	}{
		{"save audit", command.SaveSession{Name: "audit"}},
		{"load audit", command.LoadSession{Name: "audit"}},
		{"watch on", command.ToggleWatch{Enable: true}},
		{"watch", command.ToggleWatch{Enable: true}},
		{"undo u-3", command.Undo{ID: "u-3"}},
		{"undo", nil}, // asks first
		{"open main.go", command.OpenFile{Path: "main.go"}},
		{"theme light", command.SwitchTheme{Name: "light"}},
		{"theme neon", nil},
		{"whatif we ship in the EU", command.WhatIf{Scenario: "we ship in the EU"}},
		{"export", nil}, // no scan yet
		{"reconnect", command.Reconnect{}},
		{"history", command.FetchUndoHistory{}},
		{"files", command.ListFiles{Root: "/proj"}},
		{"chat", nil},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			c, _ := newController(t)
			got := c.execute(tc.line)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("execute(%q) mismatch (-want +got):\n%s", tc.line, diff)
			}
		})
	}
}

func TestQuit(t *testing.T) {
	c, _ := newController(t)
	c.Apply(action.Quit{})
	require.False(t, c.State().Running)

	c, _ = newController(t)
	c.execute("q")
	require.False(t, c.State().Running)
}

func TestQuitClosesOverlayFirst(t *testing.T) {
	c, _ := newController(t)
	c.Apply(action.ToggleHelp{})
	require.NotNil(t, c.State().Overlay)
	c.Apply(action.Quit{})
	require.Nil(t, c.State().Overlay)
	require.True(t, c.State().Running)
}

func TestPaletteExecutesPick(t *testing.T) {
	c, _ := newController(t)
	c.Apply(action.OpenCommandPalette{})
	require.Equal(t, keymap.Insert, c.State().EffectiveMode())

	cmd := c.Apply(action.Submit{})
	_, ok := cmd.(command.Scan)
	require.True(t, ok, "first palette entry scans, got %T", cmd)
	require.Nil(t, c.State().Overlay)
}

func TestPaletteOpensAnotherOverlay(t *testing.T) {
	c, _ := newController(t)
	c.Apply(action.OpenCommandPalette{})
	typeText(c, "switch theme")
	require.Nil(t, c.Apply(action.Submit{}))
	_, ok := c.State().Overlay.(*overlay.ThemePicker)
	require.True(t, ok, "palette replaced by %T", c.State().Overlay)
}

func TestOpeningOverlayReplacesCurrent(t *testing.T) {
	c, _ := newController(t)
	c.Apply(action.OpenThemePicker{})

	c.Apply(action.OpenCommandPalette{})
	_, ok := c.State().Overlay.(*overlay.CommandPalette)
	require.True(t, ok, "got %T", c.State().Overlay)

	cmd := c.Apply(action.OpenFilePicker{})
	_, ok = c.State().Overlay.(*overlay.FilePicker)
	require.True(t, ok, "got %T", c.State().Overlay)
	require.Equal(t, command.ListFiles{Root: "/proj"}, cmd)

	c.Apply(action.OpenModelSelector{})
	_, ok = c.State().Overlay.(*overlay.ModelSelector)
	require.True(t, ok, "got %T", c.State().Overlay)

	require.Equal(t, command.FetchUndoHistory{}, c.Apply(action.OpenUndoHistory{}))
	_, ok = c.State().Overlay.(*overlay.UndoHistory)
	require.True(t, ok, "got %T", c.State().Overlay)

	c.Apply(action.ToggleHelp{})
	_, ok = c.State().Overlay.(*overlay.Help)
	require.True(t, ok, "got %T", c.State().Overlay)

	// "?" again closes help rather than reopening it.
	c.Apply(action.ToggleHelp{})
	require.Nil(t, c.State().Overlay)
}

func TestTextOverlayKeepsLetters(t *testing.T) {
	c, _ := newController(t)
	c.Apply(action.OpenCommandPalette{})
	for _, r := range "MT?" {
		st := c.State()
		c.Apply(keymap.Map(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}, st.EffectiveMode(), st.Panel))
	}
	p, ok := c.State().Overlay.(*overlay.CommandPalette)
	require.True(t, ok, "got %T", c.State().Overlay)
	require.Equal(t, "MT?", p.Filter())
}

func TestThemePickerSwitches(t *testing.T) {
	c, _ := newController(t)
	c.Apply(action.OpenThemePicker{})
	c.Apply(action.MoveDown{})
	require.Equal(t, command.SwitchTheme{Name: "light"}, c.Apply(action.Submit{}))
	require.Nil(t, c.State().Overlay)

	c.HandleEvent(ThemeSwitched{Name: "light"})
	require.Equal(t, "light", c.State().Theme)
}

func TestProviderSavedReachesSetup(t *testing.T) {
	c, _ := newController(t)
	c.Apply(action.OpenProviderSetup{})
	c.Apply(action.Submit{}) // first provider: openrouter
	require.Equal(t, keymap.Insert, c.State().EffectiveMode())

	key := "sk-or-" + strings.Repeat("a", 30)
	typeText(c, key)
	cmd := c.Apply(action.Submit{})
	save, ok := cmd.(command.SaveProviderConfig)
	require.True(t, ok, "got %T", cmd)
	require.Equal(t, "openrouter", save.Provider)
	require.Equal(t, key, save.APIKey)

	c.HandleEvent(ProviderSaved{Provider: save.Provider, Model: save.Model})
	setup := c.State().Overlay.(*overlay.ProviderSetup)
	require.True(t, setup.Succeeded())
	require.Equal(t, "openrouter", c.State().Provider)
	require.Equal(t, save.Model, c.State().Model)
}

func TestStaleStreamIgnored(t *testing.T) {
	c, _ := newController(t)
	cmd := c.startChat("hello").(command.Chat)

	c.HandleEvent(StreamEvent{RequestID: "old", Event: sse.Token{Text: "nope"}})
	require.Empty(t, c.State().StreamText)

	c.HandleEvent(StreamEvent{RequestID: cmd.RequestID, Event: sse.Token{Text: "Hi "}})
	c.HandleEvent(StreamEvent{RequestID: cmd.RequestID, Event: sse.Thinking{Text: "hmm"}})
	c.HandleEvent(StreamEvent{RequestID: cmd.RequestID, Event: sse.ToolCall{Name: "scan", Args: "{}"}})
	c.HandleEvent(StreamEvent{RequestID: cmd.RequestID, Event: sse.Token{Text: "there"}})
	require.Equal(t, "Hi there", c.State().StreamText)
	require.Len(t, c.State().ToolLines, 1)

	c.HandleEvent(StreamEvent{RequestID: cmd.RequestID, Event: sse.Done{}})
	st := c.State()
	require.False(t, st.Streaming)
	last := st.Messages[len(st.Messages)-1]
	require.Equal(t, "assistant", last.Role)
	require.Equal(t, "Hi there", last.Content)
	require.Equal(t, "hmm", last.Thinking)

	// frames after Done are dropped even with the right ID
	n := len(st.Messages)
	c.HandleEvent(StreamEvent{RequestID: cmd.RequestID, Event: sse.Token{Text: "late"}})
	c.HandleEvent(ChatFinished{RequestID: cmd.RequestID})
	require.Empty(t, c.State().StreamText)
	require.Len(t, c.State().Messages, n)
}

func TestNewChatSupersedesStream(t *testing.T) {
	c, _ := newController(t)
	first := c.startChat("one").(command.Chat)
	c.HandleEvent(StreamEvent{RequestID: first.RequestID, Event: sse.Token{Text: "partial"}})
	second := c.startChat("two").(command.Chat)
	require.NotEqual(t, first.RequestID, second.RequestID)

	c.HandleEvent(StreamEvent{RequestID: first.RequestID, Event: sse.Token{Text: "stale"}})
	c.HandleEvent(ChatFinished{RequestID: first.RequestID, Err: errors.New("boom")})
	require.Empty(t, c.State().StreamText)
	require.True(t, c.State().Streaming)
}

func TestChatErrorReported(t *testing.T) {
	c, _ := newController(t)
	c.HandleEvent(EngineStatus{Conn: Connected})
	cmd := c.startChat("hi").(command.Chat)
	c.HandleEvent(ChatFinished{RequestID: cmd.RequestID, Err: errors.New("connection refused")})
	st := c.State()
	require.False(t, st.Streaming)
	require.Equal(t, Disconnected, st.Conn)
	require.Contains(t, st.Messages[len(st.Messages)-1].Content, "connection refused")

	// an HTTP status means the engine is reachable
	c.HandleEvent(EngineStatus{Conn: Connected})
	cmd = c.startChat("again").(command.Chat)
	c.HandleEvent(ChatFinished{RequestID: cmd.RequestID, Err: &engine.StatusError{Code: 500, Body: "oops"}})
	require.Equal(t, Connected, c.State().Conn)

	cmd = c.startChat("cancel me").(command.Chat)
	n := len(c.State().Messages)
	c.HandleEvent(ChatFinished{RequestID: cmd.RequestID, Err: context.Canceled})
	require.Len(t, c.State().Messages, n)
}

func TestStaleScanIgnored(t *testing.T) {
	c, _ := newController(t)
	scan := c.startScan("").(command.Scan)

	c.HandleEvent(ScanFinished{ScanID: "old", Result: sampleScan()})
	require.True(t, c.State().Scanning)
	require.Nil(t, c.State().LastScan)

	c.HandleEvent(ScanFinished{ScanID: scan.ID, Result: sampleScan()})
	st := c.State()
	require.False(t, st.Scanning)
	require.Len(t, st.Findings(), 2)
	require.Len(t, st.Timeline, 1)
	require.Equal(t, "scan", st.Timeline[0].Kind)
}

func TestFilesChangedDuringScanQueuesRescan(t *testing.T) {
	c, _ := newController(t, func(o *Options) { o.Watching = true })
	scan := c.startScan("").(command.Scan)

	require.Nil(t, c.HandleEvent(FilesChanged{Paths: []string{"a.go"}}))
	next := c.HandleEvent(ScanFinished{ScanID: scan.ID, Result: sampleScan()})
	rescan, ok := next.(command.Scan)
	require.True(t, ok, "got %T", next)
	require.NotEqual(t, scan.ID, rescan.ID)

	c.HandleEvent(ScanFinished{ScanID: rescan.ID, Result: sampleScan()})
	require.False(t, c.State().Scanning)

	_, ok = c.HandleEvent(FilesChanged{Paths: []string{"b.go"}}).(command.Scan)
	require.True(t, ok)
}

func TestFilesChangedIgnoredWhenNotWatching(t *testing.T) {
	c, _ := newController(t)
	require.Nil(t, c.HandleEvent(FilesChanged{Paths: []string{"a.go"}}))
}

func TestScanViewKeys(t *testing.T) {
	c, _ := newController(t)
	c.st.LastScan = sampleScan()
	c.Apply(action.SwitchView{View: action.ViewScan})

	c.Apply(action.ViewKey{Key: 'f'})
	require.Equal(t, []string{"f1"}, c.State().FixQueue)

	c.Apply(action.MoveDown{})
	c.Apply(action.ViewKey{Key: 'f'})
	c.Apply(action.ViewKey{Key: 'f'})
	require.Equal(t, []string{"f1"}, c.State().FixQueue)

	cmd := c.Apply(action.ViewKey{Key: 'x'})
	chat, ok := cmd.(command.Chat)
	require.True(t, ok)
	require.Contains(t, chat.Text, "logging")

	c.Apply(action.SwitchView{View: action.ViewScan})
	c.Apply(action.ViewKey{Key: 'd'})
	_, ok = c.State().Overlay.(*overlay.DismissModal)
	require.True(t, ok)
	cmd = c.Apply(action.Submit{})
	dismiss, ok := cmd.(command.DismissFinding)
	require.True(t, ok, "got %T", cmd)
	require.Equal(t, "f2", dismiss.ID)

	c.HandleEvent(FindingDismissed{ID: "f2", Reason: dismiss.Reason})
	require.Len(t, c.State().Findings(), 1)
}

func TestFixFlow(t *testing.T) {
	c, _ := newController(t)
	c.st.LastScan = sampleScan()
	c.st.FixQueue = []string{"f1", "f2"}
	c.Apply(action.SwitchView{View: action.ViewFix})

	require.Equal(t, command.FixDryRun{FindingIDs: []string{"f1"}}, c.Apply(action.ViewKey{Key: 'p'}))

	c.Apply(action.ViewKey{Key: ' '})
	c.Apply(action.MoveDown{})
	c.Apply(action.ViewKey{Key: ' '})
	require.Equal(t, command.FixDryRun{FindingIDs: []string{"f1", "f2"}}, c.Apply(action.ViewKey{Key: 'p'}))

	diff := &engine.DryRunDiff{Path: "app.go", OldString: "a", NewString: "b"}
	c.HandleEvent(FixDryRunResult{Diff: diff})
	require.True(t, c.State().ShowDiff)

	require.Equal(t, command.EditFile{Path: "app.go", OldString: "a", NewString: "b"}, c.Apply(action.AcceptDiff{}))
	require.Nil(t, c.State().PendingDiff)
	require.Nil(t, c.Apply(action.AcceptDiff{}))

	_, ok := c.HandleEvent(EditApplied{Path: "app.go"}).(command.Scan)
	require.True(t, ok, "an applied fix rescans")
}

func TestRejectDiff(t *testing.T) {
	c, _ := newController(t)
	c.HandleEvent(FixDryRunResult{Diff: &engine.DryRunDiff{Path: "x.go"}})
	c.Apply(action.RejectDiff{})
	require.Nil(t, c.State().PendingDiff)
	require.Equal(t, "fix", c.State().Timeline[0].Kind)
}

func TestVisualSelection(t *testing.T) {
	c, _ := newController(t)
	c.Apply(action.EnterVisualMode{})
	require.Equal(t, keymap.Normal, c.State().Mode, "no file open")

	c.HandleEvent(FileOpened{Path: "main.go", Content: "package main\n\nfunc main() {}\n"})
	st := c.State()
	require.Equal(t, keymap.PanelCode, st.Panel)
	require.Equal(t, action.ViewChat, st.View)

	c.Apply(action.YankSelection{})
	require.Equal(t, command.CopyToClipboard{Text: "package main"}, c.Apply(action.YankSelection{}))

	c.Apply(action.EnterVisualMode{})
	require.Equal(t, keymap.Visual, c.State().Mode)
	c.Apply(action.MoveDown{})
	c.Apply(action.MoveDown{})
	require.Equal(t, "package main\n\nfunc main() {}", c.State().SelectedText())

	cmd := c.Apply(action.SelectionToAI{})
	chat, ok := cmd.(command.Chat)
	require.True(t, ok, "got %T", cmd)
	require.Contains(t, chat.Text, "main.go (lines 1-3)")
	require.Equal(t, keymap.Normal, c.State().Mode)
}

func TestUndoConfirm(t *testing.T) {
	c, _ := newController(t)
	c.Apply(action.Undo{})
	_, ok := c.State().Overlay.(*overlay.ConfirmDialog)
	require.True(t, ok)
	require.Equal(t, command.Undo{}, c.Apply(action.ViewKey{Key: 'y'}))
	require.Nil(t, c.State().Overlay)

	_, ok = c.HandleEvent(UndoApplied{Output: "Reverted app.go"}).(command.Scan)
	require.True(t, ok)
	require.Equal(t, "undo", c.State().Timeline[0].Kind)
}

func TestPaletteUndoAsksFirst(t *testing.T) {
	c, _ := newController(t)
	c.Apply(action.OpenCommandPalette{})
	typeText(c, "undo last")
	require.Nil(t, c.Apply(action.Submit{}))
	_, ok := c.State().Overlay.(*overlay.ConfirmDialog)
	require.True(t, ok, "got %T", c.State().Overlay)

	require.Nil(t, c.Apply(action.ViewKey{Key: 'n'}))
	require.Nil(t, c.State().Overlay)
}

func TestUndoHistoryLoads(t *testing.T) {
	c, _ := newController(t)
	require.Equal(t, command.FetchUndoHistory{}, c.Apply(action.OpenUndoHistory{}))
	entries := []engine.UndoEntry{{ID: "u1", Description: "fix app.go", Timestamp: t0}}
	c.HandleEvent(UndoHistoryLoaded{Entries: entries})
	u := c.State().Overlay.(*overlay.UndoHistory)
	require.False(t, u.Loading)
	require.Equal(t, command.Undo{ID: "u1"}, c.Apply(action.Submit{}))
}

func TestFilePickerGetsTree(t *testing.T) {
	c, _ := newController(t)
	require.Equal(t, command.ListFiles{Root: "/proj"}, c.Apply(action.OpenFilePicker{}))
	c.HandleEvent(FileTreeLoaded{Files: []string{"b.go", "a.go"}})
	require.Equal(t, []string{"a.go", "b.go"}, c.State().Files)
	require.Equal(t, command.OpenFile{Path: "a.go"}, c.Apply(action.Submit{}))

	// a known tree is not listed again
	require.Nil(t, c.Apply(action.OpenFilePicker{}))
}

func TestHistoryNavigationInInsert(t *testing.T) {
	c, _ := newController(t, func(o *Options) { o.History = []string{"first", "second"} })
	c.Apply(action.EnterInsertMode{})
	typeText(c, "dra")
	c.Apply(action.MoveUp{})
	require.Equal(t, "second", c.State().Input.Text())
	c.Apply(action.MoveUp{})
	require.Equal(t, "first", c.State().Input.Text())
	c.Apply(action.MoveDown{})
	c.Apply(action.MoveDown{})
	require.Equal(t, "dra", c.State().Input.Text())
}

func TestIdleSuggestionsOncePerWindow(t *testing.T) {
	c, clk := newController(t, func(o *Options) { o.IdleAfter = 30 * time.Second })
	require.Nil(t, c.Tick(t0.Add(time.Minute)), "not connected yet")

	c.HandleEvent(EngineStatus{Conn: Connected})
	require.Nil(t, c.Tick(t0.Add(10*time.Second)))
	require.Equal(t, command.FetchSuggestions{}, c.Tick(t0.Add(31*time.Second)))
	require.Nil(t, c.Tick(t0.Add(32*time.Second)), "pending")

	c.HandleEvent(SuggestionsLoaded{Suggestions: []string{"Add a disclosure banner"}})
	require.Equal(t, []string{"Add a disclosure banner"}, c.State().Suggestions)
	require.Nil(t, c.Tick(t0.Add(2*time.Minute)), "already fired this window")

	clk.now = t0.Add(3 * time.Minute)
	c.Apply(action.MoveDown{})
	require.Nil(t, c.Tick(clk.now.Add(10*time.Second)))
	require.Equal(t, command.FetchSuggestions{}, c.Tick(clk.now.Add(30*time.Second)))
}

func TestHealthChecks(t *testing.T) {
	c, _ := newController(t, func(o *Options) { o.HealthEvery = 5 * time.Second })
	require.Nil(t, c.Tick(t0.Add(time.Second)))
	require.Nil(t, c.Tick(t0.Add(6*time.Second)), "no check before the startup status")

	c.HandleEvent(EngineStatus{Conn: Connected, Process: engine.StatusRunning, Version: "1.2.0"})
	require.Equal(t, "1.2.0", c.State().EngineVersion)
	require.Equal(t, command.HealthCheck{}, c.Tick(t0.Add(7*time.Second)))
	require.Nil(t, c.Tick(t0.Add(13*time.Second)), "previous check pending")

	c.HandleEvent(EngineStatus{Conn: Connected, Process: engine.StatusRunning})
	require.Equal(t, command.HealthCheck{}, c.Tick(t0.Add(14*time.Second)))

	c.HandleEvent(EngineStatus{Conn: Failed, Err: errors.New("restart budget exhausted")})
	require.Nil(t, c.Tick(t0.Add(time.Hour)))
	msgs := c.State().Messages
	require.Contains(t, msgs[len(msgs)-1].Content, "could not be restarted")
}

func TestStatusExpires(t *testing.T) {
	c, _ := newController(t)
	c.setStatus("hello")
	c.Tick(t0.Add(time.Second))
	require.Equal(t, "hello", c.State().Status)
	c.Tick(t0.Add(statusTTL + time.Second))
	require.Empty(t, c.State().Status)
}

func TestSessionLoaded(t *testing.T) {
	c, _ := newController(t)
	c.startChat("in flight")
	c.HandleEvent(SessionLoaded{Name: "audit", Data: nil})
	require.True(t, c.State().Streaming, "nil data is ignored")

	c.HandleEvent(SessionLoaded{Name: "audit", Data: sessionData()})
	st := c.State()
	require.False(t, st.Streaming)
	require.Empty(t, st.RequestID)
	require.Equal(t, action.ViewScan, st.View)
	require.Len(t, st.Messages, 1)
	require.NotNil(t, st.LastScan)
}

func TestPanelsAndTerminal(t *testing.T) {
	c, _ := newController(t)
	c.Apply(action.SwitchView{View: action.ViewChat})
	c.Apply(action.NextPanel{})
	require.Equal(t, keymap.PanelFiles, c.State().Panel)
	c.Apply(action.NextPanel{})
	require.Equal(t, keymap.PanelChat, c.State().Panel, "no code panel without a file")

	c.Apply(action.ToggleTerminal{})
	require.Equal(t, keymap.PanelTerminal, c.State().Panel)
	c.Apply(action.ToggleTerminal{})
	require.Equal(t, keymap.PanelChat, c.State().Panel)

	c.Apply(action.NextPanel{})
	c.Apply(action.SwitchView{View: action.ViewDashboard})
	require.Equal(t, keymap.PanelChat, c.State().Panel)
}

func TestClickSwitchesTab(t *testing.T) {
	c, _ := newController(t)
	c.Apply(action.Resize{Width: 120, Height: 40})
	tab := c.State().Layout().Tabs[2]
	c.Apply(action.Click{X: tab.X + 1, Y: tab.Y})
	require.Equal(t, action.ViewFix, c.State().View)

	in := c.State().Layout().Input
	c.Apply(action.Click{X: 3, Y: in.Y})
	require.Equal(t, keymap.Insert, c.State().Mode)
}

func TestResizeSkipsOverlay(t *testing.T) {
	c, _ := newController(t)
	c.Apply(action.ToggleHelp{})
	c.Apply(action.Resize{Width: 90, Height: 30})
	require.NotNil(t, c.State().Overlay)
	require.Equal(t, 90, c.State().Width)
}

func sessionData() *session.Data {
	return &session.Data{
		Name:     "audit",
		View:     "scan-view",
		Messages: []session.Message{session.NewMessage("user", "hi")},
		LastScan: sampleScan(),
	}
}

// Every action is safe in every broad state the UI can be in.
func TestAllActionsAllStates(t *testing.T) {
	setups := map[string]func(*Controller){
		"fresh": func(*Controller) {},
		"insert": func(c *Controller) {
			c.Apply(action.EnterInsertMode{})
			typeText(c, "hello")
		},
		"colon": func(c *Controller) {
			c.Apply(action.EnterColonMode{})
			typeText(c, "sc")
		},
		"scanned": func(c *Controller) {
			c.st.LastScan = sampleScan()
			c.st.FixQueue = []string{"f1"}
			c.Apply(action.SwitchView{View: action.ViewScan})
		},
		"visual": func(c *Controller) {
			c.HandleEvent(FileOpened{Path: "a.go", Content: "a\nb\nc"})
			c.Apply(action.EnterVisualMode{})
		},
		"streaming": func(c *Controller) {
			c.startChat("hi")
			c.Apply(action.ToggleTerminal{})
		},
		"palette": func(c *Controller) { c.Apply(action.OpenCommandPalette{}) },
		"onboarding": func(c *Controller) {
			c.Apply(action.OpenOnboarding{})
		},
	}
	for name, setup := range setups {
		for _, a := range action.All() {
			c, _ := newController(t)
			setup(c)
			require.NotPanics(t, func() { c.Apply(a) }, "%s: %T", name, a)
		}
	}
}

func TestEffectiveMode(t *testing.T) {
	c, _ := newController(t)
	c.Apply(action.EnterInsertMode{})
	require.Equal(t, keymap.Insert, c.State().EffectiveMode())
	c.Apply(action.Cancel{})
	c.Apply(action.ToggleHelp{})
	require.Equal(t, keymap.Normal, c.State().EffectiveMode())
	c.Apply(action.Cancel{})
	c.Apply(action.OpenFilePicker{})
	require.Equal(t, keymap.Insert, c.State().EffectiveMode())
}

func TestOnboardingCompletes(t *testing.T) {
	c, _ := newController(t, func(o *Options) { o.OnboardingDone = false })
	var last command.Command
	for i := 0; i < 20 && c.State().Overlay != nil; i++ {
		ob := c.State().Overlay.(*overlay.Onboarding)
		if ob.Steps[ob.StepIndex()].Kind == overlay.TextInput {
			last = c.Apply(action.MoveRight{}) // skip the key step
			continue
		}
		last = c.Apply(action.Submit{})
	}
	done, ok := last.(command.CompleteOnboarding)
	require.True(t, ok, "got %T", last)
	require.NotEmpty(t, done.Summary)
	require.True(t, c.State().OnboardingDone)
}
