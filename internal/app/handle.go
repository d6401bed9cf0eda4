package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/complior/complior-sub000/internal/action"
	"github.com/complior/complior-sub000/internal/command"
	"github.com/complior/complior-sub000/internal/engine"
	"github.com/complior/complior-sub000/internal/keymap"
	"github.com/complior/complior-sub000/internal/overlay"
	"github.com/complior/complior-sub000/internal/session"
	"github.com/complior/complior-sub000/internal/sse"
)

// ─── Background events ────────────────────────────────────────────────────────

// HandleEvent applies one background result. Results carrying a chat or
// scan correlation ID that is no longer current are dropped.
func (c *Controller) HandleEvent(ev Event) command.Command {
	switch ev := ev.(type) {
	case StreamEvent:
		if ev.RequestID != c.st.RequestID || !c.st.Streaming {
			return nil
		}
		c.applyStream(ev.Event)

	case ChatFinished:
		if ev.RequestID != c.st.RequestID {
			return nil
		}
		if c.st.Streaming {
			c.finishStream()
		}
		if ev.Err != nil && !errors.Is(ev.Err, context.Canceled) {
			c.system("Chat failed: " + ev.Err.Error())
			c.noteConnError(ev.Err)
		}

	case ScanFinished:
		if ev.ScanID != c.st.ScanID {
			return nil
		}
		return c.scanFinished(ev)

	case FileOpened:
		if ev.Err != nil {
			c.setStatus("Cannot open " + ev.Path + ": " + ev.Err.Error())
			return nil
		}
		c.st.File = &OpenFile{Path: ev.Path, Lines: strings.Split(ev.Content, "\n")}
		c.st.CodeCursor, c.st.SelStart = 0, 0
		c.switchView(action.ViewChat)
		c.st.Panel = keymap.PanelCode

	case CommandOutput:
		out := strings.TrimRight(ev.Output, "\n")
		if out != "" {
			c.st.Terminal = append(c.st.Terminal, strings.Split(out, "\n")...)
		}
		if ev.Err != nil {
			c.st.Terminal = append(c.st.Terminal, "error: "+ev.Err.Error())
		}
		c.st.ShowTerminal = true

	case EditApplied:
		if ev.Err != nil {
			c.system(fmt.Sprintf("Could not apply fix to %s: %v", ev.Path, ev.Err))
			return nil
		}
		c.addTimeline("fix", "Applied fix to "+ev.Path)
		c.setStatus("Fix applied. Rescanning…")
		return c.startScan(c.st.Project)

	case EngineStatus:
		c.engineStatus(ev)

	case UndoHistoryLoaded:
		if ev.Err == nil {
			c.st.UndoHistory = ev.Entries
		}
		if u, ok := c.st.Overlay.(*overlay.UndoHistory); ok {
			u.SetEntries(ev.Entries, ev.Err)
		}

	case UndoApplied:
		if ev.Err != nil {
			c.system("Undo failed: " + ev.Err.Error())
			return nil
		}
		text := strings.TrimSpace(ev.Output)
		if text == "" {
			text = "Reverted last change"
		}
		c.addTimeline("undo", text)
		c.setStatus(text)
		return c.startScan(c.st.Project)

	case SuggestionsLoaded:
		// a failed fetch is retried only after the next idle window
		c.st.SuggestionPending = false
		if ev.Err == nil {
			c.st.Suggestions = ev.Suggestions
			c.st.SuggestionCursor = clamp(c.st.SuggestionCursor, 0, len(ev.Suggestions)-1)
		}

	case WhatIfResult:
		if ev.Err != nil {
			c.system("What-if failed: " + ev.Err.Error())
			return nil
		}
		c.st.Messages = append(c.st.Messages, session.NewMessage("assistant", ev.Text))

	case FixDryRunResult:
		if ev.Err != nil {
			c.system("Fix preview failed: " + ev.Err.Error())
			return nil
		}
		c.st.PendingDiff = ev.Diff
		c.st.ShowDiff = true
		c.switchView(action.ViewFix)
		c.setStatus("Preview ready: a applies, r rejects")

	case FindingDismissed:
		if ev.Err != nil {
			c.system("Dismiss failed: " + ev.Err.Error())
			return nil
		}
		c.removeFinding(ev.ID)
		c.addTimeline("dismiss", fmt.Sprintf("Dismissed %s: %s", ev.ID, ev.Reason))

	case ProviderSaved:
		switch o := c.st.Overlay.(type) {
		case *overlay.ProviderSetup:
			o.ProviderSaved(ev.Err)
		case *overlay.Onboarding:
			o.ProviderSaved(ev.Err)
		}
		if ev.Err != nil {
			c.setStatus("Provider not saved: " + ev.Err.Error())
			return nil
		}
		c.st.Provider = ev.Provider
		if ev.Model != "" {
			c.st.Model = ev.Model
		}
		c.setStatus("Using " + ev.Provider + " " + c.st.Model)

	case ThemeSwitched:
		if ev.Err != nil {
			c.setStatus("Theme: " + ev.Err.Error())
			return nil
		}
		c.st.Theme = ev.Name

	case SessionSaved:
		if ev.Err != nil {
			c.system("Save failed: " + ev.Err.Error())
			return nil
		}
		c.addTimeline("session", "Saved session "+ev.Name)
		c.setStatus("Saved session " + ev.Name)

	case SessionLoaded:
		if ev.Err != nil {
			c.system("Load failed: " + ev.Err.Error())
			return nil
		}
		c.loadSession(ev.Name, ev.Data)

	case WatchToggled:
		if ev.Err != nil {
			c.system("Watch mode: " + ev.Err.Error())
			return nil
		}
		c.st.Watching = ev.Enabled
		if ev.Enabled {
			c.setStatus("Watching project for changes")
		} else {
			c.setStatus("Watch mode off")
		}

	case FilesChanged:
		if !c.st.Watching || len(ev.Paths) == 0 {
			return nil
		}
		c.setStatus(fmt.Sprintf("%d file(s) changed", len(ev.Paths)))
		if c.st.Scanning {
			c.rescanPending = true
			return nil
		}
		return c.startScan(c.st.Project)

	case FileTreeLoaded:
		if ev.Err != nil {
			c.setStatus("File list: " + ev.Err.Error())
			return nil
		}
		files := append([]string{}, ev.Files...)
		sort.Strings(files)
		c.st.Files = files
		c.st.FileCursor = clamp(c.st.FileCursor, 0, len(files)-1)
		if p, ok := c.st.Overlay.(*overlay.FilePicker); ok {
			p.SetFiles(files)
		}

	case OnboardingSaved:
		if ev.Err != nil {
			c.setStatus("Onboarding not saved: " + ev.Err.Error())
		}

	case ClipboardCopied:
		if ev.Err != nil {
			c.setStatus("Copy failed: " + ev.Err.Error())
		} else {
			c.setStatus(fmt.Sprintf("Copied %d characters", ev.Chars))
		}

	case ReportExported:
		if ev.Err != nil {
			c.system("Export failed: " + ev.Err.Error())
			return nil
		}
		c.addTimeline("report", "Exported report to "+ev.Path)
		c.setStatus("Report written to " + ev.Path)
	}
	return nil
}

func (c *Controller) scanFinished(ev ScanFinished) command.Command {
	c.st.Scanning = false
	if ev.Err != nil {
		c.system("Scan failed: " + ev.Err.Error())
		c.noteConnError(ev.Err)
		c.setStatus("Scan failed")
	} else if ev.Result != nil {
		c.st.LastScan = ev.Result
		c.st.FindingCursor = clamp(c.st.FindingCursor, 0, len(ev.Result.Findings)-1)
		c.st.FixCursor = clamp(c.st.FixCursor, 0, len(c.st.FixItems())-1)
		c.addTimeline("scan", fmt.Sprintf("Score %.0f, %d finding(s) in %d file(s)",
			ev.Result.Score, len(ev.Result.Findings), ev.Result.FilesScanned))
		c.setStatus(fmt.Sprintf("Scan complete: score %.0f", ev.Result.Score))
	}
	if c.rescanPending {
		return c.startScan(c.st.Project)
	}
	return nil
}

func (c *Controller) removeFinding(id string) {
	if c.st.LastScan == nil {
		return
	}
	res := *c.st.LastScan
	res.Findings = nil
	for _, f := range c.st.LastScan.Findings {
		if f.ID != id {
			res.Findings = append(res.Findings, f)
		}
	}
	c.st.LastScan = &res
	c.st.FindingCursor = clamp(c.st.FindingCursor, 0, len(res.Findings)-1)
	delete(c.st.FixSelected, id)
}

func (c *Controller) loadSession(name string, d *session.Data) {
	if d == nil {
		return
	}
	c.resetStream()
	c.st.RequestID = ""
	c.st.Messages = d.Messages
	if d.LastScan != nil {
		c.st.LastScan = d.LastScan
		c.st.FindingCursor = 0
	}
	if v, ok := parseView(d.View); ok {
		c.switchView(v)
	}
	c.st.ChatBack = 0
	c.st.AutoScroll = true
	c.addTimeline("session", "Loaded session "+name)
	c.setStatus(fmt.Sprintf("Loaded session %s (%d messages)", name, len(d.Messages)))
}

// noteConnError marks the engine unreachable for transport errors. An HTTP
// error status means the engine answered, so the connection is fine.
func (c *Controller) noteConnError(err error) {
	var se *engine.StatusError
	if errors.As(err, &se) || errors.Is(err, context.Canceled) {
		return
	}
	if c.st.Conn == Connected {
		c.st.Conn = Disconnected
	}
}

func (c *Controller) engineStatus(ev EngineStatus) {
	prev := c.st.Conn
	c.healthPending = false
	c.st.Conn = ev.Conn
	c.st.Process = ev.Process
	if ev.Version != "" {
		c.st.EngineVersion = ev.Version
	}
	if prev == ev.Conn {
		return
	}
	switch ev.Conn {
	case Connected:
		if prev == Connecting {
			c.setStatus("Engine ready")
		} else {
			c.system("Reconnected to the engine.")
		}
	case Disconnected:
		msg := "Lost connection to the engine."
		if ev.Err != nil {
			msg += " " + ev.Err.Error()
		}
		c.system(msg)
	case Failed:
		msg := "The engine stopped and could not be restarted."
		if ev.Err != nil {
			msg += " " + ev.Err.Error()
		}
		c.system(msg)
	}
}

// ─── Streaming ────────────────────────────────────────────────────────────────

func (c *Controller) applyStream(ev sse.Event) {
	switch ev := ev.(type) {
	case sse.Token:
		c.st.StreamText += ev.Text
	case sse.Thinking:
		c.st.StreamThinking += ev.Text
	case sse.ToolCall:
		c.st.ToolLines = append(c.st.ToolLines, fmt.Sprintf("→ %s %s", ev.Name, ev.Args))
	case sse.ToolResult:
		line := fmt.Sprintf("← %s %s", ev.Name, ev.Result)
		if ev.IsError {
			line = fmt.Sprintf("✗ %s %s", ev.Name, ev.Result)
		}
		c.st.ToolLines = append(c.st.ToolLines, line)
	case sse.Usage:
		c.st.Usage = ev
	case sse.Done:
		c.finishStream()
	case sse.Error:
		c.finishStream()
		c.system("Engine error: " + ev.Message)
	}
	if c.st.AutoScroll {
		c.st.ChatBack = 0
	}
}

// finishStream turns the streamed text into an assistant message.
func (c *Controller) finishStream() {
	if c.st.StreamText != "" || c.st.StreamThinking != "" {
		m := session.NewMessage("assistant", c.st.StreamText)
		m.Thinking = c.st.StreamThinking
		c.st.Messages = append(c.st.Messages, m)
	}
	c.resetStream()
}

func (c *Controller) resetStream() {
	c.st.Streaming = false
	c.st.StreamText = ""
	c.st.StreamThinking = ""
	c.st.ToolLines = nil
}

// ─── Timer ────────────────────────────────────────────────────────────────────

// Tick advances animation and timers. It returns at most one command: the
// idle suggestion fetch or a periodic health check.
func (c *Controller) Tick(now time.Time) command.Command {
	c.st.Frame++
	if c.st.Status != "" && now.After(c.st.StatusUntil) {
		c.st.Status = ""
	}

	if c.opts.IdleAfter > 0 && !c.idleFired && !c.st.SuggestionPending &&
		c.st.Conn == Connected && now.Sub(c.st.LastInput) >= c.opts.IdleAfter {
		c.idleFired = true
		c.st.SuggestionPending = true
		return command.FetchSuggestions{}
	}

	if c.opts.HealthEvery > 0 && !c.healthPending && c.st.Conn != Failed &&
		now.Sub(c.lastHealth) >= c.opts.HealthEvery {
		c.lastHealth = now
		c.healthPending = true
		return command.HealthCheck{}
	}
	return nil
}
