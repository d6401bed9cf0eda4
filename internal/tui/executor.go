package tui

// executor.go: runs controller commands off the UI goroutine. Every result
// comes back as exactly one app.Event on the events channel (chat streams
// send one StreamEvent per frame, then ChatFinished).

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"github.com/complior/complior-sub000/internal/app"
	"github.com/complior/complior-sub000/internal/command"
	"github.com/complior/complior-sub000/internal/config"
	"github.com/complior/complior-sub000/internal/engine"
	"github.com/complior/complior-sub000/internal/session"
	"github.com/complior/complior-sub000/internal/sse"
	"github.com/complior/complior-sub000/internal/watch"
)

const (
	eventBuffer   = 256
	healthTimeout = 2 * time.Second
)

// errNotReady is reported when /status answers without ready, or a restarted
// engine never becomes ready.
var errNotReady = errors.New("engine did not become ready")

// ExecutorOptions wires the executor to its collaborators. Sessions,
// Credentials and Config may be nil; the matching commands then fail with
// an error event.
type ExecutorOptions struct {
	Client      *engine.Client
	Supervisor  *engine.Supervisor
	Sessions    *session.Store
	Credentials *config.CredentialStore
	Config      *config.Config
	ConfigPath  string // empty: settings are kept in memory only
	Logger      *zap.Logger

	ReadyAttempts int
	ReadyInterval time.Duration

	// Clipboard overrides the system clipboard, mainly for tests.
	Clipboard func(string) error
	Now       func() time.Time
}

// Executor performs I/O for the controller.
type Executor struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	events chan app.Event

	opts ExecutorOptions
	log  *zap.Logger

	cfgMu sync.Mutex

	chatMu     sync.Mutex
	chatCancel context.CancelFunc

	watchMu sync.Mutex
	watcher *watch.Watcher
}

// NewExecutor returns a running executor. Close must be called to stop its
// goroutines.
func NewExecutor(opts ExecutorOptions) *Executor {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Supervisor == nil {
		opts.Supervisor = engine.NewExternal(opts.Client.BaseURL(), opts.Logger)
	}
	if opts.ReadyAttempts <= 0 {
		opts.ReadyAttempts = 30
	}
	if opts.ReadyInterval <= 0 {
		opts.ReadyInterval = 200 * time.Millisecond
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Executor{
		ctx:    ctx,
		cancel: cancel,
		events: make(chan app.Event, eventBuffer),
		opts:   opts,
		log:    opts.Logger.Named("executor"),
	}
}

// Events is the channel the event loop drains.
func (e *Executor) Events() <-chan app.Event { return e.events }

// AwaitStartup reports the first engine status: the spawn error if the
// engine could not be started, otherwise the result of waiting for it.
func (e *Executor) AwaitStartup(startErr error) {
	e.spawn(func() {
		if startErr != nil {
			e.send(app.EngineStatus{Conn: app.Disconnected, Process: e.opts.Supervisor.Status(), Err: startErr})
			return
		}
		e.awaitReady()
	})
}

// Close cancels in-flight work, stops the watcher and waits for every
// goroutine to return.
func (e *Executor) Close() {
	e.cancel()
	e.watchMu.Lock()
	if e.watcher != nil {
		e.watcher.Stop()
		e.watcher = nil
	}
	e.watchMu.Unlock()
	e.wg.Wait()
}

func (e *Executor) send(ev app.Event) {
	select {
	case e.events <- ev:
	case <-e.ctx.Done():
	}
}

func (e *Executor) spawn(f func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		f()
	}()
}

// Run starts cmd. It never blocks: anything that needs the state is copied
// before the goroutine starts.
func (e *Executor) Run(cmd command.Command, st *app.State) {
	if cmd == nil {
		return
	}
	e.log.Debug("run", zap.String("command", command.Name(cmd)))
	c := e.opts.Client

	switch cmd := cmd.(type) {
	case command.Chat:
		e.chat(cmd)

	case command.Scan:
		e.spawn(func() {
			res, err := c.Scan(e.ctx, cmd.Path)
			e.send(app.ScanFinished{ScanID: cmd.ID, Result: res, Err: err})
		})

	case command.OpenFile:
		e.spawn(func() {
			content, err := c.ReadFile(e.ctx, cmd.Path)
			e.send(app.FileOpened{Path: cmd.Path, Content: content, Err: err})
		})

	case command.RunCommand:
		e.spawn(func() {
			out, err := c.RunCommand(e.ctx, cmd.Cmd)
			e.send(app.CommandOutput{Cmd: cmd.Cmd, Output: out, Err: err})
		})

	case command.EditFile:
		e.spawn(func() {
			out, err := c.EditFile(e.ctx, cmd.Path, cmd.OldString, cmd.NewString)
			e.send(app.EditApplied{Path: cmd.Path, Output: out, Err: err})
		})

	case command.Reconnect:
		e.spawn(e.reconnect)
	case command.HealthCheck:
		e.spawn(e.health)

	case command.Undo:
		e.spawn(func() {
			out, err := c.Undo(e.ctx, cmd.ID)
			e.send(app.UndoApplied{Output: out, Err: err})
		})
	case command.FetchUndoHistory:
		e.spawn(func() {
			entries, err := c.UndoHistory(e.ctx)
			e.send(app.UndoHistoryLoaded{Entries: entries, Err: err})
		})
	case command.FetchSuggestions:
		e.spawn(func() {
			s, err := c.Suggestions(e.ctx)
			e.send(app.SuggestionsLoaded{Suggestions: s, Err: err})
		})
	case command.WhatIf:
		e.spawn(func() {
			text, err := c.WhatIf(e.ctx, cmd.Scenario)
			e.send(app.WhatIfResult{Scenario: cmd.Scenario, Text: text, Err: err})
		})
	case command.FixDryRun:
		e.spawn(func() {
			d, err := c.FixDryRun(e.ctx, cmd.FindingIDs)
			e.send(app.FixDryRunResult{Diff: d, Err: err})
		})
	case command.DismissFinding:
		e.spawn(func() {
			_, err := c.DismissFinding(e.ctx, cmd.ID, cmd.Reason)
			e.send(app.FindingDismissed{ID: cmd.ID, Reason: cmd.Reason, Err: err})
		})

	case command.SwitchTheme:
		e.spawn(func() {
			err := e.updateConfig(func(cfg *config.Config) { cfg.Theme = cmd.Name })
			e.send(app.ThemeSwitched{Name: cmd.Name, Err: err})
		})
	case command.SaveProviderConfig:
		e.spawn(func() { e.send(e.saveProvider(cmd)) })
	case command.SelectModel:
		e.spawn(func() {
			err := e.updateConfig(func(cfg *config.Config) {
				cfg.Provider = cmd.Provider
				cfg.Model = cmd.Model
			})
			e.send(app.ProviderSaved{Provider: cmd.Provider, Model: cmd.Model, Err: err})
		})
	case command.CompleteOnboarding:
		e.spawn(func() {
			err := e.updateConfig(func(cfg *config.Config) {
				cfg.Onboarding = config.OnboardingConfig{Completed: true, Answers: cmd.Answers}
			})
			e.send(app.OnboardingSaved{Completed: true, Err: err})
		})
	case command.SaveOnboardingPartial:
		e.spawn(func() {
			err := e.updateConfig(func(cfg *config.Config) { cfg.Onboarding.LastStep = cmd.Step })
			e.send(app.OnboardingSaved{Err: err})
		})

	case command.SaveSession:
		data := snapshot(st, cmd.Name)
		e.spawn(func() {
			err := errors.New("session store unavailable")
			if e.opts.Sessions != nil {
				err = e.opts.Sessions.Save(cmd.Name, data)
			}
			e.send(app.SessionSaved{Name: cmd.Name, Err: err})
		})
	case command.LoadSession:
		e.spawn(func() {
			if e.opts.Sessions == nil {
				e.send(app.SessionLoaded{Name: cmd.Name, Err: errors.New("session store unavailable")})
				return
			}
			d, err := e.opts.Sessions.Load(cmd.Name)
			e.send(app.SessionLoaded{Name: cmd.Name, Data: d, Err: err})
		})

	case command.ToggleWatch:
		project := st.Project
		e.spawn(func() {
			err := e.setWatch(cmd.Enable, project)
			e.send(app.WatchToggled{Enabled: cmd.Enable && err == nil, Err: err})
		})

	case command.ListFiles:
		e.spawn(func() {
			files, err := watch.ListFiles(cmd.Root, 0)
			e.send(app.FileTreeLoaded{Files: files, Err: err})
		})

	case command.CopyToClipboard:
		e.spawn(func() {
			err := e.opts.Clipboard(cmd.Text)
			e.send(app.ClipboardCopied{Chars: utf8.RuneCountInString(cmd.Text), Err: err})
		})

	case command.ExportReport:
		res := st.LastScan
		project := st.Project
		at := e.opts.Now()
		e.spawn(func() {
			err := writeReport(cmd.Path, Report(res, project, at))
			e.send(app.ReportExported{Path: cmd.Path, Err: err})
		})

	default:
		e.log.Warn("unhandled command", zap.String("command", command.Name(cmd)))
	}
}

// ─── Chat ─────────────────────────────────────────────────────────────────────

// chat cancels any previous stream before starting the new one; the
// controller already ignores frames for the old request ID.
func (e *Executor) chat(cmd command.Chat) {
	e.chatMu.Lock()
	if e.chatCancel != nil {
		e.chatCancel()
	}
	ctx, cancel := context.WithCancel(e.ctx)
	e.chatCancel = cancel
	e.chatMu.Unlock()

	e.spawn(func() {
		defer cancel()
		err := e.opts.Client.ChatStream(ctx, cmd.Text, func(ev sse.Event) {
			e.send(app.StreamEvent{RequestID: cmd.RequestID, Event: ev})
		})
		if err != nil {
			e.log.Debug("chat stream ended", zap.String("request", cmd.RequestID), zap.Error(err))
		}
		e.send(app.ChatFinished{RequestID: cmd.RequestID, Err: err})
	})
}

// ─── Engine health ────────────────────────────────────────────────────────────

// health checks the engine. A dead owned process is restarted; a live but
// silent one is only reported as disconnected.
func (e *Executor) health() {
	ok, err := e.probe()
	if ok || e.ctx.Err() != nil {
		return
	}
	sup := e.opts.Supervisor
	switch st := sup.Status(); {
	case st == engine.StatusExternal, st == engine.StatusFailed, sup.IsAlive():
		e.report(err)
		return
	}
	e.restart()
}

// reconnect is the user-requested variant: an owned engine that does not
// answer is restarted even if its process still runs.
func (e *Executor) reconnect() {
	ok, err := e.probe()
	if ok || e.ctx.Err() != nil {
		return
	}
	if e.opts.Supervisor.Status() == engine.StatusExternal {
		e.report(err)
		return
	}
	e.restart()
}

// probe calls GET /status once and reports Connected on success.
func (e *Executor) probe() (bool, error) {
	ctx, cancel := context.WithTimeout(e.ctx, healthTimeout)
	defer cancel()

	st, err := e.opts.Client.Status(ctx)
	if err == nil && !st.Ready {
		err = errNotReady
	}
	if err != nil {
		e.log.Debug("engine health check failed", zap.Error(err))
		return false, err
	}
	e.send(app.EngineStatus{Conn: app.Connected, Process: e.opts.Supervisor.Status(), Version: st.Version})
	return true, nil
}

// report sends a non-connected status for err.
func (e *Executor) report(err error) {
	sup := e.opts.Supervisor
	conn := app.Disconnected
	if sup.Status() == engine.StatusFailed {
		conn = app.Failed
	}
	e.send(app.EngineStatus{Conn: conn, Process: sup.Status(), Err: err})
}

func (e *Executor) restart() {
	sup := e.opts.Supervisor
	if err := sup.TryRestart(); err != nil {
		e.log.Warn("engine restart failed", zap.Error(err))
		e.report(err)
		return
	}
	e.opts.Client.SetBaseURL(sup.BaseURL())
	e.awaitReady()
}

// awaitReady polls the engine until it is ready and reports the outcome.
func (e *Executor) awaitReady() {
	sup := e.opts.Supervisor
	if !sup.WaitUntilReady(e.ctx, e.opts.Client, e.opts.ReadyAttempts, e.opts.ReadyInterval) {
		if e.ctx.Err() == nil {
			e.report(errNotReady)
		}
		return
	}
	if ok, err := e.probe(); !ok && e.ctx.Err() == nil {
		e.report(err)
	}
}

// ─── Settings ─────────────────────────────────────────────────────────────────

func (e *Executor) updateConfig(mutate func(*config.Config)) error {
	if e.opts.Config == nil {
		return errors.New("configuration unavailable")
	}
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	mutate(e.opts.Config)
	if e.opts.ConfigPath == "" {
		return nil
	}
	if err := e.opts.Config.SaveConfig(e.opts.ConfigPath); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (e *Executor) saveProvider(cmd command.SaveProviderConfig) app.ProviderSaved {
	ev := app.ProviderSaved{Provider: cmd.Provider, Model: cmd.Model}
	if e.opts.Credentials == nil {
		ev.Err = errors.New("credential store unavailable")
		return ev
	}
	if err := e.opts.Credentials.Save(cmd.Provider, cmd.APIKey); err != nil {
		ev.Err = err
		return ev
	}
	ev.Err = e.updateConfig(func(cfg *config.Config) {
		cfg.Provider = cmd.Provider
		if cmd.Model != "" {
			cfg.Model = cmd.Model
		}
	})
	return ev
}

// ─── Watch mode ───────────────────────────────────────────────────────────────

func (e *Executor) setWatch(enable bool, root string) error {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()

	if !enable {
		if e.watcher != nil {
			e.watcher.Stop()
			e.watcher = nil
		}
		return nil
	}
	if e.watcher != nil {
		return nil
	}
	w, err := watch.New(root, watch.DefaultDebounce, e.opts.Logger.Named("watch"))
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	err = w.Start(e.ctx, func(paths []string) {
		e.send(app.FilesChanged{Paths: paths})
	})
	if err != nil {
		w.Stop()
		return fmt.Errorf("start watcher: %w", err)
	}
	e.watcher = w
	return nil
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// snapshot copies what a saved session restores.
func snapshot(st *app.State, name string) session.Data {
	return session.Data{
		Name:     name,
		Project:  st.Project,
		View:     st.View.String(),
		Messages: append([]session.Message(nil), st.Messages...),
		LastScan: st.LastScan,
	}
}

func writeReport(path, body string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(body), 0o644)
}
