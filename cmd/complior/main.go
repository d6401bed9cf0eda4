package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"time"

	// earlyinit must come before bubbletea so its init runs first and the
	// OSC 11 background query is never sent.
	_ "github.com/complior/complior-sub000/internal/earlyinit"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/complior/complior-sub000/internal/app"
	"github.com/complior/complior-sub000/internal/command"
	"github.com/complior/complior-sub000/internal/config"
	"github.com/complior/complior-sub000/internal/engine"
	"github.com/complior/complior-sub000/internal/logging"
	"github.com/complior/complior-sub000/internal/session"
	"github.com/complior/complior-sub000/internal/theme"
	"github.com/complior/complior-sub000/internal/tui"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	rootCmd := &cobra.Command{
		Use:   "complior",
		Short: "Complior - EU AI Act compliance in your terminal",
		Long: `Complior scans a project for EU AI Act obligations, explains what it
finds and helps apply fixes. It talks to a local compliance engine that it
starts and supervises.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, v)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("engine-url", "", "use an already running engine instead of starting one")
	flags.String("project", "", "project directory to scan (default: current directory)")
	flags.StringP("provider", "p", "", "AI provider for chat (openrouter, anthropic, openai)")
	flags.StringP("model", "m", "", "chat model")
	flags.String("theme", "", "colour theme")
	flags.BoolP("verbose", "v", false, "debug logging")

	for key, flag := range map[string]string{
		"engine.url": "engine-url",
		"project":    "project",
		"provider":   "provider",
		"model":      "model",
		"theme":      "theme",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(
		versionCmd(),
		loginCmd(v),
		sessionsCmd(v),
		configCmd(v),
		statusCmd(v),
	)
	return rootCmd
}

// filterOSCSequences drops terminal colour-query replies (OSC 11) that
// arrive as key input on some terminals.
var oscReply = regexp.MustCompile(`\d{1,4}/\d{4}/\d{4}`)

func filterOSCSequences(_ tea.Model, msg tea.Msg) tea.Msg {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return msg
	}
	s := k.String()
	if oscReply.MatchString(s) ||
		strings.HasPrefix(s, "]11;") ||
		strings.HasPrefix(s, "rgb:") ||
		strings.HasPrefix(s, "gb:") ||
		strings.HasPrefix(s, "b:") ||
		strings.Contains(s, ";rgb:") {
		return nil
	}
	return msg
}

// runTUI is the default command.
func runTUI(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.LoadFrom(v)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	log, err := logging.New(config.LogPath(), cfg.LogLevel, verbose)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	project, err := filepath.Abs(cfg.Project)
	if err != nil {
		return fmt.Errorf("resolve project: %w", err)
	}
	log.Info("starting", zap.String("version", version), zap.String("project", project))

	sup, client, startErr := startEngine(cfg, project, log)
	defer sup.Shutdown()
	defer client.Close()

	store, err := session.NewStore(cfg.SessionDir)
	if err != nil {
		return fmt.Errorf("failed to init session store: %w", err)
	}

	themes := theme.NewRegistry()
	if err := themes.SetCurrent(cfg.Theme); err != nil {
		log.Warn("unknown theme, using default", zap.String("theme", cfg.Theme))
		cfg.Theme = themes.CurrentName()
	}

	exec := tui.NewExecutor(tui.ExecutorOptions{
		Client:        client,
		Supervisor:    sup,
		Sessions:      store,
		Credentials:   config.DefaultCredentialStore(),
		Config:        cfg,
		ConfigPath:    config.StatePath(),
		Logger:        log,
		ReadyAttempts: cfg.Engine.ReadyAttempts,
		ReadyInterval: cfg.Engine.ReadyInterval,
	})
	defer exec.Close()

	histPath := historyPath()
	ctrl := app.New(app.Options{
		Project:        project,
		Themes:         themes.List(),
		Theme:          cfg.Theme,
		Provider:       cfg.Provider,
		Model:          cfg.Model,
		IdleAfter:      time.Duration(cfg.IdleSuggestions) * time.Second,
		HealthEvery:    app.DefaultHealthEvery,
		OnboardingDone: cfg.Onboarding.Completed,
		OnboardingStep: cfg.Onboarding.LastStep,
		History:        app.LoadHistory(histPath),
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	exec.AwaitStartup(startErr)

	model := tui.New(ctrl, exec, exec.Events(), themes, log)
	if cfg.Watch {
		// The WatchToggled reply turns the badge on once the watcher runs.
		exec.Run(command.ToggleWatch{Enable: true}, ctrl.State())
	}

	// WithFilter strips OSC replies that leak into the input stream.
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
		tea.WithFilter(filterOSCSequences),
	)
	_, runErr := p.Run()

	if h := ctrl.State().History; h != nil {
		if err := app.SaveHistory(histPath, h.Entries()); err != nil {
			log.Warn("save history failed", zap.Error(err))
		}
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return nil
}

// startEngine spawns the engine, or attaches to engine.url. A spawn failure
// is not fatal: the TUI starts disconnected and health checks retry.
func startEngine(cfg *config.Config, project string, log *zap.Logger) (*engine.Supervisor, *engine.Client, error) {
	if cfg.External() {
		return engine.NewExternal(cfg.Engine.URL, log.Named("engine")), engine.NewClient(cfg.Engine.URL), nil
	}
	// The child runs in the project directory; a relative entry is relative
	// to where complior was started.
	entry, err := filepath.Abs(cfg.Engine.Entry)
	if err != nil {
		entry = cfg.Engine.Entry
	}
	sup := engine.NewSupervisor(engine.Options{
		Runtime: cfg.Engine.Runtime,
		Entry:   entry,
		Dir:     project,
		Env:     []string{"COMPLIOR_PROJECT=" + project},
		Logger:  log.Named("engine"),
	})
	err = sup.Start()
	if err != nil {
		log.Error("engine start failed", zap.Error(err))
	}
	return sup, engine.NewClient(sup.BaseURL()), err
}

func historyPath() string {
	return filepath.Join(config.GetConfigDir(), "history.jsonl")
}
