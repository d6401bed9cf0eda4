package main

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/complior/complior-sub000/internal/config"
	"github.com/complior/complior-sub000/internal/engine"
	"github.com/complior/complior-sub000/internal/session"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "complior version %s (%s)\n", version, commit)
			fmt.Fprintf(out, "go version %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

func loginCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "login [provider]",
		Short: "Store an API key for the chat provider",
		Long: `Prompts for an API key without echoing it, checks its format and stores
it in credentials.json in the config directory. Without an argument the
configured provider is used, or openrouter.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(v)
			if err != nil {
				return err
			}
			provider := cfg.Provider
			if len(args) == 1 {
				provider = args[0]
			}
			if provider == "" {
				provider = "openrouter"
			}
			if err := config.Login(config.DefaultCredentialStore(), provider); err != nil {
				return err
			}
			if cfg.Provider == provider {
				return nil
			}
			cfg.Provider = provider
			if info := config.LookupProvider(provider); info != nil && cfg.Model == "" {
				cfg.Model = info.DefaultModel
			}
			return cfg.SaveConfig(config.StatePath())
		},
	}
}

func sessionsCmd(v *viper.Viper) *cobra.Command {
	openStore := func() (*session.Store, error) {
		cfg, err := config.LoadFrom(v)
		if err != nil {
			return nil, err
		}
		return session.NewStore(cfg.SessionDir)
	}

	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Manage saved sessions",
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			infos, err := store.Infos()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format, _ := cmd.Flags().GetString("format"); format == "json" {
				data, err := json.MarshalIndent(infos, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			if len(infos) == 0 {
				fmt.Fprintln(out, "No sessions found.")
				return nil
			}
			fmt.Fprintf(out, "%-30s %-8s %s\n", "Name", "Msgs", "Saved")
			fmt.Fprintln(out, strings.Repeat("-", 56))
			for _, s := range infos {
				fmt.Fprintf(out, "%-30s %-8d %s\n", s.Name, s.Messages, s.SavedAt.Local().Format("Jan 02 15:04"))
			}
			return nil
		},
	}
	list.Flags().String("format", "table", "output format (table, json)")

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, del)
	return cmd
}

func configCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.LoadFrom(v)
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(cfg, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show where configuration, state and logs live",
			Run: func(cmd *cobra.Command, args []string) {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "config dir: %s\n", config.GetConfigDir())
				fmt.Fprintf(out, "state:      %s\n", config.StatePath())
				fmt.Fprintf(out, "log:        %s\n", config.LogPath())
				fmt.Fprintf(out, "history:    %s\n", historyPath())
			},
		},
	)
	return cmd
}

// statusReport is what `complior status` prints.
type statusReport struct {
	Engine      string   `json:"engine"`
	Version     string   `json:"version,omitempty"`
	Sessions    int      `json:"sessions"`
	Credentials []string `json:"credentials"`
	Provider    string   `json:"provider,omitempty"`
}

func statusCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the engine, saved sessions and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(v)
			if err != nil {
				return err
			}
			timeout, _ := cmd.Flags().GetDuration("timeout")
			rep, err := collectStatus(cmd.Context(), cfg, config.DefaultCredentialStore(), timeout)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format, _ := cmd.Flags().GetString("format"); format == "json" {
				data, err := json.MarshalIndent(rep, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			fmt.Fprintf(out, "engine:      %s", rep.Engine)
			if rep.Version != "" {
				fmt.Fprintf(out, " (%s)", rep.Version)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "provider:    %s\n", orNone(rep.Provider))
			fmt.Fprintf(out, "credentials: %s\n", orNone(strings.Join(rep.Credentials, ", ")))
			fmt.Fprintf(out, "sessions:    %d\n", rep.Sessions)
			return nil
		},
	}
	cmd.Flags().Duration("timeout", 3*time.Second, "engine probe timeout")
	cmd.Flags().String("format", "text", "output format (text, json)")
	return cmd
}

// collectStatus runs the independent checks concurrently. Only a session
// store failure is an error; an unreachable engine is a status.
func collectStatus(ctx context.Context, cfg *config.Config, creds *config.CredentialStore, timeout time.Duration) (*statusReport, error) {
	rep := &statusReport{Provider: cfg.Provider}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if !cfg.External() {
			rep.Engine = "managed (started with the TUI)"
			return nil
		}
		client := engine.NewClient(cfg.Engine.URL)
		defer client.Close()
		pctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		st, err := client.Status(pctx)
		switch {
		case err != nil:
			rep.Engine = "unreachable at " + cfg.Engine.URL + ": " + err.Error()
		case !st.Ready:
			rep.Engine = "starting at " + cfg.Engine.URL
		default:
			rep.Engine = "ready at " + cfg.Engine.URL
			rep.Version = st.Version
		}
		return nil
	})

	g.Go(func() error {
		store, err := session.NewStore(cfg.SessionDir)
		if err != nil {
			return err
		}
		names, err := store.List()
		if err != nil {
			return err
		}
		rep.Sessions = len(names)
		return nil
	})

	g.Go(func() error {
		rep.Credentials = creds.Configured()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rep, nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
