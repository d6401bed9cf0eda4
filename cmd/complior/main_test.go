package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/complior/complior-sub000/internal/config"
	"github.com/complior/complior-sub000/internal/session"
)

func TestFilterOSCSequences(t *testing.T) {
	for _, s := range []string{"]11;rgb:0000/0000/0000", "rgb:1e1e/1e1e/1e1e", "b:0000/0000", "0/0000/0000"} {
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
		require.Nil(t, filterOSCSequences(nil, msg), s)
	}

	keep := []tea.Msg{
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")},
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hello world")},
		tea.KeyMsg{Type: tea.KeyEnter},
		tea.WindowSizeMsg{Width: 80, Height: 24},
	}
	for _, msg := range keep {
		require.Equal(t, msg, filterOSCSequences(nil, msg))
	}
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.ExecuteContext(context.Background()))
	return out.String()
}

func TestVersionCmd(t *testing.T) {
	out := run(t, "version")
	require.True(t, strings.HasPrefix(out, "complior version "+version))
}

func TestSessionsCmd(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)

	require.Contains(t, run(t, "sessions", "list"), "No sessions found.")

	store, err := session.NewStore(filepath.Join(dir, "sessions"))
	require.NoError(t, err)
	require.NoError(t, store.Save("audit", session.Data{Messages: []session.Message{session.NewMessage("user", "hi")}}))

	out := run(t, "sessions", "list")
	require.Contains(t, out, "audit")

	require.Contains(t, run(t, "sessions", "delete", "audit"), "Deleted session audit")
	require.Contains(t, run(t, "sessions", "ls"), "No sessions found.")
}

func TestConfigPathCmd(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)
	out := run(t, "config", "path")
	require.Contains(t, out, filepath.Join(dir, config.StateFile))
	require.Contains(t, out, filepath.Join(dir, "history.jsonl"))
}

func TestCollectStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ready":true,"version":"1.4.0"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	creds := config.NewCredentialStore(filepath.Join(dir, "credentials.json"))
	require.NoError(t, creds.Save("openai", "sk-test"))

	cfg := &config.Config{Provider: "openai", SessionDir: filepath.Join(dir, "sessions")}
	cfg.Engine.URL = srv.URL

	rep, err := collectStatus(context.Background(), cfg, creds, time.Second)
	require.NoError(t, err)
	require.Equal(t, "ready at "+srv.URL, rep.Engine)
	require.Equal(t, "1.4.0", rep.Version)
	require.Equal(t, 0, rep.Sessions)
	require.Contains(t, rep.Credentials, "openai")
}

func TestCollectStatusManagedEngine(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{SessionDir: filepath.Join(dir, "sessions")}
	rep, err := collectStatus(context.Background(), cfg, config.NewCredentialStore(filepath.Join(dir, "c.json")), time.Second)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(rep.Engine, "managed"))
}
