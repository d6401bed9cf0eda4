package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points the config dir at a temp dir so real user files are ignored.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	return dir
}

// TestSaveConfigPermissions verifies SaveConfig writes with 0600 permissions.
func TestSaveConfigPermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "complior.json")

	cfg := &Config{Theme: "dark", LogLevel: "info"}
	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600 permissions, got %04o", perm)
	}
}

// TestSaveConfigCreatesDirectory ensures SaveConfig creates missing parent dirs.
func TestSaveConfigCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deep", "complior.json")

	cfg := &Config{Provider: "openai"}
	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("SaveConfig with nested dirs: %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("expected config file to exist after SaveConfig")
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Runtime != "node" {
		t.Errorf("runtime = %q", cfg.Engine.Runtime)
	}
	if cfg.Engine.ReadyAttempts != 30 || cfg.Engine.ReadyInterval != 200*time.Millisecond {
		t.Errorf("readiness = %d x %v", cfg.Engine.ReadyAttempts, cfg.Engine.ReadyInterval)
	}
	if cfg.SessionDir != filepath.Join(dir, "sessions") {
		t.Errorf("session dir = %q", cfg.SessionDir)
	}
	if cfg.External() {
		t.Error("default config must spawn the engine")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := isolate(t)

	yaml := "theme: light\nengine:\n  runtime: bun\n  ready_interval: 50ms\n"
	if err := os.WriteFile(filepath.Join(dir, "complior.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	state := &Config{
		Theme:    "solarized",
		LogLevel: "info",
		Engine:   EngineConfig{Runtime: "bun", ReadyAttempts: 5, ReadyInterval: 50 * time.Millisecond},
		Onboarding: OnboardingConfig{
			Completed: true,
			LastStep:  4,
			Answers:   map[string][]string{"role": {"Provider"}},
		},
	}
	if err := state.SaveConfig(StatePath()); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COMPLIOR_ENGINE_URL", "http://127.0.0.1:3099")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Theme != "solarized" {
		t.Errorf("state file should override global yaml, theme = %q", cfg.Theme)
	}
	if cfg.Engine.Runtime != "bun" || cfg.Engine.ReadyInterval != 50*time.Millisecond {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if !cfg.Onboarding.Completed || cfg.Onboarding.LastStep != 4 {
		t.Errorf("onboarding = %+v", cfg.Onboarding)
	}
	if got := cfg.Onboarding.Answers["role"]; len(got) != 1 || got[0] != "Provider" {
		t.Errorf("answers = %v", cfg.Onboarding.Answers)
	}
	if !cfg.External() || cfg.Engine.URL != "http://127.0.0.1:3099" {
		t.Errorf("env should set engine.url, got %q", cfg.Engine.URL)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{LogLevel: "loud", Provider: "acme", IdleSuggestions: -1}
	err := cfg.Validate()
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	fields := map[string]bool{}
	for _, e := range verrs {
		fields[e.Field] = true
	}
	for _, f := range []string{"engine.entry", "engine.ready_attempts", "engine.ready_interval", "idle_suggestions", "log_level", "provider"} {
		if !fields[f] {
			t.Errorf("missing validation error for %s", f)
		}
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		provider string
		key      string
		ok       bool
	}{
		{"openrouter", "sk-or-v1-0123456789abcdef", true},
		{"anthropic", "sk-ant-api03-0123456789abc", true},
		{"openai", "sk-proj-0123456789abcdefgh", true},
		{"openai", "sk-ant-api03-0123456789abc", false},
		{"anthropic", "sk-or-v1-0123456789abcdef", false},
		{"openrouter", "sk-0123456789abcdefghijk", false},
		{"openai", "sk-short", false},
		{"openai", "   ", false},
		{"acme", "sk-0123456789abcdefghijk", false},
	}
	for _, tt := range tests {
		err := ValidateKey(tt.provider, tt.key)
		if tt.ok && err != nil {
			t.Errorf("ValidateKey(%q, %q) = %v, want ok", tt.provider, tt.key, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ValidateKey(%q, %q) = %v, want ErrInvalidKey", tt.provider, tt.key, err)
		}
	}
}

func TestDetectProvider(t *testing.T) {
	cases := map[string]string{
		"sk-or-abc":  "openrouter",
		"sk-ant-abc": "anthropic",
		"sk-abc":     "openai",
		"pk-abc":     "",
	}
	for key, want := range cases {
		if got := DetectProvider(key); got != want {
			t.Errorf("DetectProvider(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestCredentialStore(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-from-env-0123456789abc")

	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewCredentialStore(path)

	if _, ok := store.Get("anthropic"); ok {
		t.Fatal("empty store should have no anthropic key")
	}
	if err := store.Save("anthropic", "  sk-ant-api03-0123456789abc \n"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	key, ok := store.Get("anthropic")
	if !ok || key != "sk-ant-api03-0123456789abc" {
		t.Errorf("Get = %q, %v", key, ok)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("credentials perm = %04o", perm)
	}
	var onDisk credentialsFile
	data, _ := os.ReadFile(path)
	if err := json.Unmarshal(data, &onDisk); err != nil || onDisk.APIKeys["anthropic"] == "" {
		t.Errorf("unexpected file contents %s (%v)", data, err)
	}

	if key, ok := store.Get("openai"); !ok || key != "sk-from-env-0123456789abc" {
		t.Errorf("env fallback = %q, %v", key, ok)
	}
	got := store.Configured()
	if len(got) != 2 || got[0] != "anthropic" || got[1] != "openai" {
		t.Errorf("Configured = %v", got)
	}

	if err := store.Delete("anthropic"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := store.Get("anthropic"); ok {
		t.Error("key still present after Delete")
	}
}

// TestProviderRegistryNotEmpty ensures the provider registry has entries.
func TestProviderRegistryNotEmpty(t *testing.T) {
	if len(ProviderRegistry) == 0 {
		t.Error("ProviderRegistry should not be empty")
	}
	for _, p := range ProviderRegistry {
		if p.Key == "" || p.Name == "" || p.KeyPrefix == "" {
			t.Errorf("incomplete registry entry %+v", p)
		}
	}
}
