package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ---------------------------------------------------------------------------
// Environment variables
// ---------------------------------------------------------------------------

const (
	EnvPrefix    = "COMPLIOR"
	EnvConfigDir = "COMPLIOR_CONFIG_DIR" // overrides ~/.config/complior
)

// StateFile is written by the app itself (onboarding, provider choice) and
// merged between the global and the project config files.
const StateFile = "complior.json"

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds all configuration for complior.
type Config struct {
	Engine EngineConfig `mapstructure:"engine" json:"engine"`

	Project  string `mapstructure:"project" json:"project"`
	Theme    string `mapstructure:"theme" json:"theme"`
	Provider string `mapstructure:"provider" json:"provider,omitempty"`
	Model    string `mapstructure:"model" json:"model,omitempty"`

	// IdleSuggestions is the idle time in seconds before next-step hints are
	// fetched. Zero disables them.
	IdleSuggestions int    `mapstructure:"idle_suggestions" json:"idle_suggestions"`
	SessionDir      string `mapstructure:"session_dir" json:"session_dir,omitempty"`
	LogLevel        string `mapstructure:"log_level" json:"log_level"`
	Watch           bool   `mapstructure:"watch" json:"watch"`

	Onboarding OnboardingConfig `mapstructure:"onboarding" json:"onboarding"`
}

// EngineConfig says how to reach the engine. A non-empty URL means the engine
// is managed elsewhere and nothing is spawned.
type EngineConfig struct {
	URL           string        `mapstructure:"url" json:"url,omitempty"`
	Runtime       string        `mapstructure:"runtime" json:"runtime"`
	Entry         string        `mapstructure:"entry" json:"entry,omitempty"`
	ReadyAttempts int           `mapstructure:"ready_attempts" json:"ready_attempts"`
	ReadyInterval time.Duration `mapstructure:"ready_interval" json:"ready_interval"`
}

// OnboardingConfig records wizard progress so an interrupted run resumes.
type OnboardingConfig struct {
	Completed bool                `mapstructure:"completed" json:"completed"`
	LastStep  int                 `mapstructure:"last_step" json:"last_step"`
	Answers   map[string][]string `mapstructure:"answers" json:"answers,omitempty"`
}

// External reports whether the engine is managed outside this process.
func (c *Config) External() bool {
	return c.Engine.URL != ""
}

// New returns a viper instance with defaults and environment binding set up.
// Callers may bind command-line flags to it before calling LoadFrom.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("engine.url", "")
	v.SetDefault("engine.runtime", "node")
	v.SetDefault("engine.entry", defaultEntry())
	v.SetDefault("engine.ready_attempts", 30)
	v.SetDefault("engine.ready_interval", "200ms")
	v.SetDefault("project", ".")
	v.SetDefault("theme", "dark")
	v.SetDefault("provider", "")
	v.SetDefault("model", "")
	v.SetDefault("idle_suggestions", 30)
	v.SetDefault("session_dir", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("watch", false)
	v.SetDefault("onboarding.completed", false)
	v.SetDefault("onboarding.last_step", 0)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration with the default precedence:
// defaults < ~/.config/complior/complior.yaml < state file <
// ./.complior/complior.yaml < COMPLIOR_* env.
func Load() (*Config, error) {
	return LoadFrom(New())
}

// LoadFrom merges the config files into v and decodes the result.
func LoadFrom(v *viper.Viper) (*Config, error) {
	files := []string{
		filepath.Join(GetConfigDir(), "complior.yaml"),
		StatePath(),
		filepath.Join(".complior", "complior.yaml"),
	}
	for _, path := range files {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.SessionDir == "" {
		cfg.SessionDir = filepath.Join(GetConfigDir(), "sessions")
	}
	return &cfg, nil
}

// GetConfigDir returns the complior config directory.
func GetConfigDir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".complior"
	}
	return filepath.Join(home, ".config", "complior")
}

// StatePath is where SaveConfig persists app-written settings.
func StatePath() string {
	return filepath.Join(GetConfigDir(), StateFile)
}

// LogPath is the zap log file location.
func LogPath() string {
	return filepath.Join(GetConfigDir(), "logs", "complior.log")
}

func defaultEntry() string {
	return filepath.Join("engine", "dist", "server.js")
}

// SaveConfig writes the config to a JSON file
func (c *Config) SaveConfig(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks value ranges. It does not touch the filesystem.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Engine.URL == "" && c.Engine.Entry == "" {
		errs = append(errs, ValidationError{Field: "engine.entry", Message: "required when engine.url is empty"})
	}
	if c.Engine.ReadyAttempts <= 0 {
		errs = append(errs, ValidationError{Field: "engine.ready_attempts", Message: "must be positive"})
	}
	if c.Engine.ReadyInterval <= 0 {
		errs = append(errs, ValidationError{Field: "engine.ready_interval", Message: "must be positive"})
	}
	if c.IdleSuggestions < 0 {
		errs = append(errs, ValidationError{Field: "idle_suggestions", Message: "must not be negative"})
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{Field: "log_level", Message: fmt.Sprintf("unknown level %q", c.LogLevel)})
	}
	if c.Provider != "" && LookupProvider(c.Provider) == nil {
		errs = append(errs, ValidationError{Field: "provider", Message: fmt.Sprintf("unknown provider %q", c.Provider)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// String renders the effective configuration for `complior config`.
func (c *Config) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", *c)
	}
	return string(data)
}
