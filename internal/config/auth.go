package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrInvalidKey is returned when an API key does not match its provider's
// format.
var ErrInvalidKey = errors.New("invalid API key")

// ProviderInfo describes an AI provider the engine can be configured with.
type ProviderInfo struct {
	Key          string // config identifier
	Name         string // display name
	KeyPrefix    string
	EnvVar       string
	DefaultModel string
	Hint         string
}

// ProviderRegistry lists supported providers. Order matters: key detection
// checks the most specific prefix first.
var ProviderRegistry = []ProviderInfo{
	{Key: "openrouter", Name: "OpenRouter", KeyPrefix: "sk-or-", EnvVar: "OPENROUTER_API_KEY", DefaultModel: "anthropic/claude-sonnet-4", Hint: "openrouter.ai/keys"},
	{Key: "anthropic", Name: "Anthropic", KeyPrefix: "sk-ant-", EnvVar: "ANTHROPIC_API_KEY", DefaultModel: "claude-sonnet-4-20250514", Hint: "console.anthropic.com"},
	{Key: "openai", Name: "OpenAI", KeyPrefix: "sk-", EnvVar: "OPENAI_API_KEY", DefaultModel: "gpt-4o", Hint: "platform.openai.com/api-keys"},
}

// minKeyLen rejects obviously truncated pastes.
const minKeyLen = 20

// LookupProvider returns the registry entry for key, or nil.
func LookupProvider(key string) *ProviderInfo {
	for i := range ProviderRegistry {
		if ProviderRegistry[i].Key == key {
			return &ProviderRegistry[i]
		}
	}
	return nil
}

// DetectProvider guesses the provider from a key's prefix. Empty if none match.
func DetectProvider(apiKey string) string {
	for _, p := range ProviderRegistry {
		if strings.HasPrefix(apiKey, p.KeyPrefix) {
			return p.Key
		}
	}
	return ""
}

// ValidateKey checks an API key's format for provider. A key carrying
// another provider's more specific prefix is rejected.
func ValidateKey(provider, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return fmt.Errorf("%w: key is empty", ErrInvalidKey)
	}
	info := LookupProvider(provider)
	if info == nil {
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidKey, provider)
	}
	if got := DetectProvider(apiKey); got != provider {
		return fmt.Errorf("%w: %s keys start with %q", ErrInvalidKey, info.Name, info.KeyPrefix)
	}
	if len(apiKey) < minKeyLen {
		return fmt.Errorf("%w: %s key seems too short", ErrInvalidKey, info.Name)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Credential store
// ---------------------------------------------------------------------------

type credentialsFile struct {
	APIKeys map[string]string `json:"api_keys"`
}

// CredentialStore keeps provider API keys in a 0600 JSON file.
type CredentialStore struct {
	mu   sync.Mutex
	path string
}

// NewCredentialStore returns a store backed by path.
func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

// DefaultCredentialStore uses <config dir>/credentials.json.
func DefaultCredentialStore() *CredentialStore {
	return NewCredentialStore(filepath.Join(GetConfigDir(), "credentials.json"))
}

// Get returns the stored key for provider, falling back to the provider's
// environment variable.
func (s *CredentialStore) Get(provider string) (string, bool) {
	s.mu.Lock()
	creds, err := s.load()
	s.mu.Unlock()
	if err == nil {
		if k := creds.APIKeys[provider]; k != "" {
			return k, true
		}
	}
	if info := LookupProvider(provider); info != nil {
		if k := os.Getenv(info.EnvVar); k != "" {
			return k, true
		}
	}
	return "", false
}

// Save stores key for provider.
func (s *CredentialStore) Save(provider, apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, err := s.load()
	if err != nil {
		return err
	}
	creds.APIKeys[provider] = strings.TrimSpace(apiKey)
	return s.write(creds)
}

// Delete removes a stored key.
func (s *CredentialStore) Delete(provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, err := s.load()
	if err != nil {
		return err
	}
	delete(creds.APIKeys, provider)
	return s.write(creds)
}

// Configured lists providers with a stored or environment key.
func (s *CredentialStore) Configured() []string {
	var out []string
	for _, p := range ProviderRegistry {
		if _, ok := s.Get(p.Key); ok {
			out = append(out, p.Key)
		}
	}
	return out
}

func (s *CredentialStore) load() (*credentialsFile, error) {
	creds := &credentialsFile{APIKeys: map[string]string{}}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return creds, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if creds.APIKeys == nil {
		creds.APIKeys = map[string]string{}
	}
	return creds, nil
}

func (s *CredentialStore) write(creds *credentialsFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// readHiddenInput reads input without echoing it (for keys)
func readHiddenInput(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(b)), nil
}

// Login prompts for a provider key on the terminal, validates and stores it.
func Login(store *CredentialStore, provider string) error {
	info := LookupProvider(provider)
	if info == nil {
		names := make([]string, 0, len(ProviderRegistry))
		for _, p := range ProviderRegistry {
			names = append(names, p.Key)
		}
		return fmt.Errorf("unknown provider %q (choose one of %s)", provider, strings.Join(names, ", "))
	}
	fmt.Printf("Get a key at %s\n", info.Hint)
	key, err := readHiddenInput(fmt.Sprintf("%s API key: ", info.Name))
	if err != nil {
		return fmt.Errorf("read key: %w", err)
	}
	if err := ValidateKey(provider, key); err != nil {
		return err
	}
	if err := store.Save(provider, key); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	fmt.Printf("Saved %s credentials.\n", info.Name)
	return nil
}
