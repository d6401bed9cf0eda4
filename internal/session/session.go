package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/complior/complior-sub000/internal/engine"
)

// ErrNotFound is returned when no session with the given name exists.
var ErrNotFound = errors.New("session not found")

// ErrInvalidName rejects names that would escape the session directory.
var ErrInvalidName = errors.New("invalid session name")

// Message is one line of the conversation log.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user", "assistant", "system"
	Content   string    `json:"content"`
	Thinking  string    `json:"thinking,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage stamps a message with an ID and the current time.
func NewMessage(role, content string) Message {
	return Message{
		ID:        uuid.New().String()[:8],
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// Data is everything a named session restores.
type Data struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Project  string             `json:"project,omitempty"`
	View     string             `json:"view,omitempty"`
	Messages []Message          `json:"messages"`
	LastScan *engine.ScanResult `json:"last_scan,omitempty"`
	SavedAt  time.Time          `json:"saved_at"`
}

// Info summarises a stored session for listings.
type Info struct {
	Name     string
	SavedAt  time.Time
	Messages int
}

// Store manages session persistence: one JSON file per name.
type Store struct {
	mu      sync.RWMutex
	baseDir string
}

// NewStore creates a new session store
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Dir returns the directory sessions are stored in.
func (s *Store) Dir() string { return s.baseDir }

// Save writes d under name, replacing any previous session of that name.
func (s *Store) Save(name string, d Data) error {
	if err := validName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.Name = name
	d.SavedAt = time.Now()
	if d.Messages == nil {
		d.Messages = []Message{}
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	tmp := s.sessionPath(name) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.sessionPath(name))
}

// Load reads the session stored under name.
func (s *Store) Load(name string) (*Data, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.sessionPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	var d Data
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", name, err)
	}
	return &d, nil
}

// List returns stored session names, newest first.
func (s *Store) List() ([]string, error) {
	infos, err := s.Infos()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names, nil
}

// Infos returns a summary per stored session, newest first. Unreadable
// files are skipped.
func (s *Store) Infos() ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		var d Data
		if err := json.Unmarshal(data, &d); err != nil {
			continue
		}
		infos = append(infos, Info{
			Name:     strings.TrimSuffix(entry.Name(), ".json"),
			SavedAt:  d.SavedAt,
			Messages: len(d.Messages),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].SavedAt.After(infos[j].SavedAt)
	})
	return infos, nil
}

// Delete removes a stored session.
func (s *Store) Delete(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.sessionPath(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return err
	}
	return nil
}

func (s *Store) sessionPath(name string) string {
	return filepath.Join(s.baseDir, name+".json")
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
