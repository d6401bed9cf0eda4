package app

// history.go: input history for the prompt and the command line.
// Up = older, Down = newer. Whatever was typed before the first Up is kept
// aside and comes back when navigating past the newest entry.

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
)

// MaxHistory is how many submitted lines are kept.
const MaxHistory = 50

// History is a bounded list of submitted lines, oldest first.
type History struct {
	entries []string
	index   int // len(entries) means "not navigating"
	draft   string
}

// NewHistory seeds the history with previously saved entries.
func NewHistory(entries []string) *History {
	if len(entries) > MaxHistory {
		entries = entries[len(entries)-MaxHistory:]
	}
	h := &History{entries: append([]string(nil), entries...)}
	h.index = len(h.entries)
	return h
}

// Push records a submitted line and ends navigation. Repeating the previous
// line is not recorded twice.
func (h *History) Push(line string) {
	defer h.Reset()
	if line == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return
	}
	h.entries = append(h.entries, line)
	if len(h.entries) > MaxHistory {
		h.entries = h.entries[len(h.entries)-MaxHistory:]
	}
}

// Prev moves to the next older entry. current is the text in the input when
// navigation starts; it is stashed as the draft.
func (h *History) Prev(current string) (string, bool) {
	if len(h.entries) == 0 {
		return current, false
	}
	if h.index == len(h.entries) {
		h.draft = current
	}
	if h.index > 0 {
		h.index--
	}
	return h.entries[h.index], true
}

// Next moves to the next newer entry, returning the draft once past the
// newest. It reports false when not navigating.
func (h *History) Next() (string, bool) {
	if h.index >= len(h.entries) {
		return "", false
	}
	h.index++
	if h.index == len(h.entries) {
		return h.draft, true
	}
	return h.entries[h.index], true
}

// Reset ends navigation and drops the draft.
func (h *History) Reset() {
	h.index = len(h.entries)
	h.draft = ""
}

// Navigating reports whether an older entry is currently shown.
func (h *History) Navigating() bool { return h.index < len(h.entries) }

// Entries returns a copy of the stored lines, oldest first.
func (h *History) Entries() []string { return append([]string(nil), h.entries...) }

// ─── Persistence ──────────────────────────────────────────────────────────────

// LoadHistory reads a JSONL history file. A missing or unreadable file
// yields an empty history.
func LoadHistory(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var entries []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var s string
		if err := json.Unmarshal(sc.Bytes(), &s); err == nil && s != "" {
			entries = append(entries, s)
		}
	}
	if len(entries) > MaxHistory {
		entries = entries[len(entries)-MaxHistory:]
	}
	return entries
}

// SaveHistory writes entries as one JSON string per line.
func SaveHistory(path string, entries []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, e := range entries {
		b, _ := json.Marshal(e)
		_, _ = w.Write(b)
		_ = w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
