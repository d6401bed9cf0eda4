package app

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestHistoryKeepsNewest(t *testing.T) {
	h := NewHistory(nil)
	for i := 0; i < MaxHistory+10; i++ {
		h.Push(fmt.Sprintf("line %d", i))
	}
	got := h.Entries()
	require.Len(t, got, MaxHistory)
	require.Equal(t, "line 10", got[0])
	require.Equal(t, fmt.Sprintf("line %d", MaxHistory+9), got[len(got)-1])
}

func TestHistorySkipsRepeatsAndEmpty(t *testing.T) {
	h := NewHistory([]string{"scan"})
	h.Push("scan")
	h.Push("")
	h.Push("chat hi")
	h.Push("scan")
	require.Equal(t, []string{"scan", "chat hi", "scan"}, h.Entries())
}

func TestHistoryNavigationRestoresDraft(t *testing.T) {
	h := NewHistory([]string{"one", "two"})

	_, ok := h.Next()
	require.False(t, ok, "Next without navigating")

	s, ok := h.Prev("draft")
	require.True(t, ok)
	require.Equal(t, "two", s)
	require.True(t, h.Navigating())

	s, _ = h.Prev(s)
	require.Equal(t, "one", s)
	s, _ = h.Prev(s)
	require.Equal(t, "one", s, "oldest entry sticks")

	s, _ = h.Next()
	require.Equal(t, "two", s)
	s, ok = h.Next()
	require.True(t, ok)
	require.Equal(t, "draft", s)
	require.False(t, h.Navigating())
}

func TestHistoryEmpty(t *testing.T) {
	h := NewHistory(nil)
	s, ok := h.Prev("typed")
	require.False(t, ok)
	require.Equal(t, "typed", s)
}

func TestHistoryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.jsonl")
	require.Nil(t, LoadHistory(path))

	want := []string{"scan", `chat "quoted"`, "multi\nline"}
	require.NoError(t, SaveHistory(path, want))
	if diff := cmp.Diff(want, LoadHistory(path)); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}

	// garbage lines are skipped
	require.NoError(t, os.WriteFile(path, []byte("\"ok\"\nnot json\n\"\"\n"), 0o644))
	require.Equal(t, []string{"ok"}, LoadHistory(path))
}
