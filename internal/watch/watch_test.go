package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root string, debounce time.Duration) <-chan []string {
	t.Helper()
	w, err := New(root, debounce, nil)
	require.NoError(t, err)
	got := make(chan []string, 8)
	require.NoError(t, w.Start(context.Background(), func(paths []string) { got <- paths }))
	t.Cleanup(w.Stop)
	return got
}

func TestWatcherDebouncesBurst(t *testing.T) {
	root := t.TempDir()
	got := startWatcher(t, root, 300*time.Millisecond)

	for _, name := range []string{"a.ts", "b.ts", "c.ts"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}

	select {
	case paths := <-got:
		require.Equal(t, []string{
			filepath.Join(root, "a.ts"),
			filepath.Join(root, "b.ts"),
			filepath.Join(root, "c.ts"),
		}, paths)
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestWatcherIgnoresSkippedDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0o755))
	got := startWatcher(t, root, 50*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "pkg", "index.js"), []byte("x"), 0o644))

	select {
	case paths := <-got:
		t.Fatalf("unexpected notification %v", paths)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherFollowsNewDirs(t *testing.T) {
	root := t.TempDir()
	got := startWatcher(t, root, 50*time.Millisecond)

	sub := filepath.Join(root, "src")
	require.NoError(t, os.Mkdir(sub, 0o755))
	select {
	case <-got:
	case <-time.After(3 * time.Second):
		t.Fatal("mkdir not reported")
	}

	require.NoError(t, os.WriteFile(filepath.Join(sub, "main.ts"), []byte("x"), 0o644))
	select {
	case paths := <-got:
		require.Contains(t, paths, filepath.Join(sub, "main.ts"))
	case <-time.After(3 * time.Second):
		t.Fatal("write in new dir not reported")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), 0, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background(), func([]string) {}))
	w.Stop()
	w.Stop()
}

func TestListFiles(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"main.go", "pkg/a.go", "node_modules/x/y.js", ".git/HEAD", "pkg/sub/b.ts"} {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}

	files, err := ListFiles(root, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"main.go", "pkg/a.go", "pkg/sub/b.ts"}, files)

	files, err = ListFiles(root, 2)
	require.NoError(t, err)
	require.Len(t, files, 2)

	_, err = ListFiles(filepath.Join(root, "missing"), 0)
	require.Error(t, err)
}

func TestStartMissingRoot(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing"), 0, nil)
	require.NoError(t, err)
	require.Error(t, w.Start(context.Background(), func([]string) {}))

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked after a failed Start")
	}
}
