package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "complior.log")

	log, err := New(path, "warn", false)
	require.NoError(t, err)
	log.Info("hidden")
	log.Warn("shown")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "hidden")
	require.Contains(t, string(data), "shown")
}

func TestNewVerbose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "complior.log")

	log, err := New(path, "nonsense", true)
	require.NoError(t, err)
	log.Debug("debug line")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "debug line"))
}
