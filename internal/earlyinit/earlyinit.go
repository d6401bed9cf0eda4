// Package earlyinit must be imported before github.com/charmbracelet/bubbletea
// in cmd/complior/main.go. Its init pre-sets lipgloss's background flag so
// bubbletea's own init finds it cached and never sends the OSC 11 colour
// query, whose late reply would otherwise be read as keyboard input.
//
// The flag comes from COLORFGBG when the terminal exports it and defaults to
// dark otherwise.
package earlyinit

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func init() {
	lipgloss.SetHasDarkBackground(darkBackground(os.Getenv("COLORFGBG")))
}

// darkBackground interprets COLORFGBG ("fg;bg" or "fg;default;bg"). ANSI
// background colours 0-6 and 8 are dark; 7 and 9-15 are light.
func darkBackground(colorfgbg string) bool {
	if colorfgbg == "" {
		return true
	}
	parts := strings.Split(colorfgbg, ";")
	bg, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return true
	}
	return bg < 7 || bg == 8
}
