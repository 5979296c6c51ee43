// Package progress renders terminal progress bars, spinners and styled
// status lines for the CLI.
package progress

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	TitleStyle   = lipgloss.NewStyle().Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	InfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	AccentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// IsTerminal reports whether w is an interactive terminal. Animations are
// only drawn on terminals.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
