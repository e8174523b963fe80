package output

import "github.com/charmbracelet/lipgloss"

// Status symbols.
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "!"
	SymbolSkipped = "-"
	SymbolRunning = "…"
)

// Styles holds the lipgloss styles used by the renderer. Without color every
// style renders its input unchanged.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Accent  lipgloss.Style
}

// NewStyles returns colored styles, or plain ones when color is false.
func NewStyles(color bool) *Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return &Styles{Header: plain, Success: plain, Warning: plain, Error: plain, Muted: plain, Accent: plain}
	}
	return &Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Accent:  lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	}
}

// ForStatus maps a status name to its symbol and style.
func (s *Styles) ForStatus(status string) (string, lipgloss.Style) {
	switch status {
	case "success", "ok", "completed":
		return SymbolSuccess, s.Success
	case "failed", "error":
		return SymbolError, s.Error
	case "partial", "warning":
		return SymbolWarning, s.Warning
	case "skipped":
		return SymbolSkipped, s.Muted
	}
	return SymbolRunning, s.Accent
}
