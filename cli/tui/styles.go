// Package tui provides Bubble Tea TUI components for the qrtx CLI.
//
// SendModel cycles the frames of one payload as QR codes on the terminal.
// ReceiveModel shows reassembly progress for frames captured elsewhere.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	successColor   = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	highlightColor = lipgloss.Color("#3B82F6") // Blue
)

// Styles for TUI components.
var (
	// TitleStyle for headers and titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// LabelStyle for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(12)

	// ValueStyle for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	// SuccessStyle for success states.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// WarningStyle for warning states.
	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// ErrorStyle for error states.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// CodeStyle frames the rendered QR code. The quiet zone is part of the
	// code itself, so no padding is added.
	CodeStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(mutedColor)

	// CounterStyle for the k:n frame counter.
	CounterStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(highlightColor)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)

// StatusStyle returns a style for a transfer or outcome status string.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "delivered", "finished", "accepted":
		return SuccessStyle
	case "collecting", "duplicate", "stale_frame", "paused":
		return WarningStyle
	case "corrupt_payload", "sink_failed", "malformed_frame", "error":
		return ErrorStyle
	default:
		return ValueStyle
	}
}
