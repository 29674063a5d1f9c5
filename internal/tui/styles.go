package tui

import (
	"github.com/charmbracelet/lipgloss"

	"image-compressor-go/internal/controller"
)

// Styling functions using lipgloss
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Bold(true).
			Padding(0, 2).
			MarginBottom(1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	NeutralStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	LabelStyle = lipgloss.NewStyle().Bold(true)

	ButtonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("238")).
			Padding(0, 1)

	FocusedButtonStyle = ButtonStyle.
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("62")).
				Bold(true)

	DisabledButtonStyle = ButtonStyle.
				Foreground(lipgloss.Color("241")).
				Background(lipgloss.Color("236"))

	HelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	separator = lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Render("────────────────────────────────────────")
)

// StatusStyle picks the colour for a status line: red errors, green
// successes, gray otherwise.
func StatusStyle(kind controller.StatusKind) lipgloss.Style {
	switch kind {
	case controller.StatusError:
		return ErrorStyle
	case controller.StatusSuccess:
		return SuccessStyle
	default:
		return NeutralStyle
	}
}

// RenderStatus colours status by its prefix.
func RenderStatus(status string) string {
	return StatusStyle(controller.ClassifyStatus(status)).Render(status)
}
