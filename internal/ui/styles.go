package ui

import "github.com/charmbracelet/lipgloss"

// Colors follow the ANSI palette so they respect the user's terminal theme.
var (
	SuccessColor = lipgloss.Color("2")
	ErrorColor   = lipgloss.Color("1")
	MutedColor   = lipgloss.Color("8")
)

var (
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor)
)
