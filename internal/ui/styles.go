// Package ui provides the bubbletea monitor dashboard for the
// spacenav CLI.
package ui

import "github.com/charmbracelet/lipgloss"

// Color palette - consistent across the application
var (
	ColorPrimary = lipgloss.Color("39")  // Bright blue
	ColorSuccess = lipgloss.Color("82")  // Green
	ColorWarning = lipgloss.Color("214") // Orange
	ColorError   = lipgloss.Color("196") // Red

	ColorText   = lipgloss.Color("252") // Light gray
	ColorSubtle = lipgloss.Color("241") // Medium gray
	ColorMuted  = lipgloss.Color("238") // Dark gray
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	TextStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	AxisLabelStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Width(4)

	BarPositiveStyle = lipgloss.NewStyle().
				Foreground(ColorSuccess)

	BarNegativeStyle = lipgloss.NewStyle().
				Foreground(ColorWarning)
)
