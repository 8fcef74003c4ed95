package ui

import "github.com/charmbracelet/lipgloss"

var (
	cyan    = lipgloss.Color("#00E5FF")
	yellow  = lipgloss.Color("#FFB500")
	red     = lipgloss.Color("#FF5555")
	muted   = lipgloss.Color("#6C7280")
	text    = lipgloss.Color("#ECEFF4")
	bgDark  = lipgloss.Color("#262831")
	magenta = lipgloss.Color("#FF1B6B")

	titleStyle = lipgloss.NewStyle().
			Foreground(cyan).
			Bold(true).
			Padding(0, 1)

	ownerStyle = lipgloss.NewStyle().
			Foreground(muted).
			Padding(0, 1)

	headerRowStyle = lipgloss.NewStyle().
			Foreground(muted).
			Bold(true)

	rowStyle = lipgloss.NewStyle().
			Foreground(text)

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(text).
				Background(bgDark)

	highlightRowStyle = lipgloss.NewStyle().
				Foreground(magenta).
				Bold(true)

	detachedStyle = lipgloss.NewStyle().
			Foreground(yellow).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(red).
			Bold(true).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(muted).
			Padding(0, 1)
)
