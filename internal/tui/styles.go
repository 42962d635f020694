package tui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	pageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#555555")).
			Padding(0, 1)

	focusedSidebarStyle = sidebarStyle.
				BorderForeground(lipgloss.Color("#5f87ff"))

	positionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	userBadgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5fafff"))

	assistantBadgeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#d787ff"))

	activeStyle = lipgloss.NewStyle().
			Bold(true)

	cursorStyle = lipgloss.NewStyle().
			Reverse(true)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	controlsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)
)
