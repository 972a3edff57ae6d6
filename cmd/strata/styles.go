package main

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("#A78BFA")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#F87171")
	mutedColor   = lipgloss.Color("#9CA3AF")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)

	// levelColors tint the level column, lowest tier coolest.
	levelColors = map[string]lipgloss.Color{
		"atom":     lipgloss.Color("#60A5FA"),
		"molecule": lipgloss.Color("#34D399"),
		"organism": lipgloss.Color("#FBBF24"),
		"template": lipgloss.Color("#F472B6"),
		"page":     lipgloss.Color("#A78BFA"),
		"skip":     mutedColor,
	}
)

func levelStyle(level string) lipgloss.Style {
	if c, ok := levelColors[level]; ok {
		return lipgloss.NewStyle().Foreground(c)
	}
	return lipgloss.NewStyle()
}
