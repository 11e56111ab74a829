package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kurohana/kurohana/internal/health"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("245"))

	badgeStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true)

	onlineBadge   = badgeStyle.Copy().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("42"))
	offlineBadge  = badgeStyle.Copy().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("196"))
	checkingBadge = badgeStyle.Copy().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("250"))

	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	sepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	keyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
)

func badgeFor(s health.State) lipgloss.Style {
	switch s {
	case health.StateOnline:
		return onlineBadge
	case health.StateOffline:
		return offlineBadge
	}
	return checkingBadge
}
