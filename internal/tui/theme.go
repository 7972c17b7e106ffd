package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"task-manager/internal/pomodoro"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
)

var modeColors = map[pomodoro.Mode]lipgloss.Color{
	pomodoro.ModePomodoro:   lipgloss.Color("#ef4444"),
	pomodoro.ModeShortBreak: lipgloss.Color("#06b6d4"),
	pomodoro.ModeLongBreak:  lipgloss.Color("#6366f1"),
	pomodoro.ModeTest:       lipgloss.Color("#22c55e"),
}

var modeLabels = map[pomodoro.Mode]string{
	pomodoro.ModePomodoro:   "Pomodoro",
	pomodoro.ModeShortBreak: "Short break",
	pomodoro.ModeLongBreak:  "Long break",
	pomodoro.ModeTest:       "Test",
}

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)

	Panel = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(1, 3)
	Clock = lipgloss.NewStyle().Bold(true).Padding(1, 0)
)

func modeStyle(m pomodoro.Mode) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(modeColors[m])
}

// ProgressBar renders pct (0-100) as a bar of width cells.
func ProgressBar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(pct / 100 * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
