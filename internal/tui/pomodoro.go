package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"task-manager/internal/pomodoro"
)

const (
	tickInterval = 250 * time.Millisecond
	barWidth     = 32
	// minutes added or removed by one press of + or -
	lengthStep = 5
)

type tickMsg time.Time

type committedMsg struct {
	err error
}

type pomodoroModel struct {
	ctx   context.Context
	timer *pomodoro.Timer
	task  string

	confirmQuit bool
	committing  bool
	lastLog     string
}

func newPomodoroModel(ctx context.Context, timer *pomodoro.Timer, task string) pomodoroModel {
	return pomodoroModel{
		ctx:     ctx,
		timer:   timer,
		task:    task,
		lastLog: "Press space to start.",
	}
}

func (m pomodoroModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m pomodoroModel) commitCmd() tea.Cmd {
	return func() tea.Msg {
		return committedMsg{err: m.timer.Commit(m.ctx)}
	}
}

func (m pomodoroModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.timer.Tick() {
			mode := m.timer.State().Mode
			m.lastLog = pomodoro.CompletionMessage(mode) + " Press c to continue."
			return m, tea.Batch(tickCmd(), func() tea.Msg { return bell() })
		}
		return m, tickCmd()
	case committedMsg:
		m.committing = false
		if msg.err != nil {
			m.lastLog = "Could not save session: " + msg.err.Error()
			return m, nil
		}
		m.lastLog = fmt.Sprintf("Now: %s.", modeLabels[m.timer.State().Mode])
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m pomodoroModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key != "q" && key != "esc" {
		m.confirmQuit = false
	}
	switch key {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc":
		if !m.timer.CanClose() && !m.confirmQuit {
			m.confirmQuit = true
			m.lastLog = "Timer is running. Press q again to quit."
			return m, nil
		}
		return m, tea.Quit
	case " ", "s":
		m.timer.Toggle()
		if m.timer.State().Active {
			m.lastLog = "Focus."
		} else {
			m.lastLog = "Paused."
		}
	case "r":
		m.timer.Reset()
		m.lastLog = "Reset."
	case "1":
		m.timer.SwitchMode(pomodoro.ModePomodoro)
	case "2":
		m.timer.SwitchMode(pomodoro.ModeShortBreak)
	case "3":
		m.timer.SwitchMode(pomodoro.ModeLongBreak)
	case "t":
		m.timer.SwitchMode(pomodoro.ModeTest)
	case "+", "=":
		m.adjustLength(lengthStep)
	case "-":
		m.adjustLength(-lengthStep)
	case "c", "enter":
		if m.committing {
			return m, nil
		}
		m.committing = true
		m.lastLog = "Saving…"
		return m, m.commitCmd()
	}
	return m, nil
}

// adjustLength changes the current mode's length and reloads the clock.
func (m *pomodoroModel) adjustLength(delta int) {
	s := m.timer.Settings()
	switch m.timer.State().Mode {
	case pomodoro.ModePomodoro:
		s.Work += delta
	case pomodoro.ModeShortBreak:
		s.ShortBreak += delta
	case pomodoro.ModeLongBreak:
		s.LongBreak += delta
	default:
		m.lastLog = "The test mode has a fixed length."
		return
	}
	if err := m.timer.ApplySettings(s); err != nil {
		m.lastLog = "Could not change length: " + err.Error()
		return
	}
	m.lastLog = fmt.Sprintf("Lengths: %d/%d/%d min.", s.Work, s.ShortBreak, s.LongBreak)
}

func (m pomodoroModel) View() string {
	st := m.timer.State()

	var tabs []string
	for _, mode := range pomodoro.Modes {
		label := modeLabels[mode]
		if mode == st.Mode {
			tabs = append(tabs, modeStyle(mode).Underline(true).Render(label))
		} else {
			tabs = append(tabs, Muted.Render(label))
		}
	}

	var b strings.Builder
	b.WriteString(Title.Render("🍅 Pomodoro"))
	if m.task != "" {
		b.WriteString(Muted.Render(" · ") + m.task)
	}
	b.WriteString("\n\n")
	b.WriteString(strings.Join(tabs, Muted.Render("  |  ")))
	b.WriteString("\n")
	b.WriteString(Clock.Render(modeStyle(st.Mode).Render(pomodoro.FormatClock(st.Remaining))))
	b.WriteString("\n")
	b.WriteString(modeStyle(st.Mode).Render(ProgressBar(m.timer.Progress(), barWidth)))
	b.WriteString(fmt.Sprintf(" %3.0f%%\n\n", m.timer.Progress()))

	status := Muted.Render("paused")
	switch {
	case st.Active:
		status = Good.Render("running")
	case st.Finished:
		status = Warn.Render("finished")
	}
	b.WriteString(fmt.Sprintf("%s %s   %s %d\n\n", Key.Render("state:"), status, Key.Render("sessions:"), st.Completed))

	if strings.HasPrefix(m.lastLog, "Could not") {
		b.WriteString(Bad.Render(m.lastLog))
	} else {
		b.WriteString(m.lastLog)
	}
	b.WriteString("\n")
	b.WriteString(Muted.Render("space start/pause · r reset · 1/2/3/t mode · +/- length · c commit · q quit"))

	return Panel.Render(b.String())
}

func bell() tea.Msg {
	fmt.Print("\a")
	return nil
}

// RunPomodoro runs the timer UI until the user quits.
func RunPomodoro(ctx context.Context, timer *pomodoro.Timer, task string, out io.Writer) error {
	p := tea.NewProgram(newPomodoroModel(ctx, timer, task), tea.WithContext(ctx), tea.WithOutput(out))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
