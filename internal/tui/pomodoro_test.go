package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager/internal/pomodoro"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newModel(t *testing.T, opts ...pomodoro.Option) pomodoroModel {
	t.Helper()
	timer, err := pomodoro.New(pomodoro.DefaultSettings(), opts...)
	require.NoError(t, err)
	return newPomodoroModel(context.Background(), timer, "Write report")
}

func isQuit(t *testing.T, cmd tea.Cmd) bool {
	t.Helper()
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "░░░░", ProgressBar(0, 4))
	assert.Equal(t, "██░░", ProgressBar(50, 4))
	assert.Equal(t, "████", ProgressBar(150, 4))
	assert.Equal(t, "░░░░", ProgressBar(-10, 4))
	assert.Equal(t, "", ProgressBar(50, 0))
}

func TestQuitNeedsConfirmationWhileRunning(t *testing.T) {
	m := newModel(t)

	next, cmd := m.Update(keyRunes("q"))
	assert.True(t, isQuit(t, cmd), "idle timer quits at once")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeySpace})
	m = next.(pomodoroModel)
	assert.True(t, m.timer.State().Active)

	next, cmd = m.Update(keyRunes("q"))
	m = next.(pomodoroModel)
	assert.False(t, isQuit(t, cmd))
	assert.True(t, m.confirmQuit)
	assert.Contains(t, m.View(), "Press q again")

	_, cmd = m.Update(keyRunes("q"))
	assert.True(t, isQuit(t, cmd))
}

func TestModeKeys(t *testing.T) {
	m := newModel(t)
	for key, want := range map[string]pomodoro.Mode{
		"2": pomodoro.ModeShortBreak,
		"3": pomodoro.ModeLongBreak,
		"t": pomodoro.ModeTest,
		"1": pomodoro.ModePomodoro,
	} {
		next, _ := m.Update(keyRunes(key))
		m = next.(pomodoroModel)
		assert.Equal(t, want, m.timer.State().Mode, key)
	}
}

func TestLengthKeys(t *testing.T) {
	m := newModel(t)

	next, _ := m.Update(keyRunes("+"))
	m = next.(pomodoroModel)
	assert.Equal(t, 30, m.timer.Settings().Work)
	assert.Equal(t, 30*60, m.timer.State().Remaining)
	assert.Equal(t, "Lengths: 30/5/15 min.", m.lastLog)

	next, _ = m.Update(keyRunes("2"))
	m = next.(pomodoroModel)
	next, _ = m.Update(keyRunes("-"))
	m = next.(pomodoroModel)
	assert.Equal(t, pomodoro.Settings{Work: 30, ShortBreak: 5, LongBreak: 15}, m.timer.Settings())
	assert.Contains(t, m.lastLog, "Could not change length")
	assert.Contains(t, m.View(), "Could not change length")

	next, _ = m.Update(keyRunes("3"))
	m = next.(pomodoroModel)
	next, _ = m.Update(keyRunes("="))
	m = next.(pomodoroModel)
	assert.Equal(t, 20, m.timer.Settings().LongBreak)
	assert.Equal(t, 20*60, m.timer.State().Remaining)

	next, _ = m.Update(keyRunes("t"))
	m = next.(pomodoroModel)
	next, _ = m.Update(keyRunes("+"))
	m = next.(pomodoroModel)
	assert.Equal(t, "The test mode has a fixed length.", m.lastLog)
	assert.Equal(t, pomodoro.Settings{Work: 30, ShortBreak: 5, LongBreak: 20}, m.timer.Settings())
}

func TestCommitKey(t *testing.T) {
	var seconds int64
	m := newModel(t, pomodoro.WithCommit(func(ctx context.Context, s int64, mode pomodoro.Mode) error {
		seconds = s
		return errors.New("offline")
	}))

	next, cmd := m.Update(keyRunes("c"))
	m = next.(pomodoroModel)
	require.NotNil(t, cmd)
	assert.True(t, m.committing)

	_, again := m.Update(keyRunes("c"))
	assert.Nil(t, again, "second commit is ignored while saving")

	msg := cmd()
	next, _ = m.Update(msg)
	m = next.(pomodoroModel)
	assert.False(t, m.committing)
	assert.Equal(t, int64(1500), seconds)
	assert.Equal(t, pomodoro.ModeShortBreak, m.timer.State().Mode)
	assert.Contains(t, m.lastLog, "offline")
}

func TestViewShowsClockAndTask(t *testing.T) {
	m := newModel(t)
	view := m.View()
	assert.Contains(t, view, "25:00")
	assert.Contains(t, view, "Write report")
	assert.Contains(t, view, "Pomodoro")
}
