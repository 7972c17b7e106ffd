// Package pomodoro implements the focus timer: a countdown that cycles
// between work and break modes and reports finished work sessions.
package pomodoro

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// Mode is the kind of interval being timed.
type Mode string

const (
	ModePomodoro   Mode = "pomodoro"
	ModeShortBreak Mode = "shortBreak"
	ModeLongBreak  Mode = "longBreak"
	ModeTest       Mode = "test"
)

// Modes lists every mode in display order.
var Modes = []Mode{ModePomodoro, ModeShortBreak, ModeLongBreak, ModeTest}

// Work reports whether m counts as a focus session.
func (m Mode) Work() bool {
	return m == ModePomodoro || m == ModeTest
}

func (m Mode) Valid() bool {
	switch m {
	case ModePomodoro, ModeShortBreak, ModeLongBreak, ModeTest:
		return true
	}
	return false
}

const (
	testSeconds    = 2
	longBreakEvery = 4
)

// ErrCommitInProgress is returned when Commit is called again before the previous call returned.
var ErrCommitInProgress = errors.New("pomodoro: commit already in progress")

// Settings are interval lengths in minutes.
type Settings struct {
	Work       int
	ShortBreak int
	LongBreak  int
}

func DefaultSettings() Settings {
	return Settings{Work: 25, ShortBreak: 5, LongBreak: 15}
}

func (s Settings) Validate() error {
	if s.Work <= 0 || s.ShortBreak <= 0 || s.LongBreak <= 0 {
		return fmt.Errorf("pomodoro: durations must be positive, got %d/%d/%d", s.Work, s.ShortBreak, s.LongBreak)
	}
	return nil
}

// Seconds is the full length of m.
func (s Settings) Seconds(m Mode) int {
	switch m {
	case ModePomodoro:
		return s.Work * 60
	case ModeShortBreak:
		return s.ShortBreak * 60
	case ModeLongBreak:
		return s.LongBreak * 60
	default:
		return testSeconds
	}
}

// CommitFunc receives the length of each finished work session.
type CommitFunc func(ctx context.Context, seconds int64, mode Mode) error

// State is a point-in-time view of a Timer.
type State struct {
	Mode      Mode
	Remaining int
	Total     int
	Active    bool
	Finished  bool
	Completed int
}

// Option configures a Timer.
type Option func(*Timer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// WithCommit attaches the callback run for finished work sessions. Without
// one, sessions are only counted.
func WithCommit(fn CommitFunc) Option {
	return func(t *Timer) { t.commit = fn }
}

// Timer is safe for concurrent use.
type Timer struct {
	mu         sync.Mutex
	settings   Settings
	mode       Mode
	lastWork   Mode
	remaining  int
	endAt      time.Time
	active     bool
	finished   bool
	completed  int
	committing bool

	commit CommitFunc
	now    func() time.Time
}

func New(settings Settings, opts ...Option) (*Timer, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	t := &Timer{
		settings:  settings,
		mode:      ModePomodoro,
		lastWork:  ModePomodoro,
		remaining: settings.Seconds(ModePomodoro),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

func (t *Timer) stateLocked() State {
	return State{
		Mode:      t.mode,
		Remaining: t.remaining,
		Total:     t.settings.Seconds(t.mode),
		Active:    t.active,
		Finished:  t.finished,
		Completed: t.completed,
	}
}

func (t *Timer) Settings() Settings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settings
}

// Start runs the countdown from the current remaining time.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		return
	}
	t.active = true
	t.finished = false
	t.endAt = t.now().Add(time.Duration(t.remaining) * time.Second)
}

// Pause freezes the countdown.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pauseLocked()
}

func (t *Timer) pauseLocked() {
	if !t.active {
		return
	}
	t.remaining = t.remainingAt(t.now())
	t.active = false
	t.endAt = time.Time{}
}

// Toggle starts a paused timer or pauses a running one.
func (t *Timer) Toggle() {
	if t.State().Active {
		t.Pause()
		return
	}
	t.Start()
}

// Tick recomputes the remaining time from the wall clock. It reports true
// exactly once when a running countdown reaches zero.
func (t *Timer) Tick() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return false
	}
	t.remaining = t.remainingAt(t.now())
	if t.remaining > 0 {
		return false
	}
	t.active = false
	t.finished = true
	t.endAt = time.Time{}
	return true
}

func (t *Timer) remainingAt(now time.Time) int {
	left := int(math.Round(t.endAt.Sub(now).Seconds()))
	if left < 0 {
		return 0
	}
	return left
}

// Reset reloads the full length of the current mode.
func (t *Timer) Reset() {
	t.SwitchMode(t.State().Mode)
}

// SwitchMode stops the timer and loads m's full length.
func (t *Timer) SwitchMode(m Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.switchLocked(m)
}

func (t *Timer) switchLocked(m Mode) {
	if !m.Valid() {
		m = ModePomodoro
	}
	t.active = false
	t.finished = false
	t.endAt = time.Time{}
	t.mode = m
	if m.Work() {
		t.lastWork = m
	}
	t.remaining = t.settings.Seconds(m)
}

// ApplySettings stops the timer and reloads the current mode with the new
// lengths. The test mode keeps its remaining time.
func (t *Timer) ApplySettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pauseLocked()
	t.settings = s
	if t.mode != ModeTest {
		t.remaining = s.Seconds(t.mode)
		t.finished = false
	}
	return nil
}

// Commit closes the current interval. After a work session the completed
// counter grows, the commit callback gets the session length and the timer
// moves to a break, long on every fourth session. After a break it returns
// to the last work mode. A callback error is returned after the transition.
func (t *Timer) Commit(ctx context.Context) error {
	t.mu.Lock()
	if t.committing {
		t.mu.Unlock()
		return ErrCommitInProgress
	}
	t.committing = true
	mode := t.mode
	if !mode.Work() {
		t.switchLocked(t.lastWork)
		t.committing = false
		t.mu.Unlock()
		return nil
	}
	t.completed++
	n := t.completed
	seconds := int64(t.settings.Seconds(mode))
	commit := t.commit
	t.mu.Unlock()

	var err error
	if commit != nil {
		err = commit(ctx, seconds, mode)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if n%longBreakEvery == 0 {
		t.switchLocked(ModeLongBreak)
	} else {
		t.switchLocked(ModeShortBreak)
	}
	t.committing = false
	return err
}

// Progress is the elapsed share of the current interval, 0 to 100.
func (t *Timer) Progress() float64 {
	s := t.State()
	return progress(s.Total, s.Remaining)
}

func progress(total, remaining int) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(total-remaining) / float64(total) * 100
	return math.Max(0, math.Min(100, p))
}

// CanClose reports whether the timer can be dismissed without confirmation.
func (t *Timer) CanClose() bool {
	return !t.State().Active
}

// FormatClock renders seconds as MM:SS, or HH:MM:SS from one hour up.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// CompletionMessage is the prompt shown when an interval finishes.
func CompletionMessage(m Mode) string {
	if m.Work() {
		return "Great work! Time for a well-deserved break."
	}
	return "Break's over! Ready for the next session?"
}
