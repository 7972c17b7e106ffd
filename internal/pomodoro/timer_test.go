package pomodoro

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTimer(t *testing.T, opts ...Option) (*Timer, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	timer, err := New(DefaultSettings(), append([]Option{WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	return timer, clock
}

func TestSettings(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, 1500, s.Seconds(ModePomodoro))
	assert.Equal(t, 300, s.Seconds(ModeShortBreak))
	assert.Equal(t, 900, s.Seconds(ModeLongBreak))
	assert.Equal(t, 2, s.Seconds(ModeTest))

	assert.Error(t, Settings{Work: 0, ShortBreak: 5, LongBreak: 15}.Validate())
	_, err := New(Settings{Work: 25, ShortBreak: -1, LongBreak: 15})
	assert.Error(t, err)
}

func TestCountdown(t *testing.T) {
	timer, clock := newTimer(t)
	assert.Equal(t, State{Mode: ModePomodoro, Remaining: 1500, Total: 1500}, timer.State())

	timer.Start()
	clock.Advance(10*time.Second + 400*time.Millisecond)
	assert.False(t, timer.Tick())
	assert.Equal(t, 1490, timer.State().Remaining)

	clock.Advance(200 * time.Millisecond)
	timer.Tick()
	assert.Equal(t, 1489, timer.State().Remaining, "remaining is rounded")

	timer.Pause()
	clock.Advance(time.Minute)
	assert.False(t, timer.Tick())
	assert.Equal(t, 1489, timer.State().Remaining)
	assert.True(t, timer.CanClose())

	timer.Toggle()
	assert.True(t, timer.State().Active)
	assert.False(t, timer.CanClose())
	clock.Advance(time.Hour)
	assert.True(t, timer.Tick())
	st := timer.State()
	assert.Equal(t, 0, st.Remaining)
	assert.False(t, st.Active)
	assert.True(t, st.Finished)
	assert.False(t, timer.Tick(), "finish fires once")
	assert.Equal(t, float64(100), timer.Progress())
}

func TestProgressClamped(t *testing.T) {
	assert.Equal(t, float64(0), progress(0, 10))
	assert.Equal(t, float64(0), progress(100, 150))
	assert.Equal(t, float64(100), progress(100, -5))
	assert.Equal(t, float64(50), progress(100, 50))
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00", FormatClock(-3))
	assert.Equal(t, "00:02", FormatClock(2))
	assert.Equal(t, "25:00", FormatClock(1500))
	assert.Equal(t, "59:59", FormatClock(3599))
	assert.Equal(t, "01:00:00", FormatClock(3600))
	assert.Equal(t, "02:05:09", FormatClock(7509))
}

func TestCommitCycle(t *testing.T) {
	var committed []int64
	timer, _ := newTimer(t, WithCommit(func(ctx context.Context, seconds int64, mode Mode) error {
		committed = append(committed, seconds)
		return nil
	}))
	ctx := context.Background()

	var modes []Mode
	for i := 0; i < 8; i++ {
		require.NoError(t, timer.Commit(ctx))
		modes = append(modes, timer.State().Mode)
		require.NoError(t, timer.Commit(ctx))
		assert.Equal(t, ModePomodoro, timer.State().Mode)
	}

	assert.Equal(t, []Mode{
		ModeShortBreak, ModeShortBreak, ModeShortBreak, ModeLongBreak,
		ModeShortBreak, ModeShortBreak, ModeShortBreak, ModeLongBreak,
	}, modes)
	assert.Equal(t, 8, timer.State().Completed)
	require.Len(t, committed, 8)
	assert.Equal(t, int64(1500), committed[0])
}

func TestCommitTestModeReturnsToTest(t *testing.T) {
	var got []int64
	timer, _ := newTimer(t, WithCommit(func(ctx context.Context, seconds int64, mode Mode) error {
		assert.Equal(t, ModeTest, mode)
		got = append(got, seconds)
		return nil
	}))
	ctx := context.Background()

	timer.SwitchMode(ModeTest)
	assert.Equal(t, 2, timer.State().Remaining)
	require.NoError(t, timer.Commit(ctx))
	assert.Equal(t, ModeShortBreak, timer.State().Mode)
	require.NoError(t, timer.Commit(ctx))
	assert.Equal(t, ModeTest, timer.State().Mode)
	assert.Equal(t, []int64{2}, got)
}

func TestCommitWithoutCallbackOnlyCounts(t *testing.T) {
	timer, _ := newTimer(t)
	require.NoError(t, timer.Commit(context.Background()))
	assert.Equal(t, 1, timer.State().Completed)
	assert.Equal(t, ModeShortBreak, timer.State().Mode)
}

func TestCommitFailureStillTransitions(t *testing.T) {
	boom := errors.New("network down")
	timer, _ := newTimer(t, WithCommit(func(ctx context.Context, seconds int64, mode Mode) error {
		return boom
	}))

	err := timer.Commit(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, ModeShortBreak, timer.State().Mode)
	assert.Equal(t, 1, timer.State().Completed)
}

func TestCommitReentrancyGuard(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int
	timer, _ := newTimer(t, WithCommit(func(ctx context.Context, seconds int64, mode Mode) error {
		calls++
		close(entered)
		<-release
		return nil
	}))

	done := make(chan error, 1)
	go func() { done <- timer.Commit(context.Background()) }()
	<-entered

	assert.ErrorIs(t, timer.Commit(context.Background()), ErrCommitInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, timer.State().Completed)
}

func TestSwitchModeAndSettings(t *testing.T) {
	timer, clock := newTimer(t)

	timer.Start()
	timer.SwitchMode(ModeLongBreak)
	st := timer.State()
	assert.False(t, st.Active)
	assert.Equal(t, 900, st.Remaining)

	timer.Start()
	clock.Advance(30 * time.Second)
	require.NoError(t, timer.ApplySettings(Settings{Work: 50, ShortBreak: 10, LongBreak: 20}))
	st = timer.State()
	assert.False(t, st.Active)
	assert.Equal(t, 1200, st.Remaining)

	assert.Error(t, timer.ApplySettings(Settings{}))

	timer.SwitchMode(ModeTest)
	timer.Start()
	clock.Advance(time.Second)
	require.NoError(t, timer.ApplySettings(DefaultSettings()))
	assert.Equal(t, 1, timer.State().Remaining, "test mode keeps its remaining time")

	timer.Reset()
	assert.Equal(t, 2, timer.State().Remaining)

	timer.SwitchMode("bogus")
	assert.Equal(t, ModePomodoro, timer.State().Mode)
}

func TestCompletionMessage(t *testing.T) {
	assert.Contains(t, CompletionMessage(ModePomodoro), "break")
	assert.Contains(t, CompletionMessage(ModeLongBreak), "next session")
}
