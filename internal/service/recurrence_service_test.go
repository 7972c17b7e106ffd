package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager/internal/model"
)

func TestNextDue(t *testing.T) {
	completed := time.Date(2025, 6, 10, 22, 30, 0, 0, time.UTC)

	assert.True(t, NextDue(NormalizeFrequency(""), completed).IsZero())
	assert.Equal(t, time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), NextDue(NormalizeFrequency("1"), completed))
	assert.Equal(t, time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC), NextDue(NormalizeFrequency("7"), completed))
	assert.Equal(t, time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC), NextDue(NormalizeFrequency("3"), completed))
}

func TestDue(t *testing.T) {
	completedAt := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	task := model.Task{Completed: true, RepeatType: model.RepeatDaily, CompletedAt: &completedAt}

	assert.False(t, Due(task, completedAt.Add(10*time.Hour)))
	assert.True(t, Due(task, time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)))

	task.Completed = false
	assert.False(t, Due(task, time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)))

	once := model.Task{Completed: true, RepeatType: model.RepeatNone, CompletedAt: &completedAt}
	assert.False(t, Due(once, completedAt.AddDate(1, 0, 0)))
}

func TestRecurrenceServiceReopenDue(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := env.user(t, "repeat@example.com")

	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
	longAgo := now.AddDate(0, 0, -3)
	recent := now.Add(-time.Hour)
	weekly := 7

	mk := func(title string, repeat model.RepeatType, interval *int, completedAt *time.Time) *model.Task {
		task := &model.Task{
			UserID: user.ID, Title: title, Completed: true, Status: model.StatusDone,
			RepeatType: repeat, RepeatInterval: interval, CompletedAt: completedAt,
		}
		require.NoError(t, env.tasks.Create(ctx, task))
		return task
	}
	dueDaily := mk("daily due", model.RepeatDaily, nil, &longAgo)
	notYet := mk("daily today", model.RepeatDaily, nil, &recent)
	notWeekly := mk("weekly", model.RepeatEveryNDays, &weekly, &longAgo)
	once := mk("once", model.RepeatNone, nil, &longAgo)

	svc := NewRecurrenceService(env.tasks)
	svc.now = func() time.Time { return now }

	n, err := svc.ReopenDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	reopened, err := env.tasks.FindByID(ctx, user.ID, dueDaily.ID)
	require.NoError(t, err)
	assert.False(t, reopened.Completed)
	assert.Equal(t, model.StatusTodo, reopened.Status)

	for _, id := range []string{notYet.ID, notWeekly.ID, once.ID} {
		task, err := env.tasks.FindByID(ctx, user.ID, id)
		require.NoError(t, err)
		assert.True(t, task.Completed, task.Title)
	}

	n, err = svc.ReopenDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
