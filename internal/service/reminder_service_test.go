package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager/internal/model"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", FormatDuration(0))
	assert.Equal(t, "0s", FormatDuration(-4))
	assert.Equal(t, "45s", FormatDuration(45))
	assert.Equal(t, "25m", FormatDuration(1500))
	assert.Equal(t, "1h 05m", FormatDuration(3900))
}

func TestRenderDigest(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	overdue := now.Add(-24 * time.Hour)
	soon := now.Add(5 * time.Hour)
	estimate := 60
	interval := 3

	tasks := []model.Task{
		{Title: "Fix <bug>", Priority: model.PriorityUrgent, Status: model.StatusInProgress, DueDate: &overdue},
		{Title: "Call mom", Priority: model.PriorityLow, DueDate: &soon, RepeatType: model.RepeatEveryNDays, RepeatInterval: &interval},
		{Title: "Read", Estimate: &estimate, TotalTimeSpent: 1500},
	}

	out := RenderDigest(model.User{Name: "Ann & Co"}, tasks, now)

	assert.Contains(t, out, "for Ann &amp; Co")
	assert.Contains(t, out, "Mon, 02 Jun 2025")
	assert.Contains(t, out, "1. 🔴 Fix &lt;bug&gt; <i>[in progress]</i>")
	assert.Contains(t, out, "<b>overdue</b>")
	assert.Contains(t, out, "2. ⚪ Call mom")
	assert.Contains(t, out, "⏳ due 2025-06-02 14:00")
	assert.Contains(t, out, "every 3 days")
	assert.Contains(t, out, "25m of 1h 00m")
	assert.Contains(t, out, "3 open · 25m tracked")
}

func TestRenderDigestEmpty(t *testing.T) {
	out := RenderDigest(model.User{}, nil, time.Now())
	assert.Contains(t, out, "Nothing open")
}

func TestReminderServiceDigest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := env.user(t, "digest@example.com")

	_, err := env.task.Create(ctx, user.ID, TaskInput{Title: "Open one"})
	require.NoError(t, err)
	done, err := env.task.Create(ctx, user.ID, TaskInput{Title: "Closed one"})
	require.NoError(t, err)
	_, err = env.task.Complete(ctx, user.ID, done.ID)
	require.NoError(t, err)

	out, err := NewReminderService(env.tasks).Digest(ctx, *user, time.Now())
	require.NoError(t, err)
	assert.Contains(t, out, "Open one")
	assert.NotContains(t, out, "Closed one")
}
