package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"task-manager/internal/model"
	"task-manager/internal/repository"
)

// ReminderService builds human-readable summaries for digests.
type ReminderService struct {
	tasks *repository.TaskRepository
}

func NewReminderService(tasks *repository.TaskRepository) *ReminderService {
	return &ReminderService{tasks: tasks}
}

// Digest renders the user's open tasks as Telegram HTML.
func (s *ReminderService) Digest(ctx context.Context, user model.User, now time.Time) (string, error) {
	tasks, err := s.tasks.ListOpen(ctx, user.ID)
	if err != nil {
		return "", err
	}
	SortTasks(tasks)
	return RenderDigest(user, tasks, now), nil
}

// RenderDigest formats tasks, assumed open and already ordered.
func RenderDigest(user model.User, tasks []model.Task, now time.Time) string {
	var builder strings.Builder
	builder.WriteString("📋 <b>Daily digest</b>")
	if name := strings.TrimSpace(user.Name); name != "" {
		builder.WriteString(fmt.Sprintf(" for %s", html.EscapeString(name)))
	}
	builder.WriteString(fmt.Sprintf("\n🗓 %s\n\n", now.Format("Mon, 02 Jan 2006")))

	if len(tasks) == 0 {
		builder.WriteString("Nothing open. Enjoy the day!\n")
		return strings.TrimSpace(builder.String())
	}

	var spent int64
	for i, task := range tasks {
		builder.WriteString(FormatTaskLine(i+1, task, now))
		spent += task.TotalTimeSpent
	}
	builder.WriteString(fmt.Sprintf("\n%d open", len(tasks)))
	if spent > 0 {
		builder.WriteString(fmt.Sprintf(" · %s tracked", FormatDuration(spent)))
	}
	return strings.TrimSpace(builder.String())
}

// FormatTaskLine renders one numbered digest entry.
func FormatTaskLine(n int, task model.Task, now time.Time) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%d. %s %s", n, priorityIcon(task.Priority), html.EscapeString(strings.TrimSpace(task.Title))))
	if task.Status != model.StatusTodo && task.Status != "" {
		sb.WriteString(fmt.Sprintf(" <i>[%s]</i>", strings.ReplaceAll(string(task.Status), "_", " ")))
	}

	if task.DueDate != nil {
		d := task.DueDate.In(now.Location())
		switch {
		case now.After(d):
			sb.WriteString(fmt.Sprintf("\n   ⚠️ due %s, <b>overdue</b>", d.Format("2006-01-02")))
		case d.Sub(now) <= 48*time.Hour:
			sb.WriteString(fmt.Sprintf("\n   ⏳ due %s", d.Format("2006-01-02 15:04")))
		default:
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s", d.Format("2006-01-02")))
		}
	}

	if r := RepeatOf(task); r.Days() > 0 {
		sb.WriteString(fmt.Sprintf("\n   ♻️ %s", r.Describe()))
	}

	if task.TotalTimeSpent > 0 || task.Estimate != nil {
		sb.WriteString("\n   ⏱ " + FormatDuration(task.TotalTimeSpent))
		if task.Estimate != nil {
			sb.WriteString(fmt.Sprintf(" of %s", FormatDuration(int64(*task.Estimate)*60)))
		}
	}

	sb.WriteByte('\n')
	return sb.String()
}

func priorityIcon(p model.Priority) string {
	switch p {
	case model.PriorityUrgent:
		return "🔴"
	case model.PriorityHigh:
		return "🟠"
	case model.PriorityLow:
		return "⚪"
	default:
		return "🟢"
	}
}

// FormatDuration renders seconds as "1h 05m", "12m" or "40s".
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
