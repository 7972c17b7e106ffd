package service

import (
	"context"
	"log"
	"time"

	"task-manager/internal/model"
	"task-manager/internal/repository"
)

// RecurrenceService brings completed repeating tasks back once their period is over.
type RecurrenceService struct {
	tasks *repository.TaskRepository
	now   func() time.Time
}

func NewRecurrenceService(tasks *repository.TaskRepository) *RecurrenceService {
	return &RecurrenceService{tasks: tasks, now: time.Now}
}

// NextDue is the start of the day on which a task completed at completedAt
// comes back. The zero time means it never does.
func NextDue(r Repeat, completedAt time.Time) time.Time {
	days := r.Days()
	if days == 0 {
		return time.Time{}
	}
	y, m, d := completedAt.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, completedAt.Location()).AddDate(0, 0, days)
}

// Due reports whether task should be reopened at now.
func Due(task model.Task, now time.Time) bool {
	if !task.Completed || task.CompletedAt == nil {
		return false
	}
	next := NextDue(RepeatOf(task), task.CompletedAt.In(now.Location()))
	return !next.IsZero() && !now.Before(next)
}

// ReopenDue reopens every task whose repeat period has elapsed.
func (s *RecurrenceService) ReopenDue(ctx context.Context) (int64, error) {
	now := s.now()
	tasks, err := s.tasks.ListCompletedRepeating(ctx)
	if err != nil {
		return 0, err
	}

	var ids []string
	for _, task := range tasks {
		if Due(task, now) {
			ids = append(ids, task.ID)
		}
	}
	n, err := s.tasks.Reopen(ctx, ids, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("[info] reopened %d repeating tasks", n)
	}
	return n, nil
}
