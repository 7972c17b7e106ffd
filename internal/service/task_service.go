package service

import (
	"context"
	"strings"
	"time"

	"task-manager/internal/apperr"
	"task-manager/internal/model"
	"task-manager/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title               string
	Content             string
	Goal                string
	Status              model.Status
	Priority            model.Priority
	RepetitionFrequency string
	Estimate            *int
	DueDate             *time.Time
}

// TaskPatch carries the fields of an update. Nil fields are left untouched.
type TaskPatch struct {
	Title               *string
	Content             *string
	Goal                *string
	Completed           *bool
	Status              *model.Status
	Priority            *model.Priority
	RepetitionFrequency *string
	Estimate            *int
	DueDate             *time.Time
}

// TaskService wraps task-related business logic.
type TaskService struct {
	tasks *repository.TaskRepository
	query *repository.TaskQuery
	now   func() time.Time
}

func NewTaskService(tasks *repository.TaskRepository, query *repository.TaskQuery) *TaskService {
	return &TaskService{tasks: tasks, query: query, now: time.Now}
}

// List returns the user's tasks matching f, incomplete first, then by status, newest first.
func (s *TaskService) List(ctx context.Context, userID string, f repository.TaskFilter) ([]model.Task, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("unknown status").WithDetails(map[string]string{"status": string(f.Status)})
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return nil, apperr.Validation("unknown priority").WithDetails(map[string]string{"priority": string(f.Priority)})
	}
	tasks, err := s.query.List(ctx, userID, f)
	if err != nil {
		return nil, apperr.Database(err)
	}
	SortTasks(tasks)
	return tasks, nil
}

func (s *TaskService) Create(ctx context.Context, userID string, in TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	if err := ValidateFrequency(in.RepetitionFrequency); err != nil {
		return nil, err
	}
	if err := validateEnums(in.Status, in.Priority); err != nil {
		return nil, err
	}
	if err := validateEstimate(in.Estimate); err != nil {
		return nil, err
	}

	task := model.Task{
		UserID:   userID,
		Title:    title,
		Content:  in.Content,
		Goal:     in.Goal,
		Status:   in.Status,
		Priority: in.Priority,
		Estimate: in.Estimate,
		DueDate:  in.DueDate,
	}
	NormalizeFrequency(in.RepetitionFrequency).apply(&task)

	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, apperr.Database(err)
	}
	return &task, nil
}

func (s *TaskService) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, notFound(err)
	}
	return task, nil
}

// Replace applies a full update: the repeat rule is always rewritten, an
// absent frequency meaning no repetition.
func (s *TaskService) Replace(ctx context.Context, userID, taskID string, p TaskPatch) (*model.Task, error) {
	if p.RepetitionFrequency == nil {
		empty := ""
		p.RepetitionFrequency = &empty
	}
	return s.update(ctx, userID, taskID, p)
}

// Patch applies a partial update: the repeat rule changes only when a frequency is given.
func (s *TaskService) Patch(ctx context.Context, userID, taskID string, p TaskPatch) (*model.Task, error) {
	return s.update(ctx, userID, taskID, p)
}

func (s *TaskService) update(ctx context.Context, userID, taskID string, p TaskPatch) (*model.Task, error) {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return nil, apperr.Validation("title cannot be empty")
	}
	if p.RepetitionFrequency != nil {
		if err := ValidateFrequency(*p.RepetitionFrequency); err != nil {
			return nil, err
		}
	}
	var status model.Status
	var priority model.Priority
	if p.Status != nil {
		status = *p.Status
	}
	if p.Priority != nil {
		priority = *p.Priority
	}
	if err := validateEnums(status, priority); err != nil {
		return nil, err
	}
	if err := validateEstimate(p.Estimate); err != nil {
		return nil, err
	}

	task, err := s.tasks.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, notFound(err)
	}

	if p.Title != nil {
		task.Title = strings.TrimSpace(*p.Title)
	}
	if p.Content != nil {
		task.Content = *p.Content
	}
	if p.Goal != nil {
		task.Goal = *p.Goal
	}
	if p.Status != nil {
		task.Status = *p.Status
	}
	if p.Priority != nil {
		task.Priority = *p.Priority
	}
	if p.Estimate != nil {
		task.Estimate = p.Estimate
	}
	if p.DueDate != nil {
		task.DueDate = p.DueDate
	}
	if p.Completed != nil {
		s.setCompleted(task, *p.Completed)
	}
	if p.RepetitionFrequency != nil {
		NormalizeFrequency(*p.RepetitionFrequency).apply(task)
	}

	if err := s.tasks.Save(ctx, task); err != nil {
		return nil, apperr.Database(err)
	}
	return task, nil
}

func (s *TaskService) setCompleted(task *model.Task, completed bool) {
	if task.Completed == completed {
		return
	}
	task.Completed = completed
	if completed {
		now := s.now()
		task.CompletedAt = &now
		return
	}
	task.CompletedAt = nil
}

// Complete marks a task done. Used by the bot.
func (s *TaskService) Complete(ctx context.Context, userID, taskID string) (*model.Task, error) {
	completed := true
	status := model.StatusDone
	return s.Patch(ctx, userID, taskID, TaskPatch{Completed: &completed, Status: &status})
}

func (s *TaskService) Delete(ctx context.Context, userID, taskID string) error {
	if err := s.tasks.Delete(ctx, userID, taskID); err != nil {
		return notFound(err)
	}
	return nil
}

// AddTime commits a finished work session to the task. seconds must be
// positive and breaks are not tracked.
func (s *TaskService) AddTime(ctx context.Context, userID, taskID string, seconds int64, mode string) (*model.Task, error) {
	if seconds <= 0 {
		return nil, apperr.Validation("seconds must be a positive integer")
	}
	switch mode {
	case "":
		mode = model.SessionPomodoro
	case model.SessionPomodoro, model.SessionTest:
	default:
		return nil, apperr.Validation("mode must be pomodoro or test").WithDetails(map[string]string{"mode": mode})
	}
	task, err := s.tasks.AddTime(ctx, userID, taskID, &model.PomodoroSession{
		Mode:        mode,
		Seconds:     seconds,
		CommittedAt: s.now(),
	})
	if err != nil {
		return nil, notFound(err)
	}
	return task, nil
}

func (s *TaskService) Sessions(ctx context.Context, userID, taskID string) ([]model.PomodoroSession, error) {
	if _, err := s.Get(ctx, userID, taskID); err != nil {
		return nil, err
	}
	sessions, err := s.tasks.ListSessions(ctx, userID, taskID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	return sessions, nil
}

func (s *TaskService) Stats(ctx context.Context, userID string) (repository.Stats, error) {
	stats, err := s.query.Stats(ctx, userID)
	if err != nil {
		return repository.Stats{}, apperr.Database(err)
	}
	return stats, nil
}

// Open lists incomplete tasks in list order.
func (s *TaskService) Open(ctx context.Context, userID string) ([]model.Task, error) {
	tasks, err := s.tasks.ListOpen(ctx, userID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	SortTasks(tasks)
	return tasks, nil
}

// All lists every task of the user in list order.
func (s *TaskService) All(ctx context.Context, userID string) ([]model.Task, error) {
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	SortTasks(tasks)
	return tasks, nil
}

func validateEnums(status model.Status, priority model.Priority) error {
	if status != "" && !status.Valid() {
		return apperr.Validation("unknown status").WithDetails(map[string]string{"status": string(status)})
	}
	if priority != "" && !priority.Valid() {
		return apperr.Validation("unknown priority").WithDetails(map[string]string{"priority": string(priority)})
	}
	return nil
}

func validateEstimate(estimate *int) error {
	if estimate != nil && *estimate < 0 {
		return apperr.Validation("estimate cannot be negative")
	}
	return nil
}

func notFound(err error) error {
	if repository.IsNotFound(err) {
		return apperr.NotFound("task not found")
	}
	return apperr.From(err)
}
