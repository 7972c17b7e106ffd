package client

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"task-manager/internal/model"
	"task-manager/internal/service"
)

// API is the part of Client the Store needs.
type API interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	CreateTask(ctx context.Context, in NewTask) (*model.Task, error)
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
	AddTime(ctx context.Context, id string, seconds int64, mode string) (*model.Task, error)
}

// Store holds the task list and applies mutations optimistically: the
// local list changes first and is restored from a snapshot if the request fails.
type Store struct {
	api API

	mu    sync.Mutex
	tasks []model.Task
	err   error
	seq   int
	now   func() time.Time
}

func NewStore(api API) *Store {
	return &Store{api: api, now: time.Now}
}

// Tasks returns a copy of the current list in display order.
func (s *Store) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.tasks)
}

// Err is the failure of the most recent operation, nil after a success.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Load replaces the local list with the server's.
func (s *Store) Load(ctx context.Context) error {
	tasks, err := s.api.ListTasks(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = err
		return err
	}
	service.SortTasks(tasks)
	s.tasks = tasks
	s.err = nil
	return nil
}

// Add inserts a placeholder task and swaps in the server's copy once created.
func (s *Store) Add(ctx context.Context, in NewTask) (*model.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("title is required")
	}

	s.mu.Lock()
	snapshot := clone(s.tasks)
	s.seq++
	tempID := fmt.Sprintf("temp-%d", s.seq)
	now := s.now()
	repeat := service.NormalizeFrequency(in.RepetitionFrequency)
	placeholder := model.Task{
		ID:             tempID,
		Title:          strings.TrimSpace(in.Title),
		Content:        in.Content,
		Goal:           in.Goal,
		Status:         model.StatusTodo,
		Priority:       model.PriorityMedium,
		RepeatType:     repeat.Type,
		RepeatInterval: repeat.Interval,
		Estimate:       in.Estimate,
		DueDate:        in.DueDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.Status != "" {
		placeholder.Status = in.Status
	}
	if in.Priority != "" {
		placeholder.Priority = in.Priority
	}
	s.tasks = append(s.tasks, placeholder)
	service.SortTasks(s.tasks)
	s.mu.Unlock()

	created, err := s.api.CreateTask(ctx, in)
	if err != nil {
		s.rollback(snapshot, err)
		return nil, err
	}
	s.commit(tempID, *created)
	return created, nil
}

// Toggle flips the completed flag of a task.
func (s *Store) Toggle(ctx context.Context, id string) (*model.Task, error) {
	var completed bool
	snapshot, err := s.mutate(id, func(t *model.Task) {
		t.Completed = !t.Completed
		completed = t.Completed
		if completed {
			now := s.now()
			t.CompletedAt = &now
		} else {
			t.CompletedAt = nil
		}
	})
	if err != nil {
		return nil, err
	}
	return s.send(ctx, id, snapshot, func() (*model.Task, error) {
		return s.api.UpdateTask(ctx, id, TaskPatch{Completed: &completed})
	})
}

// Update applies patch locally, then sends it.
func (s *Store) Update(ctx context.Context, id string, patch TaskPatch) (*model.Task, error) {
	snapshot, err := s.mutate(id, func(t *model.Task) { applyPatch(t, patch, s.now()) })
	if err != nil {
		return nil, err
	}
	return s.send(ctx, id, snapshot, func() (*model.Task, error) {
		return s.api.UpdateTask(ctx, id, patch)
	})
}

// AddTime adds seconds to the task's tracked time.
func (s *Store) AddTime(ctx context.Context, id string, seconds int64, mode string) (*model.Task, error) {
	if seconds <= 0 {
		return nil, fmt.Errorf("seconds must be positive")
	}
	snapshot, err := s.mutate(id, func(t *model.Task) { t.TotalTimeSpent += seconds })
	if err != nil {
		return nil, err
	}
	return s.send(ctx, id, snapshot, func() (*model.Task, error) {
		return s.api.AddTime(ctx, id, seconds, mode)
	})
}

// Delete removes the task locally, then on the server.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.index(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("task %s not loaded", id)
	}
	snapshot := clone(s.tasks)
	s.tasks = append(s.tasks[:idx:idx], s.tasks[idx+1:]...)
	s.mu.Unlock()

	if err := s.api.DeleteTask(ctx, id); err != nil {
		s.rollback(snapshot, err)
		return err
	}
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
	return nil
}

func (s *Store) mutate(id string, fn func(*model.Task)) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.index(id)
	if idx < 0 {
		return nil, fmt.Errorf("task %s not loaded", id)
	}
	snapshot := clone(s.tasks)
	fn(&s.tasks[idx])
	service.SortTasks(s.tasks)
	return snapshot, nil
}

func (s *Store) send(ctx context.Context, id string, snapshot []model.Task, call func() (*model.Task, error)) (*model.Task, error) {
	task, err := call()
	if err != nil {
		s.rollback(snapshot, err)
		return nil, err
	}
	s.commit(id, *task)
	return task, nil
}

func (s *Store) rollback(snapshot []model.Task, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = snapshot
	s.err = err
}

// commit replaces the local entry id with the server's version.
func (s *Store) commit(id string, task model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.index(id); idx >= 0 {
		s.tasks[idx] = task
	} else {
		s.tasks = append(s.tasks, task)
	}
	service.SortTasks(s.tasks)
	s.err = nil
}

func (s *Store) index(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func applyPatch(t *model.Task, p TaskPatch, now time.Time) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Content != nil {
		t.Content = *p.Content
	}
	if p.Goal != nil {
		t.Goal = *p.Goal
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Estimate != nil {
		t.Estimate = p.Estimate
	}
	if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
	if p.Completed != nil && *p.Completed != t.Completed {
		t.Completed = *p.Completed
		if t.Completed {
			t.CompletedAt = &now
		} else {
			t.CompletedAt = nil
		}
	}
	if p.RepetitionFrequency != nil {
		r := service.NormalizeFrequency(*p.RepetitionFrequency)
		t.RepeatType = r.Type
		t.RepeatInterval = r.Interval
	}
	t.UpdatedAt = now
}

func clone(tasks []model.Task) []model.Task {
	if tasks == nil {
		return nil
	}
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	return out
}
