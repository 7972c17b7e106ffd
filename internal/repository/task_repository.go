package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"task-manager/internal/model"
)

// statusOrder sorts statuses by their declared rank.
var statusOrder = buildStatusOrder()

func buildStatusOrder() string {
	var sb strings.Builder
	sb.WriteString("CASE status")
	for i, s := range model.Statuses {
		fmt.Fprintf(&sb, " WHEN '%s' THEN %d", s, i)
	}
	fmt.Fprintf(&sb, " ELSE %d END", len(model.Statuses))
	return sb.String()
}

// TaskRepository handles CRUD for tasks. Every lookup is scoped by owner.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// ListByUser returns the user's tasks in list order.
func (r *TaskRepository) ListByUser(ctx context.Context, userID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("completed ASC").Order(statusOrder).Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListOpen returns the user's incomplete tasks in list order.
func (r *TaskRepository) ListOpen(ctx context.Context, userID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND completed = ?", userID, false).
		Order(statusOrder).Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Save writes every column of task except the accumulated time.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Model(task).Select("*").
		Omit("id", "user_id", "total_time_spent", "created_at").
		Updates(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// Delete removes a task and its sessions. Missing tasks yield gorm.ErrRecordNotFound.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND id = ?", userID, taskID).Delete(&model.Task{})
		if res.Error != nil {
			return fmt.Errorf("delete task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("task_id = ?", taskID).Delete(&model.PomodoroSession{}).Error; err != nil {
			return fmt.Errorf("delete sessions: %w", err)
		}
		return nil
	})
}

// AddTime records a committed session and adds its length to the task total.
func (r *TaskRepository) AddTime(ctx context.Context, userID, taskID string, session *model.PomodoroSession) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
			return err
		}
		if err := tx.Model(&task).
			UpdateColumn("total_time_spent", gorm.Expr("total_time_spent + ?", session.Seconds)).Error; err != nil {
			return fmt.Errorf("add task time: %w", err)
		}
		session.TaskID = task.ID
		session.UserID = userID
		if err := tx.Create(session).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		return tx.Where("id = ?", task.ID).First(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) ListSessions(ctx context.Context, userID, taskID string) ([]model.PomodoroSession, error) {
	var sessions []model.PomodoroSession
	if err := r.db.WithContext(ctx).Where("user_id = ? AND task_id = ?", userID, taskID).
		Order("committed_at DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListCompletedRepeating returns completed tasks that carry a repeat rule.
func (r *TaskRepository) ListCompletedRepeating(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("completed = ? AND repeat_type <> ? AND completed_at IS NOT NULL", true, model.RepeatNone).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Reopen marks the given tasks incomplete again. Done tasks go back to todo.
func (r *TaskRepository) Reopen(ctx context.Context, taskIDs []string, now time.Time) (int64, error) {
	if len(taskIDs) == 0 {
		return 0, nil
	}
	var total int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Task{}).Where("id IN ? AND completed = ? AND status = ?", taskIDs, true, model.StatusDone).
			Updates(map[string]interface{}{"completed": false, "completed_at": nil, "status": model.StatusTodo, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("reopen tasks: %w", res.Error)
		}
		total += res.RowsAffected
		res = tx.Model(&model.Task{}).Where("id IN ? AND completed = ?", taskIDs, true).
			Updates(map[string]interface{}{"completed": false, "completed_at": nil, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("reopen tasks: %w", res.Error)
		}
		total += res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
