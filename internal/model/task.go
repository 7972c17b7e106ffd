package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the workflow state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
	StatusCanceled   Status = "canceled"
)

// Statuses lists every status in ascending sort order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone, StatusBlocked, StatusCanceled}

// Rank returns the position of s in ascending status order. Unknown values sort last.
func (s Status) Rank() int {
	for i, v := range Statuses {
		if v == s {
			return i
		}
	}
	return len(Statuses)
}

func (s Status) Valid() bool {
	return s.Rank() < len(Statuses)
}

// Priority is how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// RepeatType tells how often a completed task comes back.
type RepeatType string

const (
	RepeatNone       RepeatType = "none"
	RepeatDaily      RepeatType = "daily"
	RepeatWeekly     RepeatType = "weekly"
	RepeatEveryNDays RepeatType = "every_n_days"
)

// Task represents a single item on a user's list.
type Task struct {
	ID             string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID         string     `gorm:"index;type:varchar(36);not null" json:"userId"`
	Title          string     `gorm:"not null" json:"title"`
	Content        string     `json:"content"`
	Goal           string     `json:"goal"`
	Completed      bool       `gorm:"default:false;index" json:"completed"`
	Status         Status     `gorm:"type:varchar(20);default:todo" json:"status"`
	Priority       Priority   `gorm:"type:varchar(20);default:medium" json:"priority"`
	RepeatType     RepeatType `gorm:"type:varchar(20);default:none" json:"repeatType"`
	RepeatInterval *int       `json:"repeatInterval"`
	Estimate       *int       `json:"estimate,omitempty"` // minutes
	DueDate        *time.Time `json:"dueDate,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	TotalTimeSpent int64      `gorm:"default:0" json:"totalTimeSpent"` // seconds
	CreatedAt      time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.RepeatType == "" {
		t.RepeatType = RepeatNone
	}
	return nil
}
