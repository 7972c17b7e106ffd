package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session modes that count towards a task's time.
const (
	SessionPomodoro = "pomodoro"
	SessionTest     = "test"
)

// PomodoroSession records one committed focus interval.
type PomodoroSession struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TaskID      string    `gorm:"index;type:varchar(36);not null" json:"taskId"`
	UserID      string    `gorm:"index;type:varchar(36);not null" json:"userId"`
	Mode        string    `gorm:"type:varchar(20)" json:"mode"`
	Seconds     int64     `json:"seconds"`
	CommittedAt time.Time `json:"committedAt"`
}

func (s *PomodoroSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CommittedAt.IsZero() {
		s.CommittedAt = time.Now()
	}
	return nil
}
