package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account owning tasks.
type User struct {
	ID                string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email             string     `gorm:"uniqueIndex;not null" json:"email"`
	Name              string     `gorm:"not null" json:"name"`
	Password          string     `gorm:"not null" json:"-"`
	TelegramChatID    *int64     `gorm:"uniqueIndex" json:"-"`
	TelegramLinkCode  *string    `gorm:"index" json:"-"`
	TelegramLinkUntil *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Profile is the public view of a user.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (u User) Profile() Profile {
	return Profile{ID: u.ID, Email: u.Email, Name: u.Name}
}
