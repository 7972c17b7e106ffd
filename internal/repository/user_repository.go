package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"task-manager/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByTelegramChatID(ctx context.Context, chatID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_chat_id = ?", chatID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SetLinkCode stores a one-time Telegram link code for the user.
func (r *UserRepository) SetLinkCode(ctx context.Context, userID, code string, until time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{
			"telegram_link_code":  code,
			"telegram_link_until": until,
		})
	if res.Error != nil {
		return fmt.Errorf("set link code: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// LinkTelegram consumes a valid link code and attaches chatID to its owner.
// The chat is detached from any other account first.
func (r *UserRepository) LinkTelegram(ctx context.Context, code string, chatID int64, now time.Time) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("telegram_link_code = ? AND telegram_link_until > ?", code, now).
			First(&user).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.User{}).Where("telegram_chat_id = ? AND id <> ?", chatID, user.ID).
			Update("telegram_chat_id", nil).Error; err != nil {
			return fmt.Errorf("detach chat: %w", err)
		}
		if err := tx.Model(&user).Updates(map[string]interface{}{
			"telegram_chat_id":    chatID,
			"telegram_link_code":  nil,
			"telegram_link_until": nil,
		}).Error; err != nil {
			return fmt.Errorf("link chat: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	user.TelegramChatID = &chatID
	user.TelegramLinkCode = nil
	user.TelegramLinkUntil = nil
	return &user, nil
}

// Unlink detaches chatID. Reports false when no account was linked to it.
func (r *UserRepository) Unlink(ctx context.Context, chatID int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("telegram_chat_id = ?", chatID).
		Update("telegram_chat_id", nil)
	if res.Error != nil {
		return false, fmt.Errorf("unlink chat: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *UserRepository) ListLinked(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Where("telegram_chat_id IS NOT NULL").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
