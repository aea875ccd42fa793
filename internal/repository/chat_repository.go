package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"daily-planner/internal/model"
)

// ChatRepository remembers the chats that receive reports and reminders.
type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Upsert finds or creates a chat based on TelegramID and updates basic profile info.
func (r *ChatRepository) Upsert(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.Chat, error) {
	var chat model.Chat
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&chat).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"first_name": firstName,
			"last_name":  lastName,
			"username":   username,
		}
		if err := db.Model(&chat).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update chat: %w", err)
		}
		return &chat, nil
	case err == gorm.ErrRecordNotFound:
		chat = model.Chat{
			TelegramID: telegramID,
			FirstName:  firstName,
			LastName:   lastName,
			Username:   username,
		}
		if err := db.Create(&chat).Error; err != nil {
			return nil, fmt.Errorf("create chat: %w", err)
		}
		return &chat, nil
	default:
		return nil, fmt.Errorf("find chat: %w", err)
	}
}

func (r *ChatRepository) ListAll(ctx context.Context) ([]model.Chat, error) {
	var chats []model.Chat
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&chats).Error; err != nil {
		return nil, err
	}
	return chats, nil
}
