package model

import "time"

// Chat stores a Telegram chat that receives reports and reminders.
type Chat struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
