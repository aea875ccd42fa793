package model

import "time"

// InboxListID is the id of the protected default list.
const InboxListID = "inbox"

// TaskList groups tasks. Every task belongs to exactly one list.
type TaskList struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Color     string `gorm:"default:#3b82f6"`
	Icon      string
	IsDefault bool `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Label is a tag shared by many tasks.
type Label struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Color     string `gorm:"default:#6b7280"`
	Icon      string
	CreatedAt time.Time
}
