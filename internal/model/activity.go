package model

import "time"

// Activity actions.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionCompleted = "completed"
)

// Change holds the previous and new value of a single task field.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// ActivityLog records a mutation of a task.
type ActivityLog struct {
	ID        string            `gorm:"primaryKey"`
	TaskID    string            `gorm:"index;not null"`
	Action    string            `gorm:"not null"`
	Changes   map[string]Change `gorm:"serializer:json"`
	Timestamp time.Time         `gorm:"autoCreateTime"`
}

// Reminder fires a notification for a task at RemindAt.
type Reminder struct {
	ID       string    `gorm:"primaryKey"`
	TaskID   string    `gorm:"index;not null"`
	RemindAt time.Time `gorm:"index;not null"`
	IsSent   bool      `gorm:"default:false"`
}
