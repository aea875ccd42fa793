package model

import "time"

// Task represents a single item in the planner.
type Task struct {
	ID              string `gorm:"primaryKey"`
	Name            string `gorm:"not null"`
	Description     string
	Date            *time.Time `gorm:"index"`
	Deadline        *time.Time
	Estimate        string // H:MM, stored as entered
	ActualTime      string // H:MM, stored as entered
	Priority        Priority `gorm:"default:none"`
	ListID          string   `gorm:"index;not null;default:inbox"`
	IsCompleted     bool     `gorm:"default:false"`
	IsRecurring     bool     `gorm:"default:false"`
	RecurType       string   // daily, weekly, weekdays, monthly, yearly, custom
	RecurInterval   int
	RecurDaysOfWeek []int `gorm:"serializer:json"`
	RecurDayOfMonth int
	RecurEndDate    *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	List      *TaskList  `gorm:"foreignKey:ListID"`
	Labels    []Label    `gorm:"many2many:task_labels;constraint:OnDelete:CASCADE"`
	Subtasks  []Subtask  `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	Reminders []Reminder `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// Subtask is a checklist item owned by exactly one task.
type Subtask struct {
	ID          string `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	IsCompleted bool   `gorm:"default:false"`
	TaskID      string `gorm:"index;not null"`
	CreatedAt   time.Time
}

// HasLabel reports whether the task carries the label with the given id.
func (t Task) HasLabel(id string) bool {
	for _, l := range t.Labels {
		if l.ID == id {
			return true
		}
	}
	return false
}
