package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"daily-planner/internal/model"
)

// ReminderRepository stores task reminders.
type ReminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, rem *model.Reminder) error {
	if err := r.db.WithContext(ctx).Create(rem).Error; err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

// ListPending returns unsent reminders due at or before now, oldest first.
// SQLite keeps timestamps as text, so the due check happens on decoded values.
func (r *ReminderRepository) ListPending(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	var unsent []model.Reminder
	if err := r.db.WithContext(ctx).Where("is_sent = ?", false).Find(&unsent).Error; err != nil {
		return nil, fmt.Errorf("list pending reminders: %w", err)
	}
	var due []model.Reminder
	for _, rem := range unsent {
		if !rem.RemindAt.After(now) {
			due = append(due, rem)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].RemindAt.Before(due[j].RemindAt) })
	return due, nil
}

func (r *ReminderRepository) MarkSent(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Model(&model.Reminder{}).Where("id = ?", id).Update("is_sent", true).Error; err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}

