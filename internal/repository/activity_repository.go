package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"daily-planner/internal/model"
)

// ActivityRepository appends and reads task activity logs.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, entry *model.ActivityLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// ListByTask returns the task's history, newest first.
func (r *ActivityRepository) ListByTask(ctx context.Context, taskID string) ([]model.ActivityLog, error) {
	var logs []model.ActivityLog
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("timestamp DESC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

