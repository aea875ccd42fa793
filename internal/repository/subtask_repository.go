package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"daily-planner/internal/model"
)

// SubtaskRepository handles CRUD for subtasks.
type SubtaskRepository struct {
	db *gorm.DB
}

func NewSubtaskRepository(db *gorm.DB) *SubtaskRepository {
	return &SubtaskRepository{db: db}
}

func (r *SubtaskRepository) Create(ctx context.Context, st *model.Subtask) error {
	if err := r.db.WithContext(ctx).Create(st).Error; err != nil {
		return fmt.Errorf("create subtask: %w", err)
	}
	return nil
}

func (r *SubtaskRepository) FindByID(ctx context.Context, id string) (*model.Subtask, error) {
	var st model.Subtask
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&st).Error; err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *SubtaskRepository) Update(ctx context.Context, st *model.Subtask) error {
	if err := r.db.WithContext(ctx).Save(st).Error; err != nil {
		return fmt.Errorf("update subtask: %w", err)
	}
	return nil
}

func (r *SubtaskRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Subtask{})
	if res.Error != nil {
		return fmt.Errorf("delete subtask: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete subtask: %w", gorm.ErrRecordNotFound)
	}
	return nil
}
