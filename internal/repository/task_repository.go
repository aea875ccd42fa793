package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"daily-planner/internal/model"
)

// TaskRepository handles CRUD for tasks and their owned records.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) withAssociations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Labels", func(db *gorm.DB) *gorm.DB { return db.Order("labels.name ASC") }).
		Preload("Subtasks", func(db *gorm.DB) *gorm.DB { return db.Order("subtasks.created_at ASC") }).
		Preload("Reminders", func(db *gorm.DB) *gorm.DB { return db.Order("reminders.remind_at ASC") })
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Omit("List").Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// FindByID loads a task with labels, subtasks and reminders.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := r.withAssociations(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListAll loads every task with its associations, newest first.
func (r *TaskRepository) ListAll(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.withAssociations(ctx).Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Save writes the task's own columns. Associations are managed separately.
// A non-zero UpdatedAt set by the caller is stored as given.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	err := saveStamped(r.db.WithContext(ctx), task, &task.UpdatedAt, clause.Associations)
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// ReplaceLabels sets the task's labels to exactly the given ones.
func (r *TaskRepository) ReplaceLabels(ctx context.Context, task *model.Task, labels []model.Label) error {
	assoc := r.db.WithContext(ctx).Model(task).Association("Labels")
	var err error
	if len(labels) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(labels)
	}
	if err != nil {
		return fmt.Errorf("replace labels: %w", err)
	}
	task.Labels = labels
	return nil
}

// Delete removes a task together with its subtasks, reminders, activity and label links.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&model.Subtask{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&model.Reminder{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&model.ActivityLog{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM task_labels WHERE task_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Task{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// Touch refreshes the task's updated_at after a change to an owned record.
func (r *TaskRepository) Touch(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).UpdateColumn("updated_at", at)
	if res.Error != nil {
		return fmt.Errorf("touch task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("touch task: %w", gorm.ErrRecordNotFound)
	}
	return nil
}
