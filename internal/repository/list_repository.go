package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"daily-planner/internal/model"
)

// ListRepository manages task lists.
type ListRepository struct {
	db *gorm.DB
}

func NewListRepository(db *gorm.DB) *ListRepository {
	return &ListRepository{db: db}
}

func (r *ListRepository) Create(ctx context.Context, list *model.TaskList) error {
	if err := r.db.WithContext(ctx).Create(list).Error; err != nil {
		return fmt.Errorf("create list: %w", err)
	}
	return nil
}

func (r *ListRepository) FindByID(ctx context.Context, id string) (*model.TaskList, error) {
	var list model.TaskList
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&list).Error; err != nil {
		return nil, err
	}
	return &list, nil
}

// FindByName matches the list name ignoring case.
func (r *ListRepository) FindByName(ctx context.Context, name string) (*model.TaskList, error) {
	var list model.TaskList
	if err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&list).Error; err != nil {
		return nil, err
	}
	return &list, nil
}

// ListAll returns the default list first, then the rest in creation order.
func (r *ListRepository) ListAll(ctx context.Context) ([]model.TaskList, error) {
	var lists []model.TaskList
	if err := r.db.WithContext(ctx).Order("is_default DESC, created_at ASC").Find(&lists).Error; err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	return lists, nil
}

func (r *ListRepository) Update(ctx context.Context, list *model.TaskList) error {
	if err := saveStamped(r.db.WithContext(ctx), list, &list.UpdatedAt); err != nil {
		return fmt.Errorf("update list: %w", err)
	}
	return nil
}

// EnsureDefault creates the inbox list if it is missing.
func (r *ListRepository) EnsureDefault(ctx context.Context, name string) (*model.TaskList, error) {
	var list model.TaskList
	db := r.db.WithContext(ctx)
	err := db.Where("id = ?", model.InboxListID).First(&list).Error
	switch {
	case err == nil:
		return &list, nil
	case err == gorm.ErrRecordNotFound:
		list = model.TaskList{ID: model.InboxListID, Name: name, Color: "#3b82f6", Icon: "📥", IsDefault: true}
		if err := db.Create(&list).Error; err != nil {
			return nil, fmt.Errorf("create inbox: %w", err)
		}
		return &list, nil
	default:
		return nil, fmt.Errorf("find inbox: %w", err)
	}
}

// DeleteReassigning moves the list's tasks to another list and removes it in one transaction.
// It returns the number of moved tasks.
func (r *ListRepository) DeleteReassigning(ctx context.Context, id, to string, at time.Time) (int64, error) {
	var moved int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Task{}).
			Where("list_id = ?", id).
			Updates(map[string]interface{}{"list_id": to, "updated_at": at})
		if res.Error != nil {
			return res.Error
		}
		moved = res.RowsAffected

		res = tx.Where("id = ? AND is_default = ?", id, false).Delete(&model.TaskList{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete list: %w", err)
	}
	return moved, nil
}
