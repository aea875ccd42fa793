package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"daily-planner/internal/model"
)

// LabelRepository manages labels and their task links.
type LabelRepository struct {
	db *gorm.DB
}

func NewLabelRepository(db *gorm.DB) *LabelRepository {
	return &LabelRepository{db: db}
}

func (r *LabelRepository) Create(ctx context.Context, label *model.Label) error {
	if err := r.db.WithContext(ctx).Create(label).Error; err != nil {
		return fmt.Errorf("create label: %w", err)
	}
	return nil
}

func (r *LabelRepository) FindByID(ctx context.Context, id string) (*model.Label, error) {
	var label model.Label
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&label).Error; err != nil {
		return nil, err
	}
	return &label, nil
}

// FindByIDs returns the labels with the given ids; unknown ids are skipped.
func (r *LabelRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Label, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var labels []model.Label
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&labels).Error; err != nil {
		return nil, fmt.Errorf("find labels: %w", err)
	}
	return labels, nil
}

// FindByName matches the label name ignoring case.
func (r *LabelRepository) FindByName(ctx context.Context, name string) (*model.Label, error) {
	var label model.Label
	if err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&label).Error; err != nil {
		return nil, err
	}
	return &label, nil
}

func (r *LabelRepository) ListAll(ctx context.Context) ([]model.Label, error) {
	var labels []model.Label
	if err := r.db.WithContext(ctx).Order("created_at ASC, name ASC").Find(&labels).Error; err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	return labels, nil
}

func (r *LabelRepository) Update(ctx context.Context, label *model.Label) error {
	if err := r.db.WithContext(ctx).Save(label).Error; err != nil {
		return fmt.Errorf("update label: %w", err)
	}
	return nil
}

// Delete unlinks the label from every task and removes it. Tasks stay intact.
func (r *LabelRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM task_labels WHERE label_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Label{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete label: %w", err)
	}
	return nil
}

// EnsureSeed inserts the labels that do not exist yet.
func (r *LabelRepository) EnsureSeed(ctx context.Context, labels []model.Label) error {
	if len(labels) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&labels).Error
	if err != nil {
		return fmt.Errorf("seed labels: %w", err)
	}
	return nil
}
