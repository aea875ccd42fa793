package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"daily-planner/internal/metrics"
	"daily-planner/internal/model"
	"daily-planner/internal/repository"
)

// LabelService manages labels shared across tasks.
type LabelService struct {
	repo *repository.LabelRepository
	log  *logrus.Entry
	now  func() time.Time
}

func NewLabelService(repo *repository.LabelRepository, log *logrus.Entry) *LabelService {
	return &LabelService{repo: repo, log: log, now: time.Now}
}

// EnsureDefaults inserts seed labels whose names are not taken yet.
func (s *LabelService) EnsureDefaults(ctx context.Context, labels []model.Label) error {
	existing, err := s.repo.ListAll(ctx)
	if err != nil {
		return err
	}
	taken := make(map[string]bool, len(existing))
	for _, l := range existing {
		taken[strings.ToLower(l.Name)] = true
	}

	now := s.now()
	var missing []model.Label
	for _, l := range labels {
		key := strings.ToLower(strings.TrimSpace(l.Name))
		if key == "" || taken[key] {
			continue
		}
		taken[key] = true
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		if l.CreatedAt.IsZero() {
			l.CreatedAt = now
		}
		missing = append(missing, l)
	}
	if err := s.repo.EnsureSeed(ctx, missing); err != nil {
		return err
	}
	if len(missing) > 0 {
		s.log.WithField("count", len(missing)).Info("default labels created")
	}
	return nil
}

func (s *LabelService) CreateLabel(ctx context.Context, name, color, icon string) (*model.Label, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if color == "" {
		color = "#6b7280"
	}
	label := model.Label{ID: uuid.NewString(), Name: name, Color: color, Icon: icon, CreatedAt: s.now()}
	if err := s.repo.Create(ctx, &label); err != nil {
		return nil, err
	}
	metrics.Mutation("label", "create")
	return &label, nil
}

func (s *LabelService) ListLabels(ctx context.Context) ([]model.Label, error) {
	return s.repo.ListAll(ctx)
}

// FindByName matches ignoring case.
func (s *LabelService) FindByName(ctx context.Context, name string) (*model.Label, error) {
	label, err := s.repo.FindByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, lookupErr(err, "label", name)
	}
	return label, nil
}

// RenameLabel changes the label's name and, when non-empty, its color.
func (s *LabelService) RenameLabel(ctx context.Context, id, name, color string) (*model.Label, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	label, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "label", id)
	}
	label.Name = name
	if color != "" {
		label.Color = color
	}
	if err := s.repo.Update(ctx, label); err != nil {
		return nil, err
	}
	metrics.Mutation("label", "update")
	return label, nil
}

// DeleteLabel removes the label from every task and then deletes it.
func (s *LabelService) DeleteLabel(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return lookupErr(err, "label", id)
		}
		return err
	}
	metrics.Mutation("label", "delete")
	s.log.WithField("label", id).Info("label deleted")
	return nil
}
