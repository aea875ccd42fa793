package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"daily-planner/internal/metrics"
	"daily-planner/internal/model"
	"daily-planner/internal/repository"
)

// ListPatch carries the list fields to change. Nil fields are left alone.
type ListPatch struct {
	Name  *string
	Color *string
	Icon  *string
}

// ListService manages task lists and protects the inbox.
type ListService struct {
	repo *repository.ListRepository
	log  *logrus.Entry
	now  func() time.Time
}

func NewListService(repo *repository.ListRepository, log *logrus.Entry) *ListService {
	return &ListService{repo: repo, log: log, now: time.Now}
}

// EnsureDefaults creates the inbox and any extra lists that do not exist yet, matching by name.
func (s *ListService) EnsureDefaults(ctx context.Context, inboxName string, extra []model.TaskList) error {
	if strings.TrimSpace(inboxName) == "" {
		inboxName = "Inbox"
	}
	if _, err := s.repo.EnsureDefault(ctx, inboxName); err != nil {
		return err
	}
	for _, l := range extra {
		_, err := s.repo.FindByName(ctx, l.Name)
		if err == nil {
			continue
		}
		if !isNotFound(err) {
			return fmt.Errorf("find list %q: %w", l.Name, err)
		}
		if _, err := s.create(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func (s *ListService) CreateList(ctx context.Context, name, color, icon string) (*model.TaskList, error) {
	return s.create(ctx, model.TaskList{Name: name, Color: color, Icon: icon})
}

func (s *ListService) create(ctx context.Context, list model.TaskList) (*model.TaskList, error) {
	list.Name = strings.TrimSpace(list.Name)
	if list.Name == "" {
		return nil, ErrEmptyName
	}
	if list.ID == "" {
		list.ID = uuid.NewString()
	}
	if list.Color == "" {
		list.Color = "#3b82f6"
	}
	list.IsDefault = false
	now := s.now()
	list.CreatedAt = now
	list.UpdatedAt = now
	if err := s.repo.Create(ctx, &list); err != nil {
		return nil, err
	}
	metrics.Mutation("list", "create")
	s.log.WithFields(logrus.Fields{"list": list.ID, "name": list.Name}).Info("list created")
	return &list, nil
}

// ListLists returns the inbox first, then the other lists in creation order.
func (s *ListService) ListLists(ctx context.Context) ([]model.TaskList, error) {
	return s.repo.ListAll(ctx)
}

func (s *ListService) GetList(ctx context.Context, id string) (*model.TaskList, error) {
	list, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "list", id)
	}
	return list, nil
}

// FindByName matches ignoring case.
func (s *ListService) FindByName(ctx context.Context, name string) (*model.TaskList, error) {
	list, err := s.repo.FindByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, lookupErr(err, "list", name)
	}
	return list, nil
}

// UpdateList changes name, color or icon. The id and default flag never change.
func (s *ListService) UpdateList(ctx context.Context, id string, patch ListPatch) (*model.TaskList, error) {
	list, err := s.GetList(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		list.Name = name
	}
	if patch.Color != nil {
		list.Color = *patch.Color
	}
	if patch.Icon != nil {
		list.Icon = *patch.Icon
	}
	list.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, list); err != nil {
		return nil, err
	}
	metrics.Mutation("list", "update")
	return list, nil
}

// DeleteList moves the list's tasks to the inbox and removes the list.
// The inbox itself is never removed; ErrProtectedList is returned and nothing changes.
func (s *ListService) DeleteList(ctx context.Context, id string) error {
	if id == model.InboxListID {
		return ErrProtectedList
	}
	list, err := s.GetList(ctx, id)
	if err != nil {
		return err
	}
	if list.IsDefault {
		return ErrProtectedList
	}

	moved, err := s.repo.DeleteReassigning(ctx, id, model.InboxListID, s.now())
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("list %s: %w", id, ErrNotFound)
		}
		return err
	}
	metrics.Mutation("list", "delete")
	s.log.WithFields(logrus.Fields{"list": id, "moved": moved}).Info("list deleted")
	return nil
}
