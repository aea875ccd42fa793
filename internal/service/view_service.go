package service

import (
	"context"
	"time"

	"daily-planner/internal/metrics"
	"daily-planner/internal/model"
	"daily-planner/internal/planner"
	"daily-planner/internal/repository"
)

// ViewResult is one rendered view: the ordered tasks plus whole-collection counts.
type ViewResult struct {
	Title    string
	Criteria planner.Criteria
	Tasks    []model.Task
	Summary  planner.Summary
	Total    int
}

// Empty reports that the planner holds no tasks at all.
func (r ViewResult) Empty() bool {
	return r.Total == 0
}

// NoMatches reports that tasks exist but none passed the criteria.
func (r ViewResult) NoMatches() bool {
	return r.Total > 0 && len(r.Tasks) == 0
}

// ViewService loads tasks and runs them through the planner engine.
type ViewService struct {
	taskRepo *repository.TaskRepository
	listRepo *repository.ListRepository
}

func NewViewService(taskRepo *repository.TaskRepository, listRepo *repository.ListRepository) *ViewService {
	return &ViewService{taskRepo: taskRepo, listRepo: listRepo}
}

// Render selects and orders the tasks matching c. A list scope is titled with the list name.
func (s *ViewService) Render(ctx context.Context, c planner.Criteria, now time.Time) (ViewResult, error) {
	started := time.Now()

	tasks, err := s.taskRepo.ListAll(ctx)
	if err != nil {
		return ViewResult{}, err
	}

	title := c.View.Title()
	label := string(c.View)
	if c.ListID != "" {
		label = "list"
		list, err := s.listRepo.FindByID(ctx, c.ListID)
		switch {
		case err == nil:
			title = list.Name
		case isNotFound(err):
			return ViewResult{}, lookupErr(err, "list", c.ListID)
		default:
			return ViewResult{}, err
		}
	}

	res := ViewResult{
		Title:    title,
		Criteria: c,
		Tasks:    planner.Select(tasks, c, now),
		Summary:  planner.Summarize(tasks, now),
		Total:    len(tasks),
	}
	metrics.ObserveView(label, time.Since(started))
	return res, nil
}
