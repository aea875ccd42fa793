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
	"daily-planner/internal/planner"
	"daily-planner/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Name            string
	Description     string
	Date            *time.Time
	Deadline        *time.Time
	Estimate        string
	ActualTime      string
	Priority        model.Priority
	ListID          string
	LabelIDs        []string
	Subtasks        []string
	IsRecurring     bool
	RecurType       string
	RecurInterval   int
	RecurDaysOfWeek []int
	RecurDayOfMonth int
	RecurEndDate    *time.Time
}

// TaskPatch carries the fields to change on a task. Nil fields are left alone.
type TaskPatch struct {
	Name          *string
	Description   *string
	Date          *time.Time
	ClearDate     bool
	Deadline      *time.Time
	ClearDeadline bool
	Estimate      *string
	ActualTime    *string
	Priority      *model.Priority
	ListID        *string
	IsCompleted   *bool
	// RecurType set to "" stops the task repeating. RecurInterval applies
	// only together with RecurType.
	RecurType     *string
	RecurInterval *int
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo     *repository.TaskRepository
	listRepo     *repository.ListRepository
	labelRepo    *repository.LabelRepository
	subtaskRepo  *repository.SubtaskRepository
	reminderRepo *repository.ReminderRepository
	activityRepo *repository.ActivityRepository
	log          *logrus.Entry
	now          func() time.Time
}

func NewTaskService(
	taskRepo *repository.TaskRepository,
	listRepo *repository.ListRepository,
	labelRepo *repository.LabelRepository,
	subtaskRepo *repository.SubtaskRepository,
	reminderRepo *repository.ReminderRepository,
	activityRepo *repository.ActivityRepository,
	log *logrus.Entry,
) *TaskService {
	return &TaskService{
		taskRepo:     taskRepo,
		listRepo:     listRepo,
		labelRepo:    labelRepo,
		subtaskRepo:  subtaskRepo,
		reminderRepo: reminderRepo,
		activityRepo: activityRepo,
		log:          log,
		now:          time.Now,
	}
}

func (s *TaskService) CreateTask(ctx context.Context, input TaskInput) (*model.Task, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrEmptyName
	}

	listID := strings.TrimSpace(input.ListID)
	if listID == "" {
		listID = model.InboxListID
	}
	if err := s.requireList(ctx, listID); err != nil {
		return nil, err
	}

	labels, err := s.labelRepo.FindByIDs(ctx, input.LabelIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	task := model.Task{
		ID:              uuid.NewString(),
		Name:            name,
		Description:     strings.TrimSpace(input.Description),
		Date:            input.Date,
		Deadline:        input.Deadline,
		Estimate:        input.Estimate,
		ActualTime:      input.ActualTime,
		Priority:        input.Priority.Normalize(),
		ListID:          listID,
		Labels:          labels,
		IsRecurring:     input.IsRecurring,
		RecurType:       input.RecurType,
		RecurInterval:   input.RecurInterval,
		RecurDaysOfWeek: input.RecurDaysOfWeek,
		RecurDayOfMonth: input.RecurDayOfMonth,
		RecurEndDate:    input.RecurEndDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, title := range input.Subtasks {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		task.Subtasks = append(task.Subtasks, model.Subtask{ID: uuid.NewString(), Title: title, TaskID: task.ID, CreatedAt: now})
	}

	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	s.record(ctx, task.ID, model.ActionCreated, nil)
	metrics.Mutation("task", "create")
	s.log.WithFields(logrus.Fields{"task": task.ID, "list": task.ListID}).Info("task created")
	return &task, nil
}

func (s *TaskService) GetTask(ctx context.Context, id string) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "task", id)
	}
	return task, nil
}

// ListTasks returns every task with labels and subtasks loaded.
func (s *TaskService) ListTasks(ctx context.Context) ([]model.Task, error) {
	return s.taskRepo.ListAll(ctx)
}

// Search matches the query against names and descriptions. A blank query returns every task.
func (s *TaskService) Search(ctx context.Context, query string) ([]model.Task, error) {
	tasks, err := s.taskRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return planner.Search(tasks, query), nil
}

// UpdateTask applies the patch, refreshes UpdatedAt and records what changed.
func (s *TaskService) UpdateTask(ctx context.Context, id string, patch TaskPatch) (*model.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]model.Change)
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		if name != task.Name {
			changes["name"] = model.Change{Old: task.Name, New: name}
			task.Name = name
		}
	}
	if patch.Description != nil && *patch.Description != task.Description {
		changes["description"] = model.Change{Old: task.Description, New: *patch.Description}
		task.Description = *patch.Description
	}
	if patch.ClearDate && task.Date != nil {
		changes["date"] = model.Change{Old: *task.Date, New: nil}
		task.Date = nil
	} else if patch.Date != nil {
		changes["date"] = model.Change{Old: task.Date, New: *patch.Date}
		task.Date = patch.Date
	}
	if patch.ClearDeadline && task.Deadline != nil {
		changes["deadline"] = model.Change{Old: *task.Deadline, New: nil}
		task.Deadline = nil
	} else if patch.Deadline != nil {
		changes["deadline"] = model.Change{Old: task.Deadline, New: *patch.Deadline}
		task.Deadline = patch.Deadline
	}
	if patch.Estimate != nil && *patch.Estimate != task.Estimate {
		changes["estimate"] = model.Change{Old: task.Estimate, New: *patch.Estimate}
		task.Estimate = *patch.Estimate
	}
	if patch.ActualTime != nil && *patch.ActualTime != task.ActualTime {
		changes["actualTime"] = model.Change{Old: task.ActualTime, New: *patch.ActualTime}
		task.ActualTime = *patch.ActualTime
	}
	if patch.Priority != nil {
		p := patch.Priority.Normalize()
		if p != task.Priority {
			changes["priority"] = model.Change{Old: task.Priority, New: p}
			task.Priority = p
		}
	}
	if patch.ListID != nil && *patch.ListID != task.ListID {
		if err := s.requireList(ctx, *patch.ListID); err != nil {
			return nil, err
		}
		changes["listId"] = model.Change{Old: task.ListID, New: *patch.ListID}
		task.ListID = *patch.ListID
	}
	if patch.RecurType != nil {
		recurType := *patch.RecurType
		interval := 0
		if recurType != "" {
			interval = 1
			if patch.RecurInterval != nil && *patch.RecurInterval > 1 {
				interval = *patch.RecurInterval
			}
		}
		if recurType != task.RecurType || interval != task.RecurInterval {
			changes["recurrence"] = model.Change{Old: task.RecurType, New: recurType}
			task.IsRecurring = recurType != ""
			task.RecurType = recurType
			task.RecurInterval = interval
		}
	}
	action := model.ActionUpdated
	if patch.IsCompleted != nil && *patch.IsCompleted != task.IsCompleted {
		changes["isCompleted"] = model.Change{Old: task.IsCompleted, New: *patch.IsCompleted}
		task.IsCompleted = *patch.IsCompleted
		if task.IsCompleted {
			action = model.ActionCompleted
		}
	}

	if len(changes) == 0 {
		return task, nil
	}

	task.UpdatedAt = s.now()
	if err := s.taskRepo.Save(ctx, task); err != nil {
		return nil, err
	}
	s.record(ctx, task.ID, action, changes)
	metrics.Mutation("task", "update")
	return task, nil
}

// SetCompleted marks the task done or not done.
func (s *TaskService) SetCompleted(ctx context.Context, id string, done bool) (*model.Task, error) {
	return s.UpdateTask(ctx, id, TaskPatch{IsCompleted: &done})
}

// ToggleCompleted flips the completed flag.
func (s *TaskService) ToggleCompleted(ctx context.Context, id string) (*model.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.SetCompleted(ctx, id, !task.IsCompleted)
}

// DeleteTask removes a task with its subtasks, reminders and history.
func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return lookupErr(err, "task", id)
	}
	metrics.Mutation("task", "delete")
	s.log.WithField("task", id).Info("task deleted")
	return nil
}

// SetLabels replaces the task's labels. Unknown label ids are ignored and an
// unchanged set is not written.
func (s *TaskService) SetLabels(ctx context.Context, id string, labelIDs []string) (*model.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	labels, err := s.labelRepo.FindByIDs(ctx, labelIDs)
	if err != nil {
		return nil, err
	}
	if sameLabels(task, labels) {
		return task, nil
	}

	old := labelNames(task.Labels)
	if err := s.taskRepo.ReplaceLabels(ctx, task, labels); err != nil {
		return nil, err
	}
	task.UpdatedAt = s.now()
	if err := s.taskRepo.Touch(ctx, task.ID, task.UpdatedAt); err != nil {
		return nil, err
	}
	s.record(ctx, task.ID, model.ActionUpdated, map[string]model.Change{"labels": {Old: old, New: labelNames(labels)}})
	metrics.Mutation("task", "labels")
	return task, nil
}

func (s *TaskService) AddSubtask(ctx context.Context, taskID, title string) (*model.Subtask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyName
	}
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return nil, err
	}

	now := s.now()
	st := model.Subtask{ID: uuid.NewString(), Title: title, TaskID: taskID, CreatedAt: now}
	if err := s.subtaskRepo.Create(ctx, &st); err != nil {
		return nil, err
	}
	if err := s.taskRepo.Touch(ctx, taskID, now); err != nil {
		return nil, err
	}
	metrics.Mutation("subtask", "create")
	return &st, nil
}

// ToggleSubtask flips a subtask's completed flag.
func (s *TaskService) ToggleSubtask(ctx context.Context, subtaskID string) (*model.Subtask, error) {
	st, err := s.subtaskRepo.FindByID(ctx, subtaskID)
	if err != nil {
		return nil, lookupErr(err, "subtask", subtaskID)
	}
	st.IsCompleted = !st.IsCompleted
	if err := s.subtaskRepo.Update(ctx, st); err != nil {
		return nil, err
	}
	if err := s.taskRepo.Touch(ctx, st.TaskID, s.now()); err != nil {
		return nil, err
	}
	metrics.Mutation("subtask", "update")
	return st, nil
}

func (s *TaskService) DeleteSubtask(ctx context.Context, subtaskID string) error {
	st, err := s.subtaskRepo.FindByID(ctx, subtaskID)
	if err != nil {
		return lookupErr(err, "subtask", subtaskID)
	}
	if err := s.subtaskRepo.Delete(ctx, subtaskID); err != nil {
		return err
	}
	if err := s.taskRepo.Touch(ctx, st.TaskID, s.now()); err != nil {
		return err
	}
	metrics.Mutation("subtask", "delete")
	return nil
}

// AddReminder schedules a notification for the task.
func (s *TaskService) AddReminder(ctx context.Context, taskID string, at time.Time) (*model.Reminder, error) {
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	rem := model.Reminder{ID: uuid.NewString(), TaskID: taskID, RemindAt: at}
	if err := s.reminderRepo.Create(ctx, &rem); err != nil {
		return nil, err
	}
	metrics.Mutation("reminder", "create")
	return &rem, nil
}

// History returns the task's activity, newest first.
func (s *TaskService) History(ctx context.Context, taskID string) ([]model.ActivityLog, error) {
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return s.activityRepo.ListByTask(ctx, taskID)
}

func (s *TaskService) requireList(ctx context.Context, listID string) error {
	if _, err := s.listRepo.FindByID(ctx, listID); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrUnknownList, listID)
		}
		return err
	}
	return nil
}

// record appends to the activity log. Failures are logged, not returned.
func (s *TaskService) record(ctx context.Context, taskID, action string, changes map[string]model.Change) {
	entry := model.ActivityLog{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		Action:    action,
		Changes:   changes,
		Timestamp: s.now(),
	}
	if err := s.activityRepo.Create(ctx, &entry); err != nil {
		s.log.WithError(err).WithField("task", taskID).Warn("activity not recorded")
	}
}

func sameLabels(task *model.Task, labels []model.Label) bool {
	if len(task.Labels) != len(labels) {
		return false
	}
	for _, l := range labels {
		if !task.HasLabel(l.ID) {
			return false
		}
	}
	return true
}

func labelNames(labels []model.Label) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return names
}
