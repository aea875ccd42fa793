package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"daily-planner/internal/metrics"
	"daily-planner/internal/model"
	"daily-planner/internal/planner"
	"daily-planner/internal/repository"
)

// ReminderService builds human-readable summaries and delivers due reminders.
type ReminderService struct {
	taskRepo     *repository.TaskRepository
	reminderRepo *repository.ReminderRepository
	log          *logrus.Entry
}

func NewReminderService(taskRepo *repository.TaskRepository, reminderRepo *repository.ReminderRepository, log *logrus.Entry) *ReminderService {
	return &ReminderService{taskRepo: taskRepo, reminderRepo: reminderRepo, log: log}
}

// DailySummary renders today's tasks, the overdue ones and the rest of the week as HTML.
func (s *ReminderService) DailySummary(ctx context.Context, now time.Time) (string, error) {
	tasks, err := s.taskRepo.ListAll(ctx)
	if err != nil {
		return "", err
	}

	today := planner.Select(tasks, planner.Criteria{View: planner.ViewToday}, now)
	week := planner.Select(tasks, planner.Criteria{View: planner.ViewNext7Days}, now)
	var overdue, later []model.Task
	for _, t := range tasks {
		if planner.IsOverdue(t, now) {
			overdue = append(overdue, t)
		}
	}
	planner.Sort(overdue)
	todayDay := planner.Day(now, now.Location())
	for _, t := range week {
		if planner.Day(*t.Date, now.Location()).After(todayDay) {
			later = append(later, t)
		}
	}
	summary := planner.Summarize(tasks, now)

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily report</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("Mon, Jan 2 2006")))

	builder.WriteString("🔥 <b>Today</b>\n")
	if len(today) == 0 {
		builder.WriteString("— nothing scheduled\n")
	} else {
		for _, task := range today {
			builder.WriteString(formatTask(task, now))
		}
	}

	if len(overdue) > 0 {
		builder.WriteString("\n⚠️ <b>Overdue</b>\n")
		for _, task := range overdue {
			builder.WriteString(formatTask(task, now))
		}
	}

	builder.WriteString("\n📆 <b>Next 7 days</b>\n")
	if len(later) == 0 {
		builder.WriteString("— nothing planned\n")
	} else {
		for _, task := range later {
			builder.WriteString(formatTask(task, now))
		}
	}

	builder.WriteString(fmt.Sprintf("\n✅ %d completed · ⚠️ %d overdue", summary.Completed, summary.Overdue))
	return strings.TrimSpace(builder.String()), nil
}

// DispatchDue sends every unsent reminder due at now and marks it sent.
// Reminders of completed tasks are marked without sending. It returns the number sent.
func (s *ReminderService) DispatchDue(ctx context.Context, now time.Time, send func(text string) error) (int, error) {
	due, err := s.reminderRepo.ListPending(ctx, now)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, rem := range due {
		task, err := s.taskRepo.FindByID(ctx, rem.TaskID)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return sent, fmt.Errorf("load task %s: %w", rem.TaskID, err)
		}
		if !task.IsCompleted {
			text := "⏰ <b>Reminder</b>\n" + formatTask(*task, now)
			if err := send(strings.TrimSpace(text)); err != nil {
				s.log.WithError(err).WithField("reminder", rem.ID).Warn("reminder not delivered")
				continue
			}
			sent++
			metrics.ReminderSent()
		}
		if err := s.reminderRepo.MarkSent(ctx, rem.ID); err != nil {
			return sent, err
		}
	}
	return sent, nil
}

func formatTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	switch {
	case planner.IsOverdue(task, now):
		icon = "⚠️"
	case task.Deadline != nil && task.Deadline.Sub(now) <= 48*time.Hour:
		icon = "⏳"
	}
	sb.WriteString(fmt.Sprintf("%s %s%s", icon, priorityMark(task.Priority), html.EscapeString(strings.TrimSpace(task.Name))))

	if label := planner.DateLabel(task, now); label != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(label)))
	}

	if task.Deadline != nil {
		d := task.Deadline.In(now.Location())
		if now.After(d) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · <b>missed</b>", d.Format("2006-01-02")))
		} else {
			daysLeft := int(d.Sub(now).Hours()/24) + 1
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · ≈%d d left", d.Format("2006-01-02"), daysLeft))
		}
	}

	if done, total := planner.CompletedSubtasks(task); total > 0 {
		sb.WriteString(fmt.Sprintf("\n   ☑️ %d/%d subtasks", done, total))
	}

	if repeat := planner.RepeatLabel(task); repeat != "" {
		sb.WriteString(fmt.Sprintf("\n   🔁 %s", html.EscapeString(repeat)))
	}

	if task.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(task.Description))))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func priorityMark(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "❗❗❗ "
	case model.PriorityMedium:
		return "❗❗ "
	case model.PriorityLow:
		return "❗ "
	default:
		return ""
	}
}
