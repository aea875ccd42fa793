package planner

import (
	"fmt"
	"time"

	"daily-planner/internal/model"
)

// Summary holds counts computed over the whole collection, independent of the view.
type Summary struct {
	Overdue   int
	Completed int
}

// Day truncates t to midnight in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Summarize counts overdue and completed tasks.
func Summarize(tasks []model.Task, now time.Time) Summary {
	var s Summary
	for _, t := range tasks {
		if t.IsCompleted {
			s.Completed++
		}
		if IsOverdue(t, now) {
			s.Overdue++
		}
	}
	return s
}

// IsOverdue reports whether an incomplete task is scheduled before today.
func IsOverdue(t model.Task, now time.Time) bool {
	if t.Date == nil || t.IsCompleted {
		return false
	}
	loc := now.Location()
	return Day(*t.Date, loc).Before(Day(now, loc))
}

// SubtaskProgress returns the completed share of subtasks in percent, 0 without subtasks.
func SubtaskProgress(t model.Task) float64 {
	if len(t.Subtasks) == 0 {
		return 0
	}
	done := 0
	for _, st := range t.Subtasks {
		if st.IsCompleted {
			done++
		}
	}
	return float64(done) / float64(len(t.Subtasks)) * 100
}

// CompletedSubtasks returns the number of completed subtasks and the total.
func CompletedSubtasks(t model.Task) (int, int) {
	done := 0
	for _, st := range t.Subtasks {
		if st.IsCompleted {
			done++
		}
	}
	return done, len(t.Subtasks)
}

// DateLabel renders the scheduled date relative to now. Empty for undated tasks.
func DateLabel(t model.Task, now time.Time) string {
	if t.Date == nil {
		return ""
	}
	loc := now.Location()
	today := Day(now, loc)
	d := Day(*t.Date, loc)

	switch {
	case d.Equal(today):
		return "Today"
	case d.Equal(today.AddDate(0, 0, 1)):
		return "Tomorrow"
	case d.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	}

	label := t.Date.In(loc).Format("Jan 2")
	if d.Before(today) && !t.IsCompleted {
		label += " (Overdue)"
	}
	return label
}

var repeatUnits = map[string]string{
	"daily":    "days",
	"weekly":   "weeks",
	"weekdays": "",
	"monthly":  "months",
	"yearly":   "years",
}

// IsRepeatType reports whether kind is a supported recurrence type.
func IsRepeatType(kind string) bool {
	_, ok := repeatUnits[kind]
	return ok
}

// RepeatLabel renders the stored repeat rule, e.g. "weekly" or "every 2 weeks".
// Empty for tasks that do not repeat.
func RepeatLabel(t model.Task) string {
	if !t.IsRecurring {
		return ""
	}
	unit := repeatUnits[t.RecurType]
	if t.RecurInterval <= 1 || unit == "" {
		return t.RecurType
	}
	return fmt.Sprintf("every %d %s", t.RecurInterval, unit)
}
