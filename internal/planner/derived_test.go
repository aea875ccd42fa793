package planner

import (
	"testing"

	"daily-planner/internal/model"
)

func TestIsOverdue(t *testing.T) {
	tests := []struct {
		name string
		task model.Task
		want bool
	}{
		{"yesterday", model.Task{Date: at(-1)}, true},
		{"today", model.Task{Date: at(0)}, false},
		{"future", model.Task{Date: at(2)}, false},
		{"undated", model.Task{}, false},
		{"completed past", model.Task{Date: at(-10), IsCompleted: true}, false},
	}
	for _, tt := range tests {
		if got := IsOverdue(tt.task, now); got != tt.want {
			t.Errorf("%s: got %t, want %t", tt.name, got, tt.want)
		}
	}
}

func TestSummarizeUsesWholeCollection(t *testing.T) {
	got := Summarize(scenarioTasks(), now)
	if got.Overdue != 1 || got.Completed != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestDateLabel(t *testing.T) {
	tests := []struct {
		name string
		task model.Task
		want string
	}{
		{"undated", model.Task{}, ""},
		{"today", model.Task{Date: at(0)}, "Today"},
		{"tomorrow", model.Task{Date: at(1)}, "Tomorrow"},
		{"yesterday", model.Task{Date: at(-1)}, "Yesterday"},
		{"future", model.Task{Date: at(5)}, "Mar 15"},
		{"overdue", model.Task{Date: at(-3)}, "Mar 7 (Overdue)"},
		{"past completed", model.Task{Date: at(-3), IsCompleted: true}, "Mar 7"},
	}
	for _, tt := range tests {
		if got := DateLabel(tt.task, now); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCompletedSubtasks(t *testing.T) {
	done, total := CompletedSubtasks(model.Task{Subtasks: []model.Subtask{{IsCompleted: true}, {}}})
	if done != 1 || total != 2 {
		t.Fatalf("got %d/%d", done, total)
	}
}

func TestRepeatLabel(t *testing.T) {
	tests := []struct {
		task model.Task
		want string
	}{
		{model.Task{}, ""},
		{model.Task{IsRecurring: true, RecurType: "daily", RecurInterval: 1}, "daily"},
		{model.Task{IsRecurring: true, RecurType: "weekly", RecurInterval: 2}, "every 2 weeks"},
		{model.Task{IsRecurring: true, RecurType: "weekdays", RecurInterval: 3}, "weekdays"},
		{model.Task{IsRecurring: true, RecurType: "yearly"}, "yearly"},
	}
	for _, tt := range tests {
		if got := RepeatLabel(tt.task); got != tt.want {
			t.Errorf("RepeatLabel(%+v) = %q, want %q", tt.task, got, tt.want)
		}
	}
	if !IsRepeatType("monthly") || IsRepeatType("hourly") {
		t.Error("IsRepeatType")
	}
}
