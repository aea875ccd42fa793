package planner

import (
	"math"
	"reflect"
	"testing"
	"time"

	"daily-planner/internal/model"
)

var now = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func at(days int) *time.Time {
	t := now.AddDate(0, 0, days)
	return &t
}

func ids(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func scenarioTasks() []model.Task {
	return []model.Task{
		{ID: "today", Name: "Test Task 1", Date: at(0), Priority: model.PriorityHigh, ListID: "inbox"},
		{ID: "plus3", Name: "Test Task 2", Date: at(3), Priority: model.PriorityHigh, ListID: "inbox"},
		{ID: "done", Name: "Completed Task", Date: at(0), Priority: model.PriorityHigh, ListID: "inbox", IsCompleted: true},
		{ID: "minus2", Name: "Overdue Task", Date: at(-2), Priority: model.PriorityHigh, ListID: "inbox"},
	}
}

func TestSelectScenarios(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"next 7 days", Criteria{View: ViewNext7Days}, []string{"today", "plus3"}},
		{"upcoming", Criteria{View: ViewUpcoming}, []string{"today", "plus3"}},
		{"today", Criteria{View: ViewToday}, []string{"today"}},
		{"today with completed", Criteria{View: ViewToday, ShowCompleted: true}, []string{"today", "done"}},
		{"all", Criteria{View: ViewAll}, []string{"minus2", "today", "plus3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Select(scenarioTasks(), tt.criteria, now))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUndatedTasksPerView(t *testing.T) {
	tasks := []model.Task{{ID: "undated", Name: "someday"}}
	for _, v := range Views {
		got := Select(tasks, Criteria{View: v}, now)
		want := v == ViewUpcoming || v == ViewAll
		if (len(got) == 1) != want {
			t.Errorf("view %s: included=%t, want %t", v, len(got) == 1, want)
		}
	}
}

func TestListSelectionSkipsViewFilter(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", Name: "a", ListID: "work", Date: at(-5)},
		{ID: "b", Name: "b", ListID: "work"},
		{ID: "c", Name: "c", ListID: "inbox", Date: at(0)},
	}
	got := ids(Select(tasks, Criteria{View: ViewToday, ListID: "work"}, now))
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNext7DaysBounds(t *testing.T) {
	lateOnLastDay := time.Date(2026, time.March, 17, 23, 30, 0, 0, time.UTC)
	earlyToday := time.Date(2026, time.March, 10, 0, 5, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: "last", Name: "last", Date: &lateOnLastDay},
		{ID: "early", Name: "early", Date: &earlyToday},
		{ID: "eighth", Name: "eighth", Date: at(8)},
		{ID: "yesterday", Name: "yesterday", Date: at(-1)},
	}
	got := ids(Select(tasks, Criteria{View: ViewNext7Days}, now))
	want := []string{"early", "last"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTodayUsesCallerLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	localNow := time.Date(2026, time.March, 11, 8, 0, 0, 0, loc)
	// 22:00 UTC on March 10 is March 11 08:00 in loc.
	d := time.Date(2026, time.March, 10, 22, 0, 0, 0, time.UTC)
	tasks := []model.Task{{ID: "x", Name: "x", Date: &d}}
	if got := Select(tasks, Criteria{View: ViewToday}, localNow); len(got) != 1 {
		t.Fatalf("expected task to be today in %s", loc)
	}
}

func TestSortPriorityOrder(t *testing.T) {
	tasks := []model.Task{
		{ID: "low", Priority: model.PriorityLow},
		{ID: "high", Priority: model.PriorityHigh},
		{ID: "medium", Priority: model.PriorityMedium},
		{ID: "none", Priority: model.PriorityNone},
	}
	Sort(tasks)
	want := []string{"high", "medium", "low", "none"}
	if got := ids(tasks); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSortTieBreaks(t *testing.T) {
	tasks := []model.Task{
		{ID: "done-high", Priority: model.PriorityHigh, IsCompleted: true, Date: at(-1)},
		{ID: "undated", Priority: model.PriorityMedium},
		{ID: "later", Priority: model.PriorityMedium, Date: at(4)},
		{ID: "sooner", Priority: model.PriorityMedium, Date: at(1)},
		{ID: "blank-priority", Priority: ""},
	}
	Sort(tasks)
	want := []string{"sooner", "later", "undated", "blank-priority", "done-high"}
	if got := ids(tasks); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSortIdempotent(t *testing.T) {
	tasks := append(scenarioTasks(),
		model.Task{ID: "u1", Priority: model.PriorityLow},
		model.Task{ID: "u2", Priority: model.PriorityMedium, Date: at(2)},
	)
	Sort(tasks)
	first := ids(tasks)
	Sort(tasks)
	if second := ids(tasks); !reflect.DeepEqual(first, second) {
		t.Fatalf("second sort changed order: %v -> %v", first, second)
	}
}

func TestSearch(t *testing.T) {
	tasks := []model.Task{
		{ID: "1", Name: "Test Task"},
		{ID: "2", Name: "other", Description: "a TEST description"},
		{ID: "3", Name: "unit tests"},
		{ID: "4", Name: "groceries"},
	}
	got := ids(Select(tasks, Criteria{View: ViewAll, Query: "test"}, now))
	want := []string{"1", "2", "3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if got := Search(tasks, "   "); len(got) != len(tasks) {
		t.Fatalf("blank query filtered: %d of %d", len(got), len(tasks))
	}
	if got := Select(tasks, Criteria{View: ViewAll, Query: " \t"}, now); len(got) != len(tasks) {
		t.Fatalf("blank query in criteria filtered: %d of %d", len(got), len(tasks))
	}
}

func TestSelectDoesNotMutateInput(t *testing.T) {
	tasks := []model.Task{
		{ID: "none", Priority: model.PriorityNone},
		{ID: "high", Priority: model.PriorityHigh},
	}
	_ = Select(tasks, Criteria{View: ViewAll}, now)
	if tasks[0].ID != "none" {
		t.Fatal("input slice reordered")
	}
}

func TestSelectEmpty(t *testing.T) {
	if got := Select(nil, Criteria{View: ViewToday}, now); len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}

func TestParseView(t *testing.T) {
	for raw, want := range map[string]View{"Today": ViewToday, "week": ViewNext7Days, "upcoming": ViewUpcoming, "": ViewAll} {
		got, err := ParseView(raw)
		if err != nil || got != want {
			t.Errorf("ParseView(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseView("tomorrow"); err == nil {
		t.Error("expected error for unknown view")
	}
}

func TestCriteriaCopies(t *testing.T) {
	base := Criteria{View: ViewToday, ListID: "work"}
	next := base.WithView(ViewAll).WithShowCompleted(true).WithQuery("x")
	if base.View != ViewToday || base.ListID != "work" || base.ShowCompleted || base.Query != "" {
		t.Fatalf("base criteria changed: %+v", base)
	}
	if next.ListID != "" || next.View != ViewAll || !next.ShowCompleted || next.Query != "x" {
		t.Fatalf("unexpected criteria: %+v", next)
	}
}

func TestSubtaskProgressValues(t *testing.T) {
	task := model.Task{Subtasks: []model.Subtask{{IsCompleted: true}, {IsCompleted: true}, {}}}
	if got := SubtaskProgress(task); math.Abs(got-200.0/3) > 1e-9 {
		t.Fatalf("got %v, want %v", got, 200.0/3)
	}
	if got := SubtaskProgress(model.Task{}); got != 0 {
		t.Fatalf("got %v for no subtasks", got)
	}
}
