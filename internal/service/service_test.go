package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"daily-planner/internal/logger"
	"daily-planner/internal/model"
	"daily-planner/internal/planner"
	"daily-planner/internal/repository"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	tasks     *TaskService
	lists     *ListService
	labels    *LabelService
	views     *ViewService
	reminders *ReminderService
	clock     time.Time
}

func (f *fixture) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name), nil)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	log := logger.New(io.Discard, "test", "error")
	taskRepo := repository.NewTaskRepository(db)
	listRepo := repository.NewListRepository(db)
	labelRepo := repository.NewLabelRepository(db)
	reminderRepo := repository.NewReminderRepository(db)

	f := &fixture{clock: now}
	f.tasks = NewTaskService(taskRepo, listRepo, labelRepo, repository.NewSubtaskRepository(db), reminderRepo, repository.NewActivityRepository(db), log)
	f.tasks.now = f.tick
	f.lists = NewListService(listRepo, log)
	f.lists.now = f.tick
	f.labels = NewLabelService(labelRepo, log)
	f.labels.now = f.tick
	f.views = NewViewService(taskRepo, listRepo)
	f.reminders = NewReminderService(taskRepo, reminderRepo, log)

	if err := f.lists.EnsureDefaults(context.Background(), "Inbox", nil); err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}
	return f
}

func day(offset int) *time.Time {
	d := now.AddDate(0, 0, offset)
	return &d
}

func TestCreateTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.tasks.CreateTask(ctx, TaskInput{Name: "   "}); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("blank name: got %v, want ErrEmptyName", err)
	}
	if _, err := f.tasks.CreateTask(ctx, TaskInput{Name: "x", ListID: "nope"}); !errors.Is(err, ErrUnknownList) {
		t.Fatalf("unknown list: got %v, want ErrUnknownList", err)
	}

	label, err := f.labels.CreateLabel(ctx, "Work", "", "")
	if err != nil {
		t.Fatalf("CreateLabel: %v", err)
	}
	task, err := f.tasks.CreateTask(ctx, TaskInput{
		Name:     " Write report ",
		Priority: "urgent",
		LabelIDs: []string{label.ID, "missing"},
		Subtasks: []string{"outline", " ", "draft"},
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Name != "Write report" || task.ListID != model.InboxListID || task.Priority != model.PriorityNone {
		t.Fatalf("unexpected task %+v", task)
	}

	got, err := f.tasks.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if len(got.Labels) != 1 || got.Labels[0].ID != label.ID {
		t.Fatalf("labels = %+v", got.Labels)
	}
	if len(got.Subtasks) != 2 {
		t.Fatalf("subtasks = %d, want 2", len(got.Subtasks))
	}

	all, err := f.tasks.ListTasks(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListTasks = %d tasks, %v", len(all), err)
	}

	history, err := f.tasks.History(ctx, task.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Action != model.ActionCreated {
		t.Fatalf("history = %+v", history)
	}
}

func TestUpdateTaskRecordsChanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	task, err := f.tasks.CreateTask(ctx, TaskInput{Name: "Call bank", Date: day(0)})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	name := "Call the bank"
	high := model.PriorityHigh
	updated, err := f.tasks.UpdateTask(ctx, task.ID, TaskPatch{Name: &name, Priority: &high, ClearDate: true})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Name != name || updated.Priority != high || updated.Date != nil {
		t.Fatalf("unexpected task %+v", updated)
	}
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Fatalf("UpdatedAt %v before CreatedAt %v", updated.UpdatedAt, updated.CreatedAt)
	}

	history, err := f.tasks.History(ctx, task.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d entries, want 2", len(history))
	}
	changes := history[0].Changes
	for _, field := range []string{"name", "priority", "date"} {
		if _, ok := changes[field]; !ok {
			t.Errorf("change for %q not recorded: %+v", field, changes)
		}
	}

	empty := ""
	if _, err := f.tasks.UpdateTask(ctx, task.ID, TaskPatch{Name: &empty}); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("blank rename: got %v, want ErrEmptyName", err)
	}
	if _, err := f.tasks.UpdateTask(ctx, "missing", TaskPatch{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing task: got %v, want ErrNotFound", err)
	}
}

func TestUpdateTaskTimingAndRepeat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	home, err := f.lists.CreateList(ctx, "Home", "", "")
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}
	task, _ := f.tasks.CreateTask(ctx, TaskInput{Name: "Paint fence"})

	deadline := now.Add(48 * time.Hour)
	actual := "2:15"
	weekly := "weekly"
	three := 3
	updated, err := f.tasks.UpdateTask(ctx, task.ID, TaskPatch{
		Deadline:      &deadline,
		ActualTime:    &actual,
		ListID:        &home.ID,
		RecurType:     &weekly,
		RecurInterval: &three,
	})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Deadline == nil || !updated.Deadline.Equal(deadline) || updated.ActualTime != "2:15" || updated.ListID != home.ID {
		t.Fatalf("unexpected task %+v", updated)
	}
	if !updated.IsRecurring || updated.RecurType != "weekly" || updated.RecurInterval != 3 {
		t.Fatalf("recurrence = %v %q %d", updated.IsRecurring, updated.RecurType, updated.RecurInterval)
	}

	none := ""
	stopped, err := f.tasks.UpdateTask(ctx, task.ID, TaskPatch{RecurType: &none, ClearDeadline: true})
	if err != nil {
		t.Fatalf("UpdateTask stop: %v", err)
	}
	if stopped.IsRecurring || stopped.RecurInterval != 0 || stopped.Deadline != nil {
		t.Fatalf("not cleared: %+v", stopped)
	}

	history, err := f.tasks.History(ctx, task.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history has %d entries, want 3", len(history))
	}
	for _, field := range []string{"deadline", "actualTime", "listId", "recurrence"} {
		if _, ok := history[1].Changes[field]; !ok {
			t.Errorf("change for %q not recorded: %+v", field, history[1].Changes)
		}
	}
}

func TestUpdateTaskStampsServiceClock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.clock = time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)

	task, err := f.tasks.CreateTask(ctx, TaskInput{Name: "Renew passport"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	desc := "bring photos"
	updated, err := f.tasks.UpdateTask(ctx, task.ID, TaskPatch{Description: &desc})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	want := time.Date(2031, 1, 1, 0, 3, 0, 0, time.UTC)
	if !updated.UpdatedAt.Equal(want) {
		t.Fatalf("UpdatedAt %v, want %v", updated.UpdatedAt, want)
	}

	stored, err := f.tasks.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if !stored.UpdatedAt.Equal(want) {
		t.Fatalf("stored UpdatedAt %v, want %v", stored.UpdatedAt, want)
	}
	if stored.UpdatedAt.Before(stored.CreatedAt) {
		t.Fatalf("UpdatedAt %v before CreatedAt %v", stored.UpdatedAt, stored.CreatedAt)
	}
}

func TestToggleCompleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	task, _ := f.tasks.CreateTask(ctx, TaskInput{Name: "Water plants"})

	done, err := f.tasks.ToggleCompleted(ctx, task.ID)
	if err != nil || !done.IsCompleted {
		t.Fatalf("first toggle: %+v, %v", done, err)
	}
	history, _ := f.tasks.History(ctx, task.ID)
	if history[0].Action != model.ActionCompleted {
		t.Fatalf("latest action = %q, want completed", history[0].Action)
	}

	undone, err := f.tasks.ToggleCompleted(ctx, task.ID)
	if err != nil || undone.IsCompleted {
		t.Fatalf("second toggle: %+v, %v", undone, err)
	}
}

func TestSubtasks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	task, _ := f.tasks.CreateTask(ctx, TaskInput{Name: "Move"})

	if _, err := f.tasks.AddSubtask(ctx, task.ID, ""); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("blank subtask: got %v", err)
	}
	if _, err := f.tasks.AddSubtask(ctx, "missing", "boxes"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("subtask on missing task: got %v", err)
	}

	a, err := f.tasks.AddSubtask(ctx, task.ID, "boxes")
	if err != nil {
		t.Fatalf("AddSubtask: %v", err)
	}
	b, _ := f.tasks.AddSubtask(ctx, task.ID, "van")
	if _, err := f.tasks.ToggleSubtask(ctx, a.ID); err != nil {
		t.Fatalf("ToggleSubtask: %v", err)
	}

	got, _ := f.tasks.GetTask(ctx, task.ID)
	if d, total := planner.CompletedSubtasks(*got); d != 1 || total != 2 {
		t.Fatalf("progress = %d/%d, want 1/2", d, total)
	}

	if err := f.tasks.DeleteSubtask(ctx, b.ID); err != nil {
		t.Fatalf("DeleteSubtask: %v", err)
	}
	if err := f.tasks.DeleteSubtask(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
	got, _ = f.tasks.GetTask(ctx, task.ID)
	if planner.SubtaskProgress(*got) != 100 {
		t.Fatalf("progress = %v, want 100", planner.SubtaskProgress(*got))
	}
}

func TestDeleteTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	task, _ := f.tasks.CreateTask(ctx, TaskInput{Name: "Temp", Subtasks: []string{"a"}})

	if err := f.tasks.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := f.tasks.GetTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetTask after delete: %v", err)
	}
	if err := f.tasks.DeleteTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestSetLabels(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	work, _ := f.labels.CreateLabel(ctx, "Work", "", "")
	home, _ := f.labels.CreateLabel(ctx, "Home", "", "")
	task, _ := f.tasks.CreateTask(ctx, TaskInput{Name: "Plan", LabelIDs: []string{work.ID}})

	if _, err := f.tasks.SetLabels(ctx, task.ID, []string{home.ID}); err != nil {
		t.Fatalf("SetLabels: %v", err)
	}
	got, _ := f.tasks.GetTask(ctx, task.ID)
	if !got.HasLabel(home.ID) || got.HasLabel(work.ID) {
		t.Fatalf("labels = %+v", got.Labels)
	}

	if _, err := f.tasks.SetLabels(ctx, task.ID, []string{home.ID, "missing"}); err != nil {
		t.Fatalf("SetLabels unchanged: %v", err)
	}
	history, err := f.tasks.History(ctx, task.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d entries, want 2 (create and one label change)", len(history))
	}
}

func TestDeleteInboxIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.lists.DeleteList(ctx, model.InboxListID); !errors.Is(err, ErrProtectedList) {
		t.Fatalf("DeleteList(inbox) = %v, want ErrProtectedList", err)
	}
	lists, err := f.lists.ListLists(ctx)
	if err != nil {
		t.Fatalf("ListLists: %v", err)
	}
	if len(lists) != 1 || lists[0].ID != model.InboxListID || !lists[0].IsDefault {
		t.Fatalf("lists = %+v", lists)
	}
}

func TestDeleteListMovesTasksToInbox(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	work, err := f.lists.CreateList(ctx, "Work", "", "")
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}
	task, _ := f.tasks.CreateTask(ctx, TaskInput{Name: "Standup", ListID: work.ID})

	if err := f.lists.DeleteList(ctx, work.ID); err != nil {
		t.Fatalf("DeleteList: %v", err)
	}
	got, _ := f.tasks.GetTask(ctx, task.ID)
	if got.ListID != model.InboxListID {
		t.Fatalf("ListID = %q, want inbox", got.ListID)
	}
	if err := f.lists.DeleteList(ctx, work.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestEnsureDefaultsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seed := []model.Label{{Name: "Work"}, {Name: "work"}, {Name: "Health"}}
	extra := []model.TaskList{{Name: "Errands"}}

	for i := 0; i < 2; i++ {
		if err := f.labels.EnsureDefaults(ctx, seed); err != nil {
			t.Fatalf("labels EnsureDefaults: %v", err)
		}
		if err := f.lists.EnsureDefaults(ctx, "Inbox", extra); err != nil {
			t.Fatalf("lists EnsureDefaults: %v", err)
		}
	}
	labels, _ := f.labels.ListLabels(ctx)
	if len(labels) != 2 {
		t.Fatalf("labels = %d, want 2", len(labels))
	}
	lists, _ := f.lists.ListLists(ctx)
	if len(lists) != 2 {
		t.Fatalf("lists = %d, want 2", len(lists))
	}
}

func TestDeleteLabelKeepsTasks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	label, _ := f.labels.CreateLabel(ctx, "Shopping", "", "")
	task, _ := f.tasks.CreateTask(ctx, TaskInput{Name: "Milk", LabelIDs: []string{label.ID}})

	if err := f.labels.DeleteLabel(ctx, label.ID); err != nil {
		t.Fatalf("DeleteLabel: %v", err)
	}
	got, err := f.tasks.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if len(got.Labels) != 0 {
		t.Fatalf("labels = %+v", got.Labels)
	}
	if err := f.labels.DeleteLabel(ctx, label.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestRender(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.views.Render(ctx, planner.Criteria{View: planner.ViewToday}, now)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !res.Empty() || res.NoMatches() || res.Title != "Today" {
		t.Fatalf("empty planner: %+v", res)
	}

	work, _ := f.lists.CreateList(ctx, "Work", "", "")
	f.tasks.CreateTask(ctx, TaskInput{Name: "Old", Date: day(-2)})
	f.tasks.CreateTask(ctx, TaskInput{Name: "Later", Date: day(3), ListID: work.ID})

	res, err = f.views.Render(ctx, planner.Criteria{View: planner.ViewToday}, now)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Empty() || !res.NoMatches() {
		t.Fatalf("today with no matches: %+v", res)
	}
	if res.Summary.Overdue != 1 || res.Total != 2 {
		t.Fatalf("summary = %+v total = %d", res.Summary, res.Total)
	}

	res, err = f.views.Render(ctx, planner.Criteria{View: planner.ViewToday, ListID: work.ID}, now)
	if err != nil {
		t.Fatalf("Render list: %v", err)
	}
	if res.Title != "Work" || len(res.Tasks) != 1 || res.Tasks[0].Name != "Later" {
		t.Fatalf("list view: %+v", res)
	}

	if _, err := f.views.Render(ctx, planner.Criteria{ListID: "gone"}, now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown list: %v", err)
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tasks.CreateTask(ctx, TaskInput{Name: "Buy milk"})
	f.tasks.CreateTask(ctx, TaskInput{Name: "Gym", Description: "leg day, then MILKshake"})
	f.tasks.CreateTask(ctx, TaskInput{Name: "Read"})

	found, err := f.tasks.Search(ctx, "milk")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("found %d, want 2", len(found))
	}
	all, _ := f.tasks.Search(ctx, "  ")
	if len(all) != 3 {
		t.Fatalf("blank query found %d, want 3", len(all))
	}
}

func TestDispatchDue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	open, _ := f.tasks.CreateTask(ctx, TaskInput{Name: "Pay rent"})
	closed, _ := f.tasks.CreateTask(ctx, TaskInput{Name: "Done already"})
	f.tasks.SetCompleted(ctx, closed.ID, true)

	f.tasks.AddReminder(ctx, open.ID, now.Add(-time.Hour))
	f.tasks.AddReminder(ctx, open.ID, now.Add(time.Hour))
	f.tasks.AddReminder(ctx, closed.ID, now.Add(-time.Minute))

	var sent []string
	send := func(text string) error {
		sent = append(sent, text)
		return nil
	}
	n, err := f.reminders.DispatchDue(ctx, now, send)
	if err != nil {
		t.Fatalf("DispatchDue: %v", err)
	}
	if n != 1 || len(sent) != 1 || !strings.Contains(sent[0], "Pay rent") {
		t.Fatalf("sent %d: %q", n, sent)
	}

	n, err = f.reminders.DispatchDue(ctx, now, send)
	if err != nil || n != 0 {
		t.Fatalf("second dispatch sent %d, err %v", n, err)
	}
}

func TestDailySummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tasks.CreateTask(ctx, TaskInput{Name: "Standup", Date: day(0), Priority: model.PriorityHigh})
	f.tasks.CreateTask(ctx, TaskInput{Name: "Taxes <late>", Date: day(-3)})
	f.tasks.CreateTask(ctx, TaskInput{Name: "Dentist", Date: day(2)})

	text, err := f.reminders.DailySummary(ctx, now)
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}
	for _, want := range []string{"Standup", "Taxes &lt;late&gt;", "Dentist", "1 overdue"} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestDailySummaryDeadlineAndRepeat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	soon := now.Add(30 * time.Hour)
	missed := now.Add(-2 * time.Hour)
	f.tasks.CreateTask(ctx, TaskInput{Name: "Invoice", Date: day(0), Deadline: &soon})
	f.tasks.CreateTask(ctx, TaskInput{Name: "Backup", Date: day(0), Deadline: &missed, IsRecurring: true, RecurType: "weekly", RecurInterval: 2})

	text, err := f.reminders.DailySummary(ctx, now)
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}
	for _, want := range []string{
		"⏳ Invoice",
		"⏰ due 2026-03-11 · ≈2 d left",
		"⏰ due 2026-03-10 · <b>missed</b>",
		"🔁 every 2 weeks",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestBuildDailySpec(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"08:00", "0 0 8 * * *", false},
		{"23:59", "0 59 23 * * *", false},
		{" 7:05 ", "0 5 7 * * *", false},
		{"12:60", "", true},
		{"24:00", "", true},
		{"8", "", true},
		{"ab:10", "", true},
	}
	for _, tc := range cases {
		got, err := buildDailySpec(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("buildDailySpec(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestScheduleInterval(t *testing.T) {
	s := NewSchedulerService(time.UTC, logger.New(io.Discard, "test", "error"))
	if _, err := s.ScheduleInterval(0, func() {}); err == nil {
		t.Fatal("zero interval accepted")
	}
	if _, err := s.ScheduleInterval(time.Minute, func() {}); err != nil {
		t.Fatalf("ScheduleInterval: %v", err)
	}
	if _, err := s.ScheduleDaily("07:30", func() {}); err != nil {
		t.Fatalf("ScheduleDaily: %v", err)
	}
	if s.Entries() != 2 {
		t.Fatalf("entries = %d, want 2", s.Entries())
	}
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewSchedulerService(time.UTC, logger.New(io.Discard, "test", "error"))
	ran := make(chan struct{}, 1)
	if _, err := s.ScheduleInterval(time.Second, func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatalf("ScheduleInterval: %v", err)
	}
	s.Start()
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("interval job never ran")
	}
	s.Stop()
}
