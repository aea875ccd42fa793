package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	return rec.Body.String()
}

func TestHandlerExposesPlannerMetrics(t *testing.T) {
	Mutation("task", "create")
	ObserveView("today", 2*time.Millisecond)
	ReminderSent()
	BotUpdate("message")

	body := scrape(t)
	for _, want := range []string{
		`planner_mutations_total{entity="task",op="create"}`,
		`planner_view_requests_total{view="today"}`,
		`planner_view_duration_seconds_bucket{view="today"`,
		"planner_reminders_sent_total",
		`planner_bot_updates_total{kind="message"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %s", want)
		}
	}
}
