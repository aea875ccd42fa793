package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_mutations_total",
			Help: "Record mutations by entity and operation",
		},
		[]string{"entity", "op"},
	)

	viewRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_view_requests_total",
			Help: "Rendered task views by view name",
		},
		[]string{"view"},
	)

	viewDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "planner_view_duration_seconds",
			Help:    "Time spent loading and selecting a view",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"view"},
	)

	remindersSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "planner_reminders_sent_total",
			Help: "Reminders delivered to chats",
		},
	)

	botUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_bot_updates_total",
			Help: "Telegram updates handled by kind",
		},
		[]string{"kind"},
	)
)

// Mutation counts a create/update/delete of an entity.
func Mutation(entity, op string) {
	mutationsTotal.WithLabelValues(entity, op).Inc()
}

// ObserveView records one rendered view and how long it took.
func ObserveView(view string, d time.Duration) {
	viewRequestsTotal.WithLabelValues(view).Inc()
	viewDuration.WithLabelValues(view).Observe(d.Seconds())
}

// ReminderSent counts a delivered reminder.
func ReminderSent() {
	remindersSent.Inc()
}

// BotUpdate counts a handled Telegram update.
func BotUpdate(kind string) {
	botUpdates.WithLabelValues(kind).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
