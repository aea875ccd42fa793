package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"daily-planner/internal/bot"
	"daily-planner/internal/config"
	"daily-planner/internal/logger"
	"daily-planner/internal/metrics"
	"daily-planner/internal/model"
	"daily-planner/internal/repository"
	"daily-planner/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := logger.Init("daily-planner", cfg.LogLevel)

	seed, err := config.LoadOrCreateSeed(cfg.SeedFile)
	if err != nil {
		log.WithError(err).Fatal("seed")
	}

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("db")
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	chatRepo := repository.NewChatRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	listRepo := repository.NewListRepository(db)
	labelRepo := repository.NewLabelRepository(db)
	reminderRepo := repository.NewReminderRepository(db)

	svc := bot.Services{
		Tasks: service.NewTaskService(taskRepo, listRepo, labelRepo, repository.NewSubtaskRepository(db),
			reminderRepo, repository.NewActivityRepository(db), log.WithField("component", "tasks")),
		Lists:     service.NewListService(listRepo, log.WithField("component", "lists")),
		Labels:    service.NewLabelService(labelRepo, log.WithField("component", "labels")),
		Views:     service.NewViewService(taskRepo, listRepo),
		Reminders: service.NewReminderService(taskRepo, reminderRepo, log.WithField("component", "reminders")),
	}

	if err := svc.Lists.EnsureDefaults(ctx, seed.InboxName, seedLists(seed)); err != nil {
		log.WithError(err).Fatal("default lists")
	}
	if err := svc.Labels.EnsureDefaults(ctx, seedLabels(seed)); err != nil {
		log.WithError(err).Fatal("default labels")
	}

	telegramBot, err := bot.New(cfg.TelegramToken, chatRepo, svc, &cfg, log.WithField("component", "bot"))
	if err != nil {
		log.WithError(err).Fatal("bot")
	}

	scheduler := service.NewSchedulerService(cfg.Location, log.WithField("component", "cron"))
	report := job(log, "report", telegramBot.SendDailyReports)
	if _, err := scheduler.ScheduleDaily(cfg.ReportTime, report); err != nil {
		log.WithError(err).Fatal("schedule daily report")
	}
	if cfg.ReportInterval > 0 {
		if _, err := scheduler.ScheduleInterval(cfg.ReportInterval, report); err != nil {
			log.WithError(err).Fatal("schedule interval report")
		}
	}
	if _, err := scheduler.ScheduleInterval(cfg.ReminderPoll, job(log, "reminders", telegramBot.SendReminders)); err != nil {
		log.WithError(err).Fatal("schedule reminders")
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.WithError(err).Error("metrics server")
			}
		}()
	}

	log.Info("daily planner bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("bot stopped")
	}
	log.Info("shutdown complete")
}

// job adapts a bot delivery to a cron callback with its own timeout.
func job(log *logrus.Entry, name string, run func(context.Context) error) func() {
	return func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := run(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).WithField("job", name).Error("scheduled job failed")
		}
	}
}

func seedLists(seed config.Seed) []model.TaskList {
	lists := make([]model.TaskList, 0, len(seed.Lists))
	for _, l := range seed.Lists {
		lists = append(lists, model.TaskList{ID: l.ID, Name: l.Name, Color: l.Color, Icon: l.Icon})
	}
	return lists
}

func seedLabels(seed config.Seed) []model.Label {
	labels := make([]model.Label, 0, len(seed.Labels))
	for _, l := range seed.Labels {
		labels = append(labels, model.Label{ID: l.ID, Name: l.Name, Color: l.Color, Icon: l.Icon})
	}
	return labels
}
