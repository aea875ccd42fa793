package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SchedulerService runs the report and reminder jobs on a cron clock.
type SchedulerService struct {
	cron *cron.Cron
}

// NewSchedulerService builds a scheduler evaluated in loc. Panicking jobs are
// recovered and a job still running when its next tick fires is skipped.
func NewSchedulerService(loc *time.Location, log *logrus.Entry) *SchedulerService {
	jobLog := cron.PrintfLogger(log)
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(jobLog), cron.SkipIfStillRunning(jobLog)),
		),
	}
}

// ScheduleDaily registers a daily job at the given HH:MM time string.
func (s *SchedulerService) ScheduleDaily(at string, job func()) (cron.EntryID, error) {
	spec, err := buildDailySpec(at)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, job)
}

// ScheduleInterval registers job to run every interval, rounded down to whole
// seconds with a one second floor.
func (s *SchedulerService) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, errors.New("interval must be positive")
	}
	return s.cron.Schedule(cron.Every(interval), cron.FuncJob(job)), nil
}

// Start begins running registered jobs in a background goroutine.
func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and blocks until running jobs have returned.
func (s *SchedulerService) Stop() {
	<-s.cron.Stop().Done()
}

// Entries reports how many jobs are registered.
func (s *SchedulerService) Entries() int {
	return len(s.cron.Entries())
}

// buildDailySpec turns HH:MM into a seconds-first cron spec.
func buildDailySpec(at string) (string, error) {
	clock, err := time.Parse("15:04", strings.TrimSpace(at))
	if err != nil {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", at)
	}
	return fmt.Sprintf("0 %d %d * * *", clock.Minute(), clock.Hour()), nil
}
