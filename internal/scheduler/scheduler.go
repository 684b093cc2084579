package scheduler

import (
	"time"

	"membership-backend/internal/catalog"
	"membership-backend/internal/jobs"
	"membership-backend/internal/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	s.registerJobs()
	return s
}

// register adds a job; the error is already logged and counted by the runner.
func (s *Scheduler) register(name, spec string, job func() error) {
	if _, err := s.cron.AddFunc(spec, func() { _ = job() }); err != nil {
		logger.Error("Failed to register job", "job", name, "spec", spec, "error", err)
		return
	}
	logger.Debug("Registered job", "job", name, "spec", spec)
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Scheduler

	s.register(jobs.JobDispatchDueCampaigns, cfg.DispatchDueCampaigns, s.jobs.DispatchDueCampaigns)
	s.register(jobs.JobSendActivityReminders, cfg.SendActivityReminders, s.jobs.SendActivityReminders)
	s.register(jobs.JobRefreshSegmentCounts, cfg.RefreshSegmentCounts, s.jobs.RefreshSegmentCounts)
	s.register(jobs.JobSendOnboardingNotifications, cfg.SendOnboardingMessages, s.jobs.SendOnboardingNotifications)

	// One entry per monthly notification type, on the day and hour of its catalog timing
	if cfg.MonthlyNotifications {
		for _, nt := range catalog.NotificationTypesByTiming(catalog.TimingMonthly) {
			spec, err := catalog.CronSpec(nt.Timing)
			if err != nil {
				logger.Error("Invalid monthly timing", "type", nt.Key, "error", err)
				continue
			}
			key := nt.Key
			s.register("monthly:"+key, spec, func() error { return s.jobs.RunMonthlyNotifications(key) })
		}
	}

	logger.Info("All cron jobs registered", "entries", len(s.cron.Entries()))
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler has jobs registered
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
