package scheduler

import (
	"testing"

	"membership-backend/internal/catalog"
	"membership-backend/internal/config"
	"membership-backend/internal/jobs"

	"github.com/stretchr/testify/assert"
)

func schedulerConfig() *config.Config {
	return &config.Config{Scheduler: config.SchedulerConfig{
		DispatchDueCampaigns:   "0 * * * * *",
		SendActivityReminders:  "0 0 * * * *",
		RefreshSegmentCounts:   "0 0 3 * * *",
		SendOnboardingMessages: "0 0 * * * *",
	}}
}

func TestNewScheduler_RegistersJobs(t *testing.T) {
	s := NewScheduler(jobs.NewJobRunner(&jobs.Services{}, schedulerConfig(), nil))
	assert.Equal(t, 4, s.Entries())
	assert.True(t, s.IsRunning())
}

func TestNewScheduler_MonthlyNotifications(t *testing.T) {
	cfg := schedulerConfig()
	cfg.Scheduler.MonthlyNotifications = true
	s := NewScheduler(jobs.NewJobRunner(&jobs.Services{}, cfg, nil))
	assert.Equal(t, 4+len(catalog.NotificationTypesByTiming(catalog.TimingMonthly)), s.Entries())
}

func TestNewScheduler_SkipsInvalidSpec(t *testing.T) {
	cfg := schedulerConfig()
	cfg.Scheduler.RefreshSegmentCounts = "every night"
	s := NewScheduler(jobs.NewJobRunner(&jobs.Services{}, cfg, nil))
	assert.Equal(t, 3, s.Entries())
}
