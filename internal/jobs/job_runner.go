package jobs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"membership-backend/internal/catalog"
	"membership-backend/internal/config"
	"membership-backend/internal/logger"
	"membership-backend/internal/metrics"
	"membership-backend/internal/service"
)

// Job names, also accepted by Run.
const (
	JobDispatchDueCampaigns        = "dispatch-due-campaigns"
	JobSendActivityReminders       = "send-activity-reminders"
	JobRefreshSegmentCounts        = "refresh-segment-counts"
	JobSendOnboardingNotifications = "send-onboarding-notifications"

	// monthlyJobPrefix is followed by a MONTHLY notification type key.
	monthlyJobPrefix = "monthly:"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Campaigns  service.CampaignService
	Segments   service.SegmentService
	Activities service.ActivityService
	Onboarding service.OnboardingService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config, m *metrics.Metrics) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		metrics:  m,
		now:      time.Now,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery and records the outcome
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	log := logger.WithJob(jobName)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
		jr.metrics.JobFinished(jobName, time.Since(start), err)
	}()

	log.Info("Starting job")
	err = jobFunc(context.Background())
	if err != nil {
		log.Error("Job failed", "error", err, "duration", time.Since(start))
		return err
	}
	log.Info("Job completed", "duration", time.Since(start))
	return nil
}

// DispatchDueCampaigns sends every scheduled campaign whose time has come
func (jr *JobRunner) DispatchDueCampaigns() error {
	return jr.runWithRecovery(JobDispatchDueCampaigns, func(ctx context.Context) error {
		sent, err := jr.services.Campaigns.DispatchDue(ctx, jr.now().UTC())
		logger.Info("Due campaigns dispatched", "sent", sent)
		return err
	})
}

// SendActivityReminders sends the due reminders of upcoming auto-send activities
func (jr *JobRunner) SendActivityReminders() error {
	return jr.runWithRecovery(JobSendActivityReminders, func(ctx context.Context) error {
		sent, err := jr.services.Activities.SendDueReminders(ctx, jr.now().UTC())
		logger.Info("Activity reminders sent", "activities", sent)
		return err
	})
}

// RefreshSegmentCounts recomputes the cached member count of every segment
func (jr *JobRunner) RefreshSegmentCounts() error {
	return jr.runWithRecovery(JobRefreshSegmentCounts, func(ctx context.Context) error {
		changed, err := jr.services.Segments.RefreshCounts(ctx)
		logger.Info("Segment counts refreshed", "changed", changed)
		return err
	})
}

// SendOnboardingNotifications sends the delayed welcome and follow-up messages to recent members
func (jr *JobRunner) SendOnboardingNotifications() error {
	return jr.runWithRecovery(JobSendOnboardingNotifications, func(ctx context.Context) error {
		window := time.Duration(jr.config.Dispatch.OnboardingWindowMinute) * time.Minute
		sent, err := jr.services.Onboarding.SendDelayedNotifications(ctx, jr.now().UTC(), window)
		logger.Info("Onboarding notifications sent", "messages", sent)
		return err
	})
}

// RunMonthlyNotifications creates a campaign from a MONTHLY notification type and sends it right away
func (jr *JobRunner) RunMonthlyNotifications(typeKey string) error {
	return jr.runWithRecovery(monthlyJobPrefix+typeKey, func(ctx context.Context) error {
		nt, ok := catalog.LookupNotificationType(typeKey)
		if !ok || nt.Timing.Kind != catalog.TimingMonthly {
			return fmt.Errorf("%s is not a monthly notification type", typeKey)
		}
		c, err := jr.services.Campaigns.CreateFromType(ctx, typeKey, 0, nil)
		if err != nil {
			return fmt.Errorf("failed to create campaign: %w", err)
		}
		sent, err := jr.services.Campaigns.SendCampaign(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("failed to send campaign %d: %w", c.ID, err)
		}
		logger.Info("Monthly notification sent",
			"type", typeKey, "campaignID", sent.ID, "recipients", sent.Stats.TotalRecipients)
		return nil
	})
}

// Names lists every job Run accepts.
func (jr *JobRunner) Names() []string {
	names := []string{
		JobDispatchDueCampaigns,
		JobSendActivityReminders,
		JobRefreshSegmentCounts,
		JobSendOnboardingNotifications,
	}
	for _, nt := range catalog.NotificationTypesByTiming(catalog.TimingMonthly) {
		names = append(names, monthlyJobPrefix+nt.Key)
	}
	sort.Strings(names)
	return names
}

// Run executes a single job by name (for manual execution)
func (jr *JobRunner) Run(name string) error {
	switch name {
	case JobDispatchDueCampaigns:
		return jr.DispatchDueCampaigns()
	case JobSendActivityReminders:
		return jr.SendActivityReminders()
	case JobRefreshSegmentCounts:
		return jr.RefreshSegmentCounts()
	case JobSendOnboardingNotifications:
		return jr.SendOnboardingNotifications()
	}
	if key, ok := strings.CutPrefix(name, monthlyJobPrefix); ok {
		return jr.RunMonthlyNotifications(key)
	}
	return fmt.Errorf("unknown job %q, expected one of %s", name, strings.Join(jr.Names(), ", "))
}
