// Package app wires configuration, storage, channels and services into the
// object graph shared by the API server and the cron runner.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	httpapi "membership-backend/internal/api/http"
	"membership-backend/internal/channel"
	"membership-backend/internal/config"
	"membership-backend/internal/domain"
	"membership-backend/internal/jobs"
	"membership-backend/internal/logger"
	"membership-backend/internal/metrics"
	"membership-backend/internal/repository"
	"membership-backend/internal/repository/memory"
	"membership-backend/internal/repository/postgres"
	"membership-backend/internal/security"
	"membership-backend/internal/service"
	"membership-backend/internal/storage"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Repositories struct {
	Members       repository.MemberRepository
	Segments      repository.SegmentRepository
	Campaigns     repository.CampaignRepository
	Deliveries    repository.DeliveryRepository
	Activities    repository.ActivityRepository
	Notifications repository.NotificationRepository
}

type App struct {
	Config   *config.Config
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Storage  storage.Storage
	Tokens   security.TokenManager
	Channels *channel.Registry

	Members       service.MemberService
	Segments      service.SegmentService
	Campaigns     service.CampaignService
	Activities    service.ActivityService
	Notifications service.NotificationService
	Onboarding    service.OnboardingService
	Exports       service.ExportService

	db *sql.DB
}

// New builds the application. The caller owns the returned App and must Close it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	repos, err := a.openRepositories(ctx)
	if err != nil {
		return nil, err
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.New(a.Registry)

	local, err := storage.NewLocalStorage(cfg.Storage.BaseURL, cfg.Storage.ExportDir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize export storage: %w", err)
	}
	a.Storage = local
	a.Tokens = security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	senders, err := NewSenders(ctx, cfg, repos.Notifications)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Channels = channel.NewRegistry(senders...)
	logger.Info("Delivery channels configured", "channels", a.Channels.Channels())

	dispatcher := service.NewDispatcher(a.Channels, a.Metrics, cfg.Dispatch.Concurrency, cfg.Tracking.PublicBaseURL)

	a.Members = service.NewMemberService(repos.Members)
	a.Segments = service.NewSegmentService(repos.Segments, repos.Members)
	a.Campaigns = service.NewCampaignService(repos.Campaigns, repos.Deliveries, repos.Members, a.Segments, dispatcher, a.Metrics)
	a.Activities = service.NewActivityService(repos.Activities, repos.Members, dispatcher)
	a.Notifications = service.NewNotificationService(repos.Notifications)
	a.Onboarding = service.NewOnboardingService(repos.Members, dispatcher)
	a.Exports = service.NewExportService(a.Segments, a.Storage)

	return a, nil
}

func (a *App) openRepositories(ctx context.Context) (*Repositories, error) {
	cfg := a.Config
	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory repositories; data is lost on exit")
		store := memory.NewStore()
		return &Repositories{
			Members:       store.MemberRepository,
			Segments:      store.SegmentRepository,
			Campaigns:     store.CampaignRepository,
			Deliveries:    store.DeliveryRepository,
			Activities:    store.ActivityRepository,
			Notifications: store.NotificationRepository,
		}, nil
	}

	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	a.db = db
	logger.Info("Database connection established", "host", cfg.Database.Host, "database", cfg.Database.Database)

	store := postgres.NewStore(db)
	if cfg.Database.Migrate {
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("Database schema applied")
	}
	return &Repositories{
		Members:       store.MemberRepository,
		Segments:      store.SegmentRepository,
		Campaigns:     store.CampaignRepository,
		Deliveries:    store.DeliveryRepository,
		Activities:    store.ActivityRepository,
		Notifications: store.NotificationRepository,
	}, nil
}

// NewSenders builds one sender per configured channel. In-app is always available;
// push and SMS are enabled only when their provider is configured.
func NewSenders(ctx context.Context, cfg *config.Config, notifications repository.NotificationRepository) ([]channel.Sender, error) {
	var senders []channel.Sender

	switch cfg.Email.Provider {
	case "smtp":
		logger.Info("Email via SMTP", "host", cfg.SMTP.Host, "port", cfg.SMTP.Port)
		senders = append(senders, channel.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.Email.From, cfg.Email.FromName))
	case "sendgrid":
		logger.Info("Email via SendGrid")
		senders = append(senders, channel.NewSendGridSender(cfg.SendGrid.APIKey, cfg.Email.From, cfg.Email.FromName))
	default:
		senders = append(senders, channel.NewLogSender(domain.ChannelEmail))
	}

	if cfg.Push.CredentialsFile != "" {
		push, err := channel.NewPushSender(ctx, cfg.Push.CredentialsFile, cfg.Push.ProjectID)
		if err != nil {
			return nil, err
		}
		senders = append(senders, push)
	}

	if cfg.SMS.BaseURL != "" {
		timeout := time.Duration(cfg.SMS.TimeoutSeconds) * time.Second
		senders = append(senders, channel.NewSMSGateway(cfg.SMS.BaseURL, cfg.SMS.APIKey, cfg.SMS.SenderID, timeout))
	}

	senders = append(senders, channel.NewInAppSender(notifications))
	return senders, nil
}

func (a *App) HTTPServices() *httpapi.Services {
	return &httpapi.Services{
		Members:       a.Members,
		Segments:      a.Segments,
		Campaigns:     a.Campaigns,
		Activities:    a.Activities,
		Notifications: a.Notifications,
		Exports:       a.Exports,
	}
}

func (a *App) JobServices() *jobs.Services {
	return &jobs.Services{
		Campaigns:  a.Campaigns,
		Segments:   a.Segments,
		Activities: a.Activities,
		Onboarding: a.Onboarding,
	}
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}
