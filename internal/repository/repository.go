package repository

import (
	"context"
	"time"

	"membership-backend/internal/domain"
)

type MemberRepository interface {
	Create(ctx context.Context, m *domain.Member) error
	GetByID(ctx context.Context, id int32) (*domain.Member, error)
	GetByEmail(ctx context.Context, email string) (*domain.Member, error)
	Update(ctx context.Context, m *domain.Member) error
	Delete(ctx context.Context, id int32) error
	List(ctx context.Context, limit, offset int32) ([]domain.Member, int32, error)
	ListAll(ctx context.Context) ([]domain.Member, error)
	ListRegisteredBetween(ctx context.Context, from, to time.Time) ([]domain.Member, error)
	UpdatePreferences(ctx context.Context, id int32, prefs domain.CommunicationPreferences) error
}

type SegmentRepository interface {
	Create(ctx context.Context, s *domain.Segment) error
	GetByID(ctx context.Context, id int32) (*domain.Segment, error)
	GetByPresetKey(ctx context.Context, key string) (*domain.Segment, error)
	Update(ctx context.Context, s *domain.Segment) error
	Delete(ctx context.Context, id int32) error
	List(ctx context.Context) ([]domain.Segment, error)
	UpdateMemberCount(ctx context.Context, id int32, count int32) error
}

type CampaignRepository interface {
	Create(ctx context.Context, c *domain.NotificationCampaign) error
	GetByID(ctx context.Context, id int32) (*domain.NotificationCampaign, error)
	Update(ctx context.Context, c *domain.NotificationCampaign) error
	// UpdateStatus moves a campaign from one status to another and fails with
	// domain.ErrInvalidTransition when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id int32, from, to domain.CampaignStatus, scheduledAt, sentAt *time.Time) error
	List(ctx context.Context, status domain.CampaignStatus) ([]domain.NotificationCampaign, error)
	ListDue(ctx context.Context, now time.Time) ([]domain.NotificationCampaign, error)
	SetStats(ctx context.Context, id int32, stats domain.CampaignStats) error
}

type DeliveryRepository interface {
	CreateBatch(ctx context.Context, deliveries []domain.Delivery) error
	GetByToken(ctx context.Context, token string) (*domain.Delivery, error)
	MarkOpened(ctx context.Context, token string, at time.Time) error
	MarkClicked(ctx context.Context, token string, at time.Time) error
	MarkUnsubscribed(ctx context.Context, token string, at time.Time) error
	ListByCampaign(ctx context.Context, campaignID int32) ([]domain.Delivery, error)
	Stats(ctx context.Context, campaignID int32) (domain.CampaignStats, error)
}

type ActivityRepository interface {
	Create(ctx context.Context, a *domain.ActivityNotification) error
	GetByID(ctx context.Context, id int32) (*domain.ActivityNotification, error)
	Update(ctx context.Context, a *domain.ActivityNotification) error
	List(ctx context.Context) ([]domain.ActivityNotification, error)
	ListUpcomingAutoSend(ctx context.Context, now time.Time) ([]domain.ActivityNotification, error)
	MarkRemindersSent(ctx context.Context, id int32, offsets []int) error
	// AdjustParticipants adds delta to the participant count without crossing zero or the maximum.
	AdjustParticipants(ctx context.Context, id int32, delta int32) (*domain.ActivityNotification, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, memberID int32, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, memberID int32) error
	CountUnread(ctx context.Context, memberID int32) (int32, error)
}
