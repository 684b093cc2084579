package service

import (
	"context"
	"time"

	"membership-backend/internal/catalog"
	"membership-backend/internal/domain"
)

type MemberService interface {
	Register(ctx context.Context, m *domain.Member) error
	GetMember(ctx context.Context, id int32) (*domain.Member, error)
	UpdateMember(ctx context.Context, m *domain.Member) error
	DeleteMember(ctx context.Context, id int32) error
	ListMembers(ctx context.Context, page, pageSize int32) ([]domain.Member, int32, error)
	UpdatePreferences(ctx context.Context, id int32, prefs domain.CommunicationPreferences) (*domain.Member, error)
	AdjustParticipationScore(ctx context.Context, id int32, delta float64) (*domain.Member, error)
}

type SegmentService interface {
	CreateSegment(ctx context.Context, s *domain.Segment) error
	GetSegment(ctx context.Context, id int32) (*domain.Segment, error)
	UpdateSegment(ctx context.Context, s *domain.Segment) error
	DeleteSegment(ctx context.Context, id int32) error
	ListSegments(ctx context.Context) ([]domain.Segment, error)
	Preview(ctx context.Context, criteria domain.SegmentCriteria) ([]domain.Member, error)
	SegmentMembers(ctx context.Context, id int32) ([]domain.Member, error)
	// ResolveAudience returns the union of the members of every segment, each member once.
	ResolveAudience(ctx context.Context, segmentIDs []int32) ([]domain.Member, error)
	RefreshCounts(ctx context.Context) (int, error)
	EnsurePreset(ctx context.Context, key string) (*domain.Segment, error)
	Presets() []catalog.SegmentPreset
}

type CampaignService interface {
	CreateCampaign(ctx context.Context, c *domain.NotificationCampaign) error
	GetCampaign(ctx context.Context, id int32) (*domain.NotificationCampaign, error)
	UpdateCampaign(ctx context.Context, c *domain.NotificationCampaign) error
	ListCampaigns(ctx context.Context, status domain.CampaignStatus) ([]domain.NotificationCampaign, error)
	ScheduleCampaign(ctx context.Context, id int32, at time.Time) (*domain.NotificationCampaign, error)
	UnscheduleCampaign(ctx context.Context, id int32) (*domain.NotificationCampaign, error)
	CancelCampaign(ctx context.Context, id int32) (*domain.NotificationCampaign, error)
	SendCampaign(ctx context.Context, id int32) (*domain.NotificationCampaign, error)
	// DispatchDue sends every scheduled campaign whose time has come and returns how many were sent.
	DispatchDue(ctx context.Context, now time.Time) (int, error)
	CampaignStats(ctx context.Context, id int32) (domain.CampaignStats, error)
	CreateFromType(ctx context.Context, typeKey string, createdBy int32, vars map[string]string) (*domain.NotificationCampaign, error)
	NotificationTypes() []catalog.NotificationType

	TrackOpen(ctx context.Context, token string) error
	// TrackClick returns the campaign link the member should be redirected to.
	TrackClick(ctx context.Context, token string) (string, error)
	Unsubscribe(ctx context.Context, token string) error
}

type ActivityService interface {
	CreateActivity(ctx context.Context, a *domain.ActivityNotification) error
	GetActivity(ctx context.Context, id int32) (*domain.ActivityNotification, error)
	UpdateActivity(ctx context.Context, a *domain.ActivityNotification) error
	ListActivities(ctx context.Context) ([]domain.ActivityNotification, error)
	RegisterParticipant(ctx context.Context, id int32) (*domain.ActivityNotification, error)
	UnregisterParticipant(ctx context.Context, id int32) (*domain.ActivityNotification, error)
	// SendDueReminders returns the number of activities a reminder went out for.
	SendDueReminders(ctx context.Context, now time.Time) (int, error)
}

type NotificationService interface {
	GetNotifications(ctx context.Context, memberID int32, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, memberID, notificationID int32) error
	UnreadCount(ctx context.Context, memberID int32) (int32, error)
}

type OnboardingService interface {
	// SendDelayedNotifications sends each FIXED_DELAY notification type to the members whose
	// registration falls in [now-delay-window, now-delay). It returns the number of messages sent.
	SendDelayedNotifications(ctx context.Context, now time.Time, window time.Duration) (int, error)
}

type ExportService interface {
	ExportSegment(ctx context.Context, segmentID int32) (*domain.SegmentExport, error)
}
