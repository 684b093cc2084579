package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"membership-backend/internal/channel"
	"membership-backend/internal/domain"
	"membership-backend/internal/metrics"
	"membership-backend/internal/repository/memory"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type sentMessage struct {
	to  channel.Recipient
	msg channel.Message
}

// recordingSender keeps every message it is asked to send and fails for the member IDs in fail.
type recordingSender struct {
	mu      sync.Mutex
	channel domain.Channel
	fail    map[int32]error
	sent    []sentMessage
}

func newRecordingSender(c domain.Channel) *recordingSender {
	return &recordingSender{channel: c, fail: map[int32]error{}}
}

func (s *recordingSender) Channel() domain.Channel { return s.channel }

func (s *recordingSender) Send(ctx context.Context, to channel.Recipient, msg channel.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[to.MemberID]; err != nil {
		return err
	}
	s.sent = append(s.sent, sentMessage{to: to, msg: msg})
	return nil
}

func (s *recordingSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

func (s *recordingSender) recipients() map[int32]bool {
	out := map[int32]bool{}
	for _, m := range s.messages() {
		out[m.to.MemberID] = true
	}
	return out
}

type fixture struct {
	members       *memory.MemberRepo
	segmentRepo   *memory.SegmentRepo
	campaignRepo  *memory.CampaignRepo
	deliveries    *memory.DeliveryRepo
	activityRepo  *memory.ActivityRepo
	notifications *memory.NotificationRepo

	email *recordingSender
	push  *recordingSender

	metrics    *metrics.Metrics
	dispatcher *Dispatcher
	segments   *segmentService
	campaigns  *campaignService
	activities *activityService
	onboarding *onboardingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		members:       memory.NewMemberRepo(),
		segmentRepo:   memory.NewSegmentRepo(),
		campaignRepo:  memory.NewCampaignRepo(),
		deliveries:    memory.NewDeliveryRepo(),
		activityRepo:  memory.NewActivityRepo(),
		notifications: memory.NewNotificationRepo(),
		email:         newRecordingSender(domain.ChannelEmail),
		push:          newRecordingSender(domain.ChannelPush),
		metrics:       metrics.New(prometheus.NewRegistry()),
	}
	clock := func() time.Time { return testNow }

	registry := channel.NewRegistry(f.email, f.push, channel.NewInAppSender(f.notifications))
	f.dispatcher = NewDispatcher(registry, f.metrics, 4, "https://members.example.org/")
	f.dispatcher.now = clock

	f.segments = NewSegmentService(f.segmentRepo, f.members).(*segmentService)
	f.segments.now = clock
	f.campaigns = NewCampaignService(f.campaignRepo, f.deliveries, f.members, f.segments, f.dispatcher, f.metrics).(*campaignService)
	f.campaigns.now = clock
	f.activities = NewActivityService(f.activityRepo, f.members, f.dispatcher).(*activityService)
	f.onboarding = NewOnboardingService(f.members, f.dispatcher).(*onboardingService)
	return f
}

func (f *fixture) addMember(t *testing.T, m domain.Member) domain.Member {
	t.Helper()
	if m.Email == "" {
		m.Email = m.FirstName + "@example.org"
	}
	if m.RegisteredOn.IsZero() {
		m.RegisteredOn = testNow.AddDate(-1, 0, 0)
	}
	require.NoError(t, f.members.Create(context.Background(), &m))
	return m
}

func (f *fixture) addSegment(t *testing.T, name string, criteria domain.SegmentCriteria) domain.Segment {
	t.Helper()
	seg := domain.Segment{Name: name, Criteria: criteria}
	require.NoError(t, f.segments.CreateSegment(context.Background(), &seg))
	return seg
}

func allChannels() domain.CommunicationPreferences {
	return domain.CommunicationPreferences{Email: true, SMS: true, Push: true, InApp: true}
}
