package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"membership-backend/internal/catalog"
	"membership-backend/internal/domain"
	"membership-backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) draft(t *testing.T, segmentIDs ...int32) *domain.NotificationCampaign {
	t.Helper()
	c := &domain.NotificationCampaign{
		Title:          "Hello {{.FirstName}}",
		Message:        "Our spring gala is on April 4th.\n\nSee you there!",
		Type:           domain.CampaignTypeEvent,
		Channels:       []domain.Channel{domain.ChannelEmail, domain.ChannelInApp},
		TargetSegments: segmentIDs,
		LinkURL:        "https://foundation.example.org/gala",
		CreatedBy:      1,
	}
	require.NoError(t, f.campaigns.CreateCampaign(context.Background(), c))
	return c
}

func tokenFrom(url string) string {
	return url[strings.LastIndex(url, "/")+1:]
}

func TestCampaignService_SendCampaign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	awa := f.addMember(t, domain.Member{ProfileType: domain.ProfileTypeVolunteer, FirstName: "Awa", CommunicationPreferences: allChannels()})
	bob := f.addMember(t, domain.Member{ProfileType: domain.ProfileTypeVolunteer, FirstName: "Bob", CommunicationPreferences: domain.CommunicationPreferences{Email: true}})
	f.addMember(t, domain.Member{ProfileType: domain.ProfileTypeVolunteer, FirstName: "Cyd", CommunicationPreferences: domain.CommunicationPreferences{Push: true}})
	f.addMember(t, domain.Member{ProfileType: domain.ProfileTypeAlumni, FirstName: "Dan", CommunicationPreferences: allChannels()})
	f.email.fail[bob.ID] = errors.New("mailbox full")

	seg := f.addSegment(t, "volunteers", domain.SegmentCriteria{ProfileTypes: []domain.ProfileType{domain.ProfileTypeVolunteer}})
	c := f.draft(t, seg.ID)
	assert.Equal(t, domain.CampaignStatusDraft, c.Status)

	sent, err := f.campaigns.SendCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)
	assert.True(t, sent.SentAt.Equal(testNow))
	assert.Equal(t, domain.CampaignStats{TotalRecipients: 2, Delivered: 1}, sent.Stats)

	deliveries, err := f.deliveries.ListByCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, deliveries, 3)

	emails := f.email.messages()
	require.Len(t, emails, 1)
	msg := emails[0].msg
	assert.Equal(t, awa.ID, emails[0].to.MemberID)
	assert.Equal(t, "Hello Awa", msg.Subject)
	assert.True(t, strings.HasPrefix(msg.LinkURL, "https://members.example.org/t/c/"))
	assert.Contains(t, msg.HTMLBody, "https://members.example.org/t/o/")
	assert.Contains(t, msg.HTMLBody, "<p>See you there!</p>")

	inbox, total, err := f.notifications.List(ctx, awa.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), total)
	require.NotNil(t, inbox[0].CampaignID)
	assert.Equal(t, c.ID, *inbox[0].CampaignID)

	token := tokenFrom(msg.LinkURL)
	link, err := f.campaigns.TrackClick(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, c.LinkURL, link)
	require.NoError(t, f.campaigns.TrackOpen(ctx, token))

	require.NoError(t, f.campaigns.Unsubscribe(ctx, tokenFrom(msg.UnsubscribeURL)))
	member, err := f.members.GetByID(ctx, awa.ID)
	require.NoError(t, err)
	assert.False(t, member.CommunicationPreferences.Email)
	assert.True(t, member.CommunicationPreferences.InApp)

	stats, err := f.campaigns.CampaignStats(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStats{TotalRecipients: 2, Delivered: 1, Opened: 1, Clicked: 1, Unsubscribed: 1}, stats)
	require.NoError(t, stats.Validate())

	stored, err := f.campaigns.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, stats, stored.Stats)

	_, err = f.campaigns.SendCampaign(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assert.ErrorIs(t, f.campaigns.TrackOpen(ctx, "unknown"), domain.ErrNotFound)
}

func TestCampaignService_SendKeepsStatusWhenAudienceFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seg := f.addSegment(t, "everyone", domain.SegmentCriteria{})
	c := f.draft(t, seg.ID)
	require.NoError(t, f.segments.DeleteSegment(ctx, seg.ID))

	_, err := f.campaigns.SendCampaign(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.campaigns.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusDraft, got.Status)
}

// unrecordedDeliveries fails every batch insert.
type unrecordedDeliveries struct {
	*memory.DeliveryRepo
}

func (r unrecordedDeliveries) CreateBatch(ctx context.Context, deliveries []domain.Delivery) error {
	return errors.New("db down")
}

func TestCampaignService_SendFinalizesWhenDeliveriesNotRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addMember(t, domain.Member{ProfileType: domain.ProfileTypeVolunteer, FirstName: "Awa", CommunicationPreferences: domain.CommunicationPreferences{Email: true}})
	seg := f.addSegment(t, "everyone", domain.SegmentCriteria{})
	c := f.draft(t, seg.ID)

	svc := NewCampaignService(f.campaignRepo, unrecordedDeliveries{f.deliveries}, f.members, f.segments, f.dispatcher, f.metrics).(*campaignService)
	svc.now = func() time.Time { return testNow }

	_, err := svc.SendCampaign(ctx, c.ID)
	assert.EqualError(t, err, "failed to record deliveries: db down")
	assert.Len(t, f.email.messages(), 1)

	got, err := svc.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusSent, got.Status)
	require.NotNil(t, got.SentAt)
	assert.Equal(t, domain.CampaignStats{TotalRecipients: 1, Delivered: 1}, got.Stats)

	_, err = svc.SendCampaign(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Len(t, f.email.messages(), 1)
}

func TestCampaignService_DispatchDueFinalizesStaleSending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seg := f.addSegment(t, "everyone", domain.SegmentCriteria{})
	c := f.draft(t, seg.ID)
	require.NoError(t, f.campaignRepo.UpdateStatus(ctx, c.ID, domain.CampaignStatusDraft, domain.CampaignStatusSending, nil, nil))

	sent, err := f.campaigns.DispatchDue(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	got, err := f.campaigns.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusSending, got.Status)

	later := time.Now().Add(2 * time.Hour)
	_, err = f.campaigns.DispatchDue(ctx, later)
	require.NoError(t, err)
	got, err = f.campaigns.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusSent, got.Status)
	require.NotNil(t, got.SentAt)
	assert.True(t, got.SentAt.Equal(later.UTC()))
}

func TestCampaignService_ScheduleLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addMember(t, domain.Member{ProfileType: domain.ProfileTypeAdherent, FirstName: "Awa", CommunicationPreferences: allChannels()})
	seg := f.addSegment(t, "everyone", domain.SegmentCriteria{})
	c := f.draft(t, seg.ID)

	_, err := f.campaigns.ScheduleCampaign(ctx, c.ID, testNow.Add(-time.Minute))
	assert.ErrorIs(t, err, domain.ErrValidation)

	at := testNow.Add(time.Hour)
	scheduled, err := f.campaigns.ScheduleCampaign(ctx, c.ID, at)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusScheduled, scheduled.Status)
	require.NotNil(t, scheduled.ScheduledAt)

	_, err = f.campaigns.ScheduleCampaign(ctx, c.ID, at)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	c.Title = "edited"
	assert.ErrorIs(t, f.campaigns.UpdateCampaign(ctx, c), domain.ErrInvalidTransition)

	unscheduled, err := f.campaigns.UnscheduleCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusDraft, unscheduled.Status)
	assert.Nil(t, unscheduled.ScheduledAt)

	_, err = f.campaigns.ScheduleCampaign(ctx, c.ID, at)
	require.NoError(t, err)

	n, err := f.campaigns.DispatchDue(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = f.campaigns.DispatchDue(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.campaigns.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusSent, got.Status)
	assert.Equal(t, int32(1), got.Stats.Delivered)

	_, err = f.campaigns.CancelCampaign(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCampaignService_Cancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seg := f.addSegment(t, "everyone", domain.SegmentCriteria{})
	c := f.draft(t, seg.ID)

	cancelled, err := f.campaigns.CancelCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusCancelled, cancelled.Status)

	_, err = f.campaigns.SendCampaign(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.campaigns.UnscheduleCampaign(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCampaignService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.campaigns.CreateCampaign(ctx, &domain.NotificationCampaign{
		Title: "Hi", Message: "Body", Type: domain.CampaignTypeAnnouncement,
		Channels: []domain.Channel{domain.ChannelEmail}, TargetSegments: []int32{42},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = f.campaigns.CreateCampaign(ctx, &domain.NotificationCampaign{
		Title: "Hi", Message: "Body", Type: domain.CampaignTypeAnnouncement, TargetSegments: []int32{1},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCampaignService_CreateFromType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.campaigns.CreateFromType(ctx, catalog.TypeMonthlyNewsletter, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, "Foundation news - March 2026", c.Title)
	assert.Equal(t, domain.CampaignTypeNewsletter, c.Type)
	assert.Equal(t, domain.CampaignStatusDraft, c.Status)
	assert.Equal(t, int32(7), c.CreatedBy)
	require.Len(t, c.TargetSegments, 1)

	seg, err := f.segmentRepo.GetByPresetKey(ctx, catalog.PresetAllMembers)
	require.NoError(t, err)
	assert.Equal(t, seg.ID, c.TargetSegments[0])

	c, err = f.campaigns.CreateFromType(ctx, catalog.TypeMonthlyNewsletter, 7, map[string]string{"Month": "Spring"})
	require.NoError(t, err)
	assert.Equal(t, "Foundation news - Spring", c.Title)
	assert.Equal(t, seg.ID, c.TargetSegments[0])

	_, err = f.campaigns.CreateFromType(ctx, catalog.TypeWelcome, 7, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.campaigns.CreateFromType(ctx, "unknown", 7, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
