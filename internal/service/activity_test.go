package service

import (
	"context"
	"testing"
	"time"

	"membership-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int32Ptr(v int32) *int32 { return &v }

func TestActivityService_SendDueReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vol := f.addMember(t, domain.Member{ProfileType: domain.ProfileTypeVolunteer, FirstName: "Awa", CommunicationPreferences: allChannels()})
	alum := f.addMember(t, domain.Member{ProfileType: domain.ProfileTypeAlumni, FirstName: "Bob", CommunicationPreferences: allChannels()})

	cleanup := &domain.ActivityNotification{
		Title:            "Beach cleanup",
		Description:      "Bring gloves.",
		ActivityType:     domain.ActivityTypeVolunteering,
		StartsAt:         testNow.Add(49 * time.Hour),
		Targeting:        &domain.SegmentCriteria{ProfileTypes: []domain.ProfileType{domain.ProfileTypeVolunteer}},
		AutoSend:         true,
		ReminderSchedule: []int{1, 7, 3, 3},
		Channels:         []domain.Channel{domain.ChannelInApp},
	}
	require.NoError(t, f.activities.CreateActivity(ctx, cleanup))
	assert.Equal(t, []int{7, 3, 1}, cleanup.ReminderSchedule)

	full := &domain.ActivityNotification{
		Title:               "Gala",
		ActivityType:        domain.ActivityTypeEvent,
		StartsAt:            testNow.Add(12 * time.Hour),
		MaxParticipants:     int32Ptr(1),
		CurrentParticipants: 1,
		AutoSend:            true,
		ReminderSchedule:    []int{1},
		Channels:            []domain.Channel{domain.ChannelInApp},
	}
	require.NoError(t, f.activities.CreateActivity(ctx, full))

	sent, err := f.activities.SendDueReminders(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	inbox, total, err := f.notifications.List(ctx, vol.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), total)
	assert.Equal(t, "Beach cleanup starts in 3 day(s)", inbox[0].Title)
	assert.Contains(t, inbox[0].Message, "Bring gloves.")
	assert.Equal(t, "VOLUNTEERING", inbox[0].Attributes["activity_type"])
	assert.Nil(t, inbox[0].CampaignID)

	_, total, err = f.notifications.List(ctx, alum.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(0), total)

	got, err := f.activities.GetActivity(ctx, cleanup.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{7, 3}, got.SentReminders)
	got, err = f.activities.GetActivity(ctx, full.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got.SentReminders)

	sent, err = f.activities.SendDueReminders(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	sent, err = f.activities.SendDueReminders(ctx, testNow.Add(26*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	_, total, err = f.notifications.List(ctx, vol.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(2), total)
}

func TestActivityService_SendDueReminders_DayOf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vol := f.addMember(t, domain.Member{ProfileType: domain.ProfileTypeVolunteer, FirstName: "Awa", CommunicationPreferences: allChannels()})

	workshop := &domain.ActivityNotification{
		Title:            "Workshop",
		ActivityType:     domain.ActivityTypeTraining,
		StartsAt:         testNow.Add(2 * time.Hour),
		AutoSend:         true,
		ReminderSchedule: []int{0},
		Channels:         []domain.Channel{domain.ChannelInApp},
	}
	require.NoError(t, f.activities.CreateActivity(ctx, workshop))

	total := 0
	for at := testNow.Add(-24 * time.Hour); at.Before(testNow.Add(24 * time.Hour)); at = at.Add(time.Hour) {
		sent, err := f.activities.SendDueReminders(ctx, at)
		require.NoError(t, err)
		total += sent
	}
	assert.Equal(t, 1, total)

	inbox, _, err := f.notifications.List(ctx, vol.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "Workshop starts in 0 day(s)", inbox[0].Title)

	got, err := f.activities.GetActivity(ctx, workshop.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, got.SentReminders)
}

func TestActivityService_Participants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := &domain.ActivityNotification{
		Title:           "Workshop",
		ActivityType:    domain.ActivityTypeTraining,
		StartsAt:        testNow.Add(72 * time.Hour),
		MaxParticipants: int32Ptr(2),
	}
	require.NoError(t, f.activities.CreateActivity(ctx, a))

	for i := 0; i < 2; i++ {
		_, err := f.activities.RegisterParticipant(ctx, a.ID)
		require.NoError(t, err)
	}
	_, err := f.activities.RegisterParticipant(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrCapacityReached)

	a.Title = "Workshop (room B)"
	a.CurrentParticipants = 0
	require.NoError(t, f.activities.UpdateActivity(ctx, a))
	got, err := f.activities.GetActivity(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Workshop (room B)", got.Title)
	assert.Equal(t, int32(2), got.CurrentParticipants)

	for i := 0; i < 2; i++ {
		_, err := f.activities.UnregisterParticipant(ctx, a.ID)
		require.NoError(t, err)
	}
	_, err = f.activities.UnregisterParticipant(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = f.activities.CreateActivity(ctx, &domain.ActivityNotification{Title: "x", ActivityType: "PARTY", StartsAt: testNow})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
