// Package memory implements the repositories in process. It backs the
// "memory" database driver for local runs and the service and API tests.
// All repositories are safe for concurrent use.
package memory

import (
	"fmt"
	"slices"
	"time"

	"membership-backend/internal/domain"
	"membership-backend/internal/repository"
)

type Store struct {
	repository.MemberRepository
	repository.SegmentRepository
	repository.CampaignRepository
	repository.DeliveryRepository
	repository.ActivityRepository
	repository.NotificationRepository
}

func NewStore() *Store {
	return &Store{
		MemberRepository:       NewMemberRepo(),
		SegmentRepository:      NewSegmentRepo(),
		CampaignRepository:     NewCampaignRepo(),
		DeliveryRepository:     NewDeliveryRepo(),
		ActivityRepository:     NewActivityRepo(),
		NotificationRepository: NewNotificationRepo(),
	}
}

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, domain.ErrNotFound)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneMember(m domain.Member) domain.Member {
	m.BirthDate = cloneTime(m.BirthDate)
	m.Skills = slices.Clone(m.Skills)
	m.Interests = slices.Clone(m.Interests)
	m.Availability = slices.Clone(m.Availability)
	m.PushTokens = slices.Clone(m.PushTokens)
	return m
}

func cloneCriteria(c domain.SegmentCriteria) domain.SegmentCriteria {
	c.ProfileTypes = slices.Clone(c.ProfileTypes)
	c.Skills = slices.Clone(c.Skills)
	c.Interests = slices.Clone(c.Interests)
	c.Availability = slices.Clone(c.Availability)
	c.Cities = slices.Clone(c.Cities)
	c.Countries = slices.Clone(c.Countries)
	c.CommunicationPreferences = slices.Clone(c.CommunicationPreferences)
	if c.AgeRange != nil {
		v := *c.AgeRange
		c.AgeRange = &v
	}
	if c.ParticipationScoreRange != nil {
		v := *c.ParticipationScoreRange
		c.ParticipationScoreRange = &v
	}
	if c.RegistrationDateRange != nil {
		v := *c.RegistrationDateRange
		v.From = cloneTime(v.From)
		v.To = cloneTime(v.To)
		c.RegistrationDateRange = &v
	}
	return c
}

func cloneCampaign(c domain.NotificationCampaign) domain.NotificationCampaign {
	c.Channels = slices.Clone(c.Channels)
	c.TargetSegments = slices.Clone(c.TargetSegments)
	c.ScheduledAt = cloneTime(c.ScheduledAt)
	c.SentAt = cloneTime(c.SentAt)
	return c
}

func cloneActivity(a domain.ActivityNotification) domain.ActivityNotification {
	if a.Targeting != nil {
		c := cloneCriteria(*a.Targeting)
		a.Targeting = &c
	}
	if a.MaxParticipants != nil {
		v := *a.MaxParticipants
		a.MaxParticipants = &v
	}
	a.ReminderSchedule = slices.Clone(a.ReminderSchedule)
	a.SentReminders = slices.Clone(a.SentReminders)
	a.Channels = slices.Clone(a.Channels)
	return a
}
