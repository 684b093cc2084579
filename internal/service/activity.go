package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"membership-backend/internal/catalog"
	"membership-backend/internal/domain"
	"membership-backend/internal/logger"
	"membership-backend/internal/repository"
	"membership-backend/internal/segment"
)

type activityService struct {
	activityRepo repository.ActivityRepository
	memberRepo   repository.MemberRepository
	dispatcher   *Dispatcher
}

func NewActivityService(activityRepo repository.ActivityRepository, memberRepo repository.MemberRepository, dispatcher *Dispatcher) ActivityService {
	return &activityService{
		activityRepo: activityRepo,
		memberRepo:   memberRepo,
		dispatcher:   dispatcher,
	}
}

func normalizeActivity(a *domain.ActivityNotification) {
	a.Title = strings.TrimSpace(a.Title)
	a.StartsAt = a.StartsAt.UTC()
	a.NormalizeReminderSchedule()
	if a.Targeting != nil {
		normalizeCriteria(a.Targeting)
	}
}

func (s *activityService) CreateActivity(ctx context.Context, a *domain.ActivityNotification) error {
	logger.EnterMethod("activityService.CreateActivity", "title", a.Title, "type", a.ActivityType)

	normalizeActivity(a)
	a.SentReminders = nil
	if err := a.Validate(); err != nil {
		logger.ExitMethodWithError("activityService.CreateActivity", err)
		return err
	}
	if err := s.activityRepo.Create(ctx, a); err != nil {
		logger.ExitMethodWithError("activityService.CreateActivity", err)
		return err
	}

	logger.ExitMethod("activityService.CreateActivity", "activityID", a.ID)
	return nil
}

func (s *activityService) GetActivity(ctx context.Context, id int32) (*domain.ActivityNotification, error) {
	return s.activityRepo.GetByID(ctx, id)
}

// UpdateActivity keeps the participant count and the reminders already sent.
func (s *activityService) UpdateActivity(ctx context.Context, a *domain.ActivityNotification) error {
	existing, err := s.activityRepo.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	normalizeActivity(a)
	a.CurrentParticipants = existing.CurrentParticipants
	a.SentReminders = existing.SentReminders
	if err := a.Validate(); err != nil {
		return err
	}
	return s.activityRepo.Update(ctx, a)
}

func (s *activityService) ListActivities(ctx context.Context) ([]domain.ActivityNotification, error) {
	return s.activityRepo.List(ctx)
}

func (s *activityService) RegisterParticipant(ctx context.Context, id int32) (*domain.ActivityNotification, error) {
	a, err := s.activityRepo.AdjustParticipants(ctx, id, 1)
	if err != nil {
		return nil, err
	}
	logger.Info("Participant registered", "activityID", id, "participants", a.CurrentParticipants)
	return a, nil
}

func (s *activityService) UnregisterParticipant(ctx context.Context, id int32) (*domain.ActivityNotification, error) {
	return s.activityRepo.AdjustParticipants(ctx, id, -1)
}

// SendDueReminders sends the most urgent due reminder of every upcoming auto-send activity.
// Earlier reminders that were missed are marked sent along with it so they never go out late.
// Full activities get no reminder but their due offsets are still consumed.
func (s *activityService) SendDueReminders(ctx context.Context, now time.Time) (int, error) {
	activities, err := s.activityRepo.ListUpcomingAutoSend(ctx, now)
	if err != nil {
		return 0, err
	}
	tmpl, ok := catalog.LookupNotificationType(catalog.TypeActivityReminder)
	if !ok {
		return 0, fmt.Errorf("notification type %s: %w", catalog.TypeActivityReminder, domain.ErrNotFound)
	}

	var members []domain.Member
	sent := 0
	var errs []error
	for i := range activities {
		a := &activities[i]
		offset, due := a.DueReminder(now)
		if !due {
			continue
		}
		consumed := append(a.StaleReminders(offset), offset)

		if a.IsFull() {
			logger.Info("Skipping reminder for full activity", "activityID", a.ID, "daysBefore", offset)
		} else {
			if members == nil {
				if members, err = s.memberRepo.ListAll(ctx); err != nil {
					return sent, err
				}
			}
			if err := s.remind(ctx, a, offset, tmpl, members, now); err != nil {
				errs = append(errs, fmt.Errorf("activity %d: %w", a.ID, err))
				continue
			}
			sent++
		}
		if err := s.activityRepo.MarkRemindersSent(ctx, a.ID, consumed); err != nil {
			errs = append(errs, fmt.Errorf("activity %d: %w", a.ID, err))
		}
	}
	return sent, errors.Join(errs...)
}

func (s *activityService) remind(ctx context.Context, a *domain.ActivityNotification, offset int, tmpl catalog.NotificationType, members []domain.Member, now time.Time) error {
	audience := members
	if a.Targeting != nil {
		audience = segment.Filter(members, a.Targeting, now)
	}
	channels := a.Channels
	if len(channels) == 0 {
		channels = tmpl.Channels
	}

	deliveries, err := s.dispatcher.Send(ctx, Dispatch{
		Members:  audience,
		Channels: channels,
		Subject:  tmpl.Subject,
		Body:     tmpl.Body,
		Vars: map[string]string{
			"Title":       a.Title,
			"DaysBefore":  strconv.Itoa(offset),
			"StartsAt":    a.StartsAt.Format("Monday 2 January 2006 15:04 MST"),
			"Description": a.Description,
		},
		Data: map[string]string{
			"type":          catalog.TypeActivityReminder,
			"activity_id":   strconv.Itoa(int(a.ID)),
			"activity_type": string(a.ActivityType),
		},
	})
	if err != nil {
		return err
	}
	logger.Info("Activity reminder sent",
		"activityID", a.ID, "daysBefore", offset, "audience", len(audience), "attempts", len(deliveries))
	return nil
}
