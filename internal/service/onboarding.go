package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"membership-backend/internal/catalog"
	"membership-backend/internal/domain"
	"membership-backend/internal/logger"
	"membership-backend/internal/repository"
)

type onboardingService struct {
	memberRepo repository.MemberRepository
	dispatcher *Dispatcher
}

func NewOnboardingService(memberRepo repository.MemberRepository, dispatcher *Dispatcher) OnboardingService {
	return &onboardingService{memberRepo: memberRepo, dispatcher: dispatcher}
}

func (s *onboardingService) SendDelayedNotifications(ctx context.Context, now time.Time, window time.Duration) (int, error) {
	if window <= 0 {
		return 0, fmt.Errorf("%w: window must be positive", domain.ErrValidation)
	}
	sent := 0
	var errs []error
	for _, nt := range catalog.NotificationTypesByTiming(catalog.TimingFixedDelay) {
		if nt.Timing.Event != catalog.EventMemberRegistered {
			continue
		}
		to := now.Add(-nt.Timing.Delay)
		from := to.Add(-window)
		members, err := s.memberRepo.ListRegisteredBetween(ctx, from, to)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", nt.Key, err))
			continue
		}
		if len(members) == 0 {
			continue
		}

		deliveries, err := s.dispatcher.Send(ctx, Dispatch{
			Members:  members,
			Channels: nt.Channels,
			Subject:  nt.Subject,
			Body:     nt.Body,
			Data:     map[string]string{"type": nt.Key},
		})
		for _, d := range deliveries {
			if d.Status == domain.DeliveryStatusDelivered {
				sent++
			}
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", nt.Key, err))
			continue
		}
		logger.Info("Onboarding notifications sent", "type", nt.Key, "members", len(members), "attempts", len(deliveries))
	}
	return sent, errors.Join(errs...)
}
