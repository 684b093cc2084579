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
	"membership-backend/internal/metrics"
	"membership-backend/internal/repository"
)

// staleSendingAfter is how long a campaign may stay SENDING before DispatchDue finalizes it.
const staleSendingAfter = time.Hour

type campaignService struct {
	campaignRepo repository.CampaignRepository
	deliveryRepo repository.DeliveryRepository
	memberRepo   repository.MemberRepository
	segments     SegmentService
	dispatcher   *Dispatcher
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewCampaignService(
	campaignRepo repository.CampaignRepository,
	deliveryRepo repository.DeliveryRepository,
	memberRepo repository.MemberRepository,
	segments SegmentService,
	dispatcher *Dispatcher,
	m *metrics.Metrics,
) CampaignService {
	return &campaignService{
		campaignRepo: campaignRepo,
		deliveryRepo: deliveryRepo,
		memberRepo:   memberRepo,
		segments:     segments,
		dispatcher:   dispatcher,
		metrics:      m,
		now:          time.Now,
	}
}

func (s *campaignService) checkSegments(ctx context.Context, ids []int32) error {
	for _, id := range ids {
		if _, err := s.segments.GetSegment(ctx, id); err != nil {
			if isNotFound(err) {
				return fmt.Errorf("%w: target segment %d does not exist", domain.ErrValidation, id)
			}
			return err
		}
	}
	return nil
}

func (s *campaignService) CreateCampaign(ctx context.Context, c *domain.NotificationCampaign) error {
	logger.EnterMethod("campaignService.CreateCampaign", "title", c.Title, "type", c.Type)

	c.Title = strings.TrimSpace(c.Title)
	c.Status = domain.CampaignStatusDraft
	c.Stats = domain.CampaignStats{}
	c.ScheduledAt = nil
	c.SentAt = nil
	if err := c.Validate(); err != nil {
		logger.ExitMethodWithError("campaignService.CreateCampaign", err)
		return err
	}
	if err := s.checkSegments(ctx, c.TargetSegments); err != nil {
		logger.ExitMethodWithError("campaignService.CreateCampaign", err)
		return err
	}
	if err := s.campaignRepo.Create(ctx, c); err != nil {
		logger.ExitMethodWithError("campaignService.CreateCampaign", err)
		return err
	}

	logger.ExitMethod("campaignService.CreateCampaign", "campaignID", c.ID)
	return nil
}

func (s *campaignService) GetCampaign(ctx context.Context, id int32) (*domain.NotificationCampaign, error) {
	return s.campaignRepo.GetByID(ctx, id)
}

// UpdateCampaign edits the content of a DRAFT campaign. Status and stats are not editable here.
func (s *campaignService) UpdateCampaign(ctx context.Context, c *domain.NotificationCampaign) error {
	existing, err := s.campaignRepo.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	if !existing.Status.Editable() {
		return fmt.Errorf("%w: campaign %d is %s", domain.ErrInvalidTransition, c.ID, existing.Status)
	}
	c.Title = strings.TrimSpace(c.Title)
	c.Status = existing.Status
	c.Stats = existing.Stats
	c.ScheduledAt = existing.ScheduledAt
	c.SentAt = existing.SentAt
	c.CreatedBy = existing.CreatedBy
	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.checkSegments(ctx, c.TargetSegments); err != nil {
		return err
	}
	return s.campaignRepo.Update(ctx, c)
}

func (s *campaignService) ListCampaigns(ctx context.Context, status domain.CampaignStatus) ([]domain.NotificationCampaign, error) {
	return s.campaignRepo.List(ctx, status)
}

func (s *campaignService) transition(ctx context.Context, id int32, to domain.CampaignStatus, scheduledAt *time.Time) (*domain.NotificationCampaign, error) {
	c, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, c.Status, to)
	}
	if err := s.campaignRepo.UpdateStatus(ctx, id, c.Status, to, scheduledAt, nil); err != nil {
		return nil, err
	}
	logger.Info("Campaign status changed", "campaignID", id, "from", c.Status, "to", to)
	return s.campaignRepo.GetByID(ctx, id)
}

func (s *campaignService) ScheduleCampaign(ctx context.Context, id int32, at time.Time) (*domain.NotificationCampaign, error) {
	if !at.After(s.now()) {
		return nil, fmt.Errorf("%w: scheduled time must be in the future", domain.ErrValidation)
	}
	c, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.CampaignStatusDraft {
		return nil, fmt.Errorf("%w: only draft campaigns can be scheduled, campaign %d is %s", domain.ErrInvalidTransition, id, c.Status)
	}
	at = at.UTC()
	return s.transition(ctx, id, domain.CampaignStatusScheduled, &at)
}

func (s *campaignService) UnscheduleCampaign(ctx context.Context, id int32) (*domain.NotificationCampaign, error) {
	c, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.CampaignStatusScheduled {
		return nil, fmt.Errorf("%w: campaign %d is not scheduled", domain.ErrInvalidTransition, id)
	}
	return s.transition(ctx, id, domain.CampaignStatusDraft, nil)
}

func (s *campaignService) CancelCampaign(ctx context.Context, id int32) (*domain.NotificationCampaign, error) {
	c, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, id, domain.CampaignStatusCancelled, c.ScheduledAt)
}

func (s *campaignService) SendCampaign(ctx context.Context, id int32) (*domain.NotificationCampaign, error) {
	c, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.send(ctx, c); err != nil {
		return nil, err
	}
	return s.campaignRepo.GetByID(ctx, id)
}

// send resolves the audience, claims the campaign by moving it to SENDING, fans the message
// out and finalizes it as SENT. A campaign that fails before the claim keeps its status.
func (s *campaignService) send(ctx context.Context, c *domain.NotificationCampaign) error {
	log := logger.WithCampaign(c.ID)
	if !c.Status.CanTransitionTo(domain.CampaignStatusSending) {
		return fmt.Errorf("%w: campaign %d is %s", domain.ErrInvalidTransition, c.ID, c.Status)
	}

	audience, err := s.segments.ResolveAudience(ctx, c.TargetSegments)
	if err != nil {
		return fmt.Errorf("failed to resolve audience: %w", err)
	}
	if err := s.campaignRepo.UpdateStatus(ctx, c.ID, c.Status, domain.CampaignStatusSending, c.ScheduledAt, nil); err != nil {
		return err
	}
	log.Info("Campaign sending", "audience", len(audience), "channels", c.Channels)

	deliveries, dispatchErr := s.dispatcher.Send(ctx, Dispatch{
		CampaignID: c.ID,
		Members:    audience,
		Channels:   c.Channels,
		Subject:    c.Title,
		Body:       c.Message,
		LinkURL:    c.LinkURL,
		Data: map[string]string{
			"campaign_id": strconv.Itoa(int(c.ID)),
			"type":        string(c.Type),
		},
	})
	if dispatchErr != nil {
		log.Warn("Dispatch interrupted", "error", dispatchErr, "attempts", len(deliveries))
	}

	// Finalizing must survive a cancelled request context.
	return s.finalize(context.WithoutCancel(ctx), c, deliveries)
}

// finalize records the deliveries and moves the campaign to SENT. Messages are already out,
// so a failure to record deliveries still finalizes with stats taken from the attempts.
func (s *campaignService) finalize(ctx context.Context, c *domain.NotificationCampaign, deliveries []domain.Delivery) error {
	log := logger.WithCampaign(c.ID)
	var errs []error
	if err := s.deliveryRepo.CreateBatch(ctx, deliveries); err != nil {
		log.Error("Failed to record deliveries, finalizing with attempt stats", "error", err, "deliveries", len(deliveries))
		errs = append(errs, fmt.Errorf("failed to record deliveries: %w", err))
		if err := s.campaignRepo.SetStats(ctx, c.ID, attemptStats(deliveries)); err != nil {
			errs = append(errs, fmt.Errorf("failed to store stats: %w", err))
		}
	} else if err := s.refreshStats(ctx, c.ID); err != nil {
		errs = append(errs, err)
	}

	sentAt := s.now().UTC()
	if err := s.campaignRepo.UpdateStatus(ctx, c.ID, domain.CampaignStatusSending, domain.CampaignStatusSent, c.ScheduledAt, &sentAt); err != nil {
		log.Error("Campaign left in SENDING", "error", err)
		return errors.Join(append(errs, err)...)
	}
	s.metrics.CampaignSent()
	log.Info("Campaign sent", "deliveries", len(deliveries))
	return errors.Join(errs...)
}

// attemptStats counts distinct members per outcome without tracking data.
func attemptStats(deliveries []domain.Delivery) domain.CampaignStats {
	total := map[int32]bool{}
	delivered := map[int32]bool{}
	for _, d := range deliveries {
		total[d.MemberID] = true
		if d.Status == domain.DeliveryStatusDelivered {
			delivered[d.MemberID] = true
		}
	}
	return domain.CampaignStats{TotalRecipients: int32(len(total)), Delivered: int32(len(delivered))}
}

// finalizeStale moves campaigns stuck in SENDING for longer than staleSendingAfter to SENT.
// Stats are refreshed only when delivery rows exist.
func (s *campaignService) finalizeStale(ctx context.Context, now time.Time) (int, error) {
	sending, err := s.campaignRepo.List(ctx, domain.CampaignStatusSending)
	if err != nil {
		return 0, err
	}
	finalized := 0
	var errs []error
	for _, c := range sending {
		if c.UpdatedOn.After(now.Add(-staleSendingAfter)) {
			continue
		}
		stats, err := s.deliveryRepo.Stats(ctx, c.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("campaign %d: %w", c.ID, err))
			continue
		}
		if stats.TotalRecipients > 0 {
			if err := s.campaignRepo.SetStats(ctx, c.ID, stats); err != nil {
				errs = append(errs, fmt.Errorf("campaign %d: %w", c.ID, err))
				continue
			}
		}
		sentAt := now.UTC()
		if err := s.campaignRepo.UpdateStatus(ctx, c.ID, domain.CampaignStatusSending, domain.CampaignStatusSent, c.ScheduledAt, &sentAt); err != nil {
			if !errors.Is(err, domain.ErrInvalidTransition) {
				errs = append(errs, fmt.Errorf("campaign %d: %w", c.ID, err))
			}
			continue
		}
		finalized++
		s.metrics.CampaignSent()
		logger.Warn("Stale sending campaign finalized", "campaignID", c.ID, "since", c.UpdatedOn)
	}
	return finalized, errors.Join(errs...)
}

func (s *campaignService) refreshStats(ctx context.Context, id int32) error {
	stats, err := s.deliveryRepo.Stats(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}
	return s.campaignRepo.SetStats(ctx, id, stats)
}

func (s *campaignService) DispatchDue(ctx context.Context, now time.Time) (int, error) {
	var errs []error
	if _, err := s.finalizeStale(ctx, now); err != nil {
		errs = append(errs, err)
	}
	due, err := s.campaignRepo.ListDue(ctx, now)
	if err != nil {
		return 0, errors.Join(append(errs, err)...)
	}
	sent := 0
	for i := range due {
		err := s.send(ctx, &due[i])
		switch {
		case err == nil:
			sent++
		case errors.Is(err, domain.ErrInvalidTransition):
			logger.Debug("Campaign already claimed", "campaignID", due[i].ID)
		default:
			logger.Error("Failed to send scheduled campaign", "campaignID", due[i].ID, "error", err)
			errs = append(errs, fmt.Errorf("campaign %d: %w", due[i].ID, err))
		}
	}
	return sent, errors.Join(errs...)
}

func (s *campaignService) CampaignStats(ctx context.Context, id int32) (domain.CampaignStats, error) {
	if _, err := s.campaignRepo.GetByID(ctx, id); err != nil {
		return domain.CampaignStats{}, err
	}
	return s.deliveryRepo.Stats(ctx, id)
}

// CreateFromType builds a DRAFT campaign from a catalog notification type targeting its preset segment.
func (s *campaignService) CreateFromType(ctx context.Context, typeKey string, createdBy int32, vars map[string]string) (*domain.NotificationCampaign, error) {
	nt, ok := catalog.LookupNotificationType(typeKey)
	if !ok {
		return nil, fmt.Errorf("notification type %s: %w", typeKey, domain.ErrNotFound)
	}
	if nt.TargetPreset == "" {
		return nil, fmt.Errorf("%w: notification type %s has no target segment", domain.ErrValidation, typeKey)
	}
	seg, err := s.segments.EnsurePreset(ctx, nt.TargetPreset)
	if err != nil {
		return nil, err
	}

	all := map[string]string{"Month": s.now().Format("January 2006")}
	for k, v := range vars {
		all[k] = v
	}
	// Member fields stay as placeholders for per-member rendering at send time.
	for _, k := range []string{"FirstName", "LastName", "FullName", "City", "Country", "ProfileType"} {
		if _, set := all[k]; !set {
			all[k] = "{{." + k + "}}"
		}
	}
	subject, err := catalog.Render(nt.Subject, all)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	body, err := catalog.Render(nt.Body, all)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	c := &domain.NotificationCampaign{
		Title:          subject,
		Message:        body,
		Type:           nt.CampaignType,
		Channels:       append([]domain.Channel(nil), nt.Channels...),
		TargetSegments: []int32{seg.ID},
		LinkURL:        vars["LinkURL"],
		CreatedBy:      createdBy,
	}
	if err := s.CreateCampaign(ctx, c); err != nil {
		return nil, err
	}
	logger.Info("Campaign created from notification type", "type", typeKey, "campaignID", c.ID)
	return c, nil
}

func (s *campaignService) NotificationTypes() []catalog.NotificationType {
	return catalog.NotificationTypes()
}

func (s *campaignService) TrackOpen(ctx context.Context, token string) error {
	d, err := s.deliveryRepo.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if err := s.deliveryRepo.MarkOpened(ctx, token, s.now().UTC()); err != nil {
		return err
	}
	s.metrics.TrackingEvent("open")
	return s.refreshStats(ctx, d.CampaignID)
}

func (s *campaignService) TrackClick(ctx context.Context, token string) (string, error) {
	d, err := s.deliveryRepo.GetByToken(ctx, token)
	if err != nil {
		return "", err
	}
	c, err := s.campaignRepo.GetByID(ctx, d.CampaignID)
	if err != nil {
		return "", err
	}
	if c.LinkURL == "" {
		return "", fmt.Errorf("campaign %d link: %w", c.ID, domain.ErrNotFound)
	}
	if err := s.deliveryRepo.MarkClicked(ctx, token, s.now().UTC()); err != nil {
		return "", err
	}
	s.metrics.TrackingEvent("click")
	if err := s.refreshStats(ctx, d.CampaignID); err != nil {
		return "", err
	}
	return c.LinkURL, nil
}

// Unsubscribe records the unsubscribe and turns off the delivery's channel for the member.
func (s *campaignService) Unsubscribe(ctx context.Context, token string) error {
	d, err := s.deliveryRepo.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	m, err := s.memberRepo.GetByID(ctx, d.MemberID)
	if err != nil {
		return err
	}
	prefs := m.CommunicationPreferences
	prefs.Set(d.Channel, false)
	if err := s.memberRepo.UpdatePreferences(ctx, m.ID, prefs); err != nil {
		return err
	}
	if err := s.deliveryRepo.MarkUnsubscribed(ctx, token, s.now().UTC()); err != nil {
		return err
	}
	s.metrics.TrackingEvent("unsubscribe")
	logger.Info("Member unsubscribed", "memberID", m.ID, "channel", d.Channel, "campaignID", d.CampaignID)
	return s.refreshStats(ctx, d.CampaignID)
}
