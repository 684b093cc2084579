package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"membership-backend/internal/domain"
)

type CampaignRepo struct {
	mu     sync.RWMutex
	byID   map[int32]domain.NotificationCampaign
	nextID int32
}

func NewCampaignRepo() *CampaignRepo {
	return &CampaignRepo{byID: make(map[int32]domain.NotificationCampaign)}
}

func (r *CampaignRepo) Create(ctx context.Context, c *domain.NotificationCampaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	now := time.Now().UTC()
	c.CreatedOn = now
	c.UpdatedOn = now
	if c.Status == "" {
		c.Status = domain.CampaignStatusDraft
	}
	r.byID[c.ID] = cloneCampaign(*c)
	return nil
}

func (r *CampaignRepo) GetByID(ctx context.Context, id int32) (*domain.NotificationCampaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, notFound("campaign", id)
	}
	out := cloneCampaign(c)
	return &out, nil
}

func (r *CampaignRepo) Update(ctx context.Context, c *domain.NotificationCampaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[c.ID]
	if !ok || existing.Status != domain.CampaignStatusDraft {
		return notFound("draft campaign", c.ID)
	}
	existing.Title = c.Title
	existing.Message = c.Message
	existing.Type = c.Type
	existing.Channels = c.Channels
	existing.TargetSegments = c.TargetSegments
	existing.LinkURL = c.LinkURL
	existing.UpdatedOn = time.Now().UTC()
	r.byID[c.ID] = cloneCampaign(existing)
	c.UpdatedOn = existing.UpdatedOn
	return nil
}

func (r *CampaignRepo) UpdateStatus(ctx context.Context, id int32, from, to domain.CampaignStatus, scheduledAt, sentAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return notFound("campaign", id)
	}
	if c.Status != from {
		return fmt.Errorf("campaign %d is no longer %s: %w", id, from, domain.ErrInvalidTransition)
	}
	c.Status = to
	c.ScheduledAt = cloneTime(scheduledAt)
	if sentAt != nil {
		c.SentAt = cloneTime(sentAt)
	}
	c.UpdatedOn = time.Now().UTC()
	r.byID[id] = c
	return nil
}

func (r *CampaignRepo) list(keep func(domain.NotificationCampaign) bool) []domain.NotificationCampaign {
	var out []domain.NotificationCampaign
	for _, c := range r.byID {
		if keep(c) {
			out = append(out, cloneCampaign(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *CampaignRepo) List(ctx context.Context, status domain.CampaignStatus) ([]domain.NotificationCampaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list(func(c domain.NotificationCampaign) bool {
		return status == "" || c.Status == status
	}), nil
}

func (r *CampaignRepo) ListDue(ctx context.Context, now time.Time) ([]domain.NotificationCampaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := r.list(func(c domain.NotificationCampaign) bool {
		return c.Status == domain.CampaignStatusScheduled && c.ScheduledAt != nil && !c.ScheduledAt.After(now)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(*out[j].ScheduledAt) })
	return out, nil
}

func (r *CampaignRepo) SetStats(ctx context.Context, id int32, stats domain.CampaignStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return notFound("campaign", id)
	}
	c.Stats = stats
	c.UpdatedOn = time.Now().UTC()
	r.byID[id] = c
	return nil
}
