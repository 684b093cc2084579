package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"membership-backend/internal/domain"
)

type DeliveryRepo struct {
	mu      sync.RWMutex
	rows    []domain.Delivery
	byToken map[string]int
}

func NewDeliveryRepo() *DeliveryRepo {
	return &DeliveryRepo{byToken: make(map[string]int)}
}

func (r *DeliveryRepo) CreateBatch(ctx context.Context, deliveries []domain.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range deliveries {
		if _, dup := r.byToken[d.Token]; dup {
			return fmt.Errorf("%w: duplicate delivery token %s", domain.ErrValidation, d.Token)
		}
	}
	for i := range deliveries {
		deliveries[i].ID = int64(len(r.rows) + 1)
		r.byToken[deliveries[i].Token] = len(r.rows)
		r.rows = append(r.rows, deliveries[i])
	}
	return nil
}

func (r *DeliveryRepo) GetByToken(ctx context.Context, token string) (*domain.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byToken[token]
	if !ok {
		return nil, notFound("delivery", token)
	}
	d := r.rows[i]
	return &d, nil
}

func (r *DeliveryRepo) track(token string, update func(d *domain.Delivery)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byToken[token]
	if !ok || r.rows[i].Status != domain.DeliveryStatusDelivered {
		return notFound("delivery", token)
	}
	update(&r.rows[i])
	return nil
}

func firstTime(current *time.Time, at time.Time) *time.Time {
	if current != nil {
		return current
	}
	return &at
}

func (r *DeliveryRepo) MarkOpened(ctx context.Context, token string, at time.Time) error {
	return r.track(token, func(d *domain.Delivery) {
		d.OpenedAt = firstTime(d.OpenedAt, at)
	})
}

func (r *DeliveryRepo) MarkClicked(ctx context.Context, token string, at time.Time) error {
	return r.track(token, func(d *domain.Delivery) {
		d.ClickedAt = firstTime(d.ClickedAt, at)
		d.OpenedAt = firstTime(d.OpenedAt, at)
	})
}

func (r *DeliveryRepo) MarkUnsubscribed(ctx context.Context, token string, at time.Time) error {
	return r.track(token, func(d *domain.Delivery) {
		d.UnsubscribedAt = firstTime(d.UnsubscribedAt, at)
	})
}

func (r *DeliveryRepo) ListByCampaign(ctx context.Context, campaignID int32) ([]domain.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Delivery
	for _, d := range r.rows {
		if d.CampaignID == campaignID {
			out = append(out, d)
		}
	}
	return out, nil
}

// Stats counts distinct members, matching the SQL implementation.
func (r *DeliveryRepo) Stats(ctx context.Context, campaignID int32) (domain.CampaignStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := map[int32]bool{}
	delivered := map[int32]bool{}
	opened := map[int32]bool{}
	clicked := map[int32]bool{}
	unsubscribed := map[int32]bool{}
	for _, d := range r.rows {
		if d.CampaignID != campaignID {
			continue
		}
		total[d.MemberID] = true
		if d.Status != domain.DeliveryStatusDelivered {
			continue
		}
		delivered[d.MemberID] = true
		if d.OpenedAt != nil {
			opened[d.MemberID] = true
		}
		if d.ClickedAt != nil {
			clicked[d.MemberID] = true
		}
		if d.UnsubscribedAt != nil {
			unsubscribed[d.MemberID] = true
		}
	}
	return domain.CampaignStats{
		TotalRecipients: int32(len(total)),
		Delivered:       int32(len(delivered)),
		Opened:          int32(len(opened)),
		Clicked:         int32(len(clicked)),
		Unsubscribed:    int32(len(unsubscribed)),
	}, nil
}
