package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"membership-backend/internal/domain"
)

type ActivityRepo struct {
	mu     sync.RWMutex
	byID   map[int32]domain.ActivityNotification
	nextID int32
}

func NewActivityRepo() *ActivityRepo {
	return &ActivityRepo{byID: make(map[int32]domain.ActivityNotification)}
}

func (r *ActivityRepo) Create(ctx context.Context, a *domain.ActivityNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a.ID = r.nextID
	now := time.Now().UTC()
	a.CreatedOn = now
	a.UpdatedOn = now
	r.byID[a.ID] = cloneActivity(*a)
	return nil
}

func (r *ActivityRepo) GetByID(ctx context.Context, id int32) (*domain.ActivityNotification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, notFound("activity", id)
	}
	out := cloneActivity(a)
	return &out, nil
}

// Update keeps the stored participant count; it only changes through AdjustParticipants.
func (r *ActivityRepo) Update(ctx context.Context, a *domain.ActivityNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[a.ID]
	if !ok {
		return notFound("activity", a.ID)
	}
	a.CurrentParticipants = existing.CurrentParticipants
	a.CreatedOn = existing.CreatedOn
	a.UpdatedOn = time.Now().UTC()
	r.byID[a.ID] = cloneActivity(*a)
	return nil
}

func (r *ActivityRepo) list(keep func(domain.ActivityNotification) bool) []domain.ActivityNotification {
	var out []domain.ActivityNotification
	for _, a := range r.byID {
		if keep(a) {
			out = append(out, cloneActivity(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out
}

func (r *ActivityRepo) List(ctx context.Context) ([]domain.ActivityNotification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list(func(domain.ActivityNotification) bool { return true }), nil
}

func (r *ActivityRepo) ListUpcomingAutoSend(ctx context.Context, now time.Time) ([]domain.ActivityNotification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list(func(a domain.ActivityNotification) bool {
		return a.AutoSend && a.StartsAt.After(now)
	}), nil
}

func (r *ActivityRepo) MarkRemindersSent(ctx context.Context, id int32, offsets []int) error {
	if len(offsets) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return notFound("activity", id)
	}
	for _, d := range offsets {
		if !slices.Contains(a.SentReminders, d) {
			a.SentReminders = append(a.SentReminders, d)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(a.SentReminders)))
	a.UpdatedOn = time.Now().UTC()
	r.byID[id] = a
	return nil
}

func (r *ActivityRepo) AdjustParticipants(ctx context.Context, id int32, delta int32) (*domain.ActivityNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, notFound("activity", id)
	}
	next := a.CurrentParticipants + delta
	if next < 0 {
		return nil, fmt.Errorf("%w: activity %d has no participants to remove", domain.ErrValidation, id)
	}
	if a.MaxParticipants != nil && next > *a.MaxParticipants {
		return nil, fmt.Errorf("activity %d: %w", id, domain.ErrCapacityReached)
	}
	a.CurrentParticipants = next
	a.UpdatedOn = time.Now().UTC()
	r.byID[id] = a
	out := cloneActivity(a)
	return &out, nil
}
