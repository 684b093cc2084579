package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"membership-backend/internal/domain"
)

type NotificationRepo struct {
	mu     sync.RWMutex
	byID   map[int32]domain.Notification
	nextID int32
}

func NewNotificationRepo() *NotificationRepo {
	return &NotificationRepo{byID: make(map[int32]domain.Notification)}
}

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	n.ID = r.nextID
	n.CreatedOn = time.Now().UTC()
	stored := *n
	stored.Attributes = maps.Clone(n.Attributes)
	r.byID[n.ID] = stored
	return nil
}

func (r *NotificationRepo) List(ctx context.Context, memberID int32, limit, offset int32) ([]domain.Notification, int32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []domain.Notification
	for _, n := range r.byID {
		if n.MemberID == memberID {
			n.Attributes = maps.Clone(n.Attributes)
			all = append(all, n)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int32(len(all))
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *NotificationRepo) MarkAsRead(ctx context.Context, id, memberID int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok || n.MemberID != memberID {
		return notFound("notification", id)
	}
	n.IsRead = true
	r.byID[id] = n
	return nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, memberID int32) (int32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int32
	for _, n := range r.byID {
		if n.MemberID == memberID && !n.IsRead {
			count++
		}
	}
	return count, nil
}
