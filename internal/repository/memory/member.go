package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"membership-backend/internal/domain"
)

type MemberRepo struct {
	mu     sync.RWMutex
	byID   map[int32]domain.Member
	nextID int32
}

func NewMemberRepo() *MemberRepo {
	return &MemberRepo{byID: make(map[int32]domain.Member)}
}

func (r *MemberRepo) Create(ctx context.Context, m *domain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if strings.EqualFold(existing.Email, m.Email) {
			return fmt.Errorf("email %s: %w", m.Email, domain.ErrConflict)
		}
	}
	r.nextID++
	m.ID = r.nextID
	now := time.Now().UTC()
	if m.RegisteredOn.IsZero() {
		m.RegisteredOn = now
	}
	m.UpdatedOn = now
	r.byID[m.ID] = cloneMember(*m)
	return nil
}

func (r *MemberRepo) GetByID(ctx context.Context, id int32) (*domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return nil, notFound("member", id)
	}
	out := cloneMember(m)
	return &out, nil
}

func (r *MemberRepo) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.byID {
		if strings.EqualFold(m.Email, email) {
			out := cloneMember(m)
			return &out, nil
		}
	}
	return nil, notFound("member", email)
}

func (r *MemberRepo) Update(ctx context.Context, m *domain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[m.ID]
	if !ok {
		return notFound("member", m.ID)
	}
	m.RegisteredOn = existing.RegisteredOn
	m.UpdatedOn = time.Now().UTC()
	r.byID[m.ID] = cloneMember(*m)
	return nil
}

func (r *MemberRepo) Delete(ctx context.Context, id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return notFound("member", id)
	}
	delete(r.byID, id)
	return nil
}

func (r *MemberRepo) sorted() []domain.Member {
	out := make([]domain.Member, 0, len(r.byID))
	for _, m := range r.byID {
		out = append(out, cloneMember(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *MemberRepo) List(ctx context.Context, limit, offset int32) ([]domain.Member, int32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.sorted()
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

func (r *MemberRepo) ListAll(ctx context.Context) ([]domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted(), nil
}

func (r *MemberRepo) ListRegisteredBetween(ctx context.Context, from, to time.Time) ([]domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Member
	for _, m := range r.sorted() {
		if !m.RegisteredOn.Before(from) && m.RegisteredOn.Before(to) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MemberRepo) UpdatePreferences(ctx context.Context, id int32, prefs domain.CommunicationPreferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return notFound("member", id)
	}
	m.CommunicationPreferences = prefs
	m.UpdatedOn = time.Now().UTC()
	r.byID[id] = m
	return nil
}
