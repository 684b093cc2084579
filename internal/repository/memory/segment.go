package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"membership-backend/internal/domain"
)

type SegmentRepo struct {
	mu     sync.RWMutex
	byID   map[int32]domain.Segment
	nextID int32
}

func NewSegmentRepo() *SegmentRepo {
	return &SegmentRepo{byID: make(map[int32]domain.Segment)}
}

func cloneSegment(s domain.Segment) domain.Segment {
	s.Criteria = cloneCriteria(s.Criteria)
	return s
}

func (r *SegmentRepo) Create(ctx context.Context, s *domain.Segment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.PresetKey != "" {
		for _, existing := range r.byID {
			if existing.PresetKey == s.PresetKey {
				return fmt.Errorf("segment for preset %s: %w", s.PresetKey, domain.ErrConflict)
			}
		}
	}
	r.nextID++
	s.ID = r.nextID
	now := time.Now().UTC()
	s.CreatedOn = now
	s.UpdatedOn = now
	r.byID[s.ID] = cloneSegment(*s)
	return nil
}

func (r *SegmentRepo) GetByID(ctx context.Context, id int32) (*domain.Segment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, notFound("segment", id)
	}
	out := cloneSegment(s)
	return &out, nil
}

func (r *SegmentRepo) GetByPresetKey(ctx context.Context, key string) (*domain.Segment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.byID {
		if s.PresetKey == key {
			out := cloneSegment(s)
			return &out, nil
		}
	}
	return nil, notFound("segment", key)
}

func (r *SegmentRepo) Update(ctx context.Context, s *domain.Segment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[s.ID]
	if !ok {
		return notFound("segment", s.ID)
	}
	s.PresetKey = existing.PresetKey
	s.CreatedOn = existing.CreatedOn
	s.UpdatedOn = time.Now().UTC()
	r.byID[s.ID] = cloneSegment(*s)
	return nil
}

func (r *SegmentRepo) Delete(ctx context.Context, id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return notFound("segment", id)
	}
	delete(r.byID, id)
	return nil
}

func (r *SegmentRepo) List(ctx context.Context) ([]domain.Segment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Segment, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, cloneSegment(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *SegmentRepo) UpdateMemberCount(ctx context.Context, id int32, count int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return notFound("segment", id)
	}
	s.MemberCount = count
	s.UpdatedOn = time.Now().UTC()
	r.byID[id] = s
	return nil
}
