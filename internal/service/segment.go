package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"membership-backend/internal/catalog"
	"membership-backend/internal/domain"
	"membership-backend/internal/logger"
	"membership-backend/internal/repository"
	"membership-backend/internal/segment"
)

type segmentService struct {
	segmentRepo repository.SegmentRepository
	memberRepo  repository.MemberRepository
	now         func() time.Time
}

func NewSegmentService(segmentRepo repository.SegmentRepository, memberRepo repository.MemberRepository) SegmentService {
	return &segmentService{
		segmentRepo: segmentRepo,
		memberRepo:  memberRepo,
		now:         time.Now,
	}
}

// normalizeCriteria lower-cases and de-duplicates the free-text criteria values.
func normalizeCriteria(c *domain.SegmentCriteria) {
	c.Skills = domain.NormalizeTags(c.Skills)
	c.Interests = domain.NormalizeTags(c.Interests)
	c.Availability = domain.NormalizeTags(c.Availability)
	c.Cities = domain.NormalizeTags(c.Cities)
	c.Countries = domain.NormalizeTags(c.Countries)
}

func (s *segmentService) count(ctx context.Context, c *domain.SegmentCriteria) (int32, error) {
	members, err := s.memberRepo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	return int32(segment.Count(members, c, s.now())), nil
}

func (s *segmentService) CreateSegment(ctx context.Context, seg *domain.Segment) error {
	logger.EnterMethod("segmentService.CreateSegment", "name", seg.Name)

	seg.Name = strings.TrimSpace(seg.Name)
	normalizeCriteria(&seg.Criteria)
	if err := seg.Validate(); err != nil {
		logger.ExitMethodWithError("segmentService.CreateSegment", err)
		return err
	}
	count, err := s.count(ctx, &seg.Criteria)
	if err != nil {
		logger.ExitMethodWithError("segmentService.CreateSegment", err)
		return err
	}
	seg.MemberCount = count
	if err := s.segmentRepo.Create(ctx, seg); err != nil {
		logger.ExitMethodWithError("segmentService.CreateSegment", err)
		return err
	}

	logger.ExitMethod("segmentService.CreateSegment", "segmentID", seg.ID, "memberCount", seg.MemberCount)
	return nil
}

func (s *segmentService) GetSegment(ctx context.Context, id int32) (*domain.Segment, error) {
	return s.segmentRepo.GetByID(ctx, id)
}

func (s *segmentService) UpdateSegment(ctx context.Context, seg *domain.Segment) error {
	existing, err := s.segmentRepo.GetByID(ctx, seg.ID)
	if err != nil {
		return err
	}
	if existing.PresetKey != "" {
		return fmt.Errorf("%w: preset segment %s cannot be edited", domain.ErrValidation, existing.PresetKey)
	}
	seg.Name = strings.TrimSpace(seg.Name)
	normalizeCriteria(&seg.Criteria)
	if err := seg.Validate(); err != nil {
		return err
	}
	count, err := s.count(ctx, &seg.Criteria)
	if err != nil {
		return err
	}
	seg.MemberCount = count
	return s.segmentRepo.Update(ctx, seg)
}

func (s *segmentService) DeleteSegment(ctx context.Context, id int32) error {
	return s.segmentRepo.Delete(ctx, id)
}

func (s *segmentService) ListSegments(ctx context.Context) ([]domain.Segment, error) {
	return s.segmentRepo.List(ctx)
}

func (s *segmentService) Preview(ctx context.Context, criteria domain.SegmentCriteria) ([]domain.Member, error) {
	normalizeCriteria(&criteria)
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	members, err := s.memberRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return segment.Filter(members, &criteria, s.now()), nil
}

func (s *segmentService) SegmentMembers(ctx context.Context, id int32) ([]domain.Member, error) {
	return s.ResolveAudience(ctx, []int32{id})
}

func (s *segmentService) ResolveAudience(ctx context.Context, segmentIDs []int32) ([]domain.Member, error) {
	segments := make([]*domain.Segment, 0, len(segmentIDs))
	for _, id := range segmentIDs {
		seg, err := s.segmentRepo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load segment %d: %w", id, err)
		}
		segments = append(segments, seg)
	}

	members, err := s.memberRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	sets := make([][]domain.Member, 0, len(segments))
	for _, seg := range segments {
		sets = append(sets, segment.Filter(members, &seg.Criteria, now))
	}
	return segment.Union(sets...), nil
}

// RefreshCounts recomputes member_count of every segment and returns how many changed.
func (s *segmentService) RefreshCounts(ctx context.Context) (int, error) {
	segments, err := s.segmentRepo.List(ctx)
	if err != nil {
		return 0, err
	}
	members, err := s.memberRepo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()
	changed := 0
	for _, seg := range segments {
		count := int32(segment.Count(members, &seg.Criteria, now))
		if count == seg.MemberCount {
			continue
		}
		if err := s.segmentRepo.UpdateMemberCount(ctx, seg.ID, count); err != nil {
			return changed, fmt.Errorf("failed to update segment %d: %w", seg.ID, err)
		}
		changed++
	}
	return changed, nil
}

// EnsurePreset returns the segment backing a catalog preset, creating it on first use.
func (s *segmentService) EnsurePreset(ctx context.Context, key string) (*domain.Segment, error) {
	preset, ok := catalog.LookupSegmentPreset(key)
	if !ok {
		return nil, fmt.Errorf("segment preset %s: %w", key, domain.ErrNotFound)
	}
	seg, err := s.segmentRepo.GetByPresetKey(ctx, key)
	if err == nil {
		return seg, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	seg = &domain.Segment{
		Name:        preset.Name,
		Description: preset.Description,
		Criteria:    preset.Criteria,
		PresetKey:   preset.Key,
	}
	if err := s.CreateSegment(ctx, seg); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return s.segmentRepo.GetByPresetKey(ctx, key)
		}
		return nil, err
	}
	logger.Info("Preset segment created", "presetKey", key, "segmentID", seg.ID)
	return seg, nil
}

func (s *segmentService) Presets() []catalog.SegmentPreset {
	return catalog.SegmentPresets()
}
