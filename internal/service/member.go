package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"membership-backend/internal/domain"
	"membership-backend/internal/logger"
	"membership-backend/internal/repository"
)

type memberService struct {
	memberRepo repository.MemberRepository
}

func NewMemberService(memberRepo repository.MemberRepository) MemberService {
	return &memberService{memberRepo: memberRepo}
}

func normalizeMember(m *domain.Member) {
	m.FirstName = strings.TrimSpace(m.FirstName)
	m.LastName = strings.TrimSpace(m.LastName)
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	m.Phone = strings.TrimSpace(m.Phone)
	m.City = strings.TrimSpace(m.City)
	m.Country = strings.TrimSpace(m.Country)
	m.Skills = domain.NormalizeTags(m.Skills)
	m.Interests = domain.NormalizeTags(m.Interests)
	m.Availability = domain.NormalizeTags(m.Availability)
}

// Register creates a member. A member submitted without any channel enabled gets the
// default email and in-app preferences.
func (s *memberService) Register(ctx context.Context, m *domain.Member) error {
	logger.EnterMethod("memberService.Register", "email", m.Email, "profileType", m.ProfileType)

	normalizeMember(m)
	if m.CommunicationPreferences == (domain.CommunicationPreferences{}) {
		m.CommunicationPreferences = domain.DefaultCommunicationPreferences()
	}
	if err := m.Validate(); err != nil {
		logger.ExitMethodWithError("memberService.Register", err)
		return err
	}
	if err := s.memberRepo.Create(ctx, m); err != nil {
		logger.ExitMethodWithError("memberService.Register", err, "email", m.Email)
		return err
	}

	logger.Info("Member registered", "memberID", m.ID, "profileType", m.ProfileType)
	logger.ExitMethod("memberService.Register", "memberID", m.ID)
	return nil
}

func (s *memberService) GetMember(ctx context.Context, id int32) (*domain.Member, error) {
	return s.memberRepo.GetByID(ctx, id)
}

func (s *memberService) UpdateMember(ctx context.Context, m *domain.Member) error {
	existing, err := s.memberRepo.GetByID(ctx, m.ID)
	if err != nil {
		return err
	}
	normalizeMember(m)
	m.RegisteredOn = existing.RegisteredOn
	if err := m.Validate(); err != nil {
		return err
	}
	return s.memberRepo.Update(ctx, m)
}

func (s *memberService) DeleteMember(ctx context.Context, id int32) error {
	return s.memberRepo.Delete(ctx, id)
}

func (s *memberService) ListMembers(ctx context.Context, page, pageSize int32) ([]domain.Member, int32, error) {
	limit, offset := pagination(page, pageSize)
	return s.memberRepo.List(ctx, limit, offset)
}

func (s *memberService) UpdatePreferences(ctx context.Context, id int32, prefs domain.CommunicationPreferences) (*domain.Member, error) {
	if err := s.memberRepo.UpdatePreferences(ctx, id, prefs); err != nil {
		return nil, err
	}
	logger.Info("Communication preferences updated", "memberID", id, "preferences", prefs)
	return s.memberRepo.GetByID(ctx, id)
}

// AdjustParticipationScore adds delta to the score and clamps the result to the score scale.
func (s *memberService) AdjustParticipationScore(ctx context.Context, id int32, delta float64) (*domain.Member, error) {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return nil, fmt.Errorf("%w: invalid score delta", domain.ErrValidation)
	}
	m, err := s.memberRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m.ParticipationScore = math.Max(0, math.Min(domain.MaxParticipationScore, m.ParticipationScore+delta))
	if err := s.memberRepo.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pagination converts a 1-based page into limit and offset.
func pagination(page, pageSize int32) (limit, offset int32) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return pageSize, (page - 1) * pageSize
}
