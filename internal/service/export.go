package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"membership-backend/internal/domain"
	"membership-backend/internal/logger"
	"membership-backend/internal/storage"

	"github.com/google/uuid"
)

var exportHeader = []string{
	"id", "profile_type", "first_name", "last_name", "email", "phone", "city", "country",
	"skills", "interests", "availability", "participation_score", "registered_on",
}

type exportService struct {
	segments SegmentService
	storage  storage.Storage
	now      func() time.Time
}

func NewExportService(segments SegmentService, store storage.Storage) ExportService {
	return &exportService{segments: segments, storage: store, now: time.Now}
}

// ExportSegment writes the current members of a segment as CSV and returns where to download it.
func (s *exportService) ExportSegment(ctx context.Context, segmentID int32) (*domain.SegmentExport, error) {
	logger.EnterMethod("exportService.ExportSegment", "segmentID", segmentID)

	members, err := s.segments.SegmentMembers(ctx, segmentID)
	if err != nil {
		logger.ExitMethodWithError("exportService.ExportSegment", err, "segmentID", segmentID)
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for i := range members {
		if err := w.Write(memberRecord(&members[i])); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}

	now := s.now().UTC()
	key := fmt.Sprintf("segment-%d-%s-%s.csv", segmentID, now.Format("20060102T150405"), uuid.NewString()[:8])
	if err := s.storage.Save(ctx, key, &buf); err != nil {
		logger.ExitMethodWithError("exportService.ExportSegment", err, "key", key)
		return nil, fmt.Errorf("failed to store export: %w", err)
	}

	export := &domain.SegmentExport{
		Key:         key,
		SegmentID:   segmentID,
		MemberCount: len(members),
		DownloadURL: s.storage.DownloadURL(key),
		CreatedOn:   now,
	}
	logger.ExitMethod("exportService.ExportSegment", "key", key, "members", len(members))
	return export, nil
}

func memberRecord(m *domain.Member) []string {
	return []string{
		strconv.Itoa(int(m.ID)),
		string(m.ProfileType),
		m.FirstName,
		m.LastName,
		m.Email,
		m.Phone,
		m.City,
		m.Country,
		strings.Join(m.Skills, ";"),
		strings.Join(m.Interests, ";"),
		strings.Join(m.Availability, ";"),
		strconv.FormatFloat(m.ParticipationScore, 'f', -1, 64),
		m.RegisteredOn.UTC().Format(time.RFC3339),
	}
}
