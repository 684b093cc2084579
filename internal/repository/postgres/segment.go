package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"membership-backend/internal/domain"
	"membership-backend/internal/logger"
	"membership-backend/internal/repository"
)

const segmentColumns = `id, name, description, criteria, member_count, COALESCE(preset_key, ''), created_on, updated_on`

type segmentRepository struct {
	db *sql.DB
}

func NewSegmentRepository(db *sql.DB) repository.SegmentRepository {
	return &segmentRepository{db: db}
}

func scanSegment(s rowScanner) (*domain.Segment, error) {
	seg := &domain.Segment{}
	var criteria []byte
	if err := s.Scan(&seg.ID, &seg.Name, &seg.Description, &criteria, &seg.MemberCount, &seg.PresetKey, &seg.CreatedOn, &seg.UpdatedOn); err != nil {
		return nil, err
	}
	if len(criteria) > 0 {
		if err := json.Unmarshal(criteria, &seg.Criteria); err != nil {
			return nil, fmt.Errorf("failed to decode criteria of segment %d: %w", seg.ID, err)
		}
	}
	return seg, nil
}

// presetKeyArg stores an empty preset key as NULL so the unique index only covers presets.
func presetKeyArg(key string) sql.NullString {
	return sql.NullString{String: key, Valid: key != ""}
}

func (r *segmentRepository) Create(ctx context.Context, s *domain.Segment) error {
	logger.EnterMethod("segmentRepository.Create", "name", s.Name, "presetKey", s.PresetKey)

	criteria, err := json.Marshal(s.Criteria)
	if err != nil {
		logger.ExitMethodWithError("segmentRepository.Create", err, "reason", "failed to marshal criteria")
		return err
	}

	query := `INSERT INTO segments (name, description, criteria, member_count, preset_key, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	now := time.Now().UTC()
	s.CreatedOn = now
	s.UpdatedOn = now

	logger.DatabaseCall("INSERT", "segments", "name", s.Name)
	err = r.db.QueryRowContext(ctx, query, s.Name, s.Description, criteria, s.MemberCount, presetKeyArg(s.PresetKey), s.CreatedOn, s.UpdatedOn).Scan(&s.ID)
	logger.DatabaseResult("INSERT", 1, err, "segmentID", s.ID)

	if err != nil {
		logger.ExitMethodWithError("segmentRepository.Create", err, "name", s.Name)
		return uniqueViolation(err, "segment preset")
	}
	logger.ExitMethod("segmentRepository.Create", "segmentID", s.ID)
	return nil
}

func (r *segmentRepository) GetByID(ctx context.Context, id int32) (*domain.Segment, error) {
	seg, err := scanSegment(r.db.QueryRowContext(ctx, `SELECT `+segmentColumns+` FROM segments WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "segment")
	}
	return seg, nil
}

func (r *segmentRepository) GetByPresetKey(ctx context.Context, key string) (*domain.Segment, error) {
	seg, err := scanSegment(r.db.QueryRowContext(ctx, `SELECT `+segmentColumns+` FROM segments WHERE preset_key = $1`, key))
	if err != nil {
		return nil, notFound(err, "segment")
	}
	return seg, nil
}

func (r *segmentRepository) Update(ctx context.Context, s *domain.Segment) error {
	criteria, err := json.Marshal(s.Criteria)
	if err != nil {
		return err
	}
	s.UpdatedOn = time.Now().UTC()

	logger.DatabaseCall("UPDATE", "segments", "segmentID", s.ID)
	query := `UPDATE segments SET name=$1, description=$2, criteria=$3, member_count=$4, updated_on=$5 WHERE id=$6`
	result, err := r.db.ExecContext(ctx, query, s.Name, s.Description, criteria, s.MemberCount, s.UpdatedOn, s.ID)
	if err == nil {
		err = requireOneRow(result, "segment")
	}
	logger.DatabaseResult("UPDATE", 1, err, "segmentID", s.ID)
	return err
}

func (r *segmentRepository) Delete(ctx context.Context, id int32) error {
	logger.DatabaseCall("DELETE", "segments", "segmentID", id)
	result, err := r.db.ExecContext(ctx, `DELETE FROM segments WHERE id = $1`, id)
	if err == nil {
		err = requireOneRow(result, "segment")
	}
	logger.DatabaseResult("DELETE", 1, err, "segmentID", id)
	return err
}

func (r *segmentRepository) List(ctx context.Context) ([]domain.Segment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+segmentColumns+` FROM segments ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []domain.Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, *seg)
	}
	return segments, rows.Err()
}

func (r *segmentRepository) UpdateMemberCount(ctx context.Context, id int32, count int32) error {
	logger.DatabaseCall("UPDATE", "segments", "segmentID", id, "memberCount", count)
	result, err := r.db.ExecContext(ctx, `UPDATE segments SET member_count=$1, updated_on=$2 WHERE id=$3`, count, time.Now().UTC(), id)
	if err == nil {
		err = requireOneRow(result, "segment")
	}
	logger.DatabaseResult("UPDATE", 1, err, "segmentID", id)
	return err
}
