package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"membership-backend/internal/domain"
	"membership-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var segmentRowColumns = []string{"id", "name", "description", "criteria", "member_count", "preset_key", "created_on", "updated_on"}

func TestSegmentRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewSegmentRepository(db)
	ctx := context.Background()

	t.Run("Custom", func(t *testing.T) {
		s := &domain.Segment{Name: "Lyon volunteers", Criteria: domain.SegmentCriteria{Cities: []string{"lyon"}}}
		mock.ExpectQuery("INSERT INTO segments").
			WithArgs("Lyon volunteers", "", []byte(`{"cities":["lyon"]}`), int32(0), nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

		require.NoError(t, repo.Create(ctx, s))
		assert.Equal(t, int32(2), s.ID)
	})

	t.Run("Preset", func(t *testing.T) {
		s := &domain.Segment{Name: "All members", PresetKey: "all-members"}
		mock.ExpectQuery("INSERT INTO segments").
			WithArgs("All members", "", []byte(`{}`), int32(0), "all-members", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

		require.NoError(t, repo.Create(ctx, s))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSegmentRepository_GetByPresetKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewSegmentRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM segments WHERE preset_key = \\$1").
		WithArgs("engaged-ambassadors").
		WillReturnRows(sqlmock.NewRows(segmentRowColumns).AddRow(
			6, "Engaged ambassadors", "", []byte(`{"profile_types":["AMBASSADOR"],"participation_score_range":{"min":70,"max":100}}`),
			14, "engaged-ambassadors", now, now))
	mock.ExpectQuery("SELECT (.+) FROM segments WHERE preset_key = \\$1").
		WithArgs("unknown").
		WillReturnError(sql.ErrNoRows)

	s, err := repo.GetByPresetKey(ctx, "engaged-ambassadors")
	require.NoError(t, err)
	assert.Equal(t, int32(14), s.MemberCount)
	require.NotNil(t, s.Criteria.ParticipationScoreRange)
	assert.Equal(t, 70.0, s.Criteria.ParticipationScoreRange.Min)

	_, err = repo.GetByPresetKey(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
