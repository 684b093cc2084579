package postgres_test

import (
	"context"
	"testing"
	"time"

	"membership-backend/internal/domain"
	"membership-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var activityRowColumns = []string{"id", "title", "description", "activity_type", "activity_id", "starts_at", "targeting", "max_participants",
	"current_participants", "auto_send", "reminder_schedule", "sent_reminders", "channels", "created_on", "updated_on"}

func activityRow(current int32, limit any) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(activityRowColumns).AddRow(
		4, "Beach cleanup", "Bring gloves", "VOLUNTEERING", "evt-4", now.Add(72*time.Hour),
		[]byte(`{"profile_types":["VOLUNTEER"]}`), limit, current, true, "{7,1}", "{7}", "{EMAIL,PUSH}", now, now)
}

func TestActivityRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewActivityRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM activities WHERE id = \\$1").
		WithArgs(int32(4)).
		WillReturnRows(activityRow(3, 20))

	a, err := repo.GetByID(context.Background(), 4)
	require.NoError(t, err)
	require.NotNil(t, a.Targeting)
	assert.Equal(t, []domain.ProfileType{domain.ProfileTypeVolunteer}, a.Targeting.ProfileTypes)
	require.NotNil(t, a.MaxParticipants)
	assert.Equal(t, int32(20), *a.MaxParticipants)
	assert.Equal(t, []int{7, 1}, a.ReminderSchedule)
	assert.Equal(t, []int{7}, a.SentReminders)
	assert.Equal(t, []domain.Channel{domain.ChannelEmail, domain.ChannelPush}, a.Channels)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewActivityRepository(db)
	starts := time.Date(2024, 11, 2, 10, 0, 0, 0, time.UTC)
	a := &domain.ActivityNotification{
		Title:            "Gala",
		ActivityType:     domain.ActivityTypeEvent,
		StartsAt:         starts,
		AutoSend:         true,
		ReminderSchedule: []int{7, 1},
		Channels:         []domain.Channel{domain.ChannelEmail},
	}

	mock.ExpectQuery("INSERT INTO activities").
		WithArgs("Gala", "", domain.ActivityTypeEvent, "", starts, nil, nil, int32(0), true,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))

	require.NoError(t, repo.Create(context.Background(), a))
	assert.Equal(t, int32(8), a.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepository_AdjustParticipants(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewActivityRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("UPDATE activities SET current_participants").
			WithArgs(int32(1), sqlmock.AnyArg(), int32(4)).
			WillReturnRows(activityRow(4, 20))

		a, err := repo.AdjustParticipants(ctx, 4, 1)
		require.NoError(t, err)
		assert.Equal(t, int32(4), a.CurrentParticipants)
	})

	t.Run("Full", func(t *testing.T) {
		mock.ExpectQuery("UPDATE activities SET current_participants").
			WithArgs(int32(1), sqlmock.AnyArg(), int32(4)).
			WillReturnRows(sqlmock.NewRows(activityRowColumns))
		mock.ExpectQuery("SELECT (.+) FROM activities WHERE id = \\$1").
			WithArgs(int32(4)).
			WillReturnRows(activityRow(20, 20))

		_, err := repo.AdjustParticipants(ctx, 4, 1)
		assert.ErrorIs(t, err, domain.ErrCapacityReached)
	})

	t.Run("Missing", func(t *testing.T) {
		mock.ExpectQuery("UPDATE activities SET current_participants").
			WithArgs(int32(-1), sqlmock.AnyArg(), int32(40)).
			WillReturnRows(sqlmock.NewRows(activityRowColumns))
		mock.ExpectQuery("SELECT (.+) FROM activities WHERE id = \\$1").
			WithArgs(int32(40)).
			WillReturnRows(sqlmock.NewRows(activityRowColumns))

		_, err := repo.AdjustParticipants(ctx, 40, -1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepository_MarkRemindersSent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewActivityRepository(db)

	mock.ExpectExec("UPDATE activities").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int32(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.MarkRemindersSent(context.Background(), 4, []int{7, 3}))
	assert.NoError(t, repo.MarkRemindersSent(context.Background(), 4, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
