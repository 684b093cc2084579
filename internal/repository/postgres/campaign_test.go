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

var campaignRowColumns = []string{"id", "title", "message", "type", "channels", "target_segments", "link_url", "scheduled_at", "sent_at", "status",
	"total_recipients", "delivered", "opened", "clicked", "unsubscribed", "created_by", "created_on", "updated_on"}

func TestCampaignRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewCampaignRepository(db)
	c := &domain.NotificationCampaign{
		Title:          "Spring gala",
		Message:        "Join us",
		Type:           domain.CampaignTypeEvent,
		Channels:       []domain.Channel{domain.ChannelEmail},
		TargetSegments: []int32{1, 2},
		CreatedBy:      9,
	}

	mock.ExpectQuery("INSERT INTO campaigns").
		WithArgs("Spring gala", "Join us", domain.CampaignTypeEvent, sqlmock.AnyArg(), sqlmock.AnyArg(), "", nil,
			domain.CampaignStatusDraft, int32(9), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))

	require.NoError(t, repo.Create(context.Background(), c))
	assert.Equal(t, int32(12), c.ID)
	assert.Equal(t, domain.CampaignStatusDraft, c.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewCampaignRepository(db)
	scheduled := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM campaigns WHERE id = \\$1").
		WithArgs(int32(5)).
		WillReturnRows(sqlmock.NewRows(campaignRowColumns).AddRow(
			5, "Newsletter", "Hello", "NEWSLETTER", "{EMAIL,IN_APP}", "{3,4}", "https://example.org", scheduled, nil, "SCHEDULED",
			0, 0, 0, 0, 0, 1, now, now))

	c, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []domain.Channel{domain.ChannelEmail, domain.ChannelInApp}, c.Channels)
	assert.Equal(t, []int32{3, 4}, c.TargetSegments)
	require.NotNil(t, c.ScheduledAt)
	assert.Equal(t, scheduled, *c.ScheduledAt)
	assert.Nil(t, c.SentAt)
	assert.Equal(t, domain.CampaignStatusScheduled, c.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewCampaignRepository(db)
	ctx := context.Background()
	at := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE campaigns SET status").
			WithArgs(domain.CampaignStatusScheduled, at, nil, sqlmock.AnyArg(), int32(5), domain.CampaignStatusDraft).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(ctx, 5, domain.CampaignStatusDraft, domain.CampaignStatusScheduled, &at, nil)
		assert.NoError(t, err)
	})

	t.Run("StatusChangedConcurrently", func(t *testing.T) {
		mock.ExpectExec("UPDATE campaigns SET status").
			WithArgs(domain.CampaignStatusSending, nil, nil, sqlmock.AnyArg(), int32(5), domain.CampaignStatusScheduled).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(ctx, 5, domain.CampaignStatusScheduled, domain.CampaignStatusSending, nil, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_ListDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewCampaignRepository(db)
	now := time.Date(2024, 10, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM campaigns WHERE status = \\$1 AND scheduled_at <= \\$2").
		WithArgs(domain.CampaignStatusScheduled, now).
		WillReturnRows(sqlmock.NewRows(campaignRowColumns).AddRow(
			5, "Newsletter", "Hello", "NEWSLETTER", "{EMAIL}", "{3}", "", now.Add(-time.Hour), nil, "SCHEDULED",
			0, 0, 0, 0, 0, 1, now, now))

	due, err := repo.ListDue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, int32(5), due[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
