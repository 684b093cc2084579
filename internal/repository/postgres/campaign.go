package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"membership-backend/internal/domain"
	"membership-backend/internal/logger"
	"membership-backend/internal/repository"

	"github.com/lib/pq"
)

const campaignColumns = `id, title, message, type, channels, target_segments, link_url, scheduled_at, sent_at, status,
	total_recipients, delivered, opened, clicked, unsubscribed, created_by, created_on, updated_on`

type campaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) repository.CampaignRepository {
	return &campaignRepository{db: db}
}

func scanCampaign(s rowScanner) (*domain.NotificationCampaign, error) {
	c := &domain.NotificationCampaign{}
	var channels pq.StringArray
	var segments pq.Int32Array
	var scheduledAt, sentAt sql.NullTime
	err := s.Scan(&c.ID, &c.Title, &c.Message, &c.Type, &channels, &segments, &c.LinkURL, &scheduledAt, &sentAt, &c.Status,
		&c.Stats.TotalRecipients, &c.Stats.Delivered, &c.Stats.Opened, &c.Stats.Clicked, &c.Stats.Unsubscribed,
		&c.CreatedBy, &c.CreatedOn, &c.UpdatedOn)
	if err != nil {
		return nil, err
	}
	c.Channels = stringsToChannels(channels)
	c.TargetSegments = []int32(segments)
	c.ScheduledAt = nullTimePtr(scheduledAt)
	c.SentAt = nullTimePtr(sentAt)
	return c, nil
}

func scanCampaigns(rows *sql.Rows) ([]domain.NotificationCampaign, error) {
	defer rows.Close()
	var campaigns []domain.NotificationCampaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

func (r *campaignRepository) Create(ctx context.Context, c *domain.NotificationCampaign) error {
	logger.EnterMethod("campaignRepository.Create", "title", c.Title, "type", c.Type)

	query := `INSERT INTO campaigns (title, message, type, channels, target_segments, link_url, scheduled_at, status, created_by, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	now := time.Now().UTC()
	c.CreatedOn = now
	c.UpdatedOn = now
	if c.Status == "" {
		c.Status = domain.CampaignStatusDraft
	}

	logger.DatabaseCall("INSERT", "campaigns", "title", c.Title)
	err := r.db.QueryRowContext(ctx, query, c.Title, c.Message, c.Type, pq.Array(channelsToStrings(c.Channels)), pq.Array(c.TargetSegments),
		c.LinkURL, c.ScheduledAt, c.Status, c.CreatedBy, c.CreatedOn, c.UpdatedOn).Scan(&c.ID)
	logger.DatabaseResult("INSERT", 1, err, "campaignID", c.ID)

	if err != nil {
		logger.ExitMethodWithError("campaignRepository.Create", err, "title", c.Title)
		return err
	}
	logger.ExitMethod("campaignRepository.Create", "campaignID", c.ID)
	return nil
}

func (r *campaignRepository) GetByID(ctx context.Context, id int32) (*domain.NotificationCampaign, error) {
	c, err := scanCampaign(r.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "campaign")
	}
	return c, nil
}

// Update rewrites the editable content of a draft campaign.
func (r *campaignRepository) Update(ctx context.Context, c *domain.NotificationCampaign) error {
	logger.EnterMethod("campaignRepository.Update", "campaignID", c.ID)

	c.UpdatedOn = time.Now().UTC()
	query := `UPDATE campaigns SET title=$1, message=$2, type=$3, channels=$4, target_segments=$5, link_url=$6, updated_on=$7
	          WHERE id=$8 AND status=$9`
	logger.DatabaseCall("UPDATE", "campaigns", "campaignID", c.ID)
	result, err := r.db.ExecContext(ctx, query, c.Title, c.Message, c.Type, pq.Array(channelsToStrings(c.Channels)), pq.Array(c.TargetSegments),
		c.LinkURL, c.UpdatedOn, c.ID, domain.CampaignStatusDraft)
	if err == nil {
		err = requireOneRow(result, "draft campaign")
	}
	logger.DatabaseResult("UPDATE", 1, err, "campaignID", c.ID)

	if err != nil {
		logger.ExitMethodWithError("campaignRepository.Update", err, "campaignID", c.ID)
		return err
	}
	logger.ExitMethod("campaignRepository.Update", "campaignID", c.ID)
	return nil
}

func (r *campaignRepository) UpdateStatus(ctx context.Context, id int32, from, to domain.CampaignStatus, scheduledAt, sentAt *time.Time) error {
	logger.EnterMethod("campaignRepository.UpdateStatus", "campaignID", id, "from", from, "to", to)

	query := `UPDATE campaigns SET status=$1, scheduled_at=$2, sent_at=COALESCE($3, sent_at), updated_on=$4
	          WHERE id=$5 AND status=$6`
	logger.DatabaseCall("UPDATE", "campaigns", "campaignID", id, "status", to)
	result, err := r.db.ExecContext(ctx, query, to, scheduledAt, sentAt, time.Now().UTC(), id, from)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "campaignID", id)
		logger.ExitMethodWithError("campaignRepository.UpdateStatus", err, "campaignID", id)
		return err
	}
	rows, err := result.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, err, "campaignID", id)
	if err != nil {
		return err
	}
	if rows == 0 {
		err = fmt.Errorf("campaign %d is no longer %s: %w", id, from, domain.ErrInvalidTransition)
		logger.ExitMethodWithError("campaignRepository.UpdateStatus", err, "campaignID", id)
		return err
	}
	logger.ExitMethod("campaignRepository.UpdateStatus", "campaignID", id, "status", to)
	return nil
}

func (r *campaignRepository) List(ctx context.Context, status domain.CampaignStatus) ([]domain.NotificationCampaign, error) {
	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = r.db.QueryContext(ctx, `SELECT `+campaignColumns+` FROM campaigns ORDER BY created_on DESC`)
	} else {
		rows, err = r.db.QueryContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE status = $1 ORDER BY created_on DESC`, status)
	}
	if err != nil {
		return nil, err
	}
	return scanCampaigns(rows)
}

func (r *campaignRepository) ListDue(ctx context.Context, now time.Time) ([]domain.NotificationCampaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE status = $1 AND scheduled_at <= $2 ORDER BY scheduled_at`
	logger.DatabaseCall("SELECT", "campaigns", "status", domain.CampaignStatusScheduled)
	rows, err := r.db.QueryContext(ctx, query, domain.CampaignStatusScheduled, now)
	if err != nil {
		return nil, err
	}
	return scanCampaigns(rows)
}

func (r *campaignRepository) SetStats(ctx context.Context, id int32, stats domain.CampaignStats) error {
	logger.DatabaseCall("UPDATE", "campaigns", "campaignID", id, "stats", stats)
	query := `UPDATE campaigns SET total_recipients=$1, delivered=$2, opened=$3, clicked=$4, unsubscribed=$5, updated_on=$6 WHERE id=$7`
	result, err := r.db.ExecContext(ctx, query, stats.TotalRecipients, stats.Delivered, stats.Opened, stats.Clicked, stats.Unsubscribed, time.Now().UTC(), id)
	if err == nil {
		err = requireOneRow(result, "campaign")
	}
	logger.DatabaseResult("UPDATE", 1, err, "campaignID", id)
	return err
}
