package postgres

import (
	"context"
	"database/sql"
	"time"

	"membership-backend/internal/domain"
	"membership-backend/internal/logger"
	"membership-backend/internal/repository"
)

const deliveryColumns = `id, campaign_id, member_id, channel, status, token, error, delivered_at, opened_at, clicked_at, unsubscribed_at`

type deliveryRepository struct {
	db *sql.DB
}

func NewDeliveryRepository(db *sql.DB) repository.DeliveryRepository {
	return &deliveryRepository{db: db}
}

func scanDelivery(s rowScanner) (*domain.Delivery, error) {
	d := &domain.Delivery{}
	var deliveredAt, openedAt, clickedAt, unsubscribedAt sql.NullTime
	err := s.Scan(&d.ID, &d.CampaignID, &d.MemberID, &d.Channel, &d.Status, &d.Token, &d.Error,
		&deliveredAt, &openedAt, &clickedAt, &unsubscribedAt)
	if err != nil {
		return nil, err
	}
	d.DeliveredAt = nullTimePtr(deliveredAt)
	d.OpenedAt = nullTimePtr(openedAt)
	d.ClickedAt = nullTimePtr(clickedAt)
	d.UnsubscribedAt = nullTimePtr(unsubscribedAt)
	return d, nil
}

// CreateBatch inserts all deliveries in one transaction and fills in their IDs.
func (r *deliveryRepository) CreateBatch(ctx context.Context, deliveries []domain.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	logger.EnterMethod("deliveryRepository.CreateBatch", "campaignID", deliveries[0].CampaignID, "count", len(deliveries))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.ExitMethodWithError("deliveryRepository.CreateBatch", err)
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO deliveries (campaign_id, member_id, channel, status, token, error, delivered_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	logger.DatabaseCall("INSERT", "deliveries", "count", len(deliveries))
	for i := range deliveries {
		d := &deliveries[i]
		err = tx.QueryRowContext(ctx, query, d.CampaignID, d.MemberID, d.Channel, d.Status, d.Token, d.Error, d.DeliveredAt).Scan(&d.ID)
		if err != nil {
			logger.DatabaseResult("INSERT", int64(i), err, "memberID", d.MemberID)
			logger.ExitMethodWithError("deliveryRepository.CreateBatch", err, "memberID", d.MemberID)
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		logger.ExitMethodWithError("deliveryRepository.CreateBatch", err)
		return err
	}
	logger.DatabaseResult("INSERT", int64(len(deliveries)), nil)
	logger.ExitMethod("deliveryRepository.CreateBatch", "count", len(deliveries))
	return nil
}

func (r *deliveryRepository) GetByToken(ctx context.Context, token string) (*domain.Delivery, error) {
	d, err := scanDelivery(r.db.QueryRowContext(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE token = $1`, token))
	if err != nil {
		return nil, notFound(err, "delivery")
	}
	return d, nil
}

// Tracking updates only touch delivered rows and keep the first timestamp.

func (r *deliveryRepository) MarkOpened(ctx context.Context, token string, at time.Time) error {
	return r.track(ctx, `UPDATE deliveries SET opened_at = COALESCE(opened_at, $1) WHERE token = $2 AND status = $3`, token, at)
}

// MarkClicked also records an open, since a click cannot happen without one.
func (r *deliveryRepository) MarkClicked(ctx context.Context, token string, at time.Time) error {
	return r.track(ctx, `UPDATE deliveries SET clicked_at = COALESCE(clicked_at, $1), opened_at = COALESCE(opened_at, $1)
	                     WHERE token = $2 AND status = $3`, token, at)
}

func (r *deliveryRepository) MarkUnsubscribed(ctx context.Context, token string, at time.Time) error {
	return r.track(ctx, `UPDATE deliveries SET unsubscribed_at = COALESCE(unsubscribed_at, $1) WHERE token = $2 AND status = $3`, token, at)
}

func (r *deliveryRepository) track(ctx context.Context, query, token string, at time.Time) error {
	logger.DatabaseCall("UPDATE", "deliveries", "token", token)
	result, err := r.db.ExecContext(ctx, query, at, token, domain.DeliveryStatusDelivered)
	if err == nil {
		err = requireOneRow(result, "delivery")
	}
	logger.DatabaseResult("UPDATE", 1, err, "token", token)
	return err
}

func (r *deliveryRepository) ListByCampaign(ctx context.Context, campaignID int32) ([]domain.Delivery, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE campaign_id = $1 ORDER BY id`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []domain.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, *d)
	}
	return deliveries, rows.Err()
}

// Stats counts distinct members, so a member reached on several channels counts once.
func (r *deliveryRepository) Stats(ctx context.Context, campaignID int32) (domain.CampaignStats, error) {
	query := `SELECT
	            COUNT(DISTINCT member_id),
	            COUNT(DISTINCT member_id) FILTER (WHERE status = $2),
	            COUNT(DISTINCT member_id) FILTER (WHERE status = $2 AND opened_at IS NOT NULL),
	            COUNT(DISTINCT member_id) FILTER (WHERE status = $2 AND clicked_at IS NOT NULL),
	            COUNT(DISTINCT member_id) FILTER (WHERE status = $2 AND unsubscribed_at IS NOT NULL)
	          FROM deliveries WHERE campaign_id = $1`
	var s domain.CampaignStats
	logger.DatabaseCall("SELECT", "deliveries", "campaignID", campaignID)
	err := r.db.QueryRowContext(ctx, query, campaignID, domain.DeliveryStatusDelivered).
		Scan(&s.TotalRecipients, &s.Delivered, &s.Opened, &s.Clicked, &s.Unsubscribed)
	logger.DatabaseResult("SELECT", 1, err, "campaignID", campaignID)
	return s, err
}
