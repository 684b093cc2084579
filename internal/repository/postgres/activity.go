package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"membership-backend/internal/domain"
	"membership-backend/internal/logger"
	"membership-backend/internal/repository"

	"github.com/lib/pq"
)

const activityColumns = `id, title, description, activity_type, activity_id, starts_at, targeting, max_participants,
	current_participants, auto_send, reminder_schedule, sent_reminders, channels, created_on, updated_on`

type activityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) repository.ActivityRepository {
	return &activityRepository{db: db}
}

func scanActivity(s rowScanner) (*domain.ActivityNotification, error) {
	a := &domain.ActivityNotification{}
	var targeting []byte
	var maxParticipants sql.NullInt32
	var schedule, sent pq.Int64Array
	var channels pq.StringArray
	err := s.Scan(&a.ID, &a.Title, &a.Description, &a.ActivityType, &a.ActivityID, &a.StartsAt, &targeting, &maxParticipants,
		&a.CurrentParticipants, &a.AutoSend, &schedule, &sent, &channels, &a.CreatedOn, &a.UpdatedOn)
	if err != nil {
		return nil, err
	}
	if len(targeting) > 0 {
		a.Targeting = &domain.SegmentCriteria{}
		if err := json.Unmarshal(targeting, a.Targeting); err != nil {
			return nil, fmt.Errorf("failed to decode targeting of activity %d: %w", a.ID, err)
		}
	}
	if maxParticipants.Valid {
		v := maxParticipants.Int32
		a.MaxParticipants = &v
	}
	a.ReminderSchedule = int64ToInts(schedule)
	a.SentReminders = int64ToInts(sent)
	a.Channels = stringsToChannels(channels)
	return a, nil
}

func scanActivities(rows *sql.Rows) ([]domain.ActivityNotification, error) {
	defer rows.Close()
	var activities []domain.ActivityNotification
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

// targetingArg keeps "no targeting" as SQL NULL rather than an empty document.
func targetingArg(c *domain.SegmentCriteria) (any, error) {
	if c == nil {
		return nil, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *activityRepository) Create(ctx context.Context, a *domain.ActivityNotification) error {
	logger.EnterMethod("activityRepository.Create", "title", a.Title, "activityType", a.ActivityType)

	targeting, err := targetingArg(a.Targeting)
	if err != nil {
		logger.ExitMethodWithError("activityRepository.Create", err, "reason", "failed to marshal targeting")
		return err
	}

	query := `INSERT INTO activities (title, description, activity_type, activity_id, starts_at, targeting, max_participants,
	          current_participants, auto_send, reminder_schedule, sent_reminders, channels, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id`
	now := time.Now().UTC()
	a.CreatedOn = now
	a.UpdatedOn = now

	logger.DatabaseCall("INSERT", "activities", "title", a.Title)
	err = r.db.QueryRowContext(ctx, query, a.Title, a.Description, a.ActivityType, a.ActivityID, a.StartsAt, targeting, a.MaxParticipants,
		a.CurrentParticipants, a.AutoSend, intsToInt64(a.ReminderSchedule), intsToInt64(a.SentReminders),
		pq.Array(channelsToStrings(a.Channels)), a.CreatedOn, a.UpdatedOn).Scan(&a.ID)
	logger.DatabaseResult("INSERT", 1, err, "activityID", a.ID)

	if err != nil {
		logger.ExitMethodWithError("activityRepository.Create", err, "title", a.Title)
		return err
	}
	logger.ExitMethod("activityRepository.Create", "activityID", a.ID)
	return nil
}

func (r *activityRepository) GetByID(ctx context.Context, id int32) (*domain.ActivityNotification, error) {
	a, err := scanActivity(r.db.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "activity")
	}
	return a, nil
}

func (r *activityRepository) Update(ctx context.Context, a *domain.ActivityNotification) error {
	targeting, err := targetingArg(a.Targeting)
	if err != nil {
		return err
	}
	a.UpdatedOn = time.Now().UTC()

	query := `UPDATE activities SET title=$1, description=$2, activity_type=$3, activity_id=$4, starts_at=$5, targeting=$6,
	          max_participants=$7, auto_send=$8, reminder_schedule=$9, sent_reminders=$10, channels=$11, updated_on=$12 WHERE id=$13`
	logger.DatabaseCall("UPDATE", "activities", "activityID", a.ID)
	result, err := r.db.ExecContext(ctx, query, a.Title, a.Description, a.ActivityType, a.ActivityID, a.StartsAt, targeting,
		a.MaxParticipants, a.AutoSend, intsToInt64(a.ReminderSchedule), intsToInt64(a.SentReminders),
		pq.Array(channelsToStrings(a.Channels)), a.UpdatedOn, a.ID)
	if err == nil {
		err = requireOneRow(result, "activity")
	}
	logger.DatabaseResult("UPDATE", 1, err, "activityID", a.ID)
	return err
}

func (r *activityRepository) List(ctx context.Context) ([]domain.ActivityNotification, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+activityColumns+` FROM activities ORDER BY starts_at`)
	if err != nil {
		return nil, err
	}
	return scanActivities(rows)
}

func (r *activityRepository) ListUpcomingAutoSend(ctx context.Context, now time.Time) ([]domain.ActivityNotification, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE auto_send = TRUE AND starts_at > $1 ORDER BY starts_at`
	logger.DatabaseCall("SELECT", "activities", "autoSend", true)
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	return scanActivities(rows)
}

func (r *activityRepository) MarkRemindersSent(ctx context.Context, id int32, offsets []int) error {
	if len(offsets) == 0 {
		return nil
	}
	query := `UPDATE activities
	          SET sent_reminders = ARRAY(SELECT DISTINCT unnest(sent_reminders || $1::INTEGER[]) ORDER BY 1 DESC), updated_on = $2
	          WHERE id = $3`
	logger.DatabaseCall("UPDATE", "activities", "activityID", id, "offsets", offsets)
	result, err := r.db.ExecContext(ctx, query, intsToInt64(offsets), time.Now().UTC(), id)
	if err == nil {
		err = requireOneRow(result, "activity")
	}
	logger.DatabaseResult("UPDATE", 1, err, "activityID", id)
	return err
}

func (r *activityRepository) AdjustParticipants(ctx context.Context, id int32, delta int32) (*domain.ActivityNotification, error) {
	logger.EnterMethod("activityRepository.AdjustParticipants", "activityID", id, "delta", delta)

	query := `UPDATE activities SET current_participants = current_participants + $1, updated_on = $2
	          WHERE id = $3 AND current_participants + $1 >= 0
	            AND (max_participants IS NULL OR current_participants + $1 <= max_participants)
	          RETURNING ` + activityColumns
	logger.DatabaseCall("UPDATE", "activities", "activityID", id, "delta", delta)
	a, err := scanActivity(r.db.QueryRowContext(ctx, query, delta, time.Now().UTC(), id))
	logger.DatabaseResult("UPDATE", 1, err, "activityID", id)
	if err == nil {
		logger.ExitMethod("activityRepository.AdjustParticipants", "activityID", id, "current", a.CurrentParticipants)
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		logger.ExitMethodWithError("activityRepository.AdjustParticipants", err, "activityID", id)
		return nil, err
	}

	// The guard rejected the change; tell a missing row apart from a limit.
	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		logger.ExitMethodWithError("activityRepository.AdjustParticipants", getErr, "activityID", id)
		return nil, getErr
	}
	if delta > 0 {
		err = fmt.Errorf("activity %d: %w", id, domain.ErrCapacityReached)
	} else {
		err = fmt.Errorf("%w: activity %d has no participants to remove", domain.ErrValidation, id)
	}
	logger.ExitMethodWithError("activityRepository.AdjustParticipants", err, "activityID", id, "current", current.CurrentParticipants)
	return nil, err
}
