package postgres

import (
	"context"
	"database/sql"
	"time"

	"membership-backend/internal/domain"
	"membership-backend/internal/logger"
	"membership-backend/internal/repository"

	"github.com/lib/pq"
)

const memberColumns = `id, profile_type, first_name, last_name, email, phone, birth_date, city, country,
	skills, interests, availability, pref_email, pref_sms, pref_push, pref_in_app,
	participation_score, push_tokens, registered_on, updated_on`

type memberRepository struct {
	db *sql.DB
}

func NewMemberRepository(db *sql.DB) repository.MemberRepository {
	return &memberRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(s rowScanner) (*domain.Member, error) {
	m := &domain.Member{}
	var birthDate sql.NullTime
	var skills, interests, availability, pushTokens pq.StringArray
	err := s.Scan(&m.ID, &m.ProfileType, &m.FirstName, &m.LastName, &m.Email, &m.Phone, &birthDate, &m.City, &m.Country,
		&skills, &interests, &availability,
		&m.CommunicationPreferences.Email, &m.CommunicationPreferences.SMS, &m.CommunicationPreferences.Push, &m.CommunicationPreferences.InApp,
		&m.ParticipationScore, &pushTokens, &m.RegisteredOn, &m.UpdatedOn)
	if err != nil {
		return nil, err
	}
	m.BirthDate = nullTimePtr(birthDate)
	m.Skills = []string(skills)
	m.Interests = []string(interests)
	m.Availability = []string(availability)
	m.PushTokens = []string(pushTokens)
	return m, nil
}

func scanMembers(rows *sql.Rows) ([]domain.Member, error) {
	defer rows.Close()
	var members []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (r *memberRepository) Create(ctx context.Context, m *domain.Member) error {
	logger.EnterMethod("memberRepository.Create", "email", m.Email, "profileType", m.ProfileType)

	query := `INSERT INTO members (profile_type, first_name, last_name, email, phone, birth_date, city, country,
	          skills, interests, availability, pref_email, pref_sms, pref_push, pref_in_app,
	          participation_score, push_tokens, registered_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19) RETURNING id`
	now := time.Now().UTC()
	if m.RegisteredOn.IsZero() {
		m.RegisteredOn = now
	}
	m.UpdatedOn = now
	prefs := m.CommunicationPreferences

	logger.DatabaseCall("INSERT", "members", "email", m.Email)
	err := r.db.QueryRowContext(ctx, query, m.ProfileType, m.FirstName, m.LastName, m.Email, m.Phone, m.BirthDate, m.City, m.Country,
		pq.Array(m.Skills), pq.Array(m.Interests), pq.Array(m.Availability),
		prefs.Email, prefs.SMS, prefs.Push, prefs.InApp,
		m.ParticipationScore, pq.Array(m.PushTokens), m.RegisteredOn, m.UpdatedOn).Scan(&m.ID)
	logger.DatabaseResult("INSERT", 1, err, "memberID", m.ID)

	if err != nil {
		logger.ExitMethodWithError("memberRepository.Create", err, "email", m.Email)
		return uniqueViolation(err, "member email")
	}
	logger.ExitMethod("memberRepository.Create", "memberID", m.ID)
	return nil
}

func (r *memberRepository) GetByID(ctx context.Context, id int32) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`
	m, err := scanMember(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "member")
	}
	return m, nil
}

func (r *memberRepository) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE LOWER(email) = LOWER($1)`
	m, err := scanMember(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, notFound(err, "member")
	}
	return m, nil
}

func (r *memberRepository) Update(ctx context.Context, m *domain.Member) error {
	logger.EnterMethod("memberRepository.Update", "memberID", m.ID)

	query := `UPDATE members SET profile_type=$1, first_name=$2, last_name=$3, email=$4, phone=$5, birth_date=$6,
	          city=$7, country=$8, skills=$9, interests=$10, availability=$11, pref_email=$12, pref_sms=$13,
	          pref_push=$14, pref_in_app=$15, participation_score=$16, push_tokens=$17, updated_on=$18 WHERE id=$19`
	m.UpdatedOn = time.Now().UTC()
	prefs := m.CommunicationPreferences

	logger.DatabaseCall("UPDATE", "members", "memberID", m.ID)
	result, err := r.db.ExecContext(ctx, query, m.ProfileType, m.FirstName, m.LastName, m.Email, m.Phone, m.BirthDate,
		m.City, m.Country, pq.Array(m.Skills), pq.Array(m.Interests), pq.Array(m.Availability),
		prefs.Email, prefs.SMS, prefs.Push, prefs.InApp, m.ParticipationScore, pq.Array(m.PushTokens), m.UpdatedOn, m.ID)
	if err == nil {
		err = requireOneRow(result, "member")
	}
	logger.DatabaseResult("UPDATE", 1, err, "memberID", m.ID)

	if err != nil {
		logger.ExitMethodWithError("memberRepository.Update", err, "memberID", m.ID)
		return uniqueViolation(err, "member email")
	}
	logger.ExitMethod("memberRepository.Update", "memberID", m.ID)
	return nil
}

func (r *memberRepository) Delete(ctx context.Context, id int32) error {
	logger.DatabaseCall("DELETE", "members", "memberID", id)
	result, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err == nil {
		err = requireOneRow(result, "member")
	}
	logger.DatabaseResult("DELETE", 1, err, "memberID", id)
	return err
}

func (r *memberRepository) List(ctx context.Context, limit, offset int32) ([]domain.Member, int32, error) {
	query := `SELECT ` + memberColumns + ` FROM members ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	members, err := scanMembers(rows)
	if err != nil {
		return nil, 0, err
	}

	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM members`).Scan(&count); err != nil {
		return nil, 0, err
	}
	return members, count, nil
}

func (r *memberRepository) ListAll(ctx context.Context) ([]domain.Member, error) {
	logger.DatabaseCall("SELECT", "members")
	rows, err := r.db.QueryContext(ctx, `SELECT `+memberColumns+` FROM members ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return scanMembers(rows)
}

func (r *memberRepository) ListRegisteredBetween(ctx context.Context, from, to time.Time) ([]domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE registered_on >= $1 AND registered_on < $2 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	return scanMembers(rows)
}

func (r *memberRepository) UpdatePreferences(ctx context.Context, id int32, prefs domain.CommunicationPreferences) error {
	logger.DatabaseCall("UPDATE", "members", "memberID", id, "preferences", prefs)
	query := `UPDATE members SET pref_email=$1, pref_sms=$2, pref_push=$3, pref_in_app=$4, updated_on=$5 WHERE id=$6`
	result, err := r.db.ExecContext(ctx, query, prefs.Email, prefs.SMS, prefs.Push, prefs.InApp, time.Now().UTC(), id)
	if err == nil {
		err = requireOneRow(result, "member")
	}
	logger.DatabaseResult("UPDATE", 1, err, "memberID", id)
	return err
}
