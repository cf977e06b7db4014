package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/pulse-bot/internal/domain"
	"github.com/ignite/pulse-bot/internal/service/survey"
)

// SurveyRepo implements survey.Repository against PostgreSQL.
type SurveyRepo struct{ db *sql.DB }

// NewSurveyRepo creates a Postgres-backed survey repository.
func NewSurveyRepo(db *sql.DB) *SurveyRepo { return &SurveyRepo{db: db} }

const surveyColumns = `
	id, name, question, owner_slack_id, owner_name, is_active,
	include_list_ids, exclude_list_ids, reminder_interval_seconds,
	last_reminder_at, reminders_sent, created_at`

func scanSurvey(row interface{ Scan(...any) error }) (*domain.Survey, error) {
	s := &domain.Survey{}
	var include, exclude string
	var intervalSeconds int64
	var lastReminder sql.NullTime
	err := row.Scan(
		&s.ID, &s.Name, &s.Question, &s.OwnerSlackID, &s.OwnerName, &s.IsActive,
		&include, &exclude, &intervalSeconds,
		&lastReminder, &s.RemindersSent, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.IncludeListIDs = domain.DecodeListIDs(include)
	s.ExcludeListIDs = domain.DecodeListIDs(exclude)
	s.ReminderInterval = time.Duration(intervalSeconds) * time.Second
	if lastReminder.Valid {
		t := lastReminder.Time
		s.LastReminderAt = &t
	}
	return s, nil
}

func (r *SurveyRepo) Get(ctx context.Context, id int64) (*domain.Survey, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+surveyColumns+` FROM surveys WHERE id = $1`, id)
	s, err := scanSurvey(row)
	if err == sql.ErrNoRows {
		return nil, survey.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get survey: %w", err)
	}
	return s, nil
}

func (r *SurveyRepo) List(ctx context.Context) ([]domain.Survey, error) {
	return r.query(ctx, `SELECT `+surveyColumns+` FROM surveys ORDER BY created_at DESC`)
}

func (r *SurveyRepo) ListActive(ctx context.Context) ([]domain.Survey, error) {
	return r.query(ctx, `SELECT `+surveyColumns+` FROM surveys WHERE is_active = true ORDER BY created_at DESC`)
}

func (r *SurveyRepo) query(ctx context.Context, q string, args ...any) ([]domain.Survey, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	defer rows.Close()

	var out []domain.Survey
	for rows.Next() {
		s, err := scanSurvey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan survey: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *SurveyRepo) Create(ctx context.Context, s *domain.Survey) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO surveys
			(name, question, owner_slack_id, owner_name, is_active,
			 include_list_ids, exclude_list_ids, reminder_interval_seconds, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, s.Name, s.Question, s.OwnerSlackID, s.OwnerName, s.IsActive,
		domain.EncodeListIDs(s.IncludeListIDs), domain.EncodeListIDs(s.ExcludeListIDs),
		int64(s.ReminderInterval/time.Second), s.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create survey: %w", err)
	}
	return id, nil
}

func (r *SurveyRepo) UpdateModerationLists(ctx context.Context, id int64, include, exclude []int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE surveys SET include_list_ids = $2, exclude_list_ids = $3 WHERE id = $1`,
		id, domain.EncodeListIDs(include), domain.EncodeListIDs(exclude))
	if err != nil {
		return fmt.Errorf("update moderation lists: %w", err)
	}
	return surveyAffected(res)
}

func (r *SurveyRepo) Close(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE surveys SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("close survey: %w", err)
	}
	return surveyAffected(res)
}

// AdvanceReminderStatus bumps the reminder bookkeeping in one statement.
// GREATEST keeps last_reminder_at monotonic even if two engine instances
// race with slightly different clocks.
func (r *SurveyRepo) AdvanceReminderStatus(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE surveys
		SET last_reminder_at = GREATEST(COALESCE(last_reminder_at, 'epoch'::timestamptz), $2),
		    reminders_sent = reminders_sent + 1
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("advance reminder status: %w", err)
	}
	return surveyAffected(res)
}

func (r *SurveyRepo) InsertResponse(ctx context.Context, resp *domain.Response) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO survey_responses
			(survey_id, responder_slack_id, responder_name, answer, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, resp.SurveyID, resp.ResponderSlackID, resp.ResponderName, resp.Answer, resp.CreatedAt,
	).Scan(&id)
	if isUniqueViolation(err) {
		return 0, survey.ErrDuplicateResponse
	}
	if err != nil {
		return 0, fmt.Errorf("insert response: %w", err)
	}
	return id, nil
}

func (r *SurveyRepo) GetResponse(ctx context.Context, surveyID int64, responderSlackID string) (*domain.Response, error) {
	resp := &domain.Response{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, survey_id, responder_slack_id, responder_name, answer, created_at
		FROM survey_responses
		WHERE survey_id = $1 AND responder_slack_id = $2
	`, surveyID, responderSlackID).Scan(
		&resp.ID, &resp.SurveyID, &resp.ResponderSlackID, &resp.ResponderName,
		&resp.Answer, &resp.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, survey.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get response: %w", err)
	}
	return resp, nil
}

func (r *SurveyRepo) Responses(ctx context.Context, surveyID int64) ([]domain.Response, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, survey_id, responder_slack_id, responder_name, answer, created_at
		FROM survey_responses
		WHERE survey_id = $1
		ORDER BY created_at
	`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var out []domain.Response
	for rows.Next() {
		var resp domain.Response
		if err := rows.Scan(
			&resp.ID, &resp.SurveyID, &resp.ResponderSlackID, &resp.ResponderName,
			&resp.Answer, &resp.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		out = append(out, resp)
	}
	return out, rows.Err()
}

func surveyAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return survey.ErrNotFound
	}
	return nil
}
