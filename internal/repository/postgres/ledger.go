package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/pulse-bot/internal/domain"
	"github.com/ignite/pulse-bot/internal/service/ledger"
)

// LedgerRepo implements ledger.Repository against PostgreSQL.
type LedgerRepo struct{ db *sql.DB }

// NewLedgerRepo creates a Postgres-backed delivery ledger repository.
func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

func (r *LedgerRepo) InsertSent(ctx context.Context, rec *domain.SentRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO survey_sent_messages (survey_id, receiver_slack_id, message_ts, sent_at)
		VALUES ($1, $2, $3, $4)
	`, rec.SurveyID, rec.ReceiverSlackID, rec.MessageTS, rec.SentAt)
	if isUniqueViolation(err) {
		return ledger.ErrDuplicateSend
	}
	if err != nil {
		return fmt.Errorf("insert sent record: %w", err)
	}
	return nil
}

func (r *LedgerRepo) SentMessages(ctx context.Context, surveyID int64) ([]domain.SentRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT survey_id, receiver_slack_id, message_ts, sent_at
		FROM survey_sent_messages
		WHERE survey_id = $1
	`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("list sent records: %w", err)
	}
	defer rows.Close()

	var out []domain.SentRecord
	for rows.Next() {
		var rec domain.SentRecord
		if err := rows.Scan(&rec.SurveyID, &rec.ReceiverSlackID, &rec.MessageTS, &rec.SentAt); err != nil {
			return nil, fmt.Errorf("scan sent record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *LedgerRepo) RespondedSlackIDs(ctx context.Context, surveyID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT responder_slack_id FROM survey_responses WHERE survey_id = $1`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("list responded: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *LedgerRepo) DeleteSent(ctx context.Context, surveyID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM survey_sent_messages WHERE survey_id = $1`, surveyID)
	if err != nil {
		return 0, fmt.Errorf("delete sent records: %w", err)
	}
	return res.RowsAffected()
}
