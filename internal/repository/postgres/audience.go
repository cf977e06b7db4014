package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/ignite/pulse-bot/internal/domain"
	"github.com/ignite/pulse-bot/internal/service/audience"
)

// AudienceRepo implements audience.Repository against PostgreSQL.
type AudienceRepo struct{ db *sql.DB }

// NewAudienceRepo creates a Postgres-backed audience list repository.
func NewAudienceRepo(db *sql.DB) *AudienceRepo { return &AudienceRepo{db: db} }

func (r *AudienceRepo) Get(ctx context.Context, id int64) (*domain.AudienceList, error) {
	l := &domain.AudienceList{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description FROM audience_lists WHERE id = $1`, id,
	).Scan(&l.ID, &l.Name, &l.Description)
	if err == sql.ErrNoRows {
		return nil, audience.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get audience list: %w", err)
	}
	return l, nil
}

func (r *AudienceRepo) GetByName(ctx context.Context, name string) (*domain.AudienceList, error) {
	l := &domain.AudienceList{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description FROM audience_lists WHERE name = $1`, name,
	).Scan(&l.ID, &l.Name, &l.Description)
	if err == sql.ErrNoRows {
		return nil, audience.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get audience list by name: %w", err)
	}
	return l, nil
}

func (r *AudienceRepo) List(ctx context.Context) ([]domain.AudienceList, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description FROM audience_lists ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list audience lists: %w", err)
	}
	defer rows.Close()

	var out []domain.AudienceList
	for rows.Next() {
		var l domain.AudienceList
		if err := rows.Scan(&l.ID, &l.Name, &l.Description); err != nil {
			return nil, fmt.Errorf("scan audience list: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *AudienceRepo) Create(ctx context.Context, l *domain.AudienceList) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO audience_lists (name, description) VALUES ($1, $2) RETURNING id
	`, l.Name, l.Description).Scan(&id)
	if isUniqueViolation(err) {
		return 0, audience.ErrDuplicateName
	}
	if err != nil {
		return 0, fmt.Errorf("create audience list: %w", err)
	}
	return id, nil
}

func (r *AudienceRepo) Delete(ctx context.Context, id int64) error {
	// Members go with the list via ON DELETE CASCADE.
	res, err := r.db.ExecContext(ctx, `DELETE FROM audience_lists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete audience list: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return audience.ErrNotFound
	}
	return nil
}

func (r *AudienceRepo) MemberSlackIDs(ctx context.Context, listID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT slack_id FROM audience_list_members WHERE list_id = $1`, listID)
	if err != nil {
		return nil, fmt.Errorf("list member ids: %w", err)
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

func (r *AudienceRepo) Members(ctx context.Context, listID int64) ([]domain.ListMember, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT list_id, slack_id, user_name
		FROM audience_list_members
		WHERE list_id = $1
		ORDER BY user_name
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []domain.ListMember
	for rows.Next() {
		var m domain.ListMember
		if err := rows.Scan(&m.ListID, &m.SlackID, &m.UserName); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *AudienceRepo) AddMember(ctx context.Context, m *domain.ListMember) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audience_list_members (list_id, slack_id, user_name)
		VALUES ($1, $2, $3)
	`, m.ListID, m.SlackID, m.UserName)
	if isUniqueViolation(err) {
		return audience.ErrDuplicateMember
	}
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (r *AudienceRepo) RemoveMember(ctx context.Context, listID int64, slackID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM audience_list_members WHERE list_id = $1 AND slack_id = $2`,
		listID, slackID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return audience.ErrNotFound
	}
	return nil
}

// ReplaceMembers swaps the full membership in one transaction so the roster
// sync never leaves the "all" list half-updated.
func (r *AudienceRepo) ReplaceMembers(ctx context.Context, listID int64, members []domain.ListMember) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace members: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM audience_list_members WHERE list_id = $1`, listID); err != nil {
		return fmt.Errorf("clear members: %w", err)
	}
	for _, m := range members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO audience_list_members (list_id, slack_id, user_name)
			VALUES ($1, $2, $3)
			ON CONFLICT (list_id, slack_id) DO UPDATE SET user_name = EXCLUDED.user_name
		`, listID, m.SlackID, m.UserName); err != nil {
			return fmt.Errorf("insert member %s: %w", m.SlackID, err)
		}
	}
	return tx.Commit()
}

func (r *AudienceRepo) ReferencedBySurvey(ctx context.Context, listID int64) (bool, error) {
	idText := strconv.FormatInt(listID, 10)
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM surveys
			WHERE $1 = ANY(string_to_array(include_list_ids, ','))
			   OR $1 = ANY(string_to_array(exclude_list_ids, ','))
		)
	`, idText).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check list references: %w", err)
	}
	return exists, nil
}
