package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/pulse-bot/internal/domain"
	"github.com/ignite/pulse-bot/internal/service/user"
)

// UserRepo implements user.Repository against PostgreSQL.
type UserRepo struct{ db *sql.DB }

// NewUserRepo creates a Postgres-backed user repository.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) GetBySlackID(ctx context.Context, slackID string) (*domain.User, error) {
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, slack_id, username, real_name, is_admin, is_deleted, updated_at
		FROM users WHERE slack_id = $1
	`, slackID).Scan(&u.ID, &u.SlackID, &u.Username, &u.RealName, &u.IsAdmin, &u.IsDeleted, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *UserRepo) ListActive(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, slack_id, username, real_name, is_admin, is_deleted, updated_at
		FROM users WHERE is_deleted = false ORDER BY username
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.SlackID, &u.Username, &u.RealName, &u.IsAdmin, &u.IsDeleted, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Upsert keyed by slack_id. The admin flag is deliberately left alone on
// update so a roster refresh never demotes an operator.
func (r *UserRepo) Upsert(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (slack_id, username, real_name, is_admin, is_deleted, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (slack_id) DO UPDATE SET
			username = EXCLUDED.username,
			real_name = EXCLUDED.real_name,
			is_deleted = EXCLUDED.is_deleted,
			updated_at = NOW()
	`, u.SlackID, u.Username, u.RealName, u.IsAdmin, u.IsDeleted)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *UserRepo) SetAdmin(ctx context.Context, slackID string, isAdmin bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_admin = $2, updated_at = NOW() WHERE slack_id = $1`,
		slackID, isAdmin)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}
