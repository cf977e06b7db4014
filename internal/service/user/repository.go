package user

import (
	"context"

	"github.com/ignite/pulse-bot/internal/domain"
)

// Repository defines the data access contract for workspace users.
// Implementations must be safe for concurrent use.
type Repository interface {
	// GetBySlackID returns a user by Slack id. Returns ErrNotFound if it
	// doesn't exist.
	GetBySlackID(ctx context.Context, slackID string) (*domain.User, error)

	// ListActive returns all non-deleted users.
	ListActive(ctx context.Context) ([]domain.User, error)

	// Upsert inserts or updates a user keyed by Slack id. The admin flag
	// is preserved on update unless SetAdmin is used.
	Upsert(ctx context.Context, u *domain.User) error

	// SetAdmin updates the admin flag. Returns ErrNotFound if the user
	// doesn't exist.
	SetAdmin(ctx context.Context, slackID string, isAdmin bool) error
}
