package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/pulse-bot/internal/domain"
)

// Service implements user directory business logic.
type Service struct {
	repo Repository
}

// NewService creates a user service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a user by Slack id.
func (s *Service) Get(ctx context.Context, slackID string) (*domain.User, error) {
	return s.repo.GetBySlackID(ctx, slackID)
}

// ListActive returns all non-deleted users.
func (s *Service) ListActive(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListActive(ctx)
}

// Upsert inserts or updates a user record from the roster sync.
func (s *Service) Upsert(ctx context.Context, u *domain.User) error {
	if u.SlackID == "" {
		return fmt.Errorf("slack id is required")
	}
	return s.repo.Upsert(ctx, u)
}

// IsAdmin reports whether the user may run survey-management commands.
// Unknown users are not admins.
func (s *Service) IsAdmin(ctx context.Context, slackID string) (bool, error) {
	u, err := s.repo.GetBySlackID(ctx, slackID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.IsAdmin, nil
}

// EnsureAdmin bootstraps the configured first admin. If the user row does
// not exist yet (roster sync hasn't run), a minimal row is created so the
// operator can issue commands immediately after first start.
func (s *Service) EnsureAdmin(ctx context.Context, slackID string) error {
	if slackID == "" {
		return nil
	}
	err := s.repo.SetAdmin(ctx, slackID, true)
	if errors.Is(err, ErrNotFound) {
		return s.repo.Upsert(ctx, &domain.User{SlackID: slackID, IsAdmin: true})
	}
	return err
}

// GreetingName returns the display name used when addressing the user in a
// DM, falling back to a neutral greeting for unknown users.
func (s *Service) GreetingName(ctx context.Context, slackID string) string {
	u, err := s.repo.GetBySlackID(ctx, slackID)
	if err != nil {
		return "there"
	}
	return u.GreetingName()
}
