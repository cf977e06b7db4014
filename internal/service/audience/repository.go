package audience

import (
	"context"

	"github.com/ignite/pulse-bot/internal/domain"
)

// Repository defines the data access contract for audience lists.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single list. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id int64) (*domain.AudienceList, error)

	// GetByName returns a list by its unique name. Returns ErrNotFound if
	// it doesn't exist.
	GetByName(ctx context.Context, name string) (*domain.AudienceList, error)

	// List returns all audience lists ordered by name.
	List(ctx context.Context) ([]domain.AudienceList, error)

	// Create inserts a new list and returns its ID. Returns
	// ErrDuplicateName if the name is taken.
	Create(ctx context.Context, l *domain.AudienceList) (int64, error)

	// Delete removes a list and cascades to its members.
	// Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, id int64) error

	// MemberSlackIDs returns the Slack ids of the list's members.
	// An unknown list id yields an empty slice, not an error.
	MemberSlackIDs(ctx context.Context, listID int64) ([]string, error)

	// Members returns the full member rows of the list.
	Members(ctx context.Context, listID int64) ([]domain.ListMember, error)

	// AddMember inserts a membership row. Returns ErrDuplicateMember if
	// the user is already on the list.
	AddMember(ctx context.Context, m *domain.ListMember) error

	// RemoveMember deletes a membership row. Returns ErrNotFound if the
	// user is not on the list.
	RemoveMember(ctx context.Context, listID int64, slackID string) error

	// ReplaceMembers atomically replaces the list's membership with the
	// given members. Used by the roster sync to keep "all" current.
	ReplaceMembers(ctx context.Context, listID int64, members []domain.ListMember) error

	// ReferencedBySurvey reports whether any survey's include or exclude
	// references contain the given list id.
	ReferencedBySurvey(ctx context.Context, listID int64) (bool, error)
}
