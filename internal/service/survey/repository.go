package survey

import (
	"context"
	"time"

	"github.com/ignite/pulse-bot/internal/domain"
)

// Repository defines the data access contract for surveys and responses.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single survey. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id int64) (*domain.Survey, error)

	// List returns all surveys ordered by created_at DESC.
	List(ctx context.Context) ([]domain.Survey, error)

	// ListActive returns all active surveys.
	ListActive(ctx context.Context) ([]domain.Survey, error)

	// Create inserts a new survey and returns its ID.
	Create(ctx context.Context, s *domain.Survey) (int64, error)

	// UpdateModerationLists replaces the survey's include/exclude list
	// references. Returns ErrNotFound if the survey doesn't exist.
	UpdateModerationLists(ctx context.Context, id int64, include, exclude []int64) error

	// Close sets is_active to false. Returns ErrNotFound if the survey
	// doesn't exist.
	Close(ctx context.Context, id int64) error

	// AdvanceReminderStatus sets last_reminder_at and increments the
	// reminders_sent counter in one statement. The counter only moves
	// forward; the timestamp only moves forward in time.
	AdvanceReminderStatus(ctx context.Context, id int64, at time.Time) error

	// InsertResponse inserts a response row. Returns ErrDuplicateResponse
	// if the (survey, responder) pair already has one.
	InsertResponse(ctx context.Context, r *domain.Response) (int64, error)

	// GetResponse returns the responder's response to a survey, or
	// ErrNotFound if none exists.
	GetResponse(ctx context.Context, surveyID int64, responderSlackID string) (*domain.Response, error)

	// Responses returns all responses for a survey ordered by created_at.
	Responses(ctx context.Context, surveyID int64) ([]domain.Response, error)
}
