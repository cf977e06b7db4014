package ledger

import (
	"context"

	"github.com/ignite/pulse-bot/internal/domain"
)

// Repository defines the data access contract for the delivery ledger.
// Implementations must be safe for concurrent use.
type Repository interface {
	// InsertSent records the initial send to one recipient. Returns
	// ErrDuplicateSend if a record already exists for the pair.
	InsertSent(ctx context.Context, rec *domain.SentRecord) error

	// SentMessages returns all sent records for a survey.
	SentMessages(ctx context.Context, surveyID int64) ([]domain.SentRecord, error)

	// RespondedSlackIDs returns the Slack ids of everyone who has
	// submitted a response to the survey.
	RespondedSlackIDs(ctx context.Context, surveyID int64) ([]string, error)

	// DeleteSent removes all sent records for a survey. Best-effort
	// cleanup when a survey is closed and its threads torn down.
	DeleteSent(ctx context.Context, surveyID int64) (int64, error)
}
