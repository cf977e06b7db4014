package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/pulse-bot/internal/domain"
)

// Service implements delivery ledger business logic. All public methods are
// safe for concurrent use if the underlying repository is concurrency-safe.
type Service struct {
	repo Repository
}

// NewService creates a ledger service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordSent records that a recipient received the initial survey message,
// keyed by the Slack message timestamp so reminders can thread onto it.
// Callers should compute "new recipients" before sending; a concurrent
// writer that loses the insert race gets ErrDuplicateSend and must treat it
// as success (the message exists, whoever sent it).
func (s *Service) RecordSent(ctx context.Context, surveyID int64, receiverSlackID, messageTS string) error {
	if receiverSlackID == "" || messageTS == "" {
		return fmt.Errorf("receiver and message ts are required")
	}
	return s.repo.InsertSent(ctx, &domain.SentRecord{
		SurveyID:        surveyID,
		ReceiverSlackID: receiverSlackID,
		MessageTS:       messageTS,
		SentAt:          time.Now().UTC(),
	})
}

// GetSent returns receiver → message timestamp for everyone who has been
// sent the survey's initial message.
func (s *Service) GetSent(ctx context.Context, surveyID int64) (map[string]string, error) {
	recs, err := s.repo.SentMessages(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(recs))
	for _, r := range recs {
		out[r.ReceiverSlackID] = r.MessageTS
	}
	return out, nil
}

// GetResponded returns the set of recipients who have submitted a response.
func (s *Service) GetResponded(ctx context.Context, surveyID int64) (map[string]struct{}, error) {
	ids, err := s.repo.RespondedSlackIDs(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// Unanswered computes sent − responded. This is the canonical "who still
// needs a nudge" set; it is derived on every call, never stored.
func (s *Service) Unanswered(ctx context.Context, surveyID int64) (map[string]string, error) {
	sent, err := s.GetSent(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	responded, err := s.GetResponded(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	for id := range responded {
		delete(sent, id)
	}
	return sent, nil
}

// Cleanup removes the survey's sent records. Called after a survey is
// closed; failure here is logged by the caller, not fatal.
func (s *Service) Cleanup(ctx context.Context, surveyID int64) (int64, error) {
	return s.repo.DeleteSent(ctx, surveyID)
}
