package survey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/pulse-bot/internal/domain"
)

// Service implements survey lifecycle and response intake business logic.
// All public methods are safe for concurrent use if the underlying
// repository is concurrency-safe.
type Service struct {
	repo Repository
}

// NewService creates a survey service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput holds the fields for creating a new survey.
type CreateInput struct {
	Name             string
	Question         string
	OwnerSlackID     string
	OwnerName        string
	ReminderInterval time.Duration
}

// Create validates and persists a new survey in active state with zeroed
// reminder counters.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Survey, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("survey name is required")
	}
	if strings.TrimSpace(input.Question) == "" {
		return nil, fmt.Errorf("survey question is required")
	}
	if input.OwnerSlackID == "" {
		return nil, fmt.Errorf("survey owner is required")
	}
	if input.ReminderInterval < 0 {
		return nil, fmt.Errorf("reminder interval must not be negative")
	}

	sv := &domain.Survey{
		Name:             strings.TrimSpace(input.Name),
		Question:         strings.TrimSpace(input.Question),
		OwnerSlackID:     input.OwnerSlackID,
		OwnerName:        input.OwnerName,
		IsActive:         true,
		ReminderInterval: input.ReminderInterval,
		CreatedAt:        time.Now().UTC(),
	}

	id, err := s.repo.Create(ctx, sv)
	if err != nil {
		return nil, err
	}
	sv.ID = id
	return sv, nil
}

// Get returns a single survey.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Survey, error) {
	return s.repo.Get(ctx, id)
}

// List returns all surveys.
func (s *Service) List(ctx context.Context) ([]domain.Survey, error) {
	return s.repo.List(ctx)
}

// ListActive returns all active surveys.
func (s *Service) ListActive(ctx context.Context) ([]domain.Survey, error) {
	return s.repo.ListActive(ctx)
}

// ListDue returns active surveys with reminders enabled whose interval has
// elapsed since the last reminder (or creation, for never-reminded surveys).
func (s *Service) ListDue(ctx context.Context, now time.Time) ([]domain.Survey, error) {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	var due []domain.Survey
	for _, sv := range active {
		if sv.ReminderDue(now) {
			due = append(due, sv)
		}
	}
	return due, nil
}

// UpdateModerationLists replaces the survey's include/exclude audience
// references. Allowed only while the survey is active. No resend is
// triggered by this call; the next reminder pass picks up the new audience.
func (s *Service) UpdateModerationLists(ctx context.Context, id int64, include, exclude []int64) (*domain.Survey, error) {
	sv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sv.IsActive {
		return nil, ErrSurveyClosed
	}
	if err := s.repo.UpdateModerationLists(ctx, id, include, exclude); err != nil {
		return nil, err
	}
	sv.IncludeListIDs = include
	sv.ExcludeListIDs = exclude
	return sv, nil
}

// Close transitions the survey from active to closed. The transition is
// irreversible; closing an already-closed survey returns ErrSurveyClosed.
func (s *Service) Close(ctx context.Context, id int64) (*domain.Survey, error) {
	sv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sv.IsActive {
		return nil, ErrSurveyClosed
	}
	if err := s.repo.Close(ctx, id); err != nil {
		return nil, err
	}
	sv.IsActive = false
	return sv, nil
}

// AdvanceReminderStatus moves last_reminder_at to the given instant and
// bumps the reminders_sent counter. Called by the reminder engine after a
// pass that actually sent at least one message.
func (s *Service) AdvanceReminderStatus(ctx context.Context, id int64, at time.Time) error {
	return s.repo.AdvanceReminderStatus(ctx, id, at)
}

// SubmitResult is the outcome of a response submission.
type SubmitResult struct {
	Response *domain.Response
	// Created is false when the responder had already answered and the
	// existing response was returned instead.
	Created bool
}

// Submit validates and records a single response. Submitting twice is safe:
// the second call returns the existing response with Created=false rather
// than an error, so UI double-clicks never surface a failure.
func (s *Service) Submit(ctx context.Context, surveyID int64, responderSlackID, responderName, answer string) (*SubmitResult, error) {
	if strings.TrimSpace(answer) == "" {
		return nil, ErrEmptyAnswer
	}
	if responderSlackID == "" {
		return nil, fmt.Errorf("responder slack id is required")
	}

	sv, err := s.repo.Get(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if !sv.IsActive {
		return nil, ErrSurveyClosed
	}

	if existing, err := s.repo.GetResponse(ctx, surveyID, responderSlackID); err == nil {
		return &SubmitResult{Response: existing, Created: false}, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	r := &domain.Response{
		SurveyID:         surveyID,
		ResponderSlackID: responderSlackID,
		ResponderName:    responderName,
		Answer:           answer,
		CreatedAt:        time.Now().UTC(),
	}
	id, err := s.repo.InsertResponse(ctx, r)
	if errors.Is(err, ErrDuplicateResponse) {
		// Lost a race with a concurrent submit from the same responder;
		// the winner's row is the answer of record.
		existing, getErr := s.repo.GetResponse(ctx, surveyID, responderSlackID)
		if getErr != nil {
			return nil, getErr
		}
		return &SubmitResult{Response: existing, Created: false}, nil
	}
	if err != nil {
		return nil, err
	}
	r.ID = id
	return &SubmitResult{Response: r, Created: true}, nil
}

// HasResponded reports whether the responder already answered the survey.
func (s *Service) HasResponded(ctx context.Context, surveyID int64, responderSlackID string) (bool, error) {
	_, err := s.repo.GetResponse(ctx, surveyID, responderSlackID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Responses returns all responses for a survey.
func (s *Service) Responses(ctx context.Context, surveyID int64) ([]domain.Response, error) {
	return s.repo.Responses(ctx, surveyID)
}
