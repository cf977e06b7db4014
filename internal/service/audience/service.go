package audience

import (
	"context"
	"fmt"
	"strings"

	"github.com/ignite/pulse-bot/internal/domain"
)

// Service implements audience list business logic. All public methods are
// safe for concurrent use if the underlying repository is concurrency-safe.
type Service struct {
	repo Repository
}

// NewService creates an audience service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a single audience list.
func (s *Service) Get(ctx context.Context, id int64) (*domain.AudienceList, error) {
	return s.repo.Get(ctx, id)
}

// GetByName returns a list by its unique name.
func (s *Service) GetByName(ctx context.Context, name string) (*domain.AudienceList, error) {
	return s.repo.GetByName(ctx, strings.TrimSpace(name))
}

// List returns all audience lists.
func (s *Service) List(ctx context.Context) ([]domain.AudienceList, error) {
	return s.repo.List(ctx)
}

// Create validates and persists a new audience list.
func (s *Service) Create(ctx context.Context, name, description string) (*domain.AudienceList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("list name is required")
	}

	l := &domain.AudienceList{Name: name, Description: strings.TrimSpace(description)}
	id, err := s.repo.Create(ctx, l)
	if err != nil {
		return nil, err
	}
	l.ID = id
	return l, nil
}

// Delete removes a list. A list that is still referenced by any survey's
// include or exclude set cannot be deleted; callers must detach it from the
// survey first. This closes the dangling-reference gap instead of letting
// the resolver silently skip a vanished list.
func (s *Service) Delete(ctx context.Context, id int64) error {
	inUse, err := s.repo.ReferencedBySurvey(ctx, id)
	if err != nil {
		return fmt.Errorf("check list references: %w", err)
	}
	if inUse {
		return ErrListInUse
	}
	return s.repo.Delete(ctx, id)
}

// Members returns the full member rows of a list.
func (s *Service) Members(ctx context.Context, listID int64) ([]domain.ListMember, error) {
	return s.repo.Members(ctx, listID)
}

// AddMember adds a workspace user to a list. Membership is unique per
// (list, user); a duplicate add returns ErrDuplicateMember.
func (s *Service) AddMember(ctx context.Context, listID int64, slackID, userName string) error {
	slackID = strings.TrimSpace(slackID)
	if slackID == "" {
		return fmt.Errorf("slack id is required")
	}
	return s.repo.AddMember(ctx, &domain.ListMember{
		ListID:   listID,
		SlackID:  slackID,
		UserName: userName,
	})
}

// RemoveMember removes a user from a list.
func (s *Service) RemoveMember(ctx context.Context, listID int64, slackID string) error {
	return s.repo.RemoveMember(ctx, listID, slackID)
}

// ReplaceMembers swaps the entire membership of a list in one transaction.
func (s *Service) ReplaceMembers(ctx context.Context, listID int64, members []domain.ListMember) error {
	return s.repo.ReplaceMembers(ctx, listID, members)
}

// Resolve computes the concrete recipient set for a survey: the union of
// the include lists' members minus the union of the exclude lists' members.
// Exclusion always wins over inclusion regardless of list ordering. An empty
// include set yields an empty target, not "everyone". List ids that no
// longer resolve contribute no members; lists can be deleted out of band
// and the resolver stays best-effort.
func (s *Service) Resolve(ctx context.Context, survey *domain.Survey) (map[string]struct{}, error) {
	target := make(map[string]struct{})

	for _, listID := range survey.IncludeListIDs {
		ids, err := s.repo.MemberSlackIDs(ctx, listID)
		if err != nil {
			return nil, fmt.Errorf("resolve include list %d: %w", listID, err)
		}
		for _, id := range ids {
			target[id] = struct{}{}
		}
	}

	for _, listID := range survey.ExcludeListIDs {
		ids, err := s.repo.MemberSlackIDs(ctx, listID)
		if err != nil {
			return nil, fmt.Errorf("resolve exclude list %d: %w", listID, err)
		}
		for _, id := range ids {
			delete(target, id)
		}
	}

	return target, nil
}
