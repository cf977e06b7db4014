package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/pulse-bot/internal/domain"
	"github.com/ignite/pulse-bot/internal/service/ledger"
)

// memRepo is an in-memory ledger repository for unit testing.
type memRepo struct {
	mu        sync.Mutex
	sent      map[int64]map[string]domain.SentRecord // surveyID → receiver → record
	responded map[int64][]string
}

func newMemRepo() *memRepo {
	return &memRepo{
		sent:      make(map[int64]map[string]domain.SentRecord),
		responded: make(map[int64][]string),
	}
}

func (m *memRepo) InsertSent(_ context.Context, rec *domain.SentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byReceiver, ok := m.sent[rec.SurveyID]
	if !ok {
		byReceiver = make(map[string]domain.SentRecord)
		m.sent[rec.SurveyID] = byReceiver
	}
	if _, exists := byReceiver[rec.ReceiverSlackID]; exists {
		return ledger.ErrDuplicateSend
	}
	byReceiver[rec.ReceiverSlackID] = *rec
	return nil
}

func (m *memRepo) SentMessages(_ context.Context, surveyID int64) ([]domain.SentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SentRecord
	for _, rec := range m.sent[surveyID] {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memRepo) RespondedSlackIDs(_ context.Context, surveyID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.responded[surveyID]...), nil
}

func (m *memRepo) DeleteSent(_ context.Context, surveyID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.sent[surveyID]))
	delete(m.sent, surveyID)
	return n, nil
}

func TestRecordSentAndGetSent(t *testing.T) {
	svc := ledger.NewService(newMemRepo())
	ctx := context.Background()

	require.NoError(t, svc.RecordSent(ctx, 1, "u1", "111.222"))
	require.NoError(t, svc.RecordSent(ctx, 1, "u2", "111.333"))

	sent, err := svc.GetSent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"u1": "111.222", "u2": "111.333"}, sent)
}

func TestRecordSentDuplicate(t *testing.T) {
	svc := ledger.NewService(newMemRepo())
	ctx := context.Background()

	require.NoError(t, svc.RecordSent(ctx, 1, "u1", "111.222"))
	err := svc.RecordSent(ctx, 1, "u1", "999.999")
	assert.ErrorIs(t, err, ledger.ErrDuplicateSend)

	// The original record survives the losing write.
	sent, err := svc.GetSent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "111.222", sent["u1"])
}

func TestRecordSentValidation(t *testing.T) {
	svc := ledger.NewService(newMemRepo())
	assert.Error(t, svc.RecordSent(context.Background(), 1, "", "ts"))
	assert.Error(t, svc.RecordSent(context.Background(), 1, "u1", ""))
}

func TestUnansweredDerived(t *testing.T) {
	repo := newMemRepo()
	svc := ledger.NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.RecordSent(ctx, 1, "u1", "a"))
	require.NoError(t, svc.RecordSent(ctx, 1, "u2", "b"))
	require.NoError(t, svc.RecordSent(ctx, 1, "u3", "c"))

	repo.responded[1] = []string{"u2"}

	unanswered, err := svc.Unanswered(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"u1": "a", "u3": "c"}, unanswered)

	// Unanswered shrinks monotonically as responses accumulate.
	repo.responded[1] = []string{"u2", "u1"}
	unanswered, err = svc.Unanswered(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"u3": "c"}, unanswered)
}

func TestUnansweredScopedPerSurvey(t *testing.T) {
	repo := newMemRepo()
	svc := ledger.NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.RecordSent(ctx, 1, "u1", "a"))
	require.NoError(t, svc.RecordSent(ctx, 2, "u1", "z"))
	repo.responded[1] = []string{"u1"}

	un1, err := svc.Unanswered(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, un1)

	un2, err := svc.Unanswered(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, un2, 1)
}

func TestCleanup(t *testing.T) {
	svc := ledger.NewService(newMemRepo())
	ctx := context.Background()

	require.NoError(t, svc.RecordSent(ctx, 1, "u1", "a"))
	require.NoError(t, svc.RecordSent(ctx, 1, "u2", "b"))

	n, err := svc.Cleanup(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	sent, err := svc.GetSent(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, sent)
}
