package messenger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/pulse-bot/internal/domain"
	"github.com/ignite/pulse-bot/internal/message"
)

type fakeSlack struct {
	channels []string
	threaded bool
	err      error
	nextTS   string
}

func (f *fakeSlack) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	f.channels = append(f.channels, channelID)
	// Applying the options against a dummy endpoint lets us see whether a
	// thread_ts was set without a live API.
	_, values, _ := slack.UnsafeApplyMsgOptions("tok", channelID, "https://slack.test/api/", options...)
	f.threaded = values.Get("thread_ts") != ""
	return channelID, f.nextTS, nil
}

func testSurvey() *domain.Survey {
	return &domain.Survey{
		ID:       42,
		Name:     "Office check-in",
		Question: "Where are you working from?",
		IsActive: true,
	}
}

func TestSendSurveyReturnsTimestamp(t *testing.T) {
	fake := &fakeSlack{nextTS: "1700000000.000100"}
	m := New(fake, message.NewRenderer(), time.Second)

	ts, err := m.SendSurvey(context.Background(), "U1", "Riley", testSurvey())
	require.NoError(t, err)
	assert.Equal(t, "1700000000.000100", ts)
	assert.Equal(t, []string{"U1"}, fake.channels)
	assert.False(t, fake.threaded)
}

func TestSendSurveyPropagatesError(t *testing.T) {
	fake := &fakeSlack{err: errors.New("channel_not_found")}
	m := New(fake, message.NewRenderer(), time.Second)

	_, err := m.SendSurvey(context.Background(), "U1", "Riley", testSurvey())
	assert.Error(t, err)
}

func TestSendReminderThreadsOnOriginal(t *testing.T) {
	fake := &fakeSlack{nextTS: "1700000001.000200"}
	m := New(fake, message.NewRenderer(), time.Second)

	err := m.SendReminder(context.Background(), "U1", "1700000000.000100", testSurvey(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"U1"}, fake.channels)
	assert.True(t, fake.threaded)
}

func TestSurveyBlocksCarrySurveyID(t *testing.T) {
	blocks := surveyBlocks("hi", "question", 42)
	require.Len(t, blocks, 4)

	actions, ok := blocks[3].(*slack.ActionBlock)
	require.True(t, ok)
	btn, ok := actions.Elements.ElementSet[0].(*slack.ButtonBlockElement)
	require.True(t, ok)
	assert.Equal(t, SubmitActionID, btn.ActionID)
	assert.Equal(t, "42", btn.Value)
}
