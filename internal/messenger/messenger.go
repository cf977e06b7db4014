// Package messenger delivers survey prompts and reminders over the Slack
// Web API. It owns the Block Kit layout of the survey DM so the reminder
// engine and the command handlers never touch Slack message structure
// directly.
package messenger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/slack-go/slack"

	"github.com/ignite/pulse-bot/internal/domain"
	"github.com/ignite/pulse-bot/internal/message"
	"github.com/ignite/pulse-bot/internal/pkg/logger"
)

// Block and action identifiers for the survey DM. The interaction handlers
// match on these when a submit click arrives.
const (
	AnswerBlockID       = "survey_answer"
	AnswerInputActionID = "survey_answer_input"
	SubmitActionID      = "survey_submit_answer"
)

// SlackAPI is the slice of the Slack client the messenger needs.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Messenger sends survey messages to individual users via DM.
type Messenger struct {
	api         SlackAPI
	renderer    *message.Renderer
	sendTimeout time.Duration
}

// New creates a Messenger. sendTimeout bounds each individual Slack call;
// zero means 10 seconds.
func New(api SlackAPI, renderer *message.Renderer, sendTimeout time.Duration) *Messenger {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Messenger{api: api, renderer: renderer, sendTimeout: sendTimeout}
}

// SendSurvey DMs the survey prompt to one user and returns the Slack
// message timestamp of the posted message. The timestamp is what later
// reminders thread onto, so callers must persist it.
func (m *Messenger) SendSurvey(ctx context.Context, recipientSlackID, greetingName string, sv *domain.Survey) (string, error) {
	greeting, err := m.renderer.Greeting(greetingName, sv.Name)
	if err != nil {
		return "", err
	}
	prompt, err := m.renderer.Prompt(sv.Name, sv.Question)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, m.sendTimeout)
	defer cancel()

	_, ts, err := m.api.PostMessageContext(ctx, recipientSlackID,
		slack.MsgOptionText(greeting, false),
		slack.MsgOptionBlocks(surveyBlocks(greeting, prompt, sv.ID)...),
	)
	if err != nil {
		return "", fmt.Errorf("post survey message to %s: %w", recipientSlackID, err)
	}

	logger.Debug("survey message sent",
		"survey_id", sv.ID,
		"receiver", recipientSlackID,
		"message_ts", ts)
	return ts, nil
}

// SendReminder posts a reminder as a threaded reply under the user's
// original survey message. ordinal is the 1-based reminder pass number.
func (m *Messenger) SendReminder(ctx context.Context, recipientSlackID, threadTS string, sv *domain.Survey, ordinal int) error {
	body, err := m.renderer.Reminder(sv.Name, ordinal)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.sendTimeout)
	defer cancel()

	_, _, err = m.api.PostMessageContext(ctx, recipientSlackID,
		slack.MsgOptionText(body, false),
		slack.MsgOptionTS(threadTS),
	)
	if err != nil {
		return fmt.Errorf("post reminder to %s: %w", recipientSlackID, err)
	}

	logger.Debug("reminder sent",
		"survey_id", sv.ID,
		"receiver", recipientSlackID,
		"thread_ts", threadTS,
		"ordinal", ordinal)
	return nil
}

// surveyBlocks builds the DM layout: greeting, question, an answer input,
// and a submit button carrying the survey id in its value.
func surveyBlocks(greeting, prompt string, surveyID int64) []slack.Block {
	input := slack.NewPlainTextInputBlockElement(
		slack.NewTextBlockObject(slack.PlainTextType, "Type your answer", false, false),
		AnswerInputActionID,
	)
	input.Multiline = true

	inputBlock := slack.NewInputBlock(AnswerBlockID,
		slack.NewTextBlockObject(slack.PlainTextType, "Your answer", false, false),
		nil,
		input,
	)

	submit := slack.NewButtonBlockElement(SubmitActionID,
		strconv.FormatInt(surveyID, 10),
		slack.NewTextBlockObject(slack.PlainTextType, "Submit", false, false),
	)
	submit.Style = slack.StylePrimary

	return []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, greeting, false, false), nil, nil),
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, prompt, false, false), nil, nil),
		inputBlock,
		slack.NewActionBlock("survey_actions", submit),
	}
}
