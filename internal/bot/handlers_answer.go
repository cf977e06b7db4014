package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/slack-go/slack"

	"github.com/ignite/pulse-bot/internal/messenger"
	"github.com/ignite/pulse-bot/internal/service/survey"
)

func registerAnswerHandlers(b *Bot) {
	b.Action(messenger.SubmitActionID, handleAnswerSubmit)
}

// handleAnswerSubmit processes the Submit click on a survey DM. The answer
// text comes out of the interaction payload's block state; the survey id
// rides in the button value. Any workspace member may answer, no admin
// guard here.
func handleAnswerSubmit(ctx context.Context, d *Deps, cb *slack.InteractionCallback, action *slack.BlockAction) error {
	surveyID, err := strconv.ParseInt(action.Value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse survey id %q: %w", action.Value, err)
	}

	var answer string
	if cb.BlockActionState != nil {
		answer = cb.BlockActionState.Values[messenger.AnswerBlockID][messenger.AnswerInputActionID].Value
	}

	responderName := cb.User.Name
	if responderName == "" {
		responderName = d.Users.GreetingName(ctx, cb.User.ID)
	}

	res, err := d.Surveys.Submit(ctx, surveyID, cb.User.ID, responderName, answer)
	switch {
	case errors.Is(err, survey.ErrEmptyAnswer):
		d.ephemeral(ctx, cb.Channel.ID, cb.User.ID,
			"Please type an answer before submitting.")
		return nil
	case errors.Is(err, survey.ErrSurveyClosed):
		d.ephemeral(ctx, cb.Channel.ID, cb.User.ID,
			"This survey has closed and no longer accepts answers.")
		return nil
	case errors.Is(err, survey.ErrNotFound):
		d.ephemeral(ctx, cb.Channel.ID, cb.User.ID,
			"This survey no longer exists.")
		return nil
	case err != nil:
		return err
	}

	if !res.Created {
		d.ephemeral(ctx, cb.Channel.ID, cb.User.ID,
			"You already answered this survey. Your original answer is kept.")
		return nil
	}

	// Confirm in the thread under the survey prompt so the user's record
	// of what they answered stays with the question.
	if _, _, err := d.Client.PostMessageContext(ctx, cb.Channel.ID,
		slack.MsgOptionText("Thanks! Your answer has been recorded. :white_check_mark:", false),
		slack.MsgOptionTS(cb.Message.Timestamp)); err != nil {
		return fmt.Errorf("confirm answer: %w", err)
	}
	return nil
}
