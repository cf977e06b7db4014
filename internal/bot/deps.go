// Package bot implements the Slack-facing surface: slash commands, Block
// Kit interactions, and modal submissions, delivered over Socket Mode.
//
// Handlers are plain functions taking a shared *Deps. Admin checks are an
// explicit guard call at the top of each restricted handler, so a reader
// can see the access rule in the handler itself.
package bot

import (
	"context"

	"github.com/slack-go/slack"

	"github.com/ignite/pulse-bot/internal/domain"
	"github.com/ignite/pulse-bot/internal/pkg/logger"
	"github.com/ignite/pulse-bot/internal/service/survey"
)

// SurveyService is the slice of the survey service the handlers need.
type SurveyService interface {
	Create(ctx context.Context, input survey.CreateInput) (*domain.Survey, error)
	Get(ctx context.Context, id int64) (*domain.Survey, error)
	List(ctx context.Context) ([]domain.Survey, error)
	Close(ctx context.Context, id int64) (*domain.Survey, error)
	UpdateModerationLists(ctx context.Context, id int64, include, exclude []int64) (*domain.Survey, error)
	Submit(ctx context.Context, surveyID int64, responderSlackID, responderName, answer string) (*survey.SubmitResult, error)
}

// AudienceService is the slice of the audience service the handlers need.
type AudienceService interface {
	List(ctx context.Context) ([]domain.AudienceList, error)
	GetByName(ctx context.Context, name string) (*domain.AudienceList, error)
	Create(ctx context.Context, name, description string) (*domain.AudienceList, error)
	Delete(ctx context.Context, id int64) error
	Members(ctx context.Context, listID int64) ([]domain.ListMember, error)
	AddMember(ctx context.Context, listID int64, slackID, userName string) error
	RemoveMember(ctx context.Context, listID int64, slackID string) error
}

// UserService is the slice of the user service the handlers need.
type UserService interface {
	IsAdmin(ctx context.Context, slackID string) (bool, error)
	GreetingName(ctx context.Context, slackID string) string
}

// LedgerService reports outstanding recipients.
type LedgerService interface {
	Unanswered(ctx context.Context, surveyID int64) (map[string]string, error)
}

// Delivery triggers an immediate delivery pass for one survey.
type Delivery interface {
	SendImmediate(ctx context.Context, surveyID int64) (int, error)
}

// RosterRefresher re-mirrors the workspace roster on demand.
type RosterRefresher interface {
	Sync(ctx context.Context) (int, error)
}

// SlackGateway is the slice of the Slack client the handlers need for
// replies and modals.
type SlackGateway interface {
	PostEphemeralContext(ctx context.Context, channelID, userID string, options ...slack.MsgOption) (string, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	OpenViewContext(ctx context.Context, triggerID string, view slack.ModalViewRequest) (*slack.ViewResponse, error)
}

// Deps bundles everything a handler can reach.
type Deps struct {
	Client   SlackGateway
	Surveys  SurveyService
	Audience AudienceService
	Users    UserService
	Ledger   LedgerService
	Engine   Delivery
	Roster   RosterRefresher
}

// requireAdmin checks the caller's admin flag and tells them off via an
// ephemeral message when they lack it. Returns true when the caller may
// proceed.
func requireAdmin(ctx context.Context, d *Deps, channelID, userID string) bool {
	ok, err := d.Users.IsAdmin(ctx, userID)
	if err != nil {
		logger.Error("admin check failed", "user", userID, "error", err.Error())
		return false
	}
	if !ok {
		d.ephemeral(ctx, channelID, userID, "Sorry, this command is for survey admins only.")
		return false
	}
	return true
}

// ephemeral sends a short ephemeral text reply, logging delivery failures.
func (d *Deps) ephemeral(ctx context.Context, channelID, userID, text string) {
	if _, err := d.Client.PostEphemeralContext(ctx, channelID, userID,
		slack.MsgOptionText(text, false)); err != nil {
		logger.Warn("ephemeral reply failed",
			"channel", channelID, "user", userID, "error", err.Error())
	}
}
