package bot

import (
	"context"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/ignite/pulse-bot/internal/pkg/logger"
)

// CommandHandler handles one slash command.
type CommandHandler func(ctx context.Context, d *Deps, cmd slack.SlashCommand) error

// ActionHandler handles one Block Kit action (a button click or a select).
type ActionHandler func(ctx context.Context, d *Deps, cb *slack.InteractionCallback, action *slack.BlockAction) error

// ViewHandler handles one modal submission, keyed by the view callback id.
type ViewHandler func(ctx context.Context, d *Deps, cb *slack.InteractionCallback) error

// Bot routes Socket Mode events to registered handlers.
type Bot struct {
	sm       *socketmode.Client
	deps     *Deps
	commands map[string]CommandHandler
	actions  map[string]ActionHandler
	views    map[string]ViewHandler
}

// New creates a Bot with all handlers registered.
func New(sm *socketmode.Client, deps *Deps) *Bot {
	b := &Bot{
		sm:       sm,
		deps:     deps,
		commands: make(map[string]CommandHandler),
		actions:  make(map[string]ActionHandler),
		views:    make(map[string]ViewHandler),
	}
	registerSurveyHandlers(b)
	registerAnswerHandlers(b)
	registerUserHandlers(b)
	return b
}

// Command registers a slash command handler, e.g. "/survey_create".
func (b *Bot) Command(name string, h CommandHandler) { b.commands[name] = h }

// Action registers a block action handler by action id.
func (b *Bot) Action(actionID string, h ActionHandler) { b.actions[actionID] = h }

// View registers a modal submission handler by callback id.
func (b *Bot) View(callbackID string, h ViewHandler) { b.views[callbackID] = h }

// Run consumes Socket Mode events until the context is canceled.
func (b *Bot) Run(ctx context.Context) error {
	go b.eventLoop(ctx)
	return b.sm.RunContext(ctx)
}

func (b *Bot) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-b.sm.Events:
			if !ok {
				return
			}
			b.dispatch(ctx, evt)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		logger.Info("slack socket connecting")
	case socketmode.EventTypeConnected:
		logger.Info("slack socket connected")
	case socketmode.EventTypeConnectionError:
		logger.Warn("slack socket connection error")
	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		b.sm.Ack(*evt.Request)
		b.handleCommand(ctx, cmd)
	case socketmode.EventTypeInteractive:
		cb, ok := evt.Data.(slack.InteractionCallback)
		if !ok {
			return
		}
		b.sm.Ack(*evt.Request)
		b.handleInteraction(ctx, &cb)
	}
}

func (b *Bot) handleCommand(ctx context.Context, cmd slack.SlashCommand) {
	h, ok := b.commands[cmd.Command]
	if !ok {
		logger.Debug("unknown command", "command", cmd.Command)
		return
	}
	corrID := uuid.NewString()[:8]
	logger.Info("command received",
		"command", cmd.Command, "user", cmd.UserID, "correlation_id", corrID)
	if err := h(ctx, b.deps, cmd); err != nil {
		logger.Error("command failed",
			"command", cmd.Command, "user", cmd.UserID,
			"correlation_id", corrID, "error", err.Error())
		b.deps.ephemeral(ctx, cmd.ChannelID, cmd.UserID,
			"Something went wrong handling that command. Please try again.")
	}
}

func (b *Bot) handleInteraction(ctx context.Context, cb *slack.InteractionCallback) {
	switch cb.Type {
	case slack.InteractionTypeBlockActions:
		for i := range cb.ActionCallback.BlockActions {
			action := cb.ActionCallback.BlockActions[i]
			h, ok := b.actions[action.ActionID]
			if !ok {
				continue
			}
			if err := h(ctx, b.deps, cb, action); err != nil {
				logger.Error("action failed",
					"action_id", action.ActionID, "user", cb.User.ID, "error", err.Error())
				b.deps.ephemeral(ctx, cb.Channel.ID, cb.User.ID,
					"Something went wrong. Please try again.")
			}
		}
	case slack.InteractionTypeViewSubmission:
		h, ok := b.views[cb.View.CallbackID]
		if !ok {
			logger.Debug("unknown view submission", "callback_id", cb.View.CallbackID)
			return
		}
		if err := h(ctx, b.deps, cb); err != nil {
			logger.Error("view submission failed",
				"callback_id", cb.View.CallbackID, "user", cb.User.ID, "error", err.Error())
		}
	}
}
