package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/ignite/pulse-bot/internal/domain"
	"github.com/ignite/pulse-bot/internal/pkg/logger"
	"github.com/ignite/pulse-bot/internal/service/survey"
)

const (
	cmdSurveyCreate = "/survey_create"
	cmdSurveyManage = "/survey_manage"

	viewSurveyCreate = "survey_create_modal"
	viewSurveyLists  = "survey_lists_modal"

	actionSurveyClose      = "survey_close"
	actionSurveyUnanswered = "survey_unanswered"
	actionSurveyRemindNow  = "survey_remind_now"
	actionSurveyEditLists  = "survey_edit_lists"

	blockName     = "survey_name"
	blockQuestion = "survey_question"
	blockInterval = "survey_interval"
	blockInclude  = "survey_include"
	blockExclude  = "survey_exclude"

	inputName     = "name_input"
	inputQuestion = "question_input"
	inputInterval = "interval_select"
	inputInclude  = "include_select"
	inputExclude  = "exclude_select"
)

func registerSurveyHandlers(b *Bot) {
	b.Command(cmdSurveyCreate, handleSurveyCreateCommand)
	b.Command(cmdSurveyManage, handleSurveyManageCommand)
	b.View(viewSurveyCreate, handleSurveyCreateSubmit)
	b.View(viewSurveyLists, handleSurveyListsSubmit)
	b.Action(actionSurveyClose, handleSurveyClose)
	b.Action(actionSurveyUnanswered, handleSurveyUnanswered)
	b.Action(actionSurveyRemindNow, handleSurveyRemindNow)
	b.Action(actionSurveyEditLists, handleSurveyEditLists)
}

// intervalOptions are the reminder cadences offered in the create modal,
// value is seconds.
var intervalOptions = []struct {
	label   string
	seconds int64
}{
	{"Every hour", 3600},
	{"Every 4 hours", 14400},
	{"Every 8 hours", 28800},
	{"Daily", 86400},
	{"Every 3 days", 259200},
}

func handleSurveyCreateCommand(ctx context.Context, d *Deps, cmd slack.SlashCommand) error {
	if !requireAdmin(ctx, d, cmd.ChannelID, cmd.UserID) {
		return nil
	}

	lists, err := d.Audience.List(ctx)
	if err != nil {
		return fmt.Errorf("load audience lists: %w", err)
	}

	modal := surveyCreateModal(lists)
	if _, err := d.Client.OpenViewContext(ctx, cmd.TriggerID, modal); err != nil {
		return fmt.Errorf("open create modal: %w", err)
	}
	return nil
}

func surveyCreateModal(lists []domain.AudienceList) slack.ModalViewRequest {
	nameInput := slack.NewPlainTextInputBlockElement(
		plainText("e.g. Office check-in"), inputName)
	questionInput := slack.NewPlainTextInputBlockElement(
		plainText("The question every recipient will be asked"), inputQuestion)
	questionInput.Multiline = true

	var intervals []*slack.OptionBlockObject
	for _, opt := range intervalOptions {
		intervals = append(intervals, slack.NewOptionBlockObject(
			strconv.FormatInt(opt.seconds, 10), plainText(opt.label), nil))
	}
	intervalSelect := slack.NewOptionsSelectBlockElement(
		slack.OptTypeStatic, plainText("Reminder cadence"), inputInterval, intervals...)

	includeSelect := slack.NewOptionsMultiSelectBlockElement(
		slack.MultiOptTypeStatic, plainText("Lists to include"), inputInclude, listOptions(lists)...)
	excludeSelect := slack.NewOptionsMultiSelectBlockElement(
		slack.MultiOptTypeStatic, plainText("Lists to exclude"), inputExclude, listOptions(lists)...)

	includeBlock := slack.NewInputBlock(blockInclude, plainText("Send to"), nil, includeSelect)
	includeBlock.Optional = true
	excludeBlock := slack.NewInputBlock(blockExclude, plainText("But never to"), nil, excludeSelect)
	excludeBlock.Optional = true

	return slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: viewSurveyCreate,
		Title:      plainText("New survey"),
		Submit:     plainText("Create"),
		Close:      plainText("Cancel"),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewInputBlock(blockName, plainText("Survey name"), nil, nameInput),
			slack.NewInputBlock(blockQuestion, plainText("Question"), nil, questionInput),
			slack.NewInputBlock(blockInterval, plainText("Reminders"), nil, intervalSelect),
			includeBlock,
			excludeBlock,
		}},
	}
}

func handleSurveyCreateSubmit(ctx context.Context, d *Deps, cb *slack.InteractionCallback) error {
	values := cb.View.State.Values

	name := values[blockName][inputName].Value
	question := values[blockQuestion][inputQuestion].Value
	seconds, err := strconv.ParseInt(values[blockInterval][inputInterval].SelectedOption.Value, 10, 64)
	if err != nil {
		d.dm(ctx, cb.User.ID, "Creating the survey failed: the reminder cadence selection could not be read.")
		return fmt.Errorf("parse interval selection: %w", err)
	}

	sv, err := d.Surveys.Create(ctx, survey.CreateInput{
		Name:             name,
		Question:         question,
		OwnerSlackID:     cb.User.ID,
		OwnerName:        cb.User.Name,
		ReminderInterval: time.Duration(seconds) * time.Second,
	})
	if err != nil {
		d.dm(ctx, cb.User.ID, "Creating the survey failed: "+err.Error())
		return err
	}

	include := selectedListIDs(values, blockInclude, inputInclude)
	exclude := selectedListIDs(values, blockExclude, inputExclude)
	if len(include) > 0 || len(exclude) > 0 {
		if _, err := d.Surveys.UpdateModerationLists(ctx, sv.ID, include, exclude); err != nil {
			d.dm(ctx, cb.User.ID, fmt.Sprintf(
				"Survey *%s* was created but setting its lists failed: %s", sv.Name, err.Error()))
			return err
		}
	}

	d.dm(ctx, cb.User.ID, fmt.Sprintf(
		"Survey *%s* is live. Delivery starts on the next reminder pass; use `%s` to send it right away.",
		sv.Name, cmdSurveyManage))
	return nil
}

func handleSurveyManageCommand(ctx context.Context, d *Deps, cmd slack.SlashCommand) error {
	if !requireAdmin(ctx, d, cmd.ChannelID, cmd.UserID) {
		return nil
	}

	surveys, err := d.Surveys.List(ctx)
	if err != nil {
		return fmt.Errorf("list surveys: %w", err)
	}
	if len(surveys) == 0 {
		d.ephemeral(ctx, cmd.ChannelID, cmd.UserID,
			"No surveys yet. Create one with "+cmdSurveyCreate+".")
		return nil
	}

	var blocks []slack.Block
	for i := range surveys {
		blocks = append(blocks, surveyManagerBlocks(&surveys[i])...)
	}

	if _, err := d.Client.PostEphemeralContext(ctx, cmd.ChannelID, cmd.UserID,
		slack.MsgOptionText("Survey manager", false),
		slack.MsgOptionBlocks(blocks...)); err != nil {
		return fmt.Errorf("post survey manager: %w", err)
	}
	return nil
}

func surveyManagerBlocks(sv *domain.Survey) []slack.Block {
	status := ":large_green_circle: active"
	if !sv.IsActive {
		status = ":red_circle: closed"
	}
	text := fmt.Sprintf("*%s* (%s)\n%s\nReminders sent: %d",
		sv.Name, status, sv.Question, sv.RemindersSent)
	section := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)

	id := strconv.FormatInt(sv.ID, 10)
	unansweredBtn := slack.NewButtonBlockElement(actionSurveyUnanswered, id, plainText("Unanswered"))

	if !sv.IsActive {
		return []slack.Block{
			section,
			slack.NewActionBlock("survey_manage_"+id, unansweredBtn),
		}
	}

	remindBtn := slack.NewButtonBlockElement(actionSurveyRemindNow, id, plainText("Remind now"))
	listsBtn := slack.NewButtonBlockElement(actionSurveyEditLists, id, plainText("Edit lists"))
	closeBtn := slack.NewButtonBlockElement(actionSurveyClose, id, plainText("Close survey"))
	closeBtn.Style = slack.StyleDanger
	closeBtn.Confirm = slack.NewConfirmationBlockObject(
		plainText("Close this survey?"),
		slack.NewTextBlockObject(slack.MarkdownType,
			"Closing is permanent. No more answers or reminders.", false, false),
		plainText("Close it"),
		plainText("Keep it open"),
	)

	return []slack.Block{
		section,
		slack.NewActionBlock("survey_manage_"+id, unansweredBtn, remindBtn, listsBtn, closeBtn),
	}
}

func handleSurveyClose(ctx context.Context, d *Deps, cb *slack.InteractionCallback, action *slack.BlockAction) error {
	if !requireAdmin(ctx, d, cb.Channel.ID, cb.User.ID) {
		return nil
	}
	id, err := strconv.ParseInt(action.Value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse survey id %q: %w", action.Value, err)
	}

	sv, err := d.Surveys.Close(ctx, id)
	switch {
	case errors.Is(err, survey.ErrSurveyClosed):
		d.ephemeral(ctx, cb.Channel.ID, cb.User.ID, "That survey is already closed.")
		return nil
	case errors.Is(err, survey.ErrNotFound):
		d.ephemeral(ctx, cb.Channel.ID, cb.User.ID, "That survey no longer exists.")
		return nil
	case err != nil:
		return err
	}

	d.ephemeral(ctx, cb.Channel.ID, cb.User.ID,
		fmt.Sprintf("Survey *%s* is now closed. Answers and reminders have stopped.", sv.Name))
	return nil
}

func handleSurveyUnanswered(ctx context.Context, d *Deps, cb *slack.InteractionCallback, action *slack.BlockAction) error {
	if !requireAdmin(ctx, d, cb.Channel.ID, cb.User.ID) {
		return nil
	}
	id, err := strconv.ParseInt(action.Value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse survey id %q: %w", action.Value, err)
	}

	unanswered, err := d.Ledger.Unanswered(ctx, id)
	if err != nil {
		return fmt.Errorf("load unanswered: %w", err)
	}
	if len(unanswered) == 0 {
		d.ephemeral(ctx, cb.Channel.ID, cb.User.ID, "Everyone who got this survey has answered. :tada:")
		return nil
	}

	ids := make([]string, 0, len(unanswered))
	for uid := range unanswered {
		ids = append(ids, uid)
	}
	sort.Strings(ids)
	mentions := make([]string, len(ids))
	for i, uid := range ids {
		mentions[i] = "<@" + uid + ">"
	}
	d.ephemeral(ctx, cb.Channel.ID, cb.User.ID,
		fmt.Sprintf("Still waiting on %d people: %s", len(ids), strings.Join(mentions, ", ")))
	return nil
}

func handleSurveyRemindNow(ctx context.Context, d *Deps, cb *slack.InteractionCallback, action *slack.BlockAction) error {
	if !requireAdmin(ctx, d, cb.Channel.ID, cb.User.ID) {
		return nil
	}
	id, err := strconv.ParseInt(action.Value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse survey id %q: %w", action.Value, err)
	}

	sent, err := d.Engine.SendImmediate(ctx, id)
	switch {
	case errors.Is(err, survey.ErrSurveyClosed):
		d.ephemeral(ctx, cb.Channel.ID, cb.User.ID, "That survey is closed; nothing to send.")
		return nil
	case err != nil:
		return err
	}

	if sent == 0 {
		d.ephemeral(ctx, cb.Channel.ID, cb.User.ID,
			"Nothing to send: everyone in the audience has already answered.")
		return nil
	}
	d.ephemeral(ctx, cb.Channel.ID, cb.User.ID,
		fmt.Sprintf("Sent %d message(s).", sent))
	return nil
}

func handleSurveyEditLists(ctx context.Context, d *Deps, cb *slack.InteractionCallback, action *slack.BlockAction) error {
	if !requireAdmin(ctx, d, cb.Channel.ID, cb.User.ID) {
		return nil
	}
	id, err := strconv.ParseInt(action.Value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse survey id %q: %w", action.Value, err)
	}

	sv, err := d.Surveys.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load survey: %w", err)
	}
	lists, err := d.Audience.List(ctx)
	if err != nil {
		return fmt.Errorf("load audience lists: %w", err)
	}

	modal := surveyListsModal(sv, lists)
	if _, err := d.Client.OpenViewContext(ctx, cb.TriggerID, modal); err != nil {
		return fmt.Errorf("open lists modal: %w", err)
	}
	return nil
}

func surveyListsModal(sv *domain.Survey, lists []domain.AudienceList) slack.ModalViewRequest {
	includeSelect := slack.NewOptionsMultiSelectBlockElement(
		slack.MultiOptTypeStatic, plainText("Lists to include"), inputInclude, listOptions(lists)...)
	includeSelect.InitialOptions = initialOptions(lists, sv.IncludeListIDs)
	excludeSelect := slack.NewOptionsMultiSelectBlockElement(
		slack.MultiOptTypeStatic, plainText("Lists to exclude"), inputExclude, listOptions(lists)...)
	excludeSelect.InitialOptions = initialOptions(lists, sv.ExcludeListIDs)

	includeBlock := slack.NewInputBlock(blockInclude, plainText("Send to"), nil, includeSelect)
	includeBlock.Optional = true
	excludeBlock := slack.NewInputBlock(blockExclude, plainText("But never to"), nil, excludeSelect)
	excludeBlock.Optional = true

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      viewSurveyLists,
		PrivateMetadata: strconv.FormatInt(sv.ID, 10),
		Title:           plainText("Audience lists"),
		Submit:          plainText("Save"),
		Close:           plainText("Cancel"),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("Audience for *%s*", sv.Name), false, false), nil, nil),
			includeBlock,
			excludeBlock,
		}},
	}
}

func handleSurveyListsSubmit(ctx context.Context, d *Deps, cb *slack.InteractionCallback) error {
	id, err := strconv.ParseInt(cb.View.PrivateMetadata, 10, 64)
	if err != nil {
		return fmt.Errorf("parse survey id from metadata %q: %w", cb.View.PrivateMetadata, err)
	}

	values := cb.View.State.Values
	include := selectedListIDs(values, blockInclude, inputInclude)
	exclude := selectedListIDs(values, blockExclude, inputExclude)

	sv, err := d.Surveys.UpdateModerationLists(ctx, id, include, exclude)
	if errors.Is(err, survey.ErrSurveyClosed) {
		d.dm(ctx, cb.User.ID, "That survey is closed; its audience can no longer change.")
		return nil
	}
	if err != nil {
		return err
	}

	d.dm(ctx, cb.User.ID, fmt.Sprintf(
		"Audience for *%s* updated. The next delivery pass picks it up.", sv.Name))
	return nil
}

// dm sends a plain direct message to a user, logging failures.
func (d *Deps) dm(ctx context.Context, userID, text string) {
	if _, _, err := d.Client.PostMessageContext(ctx, userID,
		slack.MsgOptionText(text, false)); err != nil {
		logger.Warn("dm failed", "user", userID, "error", err.Error())
	}
}

func plainText(s string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, s, false, false)
}

func listOptions(lists []domain.AudienceList) []*slack.OptionBlockObject {
	out := make([]*slack.OptionBlockObject, 0, len(lists))
	for _, l := range lists {
		out = append(out, slack.NewOptionBlockObject(
			strconv.FormatInt(l.ID, 10), plainText(l.Name), nil))
	}
	return out
}

func initialOptions(lists []domain.AudienceList, ids []int64) []*slack.OptionBlockObject {
	byID := make(map[int64]domain.AudienceList, len(lists))
	for _, l := range lists {
		byID[l.ID] = l
	}
	var out []*slack.OptionBlockObject
	for _, id := range ids {
		l, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, slack.NewOptionBlockObject(
			strconv.FormatInt(l.ID, 10), plainText(l.Name), nil))
	}
	return out
}

// selectedListIDs reads a multi-select's choices out of the view state.
// The selection always round-trips through the interaction payload, never
// through server-side session state.
func selectedListIDs(values map[string]map[string]slack.BlockAction, blockID, actionID string) []int64 {
	var out []int64
	for _, opt := range values[blockID][actionID].SelectedOptions {
		id, err := strconv.ParseInt(opt.Value, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}
